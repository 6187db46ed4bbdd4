package memory_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pagesim/memory"
)

var _ = Describe("Storage", func() {
	It("should start zero-filled", func() {
		storage := memory.NewStorage(64, 16)

		res, err := storage.Read(0, 64)

		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(make([]byte, 64)))
	})

	It("should read and write by address", func() {
		storage := memory.NewStorage(64, 16)
		Expect(storage.Write(14, []byte{1, 2, 3, 4})).To(Succeed())

		res, _ := storage.Read(14, 4)
		Expect(res).To(Equal([]byte{1, 2, 3, 4}))

		res, _ = storage.Read(15, 2)
		Expect(res).To(Equal([]byte{2, 3}))
	})

	It("should count frames and wasted bytes", func() {
		storage := memory.NewStorage(70, 16)

		Expect(storage.NumFrames()).To(Equal(4))
		Expect(storage.WastedBytes()).To(Equal(uint64(6)))
		Expect(storage.FrameSize()).To(Equal(uint64(16)))
		Expect(storage.Capacity()).To(Equal(uint64(70)))
	})

	It("should write a partial frame and keep the tail", func() {
		storage := memory.NewStorage(64, 16)
		Expect(storage.WriteFrame(2, []byte{9, 9, 9})).To(Succeed())

		frame, err := storage.ReadFrame(2)

		Expect(err).NotTo(HaveOccurred())
		Expect(frame[:3]).To(Equal([]byte{9, 9, 9}))
		Expect(frame[3:]).To(Equal(make([]byte, 13)))
	})

	It("should clear a frame", func() {
		storage := memory.NewStorage(32, 16)
		Expect(storage.WriteFrame(1, []byte{1, 2})).To(Succeed())

		Expect(storage.ClearFrame(1)).To(Succeed())

		frame, _ := storage.ReadFrame(1)
		Expect(frame).To(Equal(make([]byte, 16)))
	})

	It("should return error if accessing over the capacity", func() {
		storage := memory.NewStorage(64, 16)

		err := storage.Write(63, []byte{1, 2})
		Expect(err).To(MatchError(memory.ErrOutOfRange))

		_, err = storage.Read(65, 1)
		Expect(err).To(MatchError(memory.ErrOutOfRange))
	})

	It("should reject frames that do not exist", func() {
		storage := memory.NewStorage(70, 16)

		_, err := storage.ReadFrame(4)
		Expect(err).To(MatchError(memory.ErrOutOfRange))

		err = storage.WriteFrame(-1, []byte{1})
		Expect(err).To(MatchError(memory.ErrOutOfRange))
	})

	It("should reject data larger than a frame", func() {
		storage := memory.NewStorage(64, 16)

		err := storage.WriteFrame(0, make([]byte, 17))

		Expect(err).To(MatchError(memory.ErrOutOfRange))
	})
})
