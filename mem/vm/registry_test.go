package vm

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Registry", func() {
	var r *Registry

	BeforeEach(func() {
		r = NewRegistry(2)
	})

	It("should keep creation order", func() {
		r.Push(&Process{PID: 5})
		r.Push(&Process{PID: 3})

		all := r.All()

		Expect(all).To(HaveLen(2))
		Expect(all[0].PID).To(Equal(PID(5)))
		Expect(all[1].PID).To(Equal(PID(3)))
	})

	It("should reject pushes once full", func() {
		r.Push(&Process{PID: 1})
		r.Push(&Process{PID: 2})

		Expect(r.CanPush()).To(BeFalse())
		Expect(func() { r.Push(&Process{PID: 3}) }).To(Panic())
	})

	It("should find and remove by PID", func() {
		r.Push(&Process{PID: 1, Size: 10})
		r.Push(&Process{PID: 2, Size: 20})

		p, found := r.Find(2)
		Expect(found).To(BeTrue())
		Expect(p.Size).To(Equal(20))

		p, found = r.Remove(1)
		Expect(found).To(BeTrue())
		Expect(p.Size).To(Equal(10))
		Expect(r.Size()).To(Equal(1))
		Expect(r.CanPush()).To(BeTrue())

		_, found = r.Find(1)
		Expect(found).To(BeFalse())
	})

	It("should report its capacity", func() {
		r.Push(&Process{PID: 1})

		Expect(r.Size()).To(Equal(1))
		Expect(r.Capacity()).To(Equal(2))
	})

	It("should not reserve room for a huge capacity", func() {
		big := NewRegistry(math.MaxInt)

		big.Push(&Process{PID: 1})

		Expect(big.Size()).To(Equal(1))
		Expect(big.CanPush()).To(BeTrue())
	})
})
