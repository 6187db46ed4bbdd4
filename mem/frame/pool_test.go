package frame

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Pool", func() {
	allocateAll := func(p *Pool) []int {
		frames := []int{}
		for {
			f, ok := p.Allocate()
			if !ok {
				return frames
			}
			frames = append(frames, f)
		}
	}

	Context("queue policy", func() {
		var pool *Pool

		BeforeEach(func() {
			pool = NewPool(PolicyQueue, nil)
			pool.Initialize(4)
		})

		It("should hold every frame after initialization", func() {
			Expect(pool.FreeCount()).To(Equal(4))
			Expect(pool.TotalCount()).To(Equal(4))
			for f := 0; f < 4; f++ {
				Expect(pool.IsFree(f)).To(BeTrue())
			}
		})

		It("should hand out frames in ascending order", func() {
			Expect(allocateAll(pool)).To(Equal([]int{0, 1, 2, 3}))
			Expect(pool.FreeCount()).To(Equal(0))
		})

		It("should report no frame when empty", func() {
			allocateAll(pool)

			_, ok := pool.Allocate()

			Expect(ok).To(BeFalse())
		})

		It("should reuse the least recently released frame first", func() {
			allocateAll(pool)
			Expect(pool.Release(2)).To(Succeed())
			Expect(pool.Release(0)).To(Succeed())

			f, ok := pool.Allocate()

			Expect(ok).To(BeTrue())
			Expect(f).To(Equal(2))
		})
	})

	Context("stack policy", func() {
		It("should reuse the most recently released frame first", func() {
			pool := NewPool(PolicyStack, nil)
			pool.Initialize(3)
			allocateAll(pool)
			Expect(pool.Release(0)).To(Succeed())
			Expect(pool.Release(2)).To(Succeed())

			f, _ := pool.Allocate()

			Expect(f).To(Equal(2))
		})
	})

	Context("random policy", func() {
		It("should hand out every frame exactly once", func() {
			pool := NewPool(PolicyRandom, rand.New(rand.NewSource(42)))
			pool.Initialize(16)

			frames := allocateAll(pool)

			Expect(frames).To(HaveLen(16))
			Expect(frames).To(ConsistOf(
				0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15))
		})

		It("should be reproducible with the same seed", func() {
			a := NewPool(PolicyRandom, rand.New(rand.NewSource(7)))
			b := NewPool(PolicyRandom, rand.New(rand.NewSource(7)))
			a.Initialize(32)
			b.Initialize(32)

			Expect(allocateAll(a)).To(Equal(allocateAll(b)))
		})
	})

	Context("release", func() {
		var pool *Pool

		BeforeEach(func() {
			pool = NewPool(PolicyQueue, nil)
			pool.Initialize(2)
		})

		It("should reject a double release", func() {
			f, _ := pool.Allocate()
			Expect(pool.Release(f)).To(Succeed())

			err := pool.Release(f)

			Expect(err).To(MatchError(ErrFrameNotAllocated))
			Expect(pool.FreeCount()).To(Equal(2))
		})

		It("should reject releasing a frame that was never allocated", func() {
			Expect(pool.Release(1)).To(MatchError(ErrFrameNotAllocated))
			Expect(pool.FreeCount()).To(Equal(2))
		})

		It("should reject out of range frames", func() {
			Expect(pool.Release(-1)).To(MatchError(ErrFrameOutOfRange))
			Expect(pool.Release(2)).To(MatchError(ErrFrameOutOfRange))
		})

		It("should track membership", func() {
			f, _ := pool.Allocate()
			Expect(pool.IsFree(f)).To(BeFalse())

			Expect(pool.Release(f)).To(Succeed())
			Expect(pool.IsFree(f)).To(BeTrue())
			Expect(pool.IsFree(5)).To(BeFalse())
		})
	})

	It("should have nothing to allocate with zero frames", func() {
		pool := NewPool(PolicyQueue, nil)
		pool.Initialize(0)

		_, ok := pool.Allocate()

		Expect(ok).To(BeFalse())
		Expect(pool.TotalCount()).To(Equal(0))
	})

	It("should parse policy names", func() {
		for _, p := range []Policy{PolicyQueue, PolicyStack, PolicyRandom} {
			parsed, err := ParsePolicy(p.String())
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed).To(Equal(p))
		}

		_, err := ParsePolicy("lru")
		Expect(err).To(HaveOccurred())
	})
})
