package mmu

import (
	"math/rand"
	"time"

	"github.com/sarchlab/pagesim/mem/frame"
	"github.com/sarchlab/pagesim/sim"
)

// A Builder can build memory managers.
type Builder struct {
	maxNumProcess    int
	policy           frame.Policy
	rand             *rand.Rand
	framePool        FramePool
	contentGenerator ContentGenerator
	hooks            []sim.Hook
}

// MakeBuilder creates a new builder with the default configuration: at most
// 10 processes and frames handed out in queue order.
func MakeBuilder() Builder {
	return Builder{
		maxNumProcess: 10,
		policy:        frame.PolicyQueue,
	}
}

// WithMaxNumProcess sets the number of processes that can be alive at the
// same time.
func (b Builder) WithMaxNumProcess(n int) Builder {
	b.maxNumProcess = n
	return b
}

// WithSelectionPolicy sets how the frame pool picks a free frame.
func (b Builder) WithSelectionPolicy(p frame.Policy) Builder {
	b.policy = p
	return b
}

// WithRand sets the random source used for random frame selection and for
// the default process content.
func (b Builder) WithRand(r *rand.Rand) Builder {
	b.rand = r
	return b
}

// WithSeed is a shortcut for WithRand with a source seeded with seed.
func (b Builder) WithSeed(seed int64) Builder {
	b.rand = rand.New(rand.NewSource(seed))
	return b
}

// WithFramePool replaces the default frame pool. The selection policy is
// ignored when a pool is given.
func (b Builder) WithFramePool(p FramePool) Builder {
	b.framePool = p
	return b
}

// WithContentGenerator sets what fills the address space of new processes.
func (b Builder) WithContentGenerator(g ContentGenerator) Builder {
	b.contentGenerator = g
	return b
}

// WithHook registers a hook on the manager when it is built.
func (b Builder) WithHook(h sim.Hook) Builder {
	b.hooks = append(b.hooks[:len(b.hooks):len(b.hooks)], h)
	return b
}

// Build returns a newly created memory manager. The manager must be
// initialized before processes can be created.
func (b Builder) Build(name string) *Comp {
	if b.maxNumProcess <= 0 {
		panic("the maximum number of processes must be positive")
	}

	r := b.rand
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	c := &Comp{
		HookableBase:  sim.NewHookableBase(),
		name:          name,
		maxNumProcess: b.maxNumProcess,
	}

	b.createFramePool(c, r)
	b.createContentGenerator(c, r)

	for _, h := range b.hooks {
		c.AcceptHook(h)
	}

	return c
}

func (b Builder) createFramePool(c *Comp, r *rand.Rand) {
	if b.framePool != nil {
		c.pool = b.framePool
		return
	}

	c.pool = frame.NewPool(b.policy, r)
}

func (b Builder) createContentGenerator(c *Comp, r *rand.Rand) {
	if b.contentGenerator != nil {
		c.contentGenerator = b.contentGenerator
		return
	}

	c.contentGenerator = RandomContent{Rand: r}
}
