// Package frame manages the pool of physical frames that are not mapped by
// any process.
package frame

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrFrameOutOfRange is returned when a frame index does not name a frame
// of the pool.
var ErrFrameOutOfRange = errors.New("frame out of range")

// ErrFrameNotAllocated is returned when releasing a frame that is already
// free.
var ErrFrameNotAllocated = errors.New("frame is not allocated")

// Policy decides which free frame an allocation takes.
type Policy int

// The selection policies supported by the pool.
const (
	// PolicyQueue hands out the least-recently-freed frame first.
	PolicyQueue Policy = iota
	// PolicyStack hands out the most-recently-freed frame first.
	PolicyStack
	// PolicyRandom hands out a uniformly random free frame.
	PolicyRandom
)

var policyNames = map[Policy]string{
	PolicyQueue:  "queue",
	PolicyStack:  "stack",
	PolicyRandom: "random",
}

func (p Policy) String() string {
	name, ok := policyNames[p]
	if !ok {
		return fmt.Sprintf("Policy(%d)", int(p))
	}

	return name
}

// ParsePolicy converts a policy name into a Policy.
func ParsePolicy(name string) (Policy, error) {
	for p, n := range policyNames {
		if n == name {
			return p, nil
		}
	}

	return PolicyQueue, fmt.Errorf("unknown frame selection policy %q", name)
}

// A Pool tracks the frames that are free.
//
// Free frames are kept in an ordered slice. The order is the release order,
// so the queue policy takes from the front and the stack policy from the
// back. A membership bitmap guards against double release.
type Pool struct {
	policy Policy
	rand   *rand.Rand

	free   []int
	isFree []bool
}

// NewPool creates an empty pool that selects frames with the given policy.
// The random source is only used by PolicyRandom; a nil source falls back to
// a fixed seed.
func NewPool(policy Policy, r *rand.Rand) *Pool {
	if _, ok := policyNames[policy]; !ok {
		panic(fmt.Sprintf("unknown frame selection policy %d", policy))
	}

	if r == nil {
		r = rand.New(rand.NewSource(1))
	}

	return &Pool{
		policy: policy,
		rand:   r,
	}
}

// Policy returns the selection policy of the pool.
func (p *Pool) Policy() Policy {
	return p.policy
}

// Initialize fills the pool with every frame index in [0, numFrames).
func (p *Pool) Initialize(numFrames int) {
	if numFrames < 0 {
		numFrames = 0
	}

	p.free = make([]int, numFrames)
	p.isFree = make([]bool, numFrames)

	for i := 0; i < numFrames; i++ {
		p.free[i] = i
		p.isFree[i] = true
	}
}

// Allocate removes a frame from the pool and returns it. The bool is false
// when no frame is available.
func (p *Pool) Allocate() (int, bool) {
	if len(p.free) == 0 {
		return 0, false
	}

	var index int

	switch p.policy {
	case PolicyQueue:
		index = 0
	case PolicyStack:
		index = len(p.free) - 1
	case PolicyRandom:
		index = p.rand.Intn(len(p.free))
	}

	frame := p.free[index]
	p.free = append(p.free[:index], p.free[index+1:]...)
	p.isFree[frame] = false

	return frame, true
}

// Release puts a frame back into the pool. Releasing a frame that is out of
// range or already free is rejected and leaves the pool unchanged.
func (p *Pool) Release(frame int) error {
	if frame < 0 || frame >= len(p.isFree) {
		return fmt.Errorf("%w: %d", ErrFrameOutOfRange, frame)
	}

	if p.isFree[frame] {
		return fmt.Errorf("%w: %d", ErrFrameNotAllocated, frame)
	}

	p.free = append(p.free, frame)
	p.isFree[frame] = true

	return nil
}

// FreeCount returns the number of free frames.
func (p *Pool) FreeCount() int {
	return len(p.free)
}

// TotalCount returns the number of frames managed by the pool.
func (p *Pool) TotalCount() int {
	return len(p.isFree)
}

// IsFree tells if a frame is currently in the pool.
func (p *Pool) IsFree(frame int) bool {
	if frame < 0 || frame >= len(p.isFree) {
		return false
	}

	return p.isFree[frame]
}
