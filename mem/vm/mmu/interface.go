package mmu

import "math/rand"

// A FramePool hands out free physical frames and takes them back.
type FramePool interface {
	Initialize(numFrames int)
	Allocate() (int, bool)
	Release(frame int) error
	FreeCount() int
	TotalCount() int
	IsFree(frame int) bool
}

// A ContentGenerator produces the initial content of a new process's address
// space.
type ContentGenerator interface {
	Generate(size int) []byte
}

// RandomContent fills address spaces with pseudo-random bytes.
type RandomContent struct {
	Rand *rand.Rand
}

// Generate returns size random bytes.
func (g RandomContent) Generate(size int) []byte {
	content := make([]byte, size)
	for i := range content {
		content[i] = byte(g.Rand.Intn(256))
	}

	return content
}
