package vm

// A Process is a simulated process whose logical address space is mapped
// onto physical frames.
type Process struct {
	PID      PID
	Size     int
	NumPages int

	// Logical is the initial content of the address space.
	Logical []byte
}

// NumPagesFor returns the number of pages of pageSize bytes needed to hold
// size bytes.
func NumPagesFor(size, pageSize int) int {
	return (size + pageSize - 1) / pageSize
}
