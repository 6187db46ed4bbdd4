package vm

import "log"

// A Registry keeps the live processes in creation order. It holds at most
// Capacity processes.
type Registry struct {
	capacity  int
	processes []*Process
}

// NewRegistry creates an empty registry.
func NewRegistry(capacity int) *Registry {
	return &Registry{capacity: capacity}
}

// CanPush tells if one more process fits.
func (r *Registry) CanPush() bool {
	return len(r.processes) < r.capacity
}

// Push appends a process. Pushing into a full registry panics.
func (r *Registry) Push(p *Process) {
	if !r.CanPush() {
		log.Panic("process registry overflow")
	}

	r.processes = append(r.processes, p)
}

// Find returns the process with the given PID.
func (r *Registry) Find(pid PID) (*Process, bool) {
	for _, p := range r.processes {
		if p.PID == pid {
			return p, true
		}
	}

	return nil, false
}

// Remove takes the process with the given PID out of the registry, keeping
// the order of the others.
func (r *Registry) Remove(pid PID) (*Process, bool) {
	for i, p := range r.processes {
		if p.PID == pid {
			r.processes = append(r.processes[:i], r.processes[i+1:]...)
			return p, true
		}
	}

	return nil, false
}

// All returns the processes in creation order.
func (r *Registry) All() []*Process {
	all := make([]*Process, len(r.processes))
	copy(all, r.processes)

	return all
}

// Capacity returns the maximum number of processes.
func (r *Registry) Capacity() int {
	return r.capacity
}

// Size returns the number of live processes.
func (r *Registry) Size() int {
	return len(r.processes)
}
