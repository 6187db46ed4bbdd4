package trace

import (
	"sync"

	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/mem/vm/mmu"
	"github.com/sarchlab/pagesim/sim"
)

// StepCountTracer counts how many times each kind of manager event happened
// and how many distinct processes took part in it.
type StepCountTracer struct {
	lock                 sync.Mutex
	stepNames            []string
	stepCount            map[string]uint64
	processesWithStep    map[string]map[vm.PID]bool
	processWithStepCount map[string]uint64
}

// NewStepCountTracer creates a new StepCountTracer
func NewStepCountTracer() *StepCountTracer {
	return &StepCountTracer{
		stepCount:            make(map[string]uint64),
		processesWithStep:    make(map[string]map[vm.PID]bool),
		processWithStepCount: make(map[string]uint64),
	}
}

// Func counts one event.
func (t *StepCountTracer) Func(ctx sim.HookCtx) {
	step := what(ctx.Pos)
	if step == "" {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	if ctx.Pos == mmu.HookPosInitialize {
		t.reset()
	}

	t.countStep(step)

	if pid, ok := processOf(ctx.Item); ok {
		t.countProcess(step, pid)
	}
}

func (t *StepCountTracer) reset() {
	t.stepNames = nil
	t.stepCount = make(map[string]uint64)
	t.processesWithStep = make(map[string]map[vm.PID]bool)
	t.processWithStepCount = make(map[string]uint64)
}

func (t *StepCountTracer) countStep(step string) {
	if _, ok := t.stepCount[step]; !ok {
		t.stepNames = append(t.stepNames, step)
	}

	t.stepCount[step]++
}

func (t *StepCountTracer) countProcess(step string, pid vm.PID) {
	seen, ok := t.processesWithStep[step]
	if !ok {
		seen = make(map[vm.PID]bool)
		t.processesWithStep[step] = seen
	}

	if !seen[pid] {
		seen[pid] = true
		t.processWithStepCount[step]++
	}
}

func processOf(item any) (vm.PID, bool) {
	switch item := item.(type) {
	case mmu.FrameEvent:
		return item.PID, true
	case mmu.ProcessInfo:
		return item.PID, true
	default:
		return 0, false
	}
}

// GetStepNames returns the step names in the order they first happened
// since the last initialization.
func (t *StepCountTracer) GetStepNames() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	names := make([]string, len(t.stepNames))
	copy(names, t.stepNames)

	return names
}

// GetStepCount returns the number of times a step happened.
func (t *StepCountTracer) GetStepCount(stepName string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.stepCount[stepName]
}

// GetProcessCount returns the number of distinct process IDs that had a
// step.
func (t *StepCountTracer) GetProcessCount(stepName string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.processWithStepCount[stepName]
}
