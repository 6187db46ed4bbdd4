// Package trace provides hooks that record what the memory manager does.
package trace

import (
	"errors"
	"io"

	"github.com/sarchlab/pagesim/datarecording"
	"github.com/sarchlab/pagesim/mem/vm/mmu"
	"github.com/sarchlab/pagesim/sim"
)

// Table names used by the DBTracer.
const (
	ConfigTable       = "memory_configs"
	FrameEventTable   = "frame_events"
	ProcessEventTable = "process_events"
)

// ConfigEntry is a row of the memory_configs table.
type ConfigEntry struct {
	ID                 string
	Step               uint64
	Where              string
	PhysicalMemorySize int
	FrameSize          int
	MaxProcessSize     int
	NumFrames          int
}

// FrameEventEntry is a row of the frame_events table.
type FrameEventEntry struct {
	ID    string
	Step  uint64
	Where string
	What  string
	PID   int
	VPN   int
	Frame int
}

// ProcessEventEntry is a row of the process_events table.
type ProcessEventEntry struct {
	ID       string
	Step     uint64
	Where    string
	What     string
	PID      int
	Size     int
	NumPages int
	Error    string
}

func what(pos *sim.HookPos) string {
	switch pos {
	case mmu.HookPosInitialize:
		return "initialize"
	case mmu.HookPosFrameAllocate:
		return "allocate"
	case mmu.HookPosFrameRelease:
		return "release"
	case mmu.HookPosProcessCreate:
		return "create"
	case mmu.HookPosProcessDestroy:
		return "destroy"
	case mmu.HookPosCreateFailed:
		return "create_failed"
	default:
		return ""
	}
}

func where(ctx sim.HookCtx) string {
	named, ok := ctx.Domain.(sim.Named)
	if !ok {
		return ""
	}

	return named.Name()
}

// A LogTracer is a hook that writes one line per memory manager event.
type LogTracer struct {
	sim.LogHookBase
}

// NewLogTracer creates a LogTracer writing to w.
func NewLogTracer(w io.Writer) *LogTracer {
	return &LogTracer{
		LogHookBase: sim.NewLogHookBase(w, "[trace] "),
	}
}

// Func writes the event.
func (t *LogTracer) Func(ctx sim.HookCtx) {
	w := what(ctx.Pos)
	if w == "" {
		return
	}

	switch item := ctx.Item.(type) {
	case mmu.Config:
		t.Printf("%s, %s, memory %d, frame %d, max process %d, frames %d\n",
			where(ctx), w, item.PhysicalMemorySize, item.FrameSize,
			item.MaxProcessSize, item.NumFrames())
	case mmu.FrameEvent:
		t.Printf("%s, %s, pid %d, page %d, frame %d\n",
			where(ctx), w, item.PID, item.VPN, item.Frame)
	case mmu.ProcessInfo:
		if err, ok := ctx.Detail.(error); ok {
			t.Printf("%s, %s, pid %d, size %d, %v\n",
				where(ctx), w, item.PID, item.Size, err)
			return
		}

		t.Printf("%s, %s, pid %d, size %d, pages %d\n",
			where(ctx), w, item.PID, item.Size, item.NumPages)
	}
}

// A DBTracer is a hook that records memory manager events into a database
// using the data recorder.
type DBTracer struct {
	dataRecorder datarecording.DataRecorder
	step         uint64
}

// NewDBTracer creates the event tables in the recorder and returns a tracer
// writing to them.
func NewDBTracer(dataRecorder datarecording.DataRecorder) *DBTracer {
	t := &DBTracer{dataRecorder: dataRecorder}

	t.dataRecorder.CreateTable(ConfigTable, ConfigEntry{})
	t.dataRecorder.CreateTable(FrameEventTable, FrameEventEntry{})
	t.dataRecorder.CreateTable(ProcessEventTable, ProcessEventEntry{})

	return t
}

// Func records the event.
func (t *DBTracer) Func(ctx sim.HookCtx) {
	w := what(ctx.Pos)
	if w == "" {
		return
	}

	t.step++
	id := sim.GetIDGenerator().Generate()

	switch item := ctx.Item.(type) {
	case mmu.FrameEvent:
		t.dataRecorder.InsertData(FrameEventTable, FrameEventEntry{
			ID:    id,
			Step:  t.step,
			Where: where(ctx),
			What:  w,
			PID:   int(item.PID),
			VPN:   item.VPN,
			Frame: item.Frame,
		})
	case mmu.ProcessInfo:
		t.dataRecorder.InsertData(ProcessEventTable, ProcessEventEntry{
			ID:       id,
			Step:     t.step,
			Where:    where(ctx),
			What:     w,
			PID:      int(item.PID),
			Size:     item.Size,
			NumPages: item.NumPages,
			Error:    errorString(ctx.Detail),
		})
	case mmu.Config:
		t.dataRecorder.InsertData(ConfigTable, ConfigEntry{
			ID:                 id,
			Step:               t.step,
			Where:              where(ctx),
			PhysicalMemorySize: item.PhysicalMemorySize,
			FrameSize:          item.FrameSize,
			MaxProcessSize:     item.MaxProcessSize,
			NumFrames:          item.NumFrames(),
		})
	}
}

func errorString(detail any) string {
	err, ok := detail.(error)
	if !ok {
		return ""
	}

	for _, known := range []error{
		mmu.ErrInvalidSize,
		mmu.ErrSizeExceedsLimit,
		mmu.ErrInsufficientTotalMemory,
		mmu.ErrInsufficientFramesDuringAllocation,
		mmu.ErrRegistryFull,
		mmu.ErrDuplicateID,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}

	return err.Error()
}
