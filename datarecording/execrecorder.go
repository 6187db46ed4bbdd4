package datarecording

import (
	"os"
	"strings"
	"time"
)

// ExecInfo is one property of a run.
type ExecInfo struct {
	Property string
	Value    string
}

// ExecTableName is the table that holds the run properties.
const ExecTableName = "exec_info"

const execTimeLayout = "2006-01-02 15:04:05.000000000"

// An ExecRecorder records how the program was run.
type ExecRecorder struct {
	recorder DataRecorder
	entries  []ExecInfo
}

// NewExecRecorder creates the exec_info table in the recorder.
func NewExecRecorder(recorder DataRecorder) *ExecRecorder {
	e := &ExecRecorder{recorder: recorder}
	e.recorder.CreateTable(ExecTableName, ExecInfo{})

	return e
}

// Start remembers the start time and the command line.
func (e *ExecRecorder) Start() {
	e.entries = append(e.entries,
		ExecInfo{"Start Time", time.Now().Format(execTimeLayout)},
		ExecInfo{"Command", strings.Join(os.Args, " ")},
	)

	if cwd, err := os.Getwd(); err == nil {
		e.entries = append(e.entries, ExecInfo{"Working Directory", cwd})
	}
}

// Set records an extra property of the run.
func (e *ExecRecorder) Set(property, value string) {
	e.entries = append(e.entries, ExecInfo{property, value})
}

// End writes the collected properties along with the end time.
func (e *ExecRecorder) End() {
	for _, entry := range e.entries {
		e.recorder.InsertData(ExecTableName, entry)
	}

	e.recorder.InsertData(ExecTableName,
		ExecInfo{"End Time", time.Now().Format(execTimeLayout)})

	e.entries = nil

	e.recorder.Flush()
}
