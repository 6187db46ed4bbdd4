// Package cmd provides the command-line interface of the simulator.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/sarchlab/pagesim/datarecording"
	"github.com/sarchlab/pagesim/mem/frame"
	"github.com/sarchlab/pagesim/mem/trace"
	"github.com/sarchlab/pagesim/mem/vm/mmu"
	"github.com/sarchlab/pagesim/monitoring"
	"github.com/sarchlab/pagesim/shell"
	"github.com/sarchlab/pagesim/sim"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

type options struct {
	memorySize     int
	frameSize      int
	maxProcessSize int
	maxProcesses   int
	policy         string
	seed           int64
	record         string
	parallelIDs    bool
	trace          bool
	monitor        bool
	monitorPort    int
	openBrowser    bool
	envFile        string
}

var opts options

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd(&opts)

func newRootCmd(o *options) *cobra.Command {
	c := &cobra.Command{
		Use:   "pagesim",
		Short: "pagesim simulates paged virtual memory.",
		Long: `pagesim simulates a physical memory divided into frames. ` +
			`Processes are created with random content, their pages are ` +
			`mapped to free frames, and the memory and page tables can be ` +
			`inspected from an interactive menu.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			err := loadEnvFile(o.envFile)
			if err != nil {
				return err
			}

			return applyEnvDefaults(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(o, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	f := c.Flags()
	f.IntVar(&o.memorySize, "memory-size", 0,
		"Physical memory size in bytes. Asked for if not set.")
	f.IntVar(&o.frameSize, "frame-size", 0,
		"Frame and page size in bytes. Asked for if not set.")
	f.IntVar(&o.maxProcessSize, "max-process-size", 0,
		"Maximum process size in bytes. Asked for if not set.")
	f.IntVar(&o.maxProcesses, "max-processes", 10,
		"Number of processes that can be alive at the same time.")
	f.StringVar(&o.policy, "policy", frame.PolicyQueue.String(),
		"Free frame selection policy: queue, stack, or random.")
	f.Int64Var(&o.seed, "seed", 0,
		"Seed of the random number generator. 0 seeds from the clock.")
	f.StringVar(&o.record, "record", "",
		"Record manager events into <record>.sqlite3.")
	f.BoolVar(&o.parallelIDs, "parallel-ids", false,
		"Give records globally unique IDs instead of 1, 2, 3, ...")
	f.BoolVar(&o.trace, "trace", false,
		"Print every manager event to stderr.")
	f.BoolVar(&o.monitor, "monitor", false,
		"Serve the memory state over HTTP.")
	f.IntVar(&o.monitorPort, "monitor-port", 0,
		"Port of the monitoring server. Ports below 1000 pick a random port.")
	f.BoolVar(&o.openBrowser, "open-browser", false,
		"Open the monitoring page in a browser.")
	f.StringVar(&o.envFile, "env-file", defaultEnvFile,
		"File to load environment defaults from.")

	return c
}

// A session is the memory manager of one run and the records it leaves.
type session struct {
	manager *mmu.Comp
	seed    int64
	exec    *datarecording.ExecRecorder
}

func resolveSeed(seed int64) int64 {
	if seed != 0 {
		return seed
	}

	return time.Now().UnixNano()
}

func newSession(o *options) (*session, error) {
	policy, err := frame.ParsePolicy(o.policy)
	if err != nil {
		return nil, err
	}

	if o.maxProcesses <= 0 {
		return nil, fmt.Errorf("max processes must be positive, got %d",
			o.maxProcesses)
	}

	if o.parallelIDs {
		sim.UseParallelIDGenerator()
	}

	s := &session{seed: resolveSeed(o.seed)}

	builder := mmu.MakeBuilder().
		WithMaxNumProcess(o.maxProcesses).
		WithSelectionPolicy(policy).
		WithSeed(s.seed)

	if o.trace {
		builder = builder.WithHook(trace.NewLogTracer(os.Stderr))
	}

	if o.record != "" {
		recorder := datarecording.New(o.record)

		s.exec = datarecording.NewExecRecorder(recorder)
		s.exec.Start()
		s.exec.Set("Policy", policy.String())
		s.exec.Set("Seed", strconv.FormatInt(s.seed, 10))
		atexit.Register(s.end)

		builder = builder.WithHook(trace.NewDBTracer(recorder))
	}

	s.manager = builder.Build("MMU")

	return s, nil
}

// end writes the properties of the run into the recording, if any.
func (s *session) end() {
	if s.exec != nil {
		s.exec.End()
	}
}

func run(o *options, in io.Reader, out io.Writer) error {
	s, err := newSession(o)
	if err != nil {
		return err
	}

	manager := s.manager

	if o.monitor {
		steps := trace.NewStepCountTracer()
		manager.AcceptHook(steps)

		m := monitoring.NewMonitor().WithPortNumber(o.monitorPort)
		m.RegisterManager(manager)
		m.RegisterStepCounter(steps)
		url := m.StartServer()

		if o.openBrowser {
			monitoring.OpenInBrowser(url)
		}
	}

	sh := shell.New(manager, in, out)

	_, err = sh.Configure(shell.Sizes{
		PhysicalMemorySize: o.memorySize,
		FrameSize:          o.frameSize,
		MaxProcessSize:     o.maxProcessSize,
	})
	if errors.Is(err, io.EOF) {
		return nil
	}

	if err != nil {
		return err
	}

	return sh.Run()
}

// Execute runs the root command and exits through atexit so that recorded
// data is flushed.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
