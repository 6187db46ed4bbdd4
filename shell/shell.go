// Package shell implements the interactive menu that drives the memory
// manager.
package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/mem/vm/mmu"
)

// A Manager is what the shell drives.
type Manager interface {
	Initialize(physicalMemorySize, frameSize, maxProcessSize int) error
	CreateProcess(pid vm.PID, size int) error
	DestroyProcess(pid vm.PID) error
	MemoryReport() (mmu.MemoryReport, error)
	PageTable(pid vm.PID) (mmu.PageTableView, error)
	Processes() ([]mmu.ProcessInfo, error)
}

// Sizes are the startup parameters. Zero fields are asked for.
type Sizes struct {
	PhysicalMemorySize int
	FrameSize          int
	MaxProcessSize     int
}

// Menu choices.
const (
	ChoiceDisplayMemory    = 1
	ChoiceCreateProcess    = 2
	ChoiceDisplayPageTable = 3
	ChoiceExit             = 4
	ChoiceDestroyProcess   = 5
	ChoiceListProcesses    = 6
)

const menu = `
Menu:
1. Display memory
2. Create process
3. Display page table
4. Exit
5. Destroy process
6. List processes
Choose an option: `

// A Shell reads commands from an input and prints results to an output.
type Shell struct {
	manager Manager
	scanner *bufio.Scanner
	out     io.Writer
}

// New creates a shell.
func New(manager Manager, in io.Reader, out io.Writer) *Shell {
	scanner := bufio.NewScanner(in)
	scanner.Split(bufio.ScanWords)

	return &Shell{
		manager: manager,
		scanner: scanner,
		out:     out,
	}
}

// readInt prompts until an integer is read. It returns io.EOF when the input
// ends.
func (s *Shell) readInt(prompt string) (int, error) {
	for {
		fmt.Fprint(s.out, prompt)

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return 0, err
			}

			return 0, io.EOF
		}

		n, err := strconv.Atoi(s.scanner.Text())
		if err == nil {
			return n, nil
		}

		fmt.Fprintf(s.out, "Invalid number %q. Try again.\n", s.scanner.Text())
	}
}

func (s *Shell) readPositive(prompt string) (int, error) {
	for {
		n, err := s.readInt(prompt)
		if err != nil {
			return 0, err
		}

		if n > 0 {
			return n, nil
		}

		fmt.Fprintln(s.out, "The value must be a positive integer.")
	}
}

// Configure asks for the sizes that are not given and initializes the
// manager. A rejected configuration asks for every size again.
func (s *Shell) Configure(sizes Sizes) (Sizes, error) {
	for {
		err := s.askMissing(&sizes)
		if err != nil {
			return sizes, err
		}

		err = s.manager.Initialize(
			sizes.PhysicalMemorySize, sizes.FrameSize, sizes.MaxProcessSize)
		if err == nil {
			return sizes, nil
		}

		fmt.Fprintf(s.out, "Error: %v\n", err)
		sizes = Sizes{}
	}
}

func (s *Shell) askMissing(sizes *Sizes) error {
	fields := []struct {
		value  *int
		prompt string
	}{
		{&sizes.PhysicalMemorySize, "Physical memory size (bytes): "},
		{&sizes.FrameSize, "Frame/page size (bytes): "},
		{&sizes.MaxProcessSize, "Maximum process size (bytes): "},
	}

	for _, f := range fields {
		if *f.value > 0 {
			continue
		}

		n, err := s.readPositive(f.prompt)
		if err != nil {
			return err
		}

		*f.value = n
	}

	return nil
}

// Run shows the menu until the exit option is chosen or the input ends.
func (s *Shell) Run() error {
	for {
		choice, err := s.readInt(menu)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			return nil
		}

		if err != nil {
			return err
		}

		if choice == ChoiceExit {
			return nil
		}

		err = s.dispatch(choice)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			return nil
		}

		if err != nil {
			return err
		}
	}
}

func (s *Shell) dispatch(choice int) error {
	switch choice {
	case ChoiceDisplayMemory:
		s.displayMemory()
	case ChoiceCreateProcess:
		return s.createProcess()
	case ChoiceDisplayPageTable:
		return s.displayPageTable()
	case ChoiceDestroyProcess:
		return s.destroyProcess()
	case ChoiceListProcesses:
		s.listProcesses()
	default:
		fmt.Fprintln(s.out, "Invalid option. Try again.")
	}

	return nil
}

func (s *Shell) reportError(err error) {
	fmt.Fprintf(s.out, "Error: %v\n", err)
}

func (s *Shell) displayMemory() {
	report, err := s.manager.MemoryReport()
	if err != nil {
		s.reportError(err)
		return
	}

	RenderMemoryReport(s.out, report)
}

func (s *Shell) createProcess() error {
	pid, err := s.readInt("Process ID: ")
	if err != nil {
		return err
	}

	size, err := s.readInt("Process size (bytes): ")
	if err != nil {
		return err
	}

	err = s.manager.CreateProcess(vm.PID(pid), size)
	if err != nil {
		s.reportError(err)
		return nil
	}

	fmt.Fprintf(s.out, "Process %d created.\n", pid)

	return nil
}

func (s *Shell) displayPageTable() error {
	pid, err := s.readInt("Process ID: ")
	if err != nil {
		return err
	}

	view, err := s.manager.PageTable(vm.PID(pid))
	if err != nil {
		s.reportError(err)
		return nil
	}

	RenderPageTable(s.out, view)

	return nil
}

func (s *Shell) destroyProcess() error {
	pid, err := s.readInt("Process ID: ")
	if err != nil {
		return err
	}

	err = s.manager.DestroyProcess(vm.PID(pid))
	if err != nil {
		s.reportError(err)
		return nil
	}

	fmt.Fprintf(s.out, "Process %d destroyed.\n", pid)

	return nil
}

func (s *Shell) listProcesses() {
	infos, err := s.manager.Processes()
	if err != nil {
		s.reportError(err)
		return
	}

	RenderProcesses(s.out, infos)
}
