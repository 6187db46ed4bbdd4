package shell_test

import (
	"bytes"
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/mem/vm/mmu"
	"github.com/sarchlab/pagesim/shell"
)

type countingContent struct{}

func (countingContent) Generate(size int) []byte {
	content := make([]byte, size)
	for i := range content {
		content[i] = byte(i + 1)
	}

	return content
}

type rejectOnce struct {
	*mmu.Comp
	rejected bool
}

func (m *rejectOnce) Initialize(memorySize, frameSize, maxSize int) error {
	if !m.rejected {
		m.rejected = true
		return fmt.Errorf("%w: rejected", mmu.ErrConfiguration)
	}

	return m.Comp.Initialize(memorySize, frameSize, maxSize)
}

var _ = Describe("Shell", func() {
	var (
		manager *mmu.Comp
		out     *bytes.Buffer
	)

	newShell := func(input string) *shell.Shell {
		return shell.New(manager, strings.NewReader(input), out)
	}

	BeforeEach(func() {
		manager = mmu.MakeBuilder().
			WithContentGenerator(countingContent{}).
			Build("MMU")
		out = new(bytes.Buffer)
	})

	Context("when configuring", func() {
		It("should ask for every missing size", func() {
			s := newShell("16 4 8\n")

			sizes, err := s.Configure(shell.Sizes{})

			Expect(err).NotTo(HaveOccurred())
			Expect(sizes).To(Equal(shell.Sizes{
				PhysicalMemorySize: 16,
				FrameSize:          4,
				MaxProcessSize:     8,
			}))
			Expect(out.String()).To(ContainSubstring("Physical memory size"))
			Expect(out.String()).To(ContainSubstring("Frame/page size"))
			Expect(out.String()).To(ContainSubstring("Maximum process size"))
			Expect(manager.FreeCount()).To(Equal(4))
		})

		It("should not ask for given sizes", func() {
			s := newShell("8\n")

			sizes, err := s.Configure(shell.Sizes{
				PhysicalMemorySize: 32,
				FrameSize:          8,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(sizes.MaxProcessSize).To(Equal(8))
			Expect(out.String()).NotTo(ContainSubstring("Physical memory size"))
		})

		It("should reprompt on invalid numbers", func() {
			s := newShell("abc -3 16 4 8\n")

			_, err := s.Configure(shell.Sizes{})

			Expect(err).NotTo(HaveOccurred())
			Expect(out.String()).To(ContainSubstring(`Invalid number "abc"`))
			Expect(out.String()).To(ContainSubstring("must be a positive integer"))
		})

		It("should ask again when the configuration is rejected", func() {
			rejecting := &rejectOnce{Comp: manager}
			s := shell.New(rejecting,
				strings.NewReader("16 4 8\n"), out)

			sizes, err := s.Configure(shell.Sizes{
				PhysicalMemorySize: 2,
				FrameSize:          4,
				MaxProcessSize:     4,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(sizes.PhysicalMemorySize).To(Equal(16))
			Expect(out.String()).To(ContainSubstring("Error:"))
		})

		It("should report the end of input", func() {
			s := newShell("16\n")

			_, err := s.Configure(shell.Sizes{})

			Expect(err).To(HaveOccurred())
		})
	})

	Context("when running the menu", func() {
		BeforeEach(func() {
			Expect(manager.Initialize(16, 4, 8)).To(Succeed())
		})

		It("should exit on option 4", func() {
			s := newShell("4\n2 1 4\n")

			Expect(s.Run()).To(Succeed())

			infos, _ := manager.Processes()
			Expect(infos).To(BeEmpty())
		})

		It("should exit at the end of input", func() {
			s := newShell("6\n")

			Expect(s.Run()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("No processes."))
		})

		It("should exit when the input ends inside a command", func() {
			s := newShell("2 1\n")

			Expect(s.Run()).To(Succeed())
		})

		It("should create a process and show its page table", func() {
			s := newShell("2 1 6\n3 1\n4\n")

			Expect(s.Run()).To(Succeed())

			output := out.String()
			Expect(output).To(ContainSubstring("Process 1 created."))
			Expect(output).To(ContainSubstring(
				"Page table of process 1 (size: 6 bytes):"))
			Expect(output).To(ContainSubstring("Page 0 -> Frame 0\n"))
			Expect(output).To(ContainSubstring("Page 1 -> Frame 1\n"))
		})

		It("should display the memory", func() {
			s := newShell("2 1 6\n1\n4\n")

			Expect(s.Run()).To(Succeed())

			output := out.String()
			Expect(output).To(ContainSubstring(
				"Free memory: 50.00% (2 of 4 frames)"))
			Expect(output).To(ContainSubstring(
				"Frame 0: 01 02 03 04 [pid 1 page 0]\n"))
			Expect(output).To(ContainSubstring(
				"Frame 1: 05 06 00 00 [pid 1 page 1]\n"))
			Expect(output).To(ContainSubstring("Frame 2: 00 00 00 00\n"))
		})

		It("should report manager errors and continue", func() {
			s := newShell("2 1 100\n3 9\n5 9\n6\n4\n")

			Expect(s.Run()).To(Succeed())

			output := out.String()
			Expect(output).To(ContainSubstring(mmu.ErrSizeExceedsLimit.Error()))
			Expect(output).To(ContainSubstring(mmu.ErrNotFound.Error()))
			Expect(output).To(ContainSubstring("No processes."))
		})

		It("should destroy a process", func() {
			s := newShell("2 1 8\n5 1\n4\n")

			Expect(s.Run()).To(Succeed())

			Expect(out.String()).To(ContainSubstring("Process 1 destroyed."))
			Expect(manager.FreeCount()).To(Equal(4))
		})

		It("should reject unknown options", func() {
			s := newShell("7\nx\n4\n")

			Expect(s.Run()).To(Succeed())

			Expect(out.String()).To(ContainSubstring("Invalid option."))
			Expect(out.String()).To(ContainSubstring(`Invalid number "x"`))
		})
	})
})

var _ = Describe("Render", func() {
	It("should list processes", func() {
		out := new(bytes.Buffer)

		shell.RenderProcesses(out, []mmu.ProcessInfo{
			{PID: 3, Size: 10, NumPages: 3},
			{PID: vm.PID(7), Size: 4, NumPages: 1},
		})

		Expect(out.String()).To(Equal(
			"Process 3: 10 bytes, 3 pages\nProcess 7: 4 bytes, 1 pages\n"))
	})

	It("should show unaddressable bytes", func() {
		out := new(bytes.Buffer)

		shell.RenderMemoryReport(out, mmu.MemoryReport{
			NumFrames:   1,
			FreeFrames:  1,
			FreePercent: 100,
			WastedBytes: 2,
			Frames:      []mmu.FrameDump{{Index: 0, Free: true, Data: []byte{0xab}}},
		})

		Expect(out.String()).To(Equal(
			"Free memory: 100.00% (1 of 1 frames)\n" +
				"Unaddressable bytes: 2\n" +
				"Frame 0: AB\n"))
	})
})
