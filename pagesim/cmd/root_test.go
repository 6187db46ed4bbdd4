package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pagesim/datarecording"
	"github.com/sarchlab/pagesim/mem/frame"
	"github.com/sarchlab/pagesim/mem/trace"
	"github.com/sarchlab/pagesim/mem/vm/mmu"
)

var _ = Describe("Root command", func() {
	var (
		o   *options
		out *bytes.Buffer
		dir string
	)

	execute := func(input string, args ...string) error {
		c := newRootCmd(o)
		c.SetArgs(append([]string{}, args...))
		c.SetIn(strings.NewReader(input))
		c.SetOut(out)
		c.SetErr(out)

		return c.Execute()
	}

	setenv := func(key, value string) {
		Expect(os.Setenv(key, value)).To(Succeed())
		DeferCleanup(os.Unsetenv, key)
	}

	BeforeEach(func() {
		o = &options{}
		out = new(bytes.Buffer)
		dir = GinkgoT().TempDir()
	})

	It("should run the menu with sizes from flags", func() {
		err := execute("2 1 10\n3 1\n4\n",
			"--memory-size", "64",
			"--frame-size", "8",
			"--max-process-size", "32",
			"--seed", "3")

		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).NotTo(ContainSubstring("Physical memory size"))
		Expect(out.String()).To(ContainSubstring("Page 1 -> Frame 1"))
	})

	It("should ask for sizes that are not given", func() {
		err := execute("64 8 32\n4\n")

		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(ContainSubstring("Physical memory size"))
	})

	It("should end quietly when the input ends during configuration", func() {
		err := execute("64\n")

		Expect(err).NotTo(HaveOccurred())
	})

	It("should take defaults from the environment", func() {
		setenv("PAGESIM_MEMORY_SIZE", "32")
		setenv("PAGESIM_FRAME_SIZE", "4")
		setenv("PAGESIM_MAX_PROCESS_SIZE", "16")
		setenv("PAGESIM_POLICY", "stack")

		err := execute("2 1 4\n3 1\n4\n")

		Expect(err).NotTo(HaveOccurred())
		Expect(o.memorySize).To(Equal(32))
		Expect(o.policy).To(Equal(frame.PolicyStack.String()))
		Expect(out.String()).To(ContainSubstring("Page 0 -> Frame 7"))
	})

	It("should prefer flags over the environment", func() {
		setenv("PAGESIM_MEMORY_SIZE", "32")

		err := execute("4\n", "--memory-size", "128",
			"--frame-size", "8", "--max-process-size", "8")

		Expect(err).NotTo(HaveOccurred())
		Expect(o.memorySize).To(Equal(128))
	})

	It("should load an env file", func() {
		envFile := filepath.Join(dir, "test.env")
		Expect(os.WriteFile(envFile,
			[]byte("PAGESIM_MAX_PROCESSES=3\n"), 0o600)).To(Succeed())
		DeferCleanup(os.Unsetenv, "PAGESIM_MAX_PROCESSES")

		c := newRootCmd(o)
		c.SetArgs([]string{"--env-file", envFile})
		c.SetIn(strings.NewReader(""))
		c.SetOut(out)

		Expect(c.Execute()).To(Succeed())
		Expect(o.maxProcesses).To(Equal(3))
	})

	It("should fail on a missing env file that was named", func() {
		err := execute("", "--env-file", filepath.Join(dir, "missing.env"))

		Expect(err).To(HaveOccurred())
	})

	It("should reject unknown policies", func() {
		err := execute("", "--policy", "lru")

		Expect(err).To(MatchError(ContainSubstring("lru")))
	})

	It("should reject non-positive process limits", func() {
		err := execute("", "--max-processes", "0")

		Expect(err).To(HaveOccurred())
	})

	Context("when recording", func() {
		var record string

		BeforeEach(func() {
			record = filepath.Join(dir, "run")

			o.record = record
			o.policy = "random"
			o.maxProcesses = 10
			o.parallelIDs = true
		})

		recordedSeed := func() string {
			reader := datarecording.NewReader(record + ".sqlite3")
			defer reader.Close()

			reader.MapTable(datarecording.ExecTableName,
				datarecording.ExecInfo{})
			results, _, err := reader.Query(context.Background(),
				datarecording.ExecTableName,
				datarecording.QueryParams{
					Where: "Property = ?",
					Args:  []any{"Seed"},
				})
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))

			return results[0].(*datarecording.ExecInfo).Value
		}

		It("should record events", func() {
			s, err := newSession(o)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.manager.Initialize(16, 4, 8)).To(Succeed())
			Expect(s.manager.CreateProcess(1, 8)).To(Succeed())
			s.end()

			reader := datarecording.NewReader(record + ".sqlite3")
			defer reader.Close()

			reader.MapTable(trace.ProcessEventTable, trace.ProcessEventEntry{})
			results, _, err := reader.Query(context.Background(),
				trace.ProcessEventTable, datarecording.QueryParams{})
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))

			entry := results[0].(*trace.ProcessEventEntry)
			Expect(entry.What).To(Equal("create"))
			Expect(entry.ID).To(HaveLen(20))
		})

		It("should record the seed that was given", func() {
			o.seed = 42

			s, err := newSession(o)
			Expect(err).NotTo(HaveOccurred())
			s.end()

			Expect(s.seed).To(Equal(int64(42)))
			Expect(recordedSeed()).To(Equal("42"))
		})

		It("should record the seed picked from the clock", func() {
			s, err := newSession(o)
			Expect(err).NotTo(HaveOccurred())
			s.end()

			Expect(s.seed).NotTo(BeZero())
			Expect(recordedSeed()).To(Equal(strconv.FormatInt(s.seed, 10)))
		})

		It("should reproduce a recorded run from its seed", func() {
			first, err := newSession(o)
			Expect(err).NotTo(HaveOccurred())

			o.seed = first.seed
			o.record = ""
			second, err := newSession(o)
			Expect(err).NotTo(HaveOccurred())

			for _, m := range []*mmu.Comp{first.manager, second.manager} {
				Expect(m.Initialize(64, 4, 64)).To(Succeed())
				Expect(m.CreateProcess(1, 20)).To(Succeed())
			}

			view1, _ := first.manager.PageTable(1)
			view2, _ := second.manager.PageTable(1)
			Expect(view2.Pages).To(Equal(view1.Pages))

			report1, _ := first.manager.MemoryReport()
			report2, _ := second.manager.MemoryReport()
			Expect(report2.Frames).To(Equal(report1.Frames))
		})
	})

	It("should take parallel IDs from the environment", func() {
		setenv("PAGESIM_PARALLEL_IDS", "true")

		err := execute("")

		Expect(err).NotTo(HaveOccurred())
		Expect(o.parallelIDs).To(BeTrue())
	})
})
