package shell

import (
	"fmt"
	"io"

	"github.com/sarchlab/pagesim/mem/vm/mmu"
)

// RenderMemoryReport writes the free memory percentage and a hex dump of
// every frame.
func RenderMemoryReport(w io.Writer, report mmu.MemoryReport) {
	fmt.Fprintf(w, "Free memory: %.2f%% (%d of %d frames)\n",
		report.FreePercent, report.FreeFrames, report.NumFrames)

	if report.WastedBytes > 0 {
		fmt.Fprintf(w, "Unaddressable bytes: %d\n", report.WastedBytes)
	}

	for _, f := range report.Frames {
		fmt.Fprintf(w, "Frame %d:", f.Index)

		for _, b := range f.Data {
			fmt.Fprintf(w, " %02X", b)
		}

		if !f.Free {
			fmt.Fprintf(w, " [pid %d page %d]", f.Owner, f.VPN)
		}

		fmt.Fprintln(w)
	}
}

// RenderPageTable writes the page to frame mapping of a process.
func RenderPageTable(w io.Writer, view mmu.PageTableView) {
	fmt.Fprintf(w, "Page table of process %d (size: %d bytes):\n",
		view.PID, view.Size)

	for _, p := range view.Pages {
		fmt.Fprintf(w, "Page %d -> Frame %d\n", p.VPN, p.Frame)
	}
}

// RenderProcesses writes one line per live process.
func RenderProcesses(w io.Writer, infos []mmu.ProcessInfo) {
	if len(infos) == 0 {
		fmt.Fprintln(w, "No processes.")
		return
	}

	for _, info := range infos {
		fmt.Fprintf(w, "Process %d: %d bytes, %d pages\n",
			info.PID, info.Size, info.NumPages)
	}
}
