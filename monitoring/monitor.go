// Package monitoring serves the state of a memory manager over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/mem/vm/mmu"
	"github.com/sarchlab/pagesim/monitoring/web"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Manager is the part of the memory manager that the monitor reads.
type Manager interface {
	sync.Locker
	Name() string
	MemoryReport() (mmu.MemoryReport, error)
	PageTable(pid vm.PID) (mmu.PageTableView, error)
	Processes() ([]mmu.ProcessInfo, error)
}

// A StepCounter counts the events of the manager by kind.
type StepCounter interface {
	GetStepNames() []string
	GetStepCount(stepName string) uint64
	GetProcessCount(stepName string) uint64
}

// Monitor turns a memory manager into a server so that its frames and page
// tables can be inspected from a browser.
type Monitor struct {
	manager    Manager
	steps      StepCounter
	portNumber int
	profileFor time.Duration
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{profileFor: time.Second}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < minPortNumber {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithProfileDuration sets how long /api/profile samples the CPU.
func (m *Monitor) WithProfileDuration(d time.Duration) *Monitor {
	m.profileFor = d
	return m
}

// RegisterManager sets the memory manager to be monitored.
func (m *Monitor) RegisterManager(manager Manager) {
	m.manager = manager
}

// RegisterStepCounter sets where /api/steps reads its counts.
func (m *Monitor) RegisterStepCounter(c StepCounter) {
	m.steps = c
}

// Router returns the handler that serves the monitoring API and web page.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	fs := web.GetAssets()
	fServer := http.FileServer(fs)
	r.HandleFunc("/api/memory", m.memory)
	r.HandleFunc("/api/processes", m.processes)
	r.HandleFunc("/api/page_table/{pid}", m.pageTable)
	r.HandleFunc("/api/steps", m.listSteps)
	r.HandleFunc("/api/manager", m.managerDetails)
	r.HandleFunc("/api/field/{json}", m.fieldValue)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(fServer)

	return r
}

const minPortNumber = 1000

func (m *Monitor) listenAddress() string {
	if m.portNumber < minPortNumber {
		return ":0"
	}

	return ":" + strconv.Itoa(m.portNumber)
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() string {
	listener, err := net.Listen("tcp", m.listenAddress())
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring memory with %s\n", url)

	handler := m.Router()

	go func() {
		err := http.Serve(listener, handler)
		dieOnErr(err)
	}()

	return url
}

// OpenInBrowser opens the web page of a started server.
func OpenInBrowser(url string) {
	err := browser.OpenURL(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot open browser: %v\n", err)
	}
}

func (m *Monitor) memory(w http.ResponseWriter, _ *http.Request) {
	report, err := m.manager.MemoryReport()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, report)
}

func (m *Monitor) processes(w http.ResponseWriter, _ *http.Request) {
	infos, err := m.manager.Processes()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, infos)
}

func (m *Monitor) pageTable(w http.ResponseWriter, r *http.Request) {
	pid, err := strconv.Atoi(mux.Vars(r)["pid"])
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	view, err := m.manager.PageTable(vm.PID(pid))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, view)
}

type stepRsp struct {
	Step      string `json:"step"`
	Count     uint64 `json:"count"`
	Processes uint64 `json:"processes"`
}

func (m *Monitor) listSteps(w http.ResponseWriter, _ *http.Request) {
	if m.steps == nil {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "Error: step counting is not enabled")

		return
	}

	rsp := []stepRsp{}
	for _, name := range m.steps.GetStepNames() {
		rsp = append(rsp, stepRsp{
			Step:      name,
			Count:     m.steps.GetStepCount(name),
			Processes: m.steps.GetProcessCount(name),
		})
	}

	writeJSON(w, rsp)
}

func (m *Monitor) managerDetails(w http.ResponseWriter, _ *http.Request) {
	m.manager.Lock()
	defer m.manager.Unlock()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(m.manager)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) fieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	m.manager.Lock()
	defer m.manager.Unlock()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(m.manager)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	time.Sleep(m.profileFor)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mmu.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, mmu.ErrNotInitialized):
		w.WriteHeader(http.StatusServiceUnavailable)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}

	fmt.Fprintf(w, "Error: %s", err)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
