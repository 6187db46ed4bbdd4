// Package mmu provides the memory manager. It owns the physical memory, the
// frame pool, the page tables, and the registry of live processes.
package mmu

import (
	"fmt"
	"log"
	"sync"

	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/memory"
	"github.com/sarchlab/pagesim/sim"
)

// Positions where the memory manager invokes its hooks.
var (
	// HookPosInitialize carries the Config as the item.
	HookPosInitialize = &sim.HookPos{Name: "MMU Initialize"}
	// HookPosFrameAllocate carries a FrameEvent as the item.
	HookPosFrameAllocate = &sim.HookPos{Name: "MMU Frame Allocate"}
	// HookPosFrameRelease carries a FrameEvent as the item.
	HookPosFrameRelease = &sim.HookPos{Name: "MMU Frame Release"}
	// HookPosProcessCreate carries a ProcessInfo as the item.
	HookPosProcessCreate = &sim.HookPos{Name: "MMU Process Create"}
	// HookPosProcessDestroy carries a ProcessInfo as the item.
	HookPosProcessDestroy = &sim.HookPos{Name: "MMU Process Destroy"}
	// HookPosCreateFailed carries a ProcessInfo as the item and the error as
	// the detail.
	HookPosCreateFailed = &sim.HookPos{Name: "MMU Create Failed"}
)

// Config is the memory configuration given to Initialize.
type Config struct {
	PhysicalMemorySize int
	FrameSize          int
	MaxProcessSize     int
}

// NumFrames returns the number of whole frames in the physical memory.
func (c Config) NumFrames() int {
	return c.PhysicalMemorySize / c.FrameSize
}

// WastedBytes returns the bytes after the last whole frame.
func (c Config) WastedBytes() int {
	return c.PhysicalMemorySize % c.FrameSize
}

// A FrameEvent tells that a frame was given to or taken from a page.
type FrameEvent struct {
	PID   vm.PID
	VPN   int
	Frame int
}

// ProcessInfo summarizes a process.
type ProcessInfo struct {
	PID      vm.PID
	Size     int
	NumPages int
}

// FrameDump is the content of one physical frame.
type FrameDump struct {
	Index int
	Free  bool
	Owner vm.PID
	VPN   int
	Data  []byte
}

// MemoryReport is a snapshot of the whole physical memory.
type MemoryReport struct {
	NumFrames   int
	FrameSize   int
	FreeFrames  int
	FreePercent float64
	WastedBytes int
	Frames      []FrameDump
}

// PageTableView is the page table of one process.
type PageTableView struct {
	PID      vm.PID
	Size     int
	NumPages int
	Pages    []vm.Page
}

// Comp is the memory manager.
//
// A Comp starts uninitialized. Every operation except Initialize fails with
// ErrNotInitialized until Initialize succeeds. All operations are serialized
// by one mutex; hooks run while the mutex is held and must not call back
// into the manager.
type Comp struct {
	*sim.HookableBase
	sync.Mutex

	name             string
	maxNumProcess    int
	pool             FramePool
	contentGenerator ContentGenerator

	initialized bool
	config      Config
	storage     *memory.Storage
	pageTable   vm.PageTable
	registry    *vm.Registry
}

// Name returns the name of the manager.
func (c *Comp) Name() string {
	return c.name
}

// MaxNumProcess returns the number of processes that can be alive at the
// same time.
func (c *Comp) MaxNumProcess() int {
	return c.maxNumProcess
}

// Initialize sets up an empty, zero-filled physical memory. Calling it again
// discards all processes and memory content.
func (c *Comp) Initialize(
	physicalMemorySize, frameSize, maxProcessSize int,
) error {
	c.Lock()
	defer c.Unlock()

	config := Config{
		PhysicalMemorySize: physicalMemorySize,
		FrameSize:          frameSize,
		MaxProcessSize:     maxProcessSize,
	}

	if err := validateConfig(config); err != nil {
		return err
	}

	c.config = config
	c.storage = memory.NewStorage(
		uint64(physicalMemorySize), uint64(frameSize))
	c.pool.Initialize(config.NumFrames())
	c.pageTable = vm.NewPageTable(uint64(frameSize))
	c.registry = vm.NewRegistry(c.maxNumProcess)
	c.initialized = true

	c.invoke(HookPosInitialize, config, nil)

	return nil
}

func validateConfig(config Config) error {
	if config.PhysicalMemorySize <= 0 {
		return fmt.Errorf("%w: physical memory size %d must be positive",
			ErrConfiguration, config.PhysicalMemorySize)
	}

	if config.FrameSize <= 0 {
		return fmt.Errorf("%w: frame size %d must be positive",
			ErrConfiguration, config.FrameSize)
	}

	if config.MaxProcessSize <= 0 {
		return fmt.Errorf("%w: maximum process size %d must be positive",
			ErrConfiguration, config.MaxProcessSize)
	}

	return nil
}

// Config returns the configuration given to Initialize.
func (c *Comp) Config() (Config, error) {
	c.Lock()
	defer c.Unlock()

	if !c.initialized {
		return Config{}, ErrNotInitialized
	}

	return c.config, nil
}

// CreateProcess creates a process of size bytes, maps every page to a free
// frame and copies the initial content into those frames. On error nothing
// is changed.
func (c *Comp) CreateProcess(pid vm.PID, size int) error {
	c.Lock()
	defer c.Unlock()

	if !c.initialized {
		return ErrNotInitialized
	}

	info := ProcessInfo{PID: pid, Size: size}

	err := c.checkCreation(pid, size)
	if err != nil {
		c.invoke(HookPosCreateFailed, info, err)
		return err
	}

	info.NumPages = vm.NumPagesFor(size, c.config.FrameSize)

	frames, err := c.allocateFrames(pid, info.NumPages)
	if err != nil {
		c.invoke(HookPosCreateFailed, info, err)
		return err
	}

	process := &vm.Process{
		PID:      pid,
		Size:     size,
		NumPages: info.NumPages,
		Logical:  c.contentGenerator.Generate(size),
	}
	c.mapPages(process, frames)
	c.registry.Push(process)

	c.invoke(HookPosProcessCreate, info, nil)

	return nil
}

func (c *Comp) checkCreation(pid vm.PID, size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: process %d has size %d",
			ErrInvalidSize, pid, size)
	}

	if size > c.config.MaxProcessSize {
		return fmt.Errorf("%w: process %d needs %d bytes, maximum is %d",
			ErrSizeExceedsLimit, pid, size, c.config.MaxProcessSize)
	}

	numPages := vm.NumPagesFor(size, c.config.FrameSize)
	if numPages > c.config.NumFrames() {
		return fmt.Errorf("%w: process %d needs %d pages, memory has %d frames",
			ErrInsufficientTotalMemory, pid, numPages, c.config.NumFrames())
	}

	if !c.registry.CanPush() {
		return fmt.Errorf("%w: %d of %d processes alive",
			ErrRegistryFull, c.registry.Size(), c.registry.Capacity())
	}

	if _, found := c.registry.Find(pid); found {
		return fmt.Errorf("%w: %d", ErrDuplicateID, pid)
	}

	return nil
}

// allocateFrames claims numPages frames. If the pool runs dry, the frames
// claimed so far go back to the pool.
func (c *Comp) allocateFrames(pid vm.PID, numPages int) ([]int, error) {
	frames := make([]int, 0, numPages)

	for vpn := 0; vpn < numPages; vpn++ {
		f, ok := c.pool.Allocate()
		if !ok {
			c.rollback(pid, frames)

			return nil, fmt.Errorf(
				"%w: process %d needs %d pages, %d frames were free",
				ErrInsufficientFramesDuringAllocation,
				pid, numPages, len(frames))
		}

		frames = append(frames, f)
		c.invoke(HookPosFrameAllocate,
			FrameEvent{PID: pid, VPN: vpn, Frame: f}, nil)
	}

	return frames, nil
}

func (c *Comp) rollback(pid vm.PID, frames []int) {
	for i := len(frames) - 1; i >= 0; i-- {
		c.releaseFrame(FrameEvent{PID: pid, VPN: i, Frame: frames[i]})
	}
}

func (c *Comp) releaseFrame(e FrameEvent) {
	err := c.pool.Release(e.Frame)
	if err != nil {
		log.Panicf("frame %d of process %d cannot be released: %v",
			e.Frame, e.PID, err)
	}

	c.invoke(HookPosFrameRelease, e, nil)
}

func (c *Comp) mapPages(process *vm.Process, frames []int) {
	frameSize := c.config.FrameSize

	for vpn, f := range frames {
		c.pageTable.Insert(vm.Page{PID: process.PID, VPN: vpn, Frame: f})

		start := vpn * frameSize
		end := min(start+frameSize, process.Size)

		err := c.storage.WriteFrame(f, process.Logical[start:end])
		if err != nil {
			log.Panic(err)
		}
	}
}

// DestroyProcess releases all the frames of a process, zeroes them, and
// removes the process.
func (c *Comp) DestroyProcess(pid vm.PID) error {
	c.Lock()
	defer c.Unlock()

	if !c.initialized {
		return ErrNotInitialized
	}

	process, found := c.registry.Remove(pid)
	if !found {
		return fmt.Errorf("%w: %d", ErrNotFound, pid)
	}

	for _, page := range c.pageTable.Remove(pid) {
		err := c.storage.ClearFrame(page.Frame)
		if err != nil {
			log.Panic(err)
		}

		c.releaseFrame(FrameEvent{PID: pid, VPN: page.VPN, Frame: page.Frame})
	}

	c.invoke(HookPosProcessDestroy, ProcessInfo{
		PID:      process.PID,
		Size:     process.Size,
		NumPages: process.NumPages,
	}, nil)

	return nil
}

// MemoryReport returns the free frame percentage and a copy of every frame.
func (c *Comp) MemoryReport() (MemoryReport, error) {
	c.Lock()
	defer c.Unlock()

	if !c.initialized {
		return MemoryReport{}, ErrNotInitialized
	}

	numFrames := c.config.NumFrames()
	report := MemoryReport{
		NumFrames:   numFrames,
		FrameSize:   c.config.FrameSize,
		FreeFrames:  c.pool.FreeCount(),
		WastedBytes: c.config.WastedBytes(),
		Frames:      make([]FrameDump, numFrames),
	}

	if numFrames > 0 {
		report.FreePercent =
			float64(report.FreeFrames) / float64(numFrames) * 100
	}

	owners := c.frameOwners()

	for i := 0; i < numFrames; i++ {
		data, err := c.storage.ReadFrame(i)
		if err != nil {
			log.Panic(err)
		}

		dump := FrameDump{Index: i, Free: c.pool.IsFree(i), Data: data}
		if page, ok := owners[i]; ok {
			dump.Owner = page.PID
			dump.VPN = page.VPN
		}

		report.Frames[i] = dump
	}

	return report, nil
}

func (c *Comp) frameOwners() map[int]vm.Page {
	owners := make(map[int]vm.Page)

	for _, p := range c.registry.All() {
		for _, page := range c.pageTable.Pages(p.PID) {
			owners[page.Frame] = page
		}
	}

	return owners
}

// PageTable returns the page table of a live process.
func (c *Comp) PageTable(pid vm.PID) (PageTableView, error) {
	c.Lock()
	defer c.Unlock()

	process, err := c.findProcess(pid)
	if err != nil {
		return PageTableView{}, err
	}

	return PageTableView{
		PID:      process.PID,
		Size:     process.Size,
		NumPages: process.NumPages,
		Pages:    c.pageTable.Pages(pid),
	}, nil
}

func (c *Comp) findProcess(pid vm.PID) (*vm.Process, error) {
	if !c.initialized {
		return nil, ErrNotInitialized
	}

	process, found := c.registry.Find(pid)
	if !found {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, pid)
	}

	return process, nil
}

// Processes lists the live processes in creation order.
func (c *Comp) Processes() ([]ProcessInfo, error) {
	c.Lock()
	defer c.Unlock()

	if !c.initialized {
		return nil, ErrNotInitialized
	}

	all := c.registry.All()
	infos := make([]ProcessInfo, 0, len(all))

	for _, p := range all {
		infos = append(infos, ProcessInfo{
			PID:      p.PID,
			Size:     p.Size,
			NumPages: p.NumPages,
		})
	}

	return infos, nil
}

// Translate returns the physical address of a logical address of a process.
func (c *Comp) Translate(pid vm.PID, vAddr uint64) (uint64, error) {
	c.Lock()
	defer c.Unlock()

	return c.translate(pid, vAddr)
}

func (c *Comp) translate(pid vm.PID, vAddr uint64) (uint64, error) {
	process, err := c.findProcess(pid)
	if err != nil {
		return 0, err
	}

	if vAddr >= uint64(process.Size) {
		return 0, fmt.Errorf("%w: 0x%x in process %d of %d bytes",
			ErrAddressOutOfRange, vAddr, pid, process.Size)
	}

	page, found := c.pageTable.Find(pid, vAddr)
	if !found {
		log.Panicf("process %d has no page for 0x%x", pid, vAddr)
	}

	frameSize := uint64(c.config.FrameSize)

	return uint64(page.Frame)*frameSize + vAddr%frameSize, nil
}

// ReadLogical reads n bytes of a process's address space starting at vAddr
// through its page table.
func (c *Comp) ReadLogical(pid vm.PID, vAddr uint64, n int) ([]byte, error) {
	c.Lock()
	defer c.Unlock()

	process, err := c.findProcess(pid)
	if err != nil {
		return nil, err
	}

	size := uint64(process.Size)
	if n < 0 || vAddr > size || uint64(n) > size-vAddr {
		return nil, fmt.Errorf("%w: %d bytes at 0x%x in process %d of %d bytes",
			ErrAddressOutOfRange, n, vAddr, pid, process.Size)
	}

	frameSize := uint64(c.config.FrameSize)
	res := make([]byte, 0, n)

	for addr := vAddr; addr < vAddr+uint64(n); {
		pAddr, err := c.translate(pid, addr)
		if err != nil {
			return nil, err
		}

		chunk := min(frameSize-addr%frameSize, vAddr+uint64(n)-addr)

		data, err := c.storage.Read(pAddr, chunk)
		if err != nil {
			log.Panic(err)
		}

		res = append(res, data...)
		addr += chunk
	}

	return res, nil
}

// Logical returns a copy of the initial content of a process.
func (c *Comp) Logical(pid vm.PID) ([]byte, error) {
	c.Lock()
	defer c.Unlock()

	process, err := c.findProcess(pid)
	if err != nil {
		return nil, err
	}

	content := make([]byte, len(process.Logical))
	copy(content, process.Logical)

	return content, nil
}

// FreeCount returns the number of free frames.
func (c *Comp) FreeCount() int {
	c.Lock()
	defer c.Unlock()

	return c.pool.FreeCount()
}

func (c *Comp) invoke(pos *sim.HookPos, item, detail any) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}
