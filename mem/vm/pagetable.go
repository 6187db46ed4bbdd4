// Package vm provides the models for address translations
package vm

import (
	"fmt"
	"sync"
)

// PID stands for Process ID.
type PID int

// A Page is an entry in the page table. It maps the logical page VPN of a
// process to a physical frame.
type Page struct {
	PID   PID
	VPN   int
	Frame int
}

// A PageTable holds the pages of all the processes.
type PageTable interface {
	// Insert appends a page to the table of page.PID. Pages of a process
	// must be inserted in VPN order.
	Insert(page Page)

	// Remove drops every page of a process and returns them in VPN order.
	Remove(pid PID) []Page

	// Find returns the page that contains the given logical address. The
	// bool return value indicates if the page is found or not.
	Find(pid PID, vAddr uint64) (Page, bool)

	// Pages returns a copy of the pages of a process in VPN order.
	Pages(pid PID) []Page
}

// NewPageTable creates a new PageTable for pages of pageSize bytes.
func NewPageTable(pageSize uint64) PageTable {
	if pageSize == 0 {
		panic("page size must be positive")
	}

	return &pageTableImpl{
		pageSize: pageSize,
		tables:   make(map[PID]*processTable),
	}
}

// pageTableImpl is the default implementation of a Page Table
type pageTableImpl struct {
	sync.Mutex
	pageSize uint64
	tables   map[PID]*processTable
}

func (pt *pageTableImpl) getTable(pid PID) *processTable {
	pt.Lock()
	defer pt.Unlock()

	table, found := pt.tables[pid]
	if !found {
		table = &processTable{}
		pt.tables[pid] = table
	}

	return table
}

// Insert puts a new page into the PageTable
func (pt *pageTableImpl) Insert(page Page) {
	table := pt.getTable(page.PID)
	table.insert(page)
}

// Remove removes all the pages of a process.
func (pt *pageTableImpl) Remove(pid PID) []Page {
	pt.Lock()
	table, found := pt.tables[pid]
	delete(pt.tables, pid)
	pt.Unlock()

	if !found {
		return nil
	}

	return table.all()
}

// Find returns the page that contains the given logical address.
func (pt *pageTableImpl) Find(pid PID, vAddr uint64) (Page, bool) {
	pt.Lock()
	table, found := pt.tables[pid]
	pt.Unlock()

	if !found {
		return Page{}, false
	}

	return table.find(int(vAddr / pt.pageSize))
}

// Pages returns the pages of a process.
func (pt *pageTableImpl) Pages(pid PID) []Page {
	pt.Lock()
	table, found := pt.tables[pid]
	pt.Unlock()

	if !found {
		return nil
	}

	return table.all()
}

// processTable holds the page mappings of one process, indexed by VPN.
type processTable struct {
	sync.Mutex
	entries []Page
}

func (t *processTable) insert(page Page) {
	t.Lock()
	defer t.Unlock()

	if page.VPN != len(t.entries) {
		panic(fmt.Sprintf("page %d of process %d inserted out of order",
			page.VPN, page.PID))
	}

	t.entries = append(t.entries, page)
}

func (t *processTable) find(vpn int) (Page, bool) {
	t.Lock()
	defer t.Unlock()

	if vpn < 0 || vpn >= len(t.entries) {
		return Page{}, false
	}

	return t.entries[vpn], true
}

func (t *processTable) all() []Page {
	t.Lock()
	defer t.Unlock()

	pages := make([]Page, len(t.entries))
	copy(pages, t.entries)

	return pages
}
