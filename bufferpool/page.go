package bufferpool

import (
	"sync"

	"relstore/disk"
)

// Page is one frame's in-memory contents: a fixed-size byte buffer plus
// the metadata the pool needs to manage it (spec.md §3). Grounded on
// storage_engine/page/page.go, trimmed of the heap-file-specific
// FileID/LSN/PageType fields that belong to the SQL-engine layer this
// module does not carry.
type Page struct {
	mu sync.RWMutex

	id       disk.PageID
	data     []byte
	pinCount int32
	isDirty  bool
}

func newPage(id disk.PageID) *Page {
	return &Page{
		id:   id,
		data: make([]byte, disk.PageSize),
	}
}

// ID returns the page's identifier.
func (p *Page) ID() disk.PageID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.id
}

// Data returns the page's raw byte buffer. Callers holding a pin may
// read and write it directly; writes must be followed by UnpinPage(id,
// true) or FlushPage to make them durable.
func (p *Page) Data() []byte {
	return p.data
}

// PinCount returns the current pin count.
func (p *Page) PinCount() int32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pinCount
}

// IsDirty reports whether the page's in-memory bytes may differ from
// disk.
func (p *Page) IsDirty() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.isDirty
}

func (p *Page) reset(id disk.PageID) {
	p.id = id
	p.pinCount = 0
	p.isDirty = false
	for i := range p.data {
		p.data[i] = 0
	}
}
