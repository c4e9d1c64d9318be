package bptree

import (
	"encoding/binary"
	"sync"

	"relstore/bufferpool"
	"relstore/disk"
)

// HeaderPageID is the fixed page holding the name -> root page id
// directory every Tree in a buffer pool consults (spec.md §6a).
// Grounded on disk_manager.WriteRootID/ReadRootID and the inspection
// support in bplustree/inspect.go, generalized from "one root id" to a
// directory so a single pool can back multiple named indexes.
const HeaderPageID disk.PageID = 0

// headerMagic marks an initialized header page, distinguishing it from
// the all-zero bytes a disk.Manager hands back for a page that was
// never written (e.g. FileManager's zero-pad on a short read of a
// brand-new file).
const headerMagic = 0xB9DEAD01

// Header is the on-disk directory mapping an index name to its root
// page id. Layout: uint32 magic, uint32 count, then count *
// (uint32 namelen, name bytes, int32 rootPageID).
type Header struct {
	mu   sync.Mutex
	pool *bufferpool.Pool
}

// OpenHeader attaches to the header page in pool, initializing it if
// this is a fresh file.
//
// Freshness is determined by probing the disk manager's allocator
// through NewPage, never by speculatively fetching page 0 first: a
// disk.Manager zero-pads a short read at EOF (see FileManager.ReadPage),
// so fetching an unallocated page 0 would "succeed" and, on a fresh
// file, collide with the NewPage call that must follow to properly
// register it — two resident frames would end up mapped to the same
// page id. Probing first sidesteps that entirely.
func OpenHeader(pool *bufferpool.Pool) (*Header, error) {
	probe, ok := pool.NewPage()
	if !ok {
		return nil, errOutOfFrames
	}
	if probe.ID() == HeaderPageID {
		binary.LittleEndian.PutUint32(probe.Data()[0:4], headerMagic)
		binary.LittleEndian.PutUint32(probe.Data()[4:8], 0)
		pool.UnpinPage(HeaderPageID, true)
		return &Header{pool: pool}, nil
	}

	// Existing file: page 0 is already the header. This probe page is
	// wasted — disk.Manager never reclaims page ids (spec.md §4.4) — but
	// that costs one page slot once per process lifetime.
	pool.UnpinPage(probe.ID(), false)
	pool.DeletePage(probe.ID())

	_, ok = pool.FetchPage(HeaderPageID)
	if !ok {
		return nil, errOutOfFrames
	}
	pool.UnpinPage(HeaderPageID, false)
	return &Header{pool: pool}, nil
}

// RootID looks up the root page id registered for name.
func (h *Header) RootID(name string) (disk.PageID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	page, ok := h.pool.FetchPage(HeaderPageID)
	if !ok {
		return disk.InvalidPageID, false
	}
	defer h.pool.UnpinPage(HeaderPageID, false)

	entries := decodeHeader(page.Data())
	id, ok := entries[name]
	return id, ok
}

// SetRootID registers root as name's root page id, creating or
// overwriting the directory entry.
func (h *Header) SetRootID(name string, root disk.PageID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	page, ok := h.pool.FetchPage(HeaderPageID)
	if !ok {
		panic("bptree: header page unavailable")
	}

	entries := decodeHeader(page.Data())
	entries[name] = root
	encodeHeader(page.Data(), entries)
	h.pool.UnpinPage(HeaderPageID, true)
}

func decodeHeader(buf []byte) map[string]disk.PageID {
	out := make(map[string]disk.PageID)
	count := binary.LittleEndian.Uint32(buf[4:8])
	off := 8
	for i := uint32(0); i < count; i++ {
		nameLen := binary.LittleEndian.Uint32(buf[off : off+4])
		off += 4
		name := string(buf[off : off+int(nameLen)])
		off += int(nameLen)
		root := disk.PageID(int32(binary.LittleEndian.Uint32(buf[off : off+4])))
		off += 4
		out[name] = root
	}
	return out
}

func encodeHeader(buf []byte, entries map[string]disk.PageID) {
	binary.LittleEndian.PutUint32(buf[0:4], headerMagic)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(entries)))
	off := 8
	for name, root := range entries {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(name)))
		off += 4
		copy(buf[off:], name)
		off += len(name)
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(int32(root)))
		off += 4
	}
	for ; off < len(buf); off++ {
		buf[off] = 0
	}
}
