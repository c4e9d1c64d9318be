package disk

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// FileManager is an on-disk Manager backed by a single growable file.
// Page id i lives at byte offset i*PageSize. Grounded on
// bplustree/disk_pager.go's OnDiskPager.
type FileManager struct {
	mu       sync.RWMutex
	file     *os.File
	path     string
	nextPage PageID
}

// NewFileManager opens (creating if necessary) the page file at path and
// recovers nextPage from the existing file size.
func NewFileManager(path string) (*FileManager, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("disk: open %s: %w", path, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("disk: stat %s: %w", path, err)
	}

	numPages := PageID(stat.Size() / PageSize)

	return &FileManager{
		file:     file,
		path:     path,
		nextPage: numPages,
	}, nil
}

// ReadPage reads a page from disk, zero-padding a short read at EOF so
// that reading a page id beyond the current end of file yields a blank
// page rather than an error.
func (m *FileManager) ReadPage(id PageID, dst []byte) error {
	if err := checkPageSize(dst); err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.file == nil {
		return fmt.Errorf("disk: file %s is closed", m.path)
	}

	offset := int64(id) * PageSize
	n, err := m.file.ReadAt(dst, offset)
	if err != nil {
		if n == 0 && err != io.EOF {
			return fmt.Errorf("disk: read page %d: %w", id, err)
		}
		for i := n; i < len(dst); i++ {
			dst[i] = 0
		}
	}
	return nil
}

// WritePage writes src at id's offset.
func (m *FileManager) WritePage(id PageID, src []byte) error {
	if err := checkPageSize(src); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file == nil {
		return fmt.Errorf("disk: file %s is closed", m.path)
	}

	offset := int64(id) * PageSize
	if _, err := m.file.WriteAt(src, offset); err != nil {
		return fmt.Errorf("disk: write page %d: %w", id, err)
	}
	if id >= m.nextPage {
		m.nextPage = id + 1
	}
	return nil
}

// AllocatePage reserves the next page id. It does not write anything to
// disk; the buffer pool writes through on flush/eviction, exactly as
// spec.md §3 describes next_page_id as a monotonic in-memory counter.
func (m *FileManager) AllocatePage() (PageID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file == nil {
		return InvalidPageID, fmt.Errorf("disk: file %s is closed", m.path)
	}

	id := m.nextPage
	m.nextPage++
	return id, nil
}

// DeallocatePage is a no-op; the reference disk manager never reclaims
// file space (spec.md §4.4).
func (m *FileManager) DeallocatePage(PageID) error {
	return nil
}

// Sync flushes the page file to stable storage via fdatasync, which
// skips the metadata flush a full fsync would do — pages are fixed size
// and pre-allocated by WriteAt, so only data durability matters here.
func (m *FileManager) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file == nil {
		return fmt.Errorf("disk: file %s is closed", m.path)
	}
	if err := unix.Fdatasync(int(m.file.Fd())); err != nil {
		return fmt.Errorf("disk: fdatasync %s: %w", m.path, err)
	}
	return nil
}

// Close syncs and closes the underlying file.
func (m *FileManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file == nil {
		return nil
	}
	err := m.file.Sync()
	closeErr := m.file.Close()
	m.file = nil
	if err != nil {
		return fmt.Errorf("disk: sync before close %s: %w", m.path, err)
	}
	if closeErr != nil {
		return fmt.Errorf("disk: close %s: %w", m.path, closeErr)
	}
	return nil
}

// TotalPages reports the number of pages ever allocated.
func (m *FileManager) TotalPages() PageID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nextPage
}
