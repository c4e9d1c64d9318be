package bptree

import (
	"sync"

	"relstore/bufferpool"
	"relstore/disk"
	"relstore/internal/telemetry"
)

// Tree is a single named B+ tree index living inside a shared buffer
// pool. Grounded on
// storage_engine/access/indexfile_manager/bplustree/new_bplus_tree.go,
// which mediates every node access through the buffer pool manager
// rather than the disk manager directly — the fetch/pin/unpin
// discipline spec.md §4.4 and §4.5 both assume.
type Tree struct {
	mu sync.Mutex

	pool    *bufferpool.Pool
	header  *Header
	name    string
	cmp     CompareFunc
	maxSize int32
	log     telemetry.Logger

	root disk.PageID
}

// Open attaches to (or creates) the named index within pool, using
// maxSize entries per node and cmp to order keys. A nil cmp defaults to
// bytes.Compare; a nil log defaults to telemetry.Discard.
func Open(pool *bufferpool.Pool, header *Header, name string, maxSize int32, cmp CompareFunc, log telemetry.Logger) *Tree {
	if cmp == nil {
		cmp = defaultCompare
	}
	if log == nil {
		log = telemetry.Discard
	}
	root, ok := header.RootID(name)
	if !ok {
		root = disk.InvalidPageID
	}
	return &Tree{
		pool:    pool,
		header:  header,
		name:    name,
		cmp:     cmp,
		maxSize: maxSize,
		log:     log,
		root:    root,
	}
}

// IsEmpty reports whether the tree has no root yet.
func (t *Tree) IsEmpty() bool { return t.root == disk.InvalidPageID }

func (t *Tree) setRoot(id disk.PageID) {
	t.root = id
	t.header.SetRootID(t.name, id)
}

// fetch pins and decodes the node at id. Callers must release exactly
// once, via release (clean) or saveAndRelease (after mutating it).
func (t *Tree) fetch(id disk.PageID) *Node {
	page, ok := t.pool.FetchPage(id)
	if !ok {
		panic("bptree: out of buffer pool frames while fetching a node")
	}
	n := decodeNode(page.Data())
	n.page = page
	return n
}

// release unpins n's frame without marking it dirty — use when n was
// only read.
func (t *Tree) release(n *Node) {
	t.pool.UnpinPage(n.pageID, false)
}

// saveAndRelease re-encodes n into its pinned frame and unpins it
// dirty. Use after mutating a fetched node.
func (t *Tree) saveAndRelease(n *Node) {
	copy(n.page.Data(), encodeNode(n))
	t.pool.UnpinPage(n.pageID, true)
}

// newLeafNode allocates a fresh, pinned leaf node. Caller must release
// it like any other fetched node.
func (t *Tree) newLeafNode() *Node {
	page, ok := t.pool.NewPage()
	if !ok {
		panic("bptree: out of buffer pool frames while allocating a leaf")
	}
	n := newLeaf(page.ID(), t.maxSize)
	n.page = page
	return n
}

// newInternalNode allocates a fresh, pinned internal node.
func (t *Tree) newInternalNode() *Node {
	page, ok := t.pool.NewPage()
	if !ok {
		panic("bptree: out of buffer pool frames while allocating an internal node")
	}
	n := newInternal(page.ID(), t.maxSize)
	n.page = page
	return n
}

func (t *Tree) deletePage(id disk.PageID) {
	t.pool.DeletePage(id)
}

// findLeaf descends from the root to the leaf that would hold key,
// fetching and releasing each internal node along the way, leaving the
// leaf fetched (pinned) for the caller to release.
func (t *Tree) findLeaf(key []byte) *Node {
	n := t.fetch(t.root)
	for !n.isLeaf() {
		next := n.childFor(key, t.cmp)
		t.release(n)
		n = t.fetch(next)
	}
	return n
}
