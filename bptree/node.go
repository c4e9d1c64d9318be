// Package bptree implements the B+ tree index: unique-key point lookup,
// insertion with splits, deletion with redistribution/merging, and
// forward range iteration via sibling pointers (spec.md §4.5–§4.8).
//
// Grounded file-for-file on
// storage_engine/access/indexfile_manager/bplustree/*.go, generalized
// from that package's "children = keys+1" convention to the spec's
// sentinel-key internal layout (spec.md §3: "index 0's key is a
// sentinel... children at index i cover [key[i], key[i+1)) for i>=1;
// child at 0 covers keys < key[1]").
package bptree

import (
	"bytes"

	"relstore/bufferpool"
	"relstore/disk"
)

// NodeType distinguishes internal (routing) pages from leaf (data)
// pages.
type NodeType uint32

const (
	NodeInternal NodeType = iota
	NodeLeaf
)

// CompareFunc orders keys. Open uses bytes.Compare when given nil.
type CompareFunc func(a, b []byte) int

func defaultCompare(a, b []byte) int { return bytes.Compare(a, b) }

// Node is the in-memory, decoded form of a B+ tree page.
//
// Leaf invariant: len(keys) == len(values) == size; next is the right
// sibling's page id, or disk.InvalidPageID for the rightmost leaf.
//
// Internal invariant: len(keys) == len(children) == size; keys[0] is a
// sentinel never compared against — child[0] covers everything below
// keys[1], child[i] (i>=1) covers [keys[i], keys[i+1)).
type Node struct {
	pageType NodeType
	pageID   disk.PageID
	parentID disk.PageID
	maxSize  int32

	keys     [][]byte
	values   [][]byte      // leaf only
	children []disk.PageID // internal only
	next     disk.PageID   // leaf only

	page *bufferpool.Page // the pinned frame this node was decoded from
}

func newLeaf(pageID disk.PageID, maxSize int32) *Node {
	return &Node{
		pageType: NodeLeaf,
		pageID:   pageID,
		parentID: disk.InvalidPageID,
		maxSize:  maxSize,
		next:     disk.InvalidPageID,
	}
}

func newInternal(pageID disk.PageID, maxSize int32) *Node {
	return &Node{
		pageType: NodeInternal,
		pageID:   pageID,
		parentID: disk.InvalidPageID,
		maxSize:  maxSize,
	}
}

func (n *Node) isLeaf() bool { return n.pageType == NodeLeaf }
func (n *Node) size() int    { return len(n.keys) }

// minSize is the minimum occupancy before a non-root node underflows;
// identical formula for leaves and internals (spec.md §3).
func (n *Node) minSize() int { return int((n.maxSize + 1) / 2) }

func (n *Node) isFull() bool { return n.size() >= int(n.maxSize) }

// findIndex returns the first index i in [1, size) with
// cmp(keys[i], key) > 0, or size if no such index exists. Used by
// internal-node descent (child = children[i-1]) via childFor.
// Internal-only.
func (n *Node) findIndex(key []byte, cmp CompareFunc) int {
	for i := 1; i < n.size(); i++ {
		if cmp(n.keys[i], key) > 0 {
			return i
		}
	}
	return n.size()
}

// childFor returns the child page id routing to key, for an internal
// node.
func (n *Node) childFor(key []byte, cmp CompareFunc) disk.PageID {
	idx := n.findIndex(key, cmp)
	return n.children[idx-1]
}

// slotOf returns the index of child in n.children, or -1.
func (n *Node) slotOf(child disk.PageID) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

// search returns the index of key in a leaf's keys via linear scan
// (spec.md §4.5: "scan linearly for an exact match"), and whether it
// was found.
func (n *Node) search(key []byte, cmp CompareFunc) (int, bool) {
	for i, k := range n.keys {
		if cmp(k, key) == 0 {
			return i, true
		}
	}
	return -1, false
}

// insertSortedLeaf inserts (key, value) into a leaf's parallel arrays
// keeping keys ascending. Assumes key is not already present.
func (n *Node) insertSortedLeaf(key, value []byte, cmp CompareFunc) {
	idx := 0
	for idx < len(n.keys) && cmp(n.keys[idx], key) < 0 {
		idx++
	}
	n.keys = insertBytes(n.keys, idx, key)
	n.values = insertBytes(n.values, idx, value)
}

// insertChildAfter inserts (key, childID) immediately after the
// existing child left in an internal node's parallel arrays. Used by
// InsertIntoParent for the common (non-full) case.
func (n *Node) insertChildAfter(left disk.PageID, key []byte, child disk.PageID) {
	idx := n.slotOf(left)
	n.keys = insertBytes(n.keys, idx+1, key)
	n.children = insertPageIDs(n.children, idx+1, child)
}

func insertBytes(s [][]byte, idx int, v []byte) [][]byte {
	s = append(s, nil)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

func insertPageIDs(s []disk.PageID, idx int, v disk.PageID) []disk.PageID {
	s = append(s, disk.InvalidPageID)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

func removeBytes(s [][]byte, idx int) [][]byte {
	return append(s[:idx], s[idx+1:]...)
}

func removePageIDs(s []disk.PageID, idx int) []disk.PageID {
	return append(s[:idx], s[idx+1:]...)
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
