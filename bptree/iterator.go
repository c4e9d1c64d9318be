package bptree

import "relstore/disk"

// Iterator walks leaf entries in ascending key order, following sibling
// pointers. It holds a pin on its current leaf for the iterator's
// lifetime, resolving the leaf-pinning open question in spec.md §9 in
// favor of the simpler, correctness-first option (a concurrent split of
// the pinned leaf cannot evict it out from under the scan). Grounded on
// storage_engine/access/indexfile_manager/bplustree/iterator.go, the
// teacher's own pin-holding variant.
type Iterator struct {
	tree *Tree
	leaf *Node
	idx  int
	done bool
}

// Begin positions an iterator at the first key >= key (spec.md §4.8).
func (t *Tree) Begin(key []byte) *Iterator {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.IsEmpty() {
		return &Iterator{tree: t, done: true}
	}
	leaf := t.findLeaf(key)
	idx := 0
	for idx < leaf.size() && t.cmp(leaf.keys[idx], key) < 0 {
		idx++
	}
	it := &Iterator{tree: t, leaf: leaf, idx: idx}
	it.advance()
	return it
}

// BeginAtStart positions an iterator at the tree's smallest key, for a
// full-range scan.
func (t *Tree) BeginAtStart() *Iterator {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.IsEmpty() {
		return &Iterator{tree: t, done: true}
	}
	n := t.fetch(t.root)
	for !n.isLeaf() {
		next := n.children[0]
		t.release(n)
		n = t.fetch(next)
	}
	it := &Iterator{tree: t, leaf: n, idx: 0}
	it.advance()
	return it
}

// advance skips over exhausted leaves, following next pointers, until
// it lands on a valid entry or runs out of leaves.
func (it *Iterator) advance() {
	for it.leaf != nil && it.idx >= it.leaf.size() {
		next := it.leaf.next
		it.tree.release(it.leaf)
		it.leaf = nil
		if next == disk.InvalidPageID {
			it.done = true
			return
		}
		it.leaf = it.tree.fetch(next)
		it.idx = 0
	}
}

// Valid reports whether Key/Value may be called.
func (it *Iterator) Valid() bool { return !it.done && it.leaf != nil }

// Key returns the current entry's key. Only valid when Valid() is true.
func (it *Iterator) Key() []byte { return it.leaf.keys[it.idx] }

// Value returns the current entry's value. Only valid when Valid() is
// true.
func (it *Iterator) Value() []byte { return it.leaf.values[it.idx] }

// Next advances to the following entry.
func (it *Iterator) Next() {
	if it.done || it.leaf == nil {
		return
	}
	it.idx++
	it.advance()
}

// Close releases the iterator's pinned leaf, if any. Safe to call
// multiple times.
func (it *Iterator) Close() {
	if it.leaf != nil {
		it.tree.release(it.leaf)
		it.leaf = nil
	}
	it.done = true
}
