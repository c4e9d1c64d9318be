package bptree

import "relstore/disk"

// Insert adds key/value to the tree. Keys are unique; inserting an
// existing key returns ErrDuplicateKey (spec.md §4.5).
func (t *Tree) Insert(key, value []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	key = cloneBytes(key)
	value = cloneBytes(value)

	if t.IsEmpty() {
		leaf := t.newLeafNode()
		leaf.keys = [][]byte{key}
		leaf.values = [][]byte{value}
		t.setRoot(leaf.pageID)
		t.saveAndRelease(leaf)
		return nil
	}

	leaf := t.findLeaf(key)
	if _, ok := leaf.search(key, t.cmp); ok {
		t.release(leaf)
		return ErrDuplicateKey
	}

	if !leaf.isFull() {
		leaf.insertSortedLeaf(key, value, t.cmp)
		t.saveAndRelease(leaf)
		return nil
	}

	t.splitLeaf(leaf, key, value)
	return nil
}

// splitLeaf handles inserting into a full leaf: the new entry is staged
// into a size max_size+1 array in sorted position, then the leaf splits
// left gets floor(N/2), right gets the remainder (spec.md §4.6).
func (t *Tree) splitLeaf(leaf *Node, key, value []byte) {
	keys := append([][]byte{}, leaf.keys...)
	values := append([][]byte{}, leaf.values...)

	idx := 0
	for idx < len(keys) && t.cmp(keys[idx], key) < 0 {
		idx++
	}
	keys = insertBytes(keys, idx, key)
	values = insertBytes(values, idx, value)

	n := len(keys)
	half := n / 2

	leaf.keys = keys[:half]
	leaf.values = values[:half]

	right := t.newLeafNode()
	right.keys = append([][]byte{}, keys[half:]...)
	right.values = append([][]byte{}, values[half:]...)
	right.next = leaf.next
	leaf.next = right.pageID

	leafID, leafParentID := leaf.pageID, leaf.parentID
	rightID := right.pageID
	promoted := cloneBytes(right.keys[0])

	t.saveAndRelease(leaf)
	t.saveAndRelease(right)

	t.insertIntoParent(leafID, leafParentID, promoted, rightID)
}

// insertIntoParent adds (sepKey, rightID) as a routing entry above the
// sibling pair (leftID, rightID), splitting leftID's parent if it is
// full, and creating a new root if leftID had none. All three nodes are
// addressed by id and fetched fresh at each step, so this never holds
// two live pins on the same page (spec.md §4.6 InsertIntoParent).
func (t *Tree) insertIntoParent(leftID, leftParentID disk.PageID, sepKey []byte, rightID disk.PageID) {
	if leftParentID == disk.InvalidPageID {
		newRoot := t.newInternalNode()
		newRoot.keys = [][]byte{nil, cloneBytes(sepKey)}
		newRoot.children = []disk.PageID{leftID, rightID}
		newRootID := newRoot.pageID
		t.saveAndRelease(newRoot)
		t.setRoot(newRootID)

		left := t.fetch(leftID)
		left.parentID = newRootID
		t.saveAndRelease(left)

		right := t.fetch(rightID)
		right.parentID = newRootID
		t.saveAndRelease(right)
		return
	}

	parent := t.fetch(leftParentID)
	if !parent.isFull() {
		parent.insertChildAfter(leftID, cloneBytes(sepKey), rightID)
		parentID := parent.pageID
		t.saveAndRelease(parent)

		right := t.fetch(rightID)
		right.parentID = parentID
		t.saveAndRelease(right)
		return
	}

	// Parent is full: stage into a scratch buffer of maxSize+1 entries,
	// then split. The right half's slot 0 carries the promoted
	// separator (spec.md §4.6).
	idx := parent.slotOf(leftID)
	keys := append([][]byte{}, parent.keys...)
	children := append([]disk.PageID{}, parent.children...)
	keys = insertBytes(keys, idx+1, cloneBytes(sepKey))
	children = insertPageIDs(children, idx+1, rightID)

	n := len(keys)
	half := 1 + (n-1)/2

	parent.keys = keys[:half]
	parent.children = children[:half]
	parentID := parent.pageID
	parentOfParent := parent.parentID
	t.saveAndRelease(parent)

	newRight := t.newInternalNode()
	newRight.keys = append([][]byte{}, keys[half:]...)
	newRight.children = append([]disk.PageID{}, children[half:]...)
	newRightID := newRight.pageID
	t.saveAndRelease(newRight)

	for _, c := range children[half:] {
		child := t.fetch(c)
		child.parentID = newRightID
		t.saveAndRelease(child)
	}
	if idx+1 < half {
		child := t.fetch(rightID)
		child.parentID = parentID
		t.saveAndRelease(child)
	}

	promoted := keys[half]
	t.insertIntoParent(parentID, parentOfParent, promoted, newRightID)
}
