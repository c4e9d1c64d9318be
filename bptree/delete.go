package bptree

import "relstore/disk"

// Remove erases key if present. Absent keys are a silent no-op
// (spec.md §4.7).
func (t *Tree) Remove(key []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.IsEmpty() {
		return nil
	}

	leaf := t.findLeaf(key)
	idx, ok := leaf.search(key, t.cmp)
	if !ok {
		t.release(leaf)
		return nil
	}

	wasFirst := idx == 0
	leaf.keys = removeBytes(leaf.keys, idx)
	leaf.values = removeBytes(leaf.values, idx)

	leafID, leafParentID := leaf.pageID, leaf.parentID
	isRoot := leafID == t.root
	underflow := !isRoot && leaf.size() < leaf.minSize()

	// A root leaf drained to zero entries has no sibling to merge with
	// and no parent to collapse into it; the tree itself becomes empty
	// (spec.md §8: deleting every inserted key must leave root_page_id
	// INVALID).
	if isRoot && leaf.size() == 0 {
		t.saveAndRelease(leaf)
		t.deletePage(leafID)
		t.setRoot(disk.InvalidPageID)
		return nil
	}

	// Only propagate a separator update when the deleted key was the
	// leaf's first key, the leaf has a parent, and the leaf is not now
	// empty (an empty leaf is about to be redistributed or merged away,
	// which fixes up separators on its own). Resolves the ambiguity in
	// spec.md §4.7 step 2/3 in favor of always checking underflow.
	updateSeparator := wasFirst && !isRoot && leaf.size() > 0
	var newFirst []byte
	if updateSeparator {
		newFirst = cloneBytes(leaf.keys[0])
	}

	t.saveAndRelease(leaf)

	if updateSeparator {
		t.updateParentSeparator(leafParentID, leafID, newFirst)
	}

	if isRoot || !underflow {
		return nil
	}
	return t.mergeBrother(leafID)
}

func (t *Tree) updateParentSeparator(parentID, childID disk.PageID, newKey []byte) {
	parent := t.fetch(parentID)
	idx := parent.slotOf(childID)
	if idx <= 0 {
		t.release(parent)
		return
	}
	parent.keys[idx] = newKey
	t.saveAndRelease(parent)
}

// mergeBrother restores node's occupancy after an underflow: collapse
// the root if it degenerated to a single child, else borrow a sibling's
// entry, else merge with a sibling and recurse on the parent
// (spec.md §4.7 MergeBrother).
func (t *Tree) mergeBrother(nodeID disk.PageID) error {
	if nodeID == t.root {
		node := t.fetch(nodeID)
		if !node.isLeaf() && node.size() == 1 {
			onlyChild := node.children[0]
			t.release(node)
			t.deletePage(nodeID)
			t.setRoot(onlyChild)

			child := t.fetch(onlyChild)
			child.parentID = disk.InvalidPageID
			t.saveAndRelease(child)
			return nil
		}
		// The root is exempt from min_size (spec.md §3).
		t.release(node)
		return nil
	}

	node := t.fetch(nodeID)
	belowMin := node.size() < node.minSize()
	t.release(node)
	if !belowMin {
		return nil
	}

	if t.redistributeBrother(nodeID) {
		return nil
	}
	return t.mergeWithSibling(nodeID)
}

// redistributeBrother tries to borrow one entry from a sibling that has
// more than min_size, preferring the left sibling (spec.md §4.7
// RedistributeBrother).
func (t *Tree) redistributeBrother(nodeID disk.PageID) bool {
	node := t.fetch(nodeID)
	parent := t.fetch(node.parentID)
	slot := parent.slotOf(nodeID)

	if slot > 0 {
		leftID := parent.children[slot-1]
		left := t.fetch(leftID)
		if left.size() > left.minSize() {
			t.borrowFromLeft(node, left, parent, slot)
			t.saveAndRelease(node)
			t.saveAndRelease(left)
			t.saveAndRelease(parent)
			return true
		}
		t.release(left)
	}

	if slot < parent.size()-1 {
		rightID := parent.children[slot+1]
		right := t.fetch(rightID)
		if right.size() > right.minSize() {
			t.borrowFromRight(node, right, parent, slot)
			t.saveAndRelease(node)
			t.saveAndRelease(right)
			t.saveAndRelease(parent)
			return true
		}
		t.release(right)
	}

	t.release(node)
	t.release(parent)
	return false
}

func (t *Tree) borrowFromLeft(node, left, parent *Node, slot int) {
	if node.isLeaf() {
		li := left.size() - 1
		k, v := left.keys[li], left.values[li]
		left.keys = left.keys[:li]
		left.values = left.values[:li]
		node.keys = insertBytes(node.keys, 0, k)
		node.values = insertBytes(node.values, 0, v)
		parent.keys[slot] = cloneBytes(k)
		return
	}

	li := len(left.children) - 1
	movedChild := left.children[li]
	leftKeyLast := left.keys[li]
	left.children = left.children[:li]
	left.keys = left.keys[:li]

	node.keys = insertBytes(node.keys, 1, cloneBytes(parent.keys[slot]))
	node.children = insertPageIDs(node.children, 0, movedChild)
	parent.keys[slot] = leftKeyLast

	t.reparentChild(movedChild, node.pageID)
}

func (t *Tree) borrowFromRight(node, right, parent *Node, slot int) {
	if node.isLeaf() {
		k, v := right.keys[0], right.values[0]
		right.keys = removeBytes(right.keys, 0)
		right.values = removeBytes(right.values, 0)
		node.keys = append(node.keys, k)
		node.values = append(node.values, v)
		parent.keys[slot+1] = cloneBytes(right.keys[0])
		return
	}

	movedChild := right.children[0]
	newKeyForNode := cloneBytes(parent.keys[slot+1])
	right.children = removePageIDs(right.children, 0)
	right.keys = removeBytes(right.keys, 0)
	rightKeyFirst := right.keys[0]

	node.children = append(node.children, movedChild)
	node.keys = append(node.keys, newKeyForNode)
	parent.keys[slot+1] = rightKeyFirst

	t.reparentChild(movedChild, node.pageID)
}

func (t *Tree) reparentChild(childID, newParentID disk.PageID) {
	child := t.fetch(childID)
	child.parentID = newParentID
	t.saveAndRelease(child)
}

// mergeWithSibling merges nodeID into its left sibling if one exists,
// else merges its right sibling into it, removes the consumed separator
// from the parent, and recurses mergeBrother on the parent.
func (t *Tree) mergeWithSibling(nodeID disk.PageID) error {
	node := t.fetch(nodeID)
	parentID := node.parentID
	parent := t.fetch(parentID)
	slot := parent.slotOf(nodeID)

	if slot > 0 {
		leftID := parent.children[slot-1]
		left := t.fetch(leftID)
		t.mergeInto(left, node, parent, slot)
		t.release(node)
		t.deletePage(nodeID)
		t.saveAndRelease(left)
	} else {
		rightID := parent.children[slot+1]
		right := t.fetch(rightID)
		t.mergeInto(node, right, parent, slot+1)
		t.release(right)
		t.deletePage(rightID)
		t.saveAndRelease(node)
	}

	t.saveAndRelease(parent)
	return t.mergeBrother(parentID)
}

// mergeInto absorbs src's entries into dst, pulling down parent's
// separator at removeSlot for internal nodes, and removes that slot
// from parent. Children moved from an internal src have their parent
// pointer updated to dst.
func (t *Tree) mergeInto(dst, src, parent *Node, removeSlot int) {
	if dst.isLeaf() {
		dst.keys = append(dst.keys, src.keys...)
		dst.values = append(dst.values, src.values...)
		dst.next = src.next
	} else {
		sep := cloneBytes(parent.keys[removeSlot])
		dst.keys = append(dst.keys, sep)
		dst.keys = append(dst.keys, src.keys[1:]...)
		dst.children = append(dst.children, src.children...)
		for _, c := range src.children {
			child := t.fetch(c)
			child.parentID = dst.pageID
			t.saveAndRelease(child)
		}
	}
	parent.keys = removeBytes(parent.keys, removeSlot)
	parent.children = removePageIDs(parent.children, removeSlot)
}
