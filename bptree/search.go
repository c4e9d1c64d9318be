package bptree

// GetValue returns the value stored under key, or ErrKeyNotFound if the
// tree has no such key (spec.md §4.5).
func (t *Tree) GetValue(key []byte) ([]byte, error) {
	if t.IsEmpty() {
		return nil, ErrKeyNotFound
	}
	leaf := t.findLeaf(key)
	defer t.release(leaf)

	idx, ok := leaf.search(key, t.cmp)
	if !ok {
		return nil, ErrKeyNotFound
	}
	v := make([]byte, len(leaf.values[idx]))
	copy(v, leaf.values[idx])
	return v, nil
}

// Contains reports whether key is present.
func (t *Tree) Contains(key []byte) bool {
	_, err := t.GetValue(key)
	return err == nil
}
