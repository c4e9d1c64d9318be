package bptree

import (
	"bytes"
	"fmt"
	"testing"

	"relstore/bufferpool"
	"relstore/disk"
)

func newTestTree(t *testing.T, maxSize int32) *Tree {
	t.Helper()
	dm := disk.NewMemManager()
	pool := bufferpool.NewPool(64, bufferpool.DefaultK, dm, nil)
	header, err := OpenHeader(pool)
	if err != nil {
		t.Fatalf("OpenHeader: %v", err)
	}
	return Open(pool, header, "idx", maxSize, nil, nil)
}

func key(n int) []byte { return []byte(fmt.Sprintf("k%04d", n)) }
func val(n int) []byte { return []byte(fmt.Sprintf("v%04d", n)) }

func TestInsertAndGetValueRoundTrip(t *testing.T) {
	tr := newTestTree(t, 4)
	for i := 0; i < 20; i++ {
		if err := tr.Insert(key(i), val(i)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	for i := 0; i < 20; i++ {
		v, err := tr.GetValue(key(i))
		if err != nil {
			t.Fatalf("GetValue(%d): %v", i, err)
		}
		if !bytes.Equal(v, val(i)) {
			t.Fatalf("GetValue(%d) = %q, want %q", i, v, val(i))
		}
	}
}

func TestInsertDuplicateKeyRejected(t *testing.T) {
	tr := newTestTree(t, 4)
	if err := tr.Insert(key(1), val(1)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := tr.Insert(key(1), val(2)); err != ErrDuplicateKey {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestGetValueMissingKey(t *testing.T) {
	tr := newTestTree(t, 4)
	tr.Insert(key(1), val(1))
	if _, err := tr.GetValue(key(99)); err != ErrKeyNotFound {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

// TestLeafSplitForcesNewRoot mirrors spec.md §8 scenario 4: inserting
// enough keys into a small-max_size tree forces a leaf split and the
// creation of an internal root.
func TestLeafSplitForcesNewRoot(t *testing.T) {
	tr := newTestTree(t, 3)
	for i := 0; i < 7; i++ {
		if err := tr.Insert(key(i), val(i)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	root := tr.fetch(tr.root)
	if root.isLeaf() {
		t.Fatalf("expected root to have split into an internal node")
	}
	if root.size() < 2 {
		t.Fatalf("expected root to route to at least two children, got size %d", root.size())
	}
	tr.release(root)

	for i := 0; i < 7; i++ {
		v, err := tr.GetValue(key(i))
		if err != nil || !bytes.Equal(v, val(i)) {
			t.Fatalf("GetValue(%d) = %q, %v", i, v, err)
		}
	}
}

// TestDeleteRedistributeThenMerge mirrors spec.md §8 scenario 5: insert
// seven keys (0..6) then delete 2, 3, 4 and 5 to force first a
// redistribution, then a merge cascade.
func TestDeleteRedistributeThenMerge(t *testing.T) {
	tr := newTestTree(t, 3)
	for i := 0; i < 7; i++ {
		if err := tr.Insert(key(i), val(i)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	for _, i := range []int{2, 3, 4, 5} {
		if err := tr.Remove(key(i)); err != nil {
			t.Fatalf("Remove(%d): %v", i, err)
		}
	}

	for _, i := range []int{2, 3, 4, 5} {
		if _, err := tr.GetValue(key(i)); err != ErrKeyNotFound {
			t.Fatalf("expected key %d to be gone, got err=%v", i, err)
		}
	}
	for _, i := range []int{0, 1, 6} {
		v, err := tr.GetValue(key(i))
		if err != nil || !bytes.Equal(v, val(i)) {
			t.Fatalf("expected surviving key %d intact, got %q, %v", i, v, err)
		}
	}
}

func TestInsertThenDeleteAllEmptiesTree(t *testing.T) {
	tr := newTestTree(t, 4)
	const n = 30
	for i := 0; i < n; i++ {
		if err := tr.Insert(key(i), val(i)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	for i := 0; i < n; i++ {
		if err := tr.Remove(key(i)); err != nil {
			t.Fatalf("Remove(%d): %v", i, err)
		}
	}
	for i := 0; i < n; i++ {
		if _, err := tr.GetValue(key(i)); err != ErrKeyNotFound {
			t.Fatalf("expected key %d to be gone after draining the tree", i)
		}
	}

	if !tr.IsEmpty() {
		t.Fatalf("expected the tree to report empty after draining every key")
	}
	if tr.root != disk.InvalidPageID {
		t.Fatalf("expected root page id to be invalid after draining every key, got %d", tr.root)
	}
}

func TestRemoveAbsentKeyIsNoop(t *testing.T) {
	tr := newTestTree(t, 4)
	tr.Insert(key(1), val(1))
	if err := tr.Remove(key(99)); err != nil {
		t.Fatalf("Remove of an absent key should be a no-op, got %v", err)
	}
}

// TestIteratorRangeScan mirrors spec.md §8 scenario 6: insert 1..100,
// Begin at 50 and scan forward, checking both the starting point and
// full ordering.
func TestIteratorRangeScan(t *testing.T) {
	tr := newTestTree(t, 4)
	const n = 100
	for i := 1; i <= n; i++ {
		if err := tr.Insert(key(i), val(i)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	it := tr.Begin(key(50))
	defer it.Close()
	if !it.Valid() {
		t.Fatalf("expected iterator to be valid at key 50")
	}
	if !bytes.Equal(it.Key(), key(50)) {
		t.Fatalf("expected Begin(50) to land on key 50, got %q", it.Key())
	}

	want := 50
	for it.Valid() {
		if !bytes.Equal(it.Key(), key(want)) {
			t.Fatalf("expected key %d, got %q", want, it.Key())
		}
		if !bytes.Equal(it.Value(), val(want)) {
			t.Fatalf("expected value %d, got %q", want, it.Value())
		}
		want++
		it.Next()
	}
	if want != n+1 {
		t.Fatalf("expected scan to reach key %d, stopped at %d", n+1, want)
	}
}

func TestIteratorFullScanFromStart(t *testing.T) {
	tr := newTestTree(t, 4)
	for i := 1; i <= 10; i++ {
		tr.Insert(key(i), val(i))
	}
	it := tr.BeginAtStart()
	defer it.Close()
	count := 0
	for it.Valid() {
		count++
		it.Next()
	}
	if count != 10 {
		t.Fatalf("expected 10 entries, got %d", count)
	}
}

func TestIteratorOnEmptyTree(t *testing.T) {
	tr := newTestTree(t, 4)
	it := tr.Begin(key(1))
	if it.Valid() {
		t.Fatalf("expected an empty tree's iterator to be immediately invalid")
	}
	it.Close()
}

func TestHeaderPersistsRootAcrossReopen(t *testing.T) {
	dm := disk.NewMemManager()
	pool := bufferpool.NewPool(64, bufferpool.DefaultK, dm, nil)
	header, err := OpenHeader(pool)
	if err != nil {
		t.Fatalf("OpenHeader: %v", err)
	}
	tr := Open(pool, header, "idx", 4, nil, nil)
	for i := 0; i < 10; i++ {
		tr.Insert(key(i), val(i))
	}

	reopenedHeader, err := OpenHeader(pool)
	if err != nil {
		t.Fatalf("reopen OpenHeader: %v", err)
	}
	reopened := Open(pool, reopenedHeader, "idx", 4, nil, nil)
	for i := 0; i < 10; i++ {
		v, err := reopened.GetValue(key(i))
		if err != nil || !bytes.Equal(v, val(i)) {
			t.Fatalf("GetValue(%d) after reopen = %q, %v", i, v, err)
		}
	}
}

func TestTwoNamedIndexesShareOnePool(t *testing.T) {
	dm := disk.NewMemManager()
	pool := bufferpool.NewPool(64, bufferpool.DefaultK, dm, nil)
	header, err := OpenHeader(pool)
	if err != nil {
		t.Fatalf("OpenHeader: %v", err)
	}

	a := Open(pool, header, "a", 4, nil, nil)
	b := Open(pool, header, "b", 4, nil, nil)

	a.Insert(key(1), []byte("a-val"))
	b.Insert(key(1), []byte("b-val"))

	av, err := a.GetValue(key(1))
	if err != nil || !bytes.Equal(av, []byte("a-val")) {
		t.Fatalf("index a: got %q, %v", av, err)
	}
	bv, err := b.GetValue(key(1))
	if err != nil || !bytes.Equal(bv, []byte("b-val")) {
		t.Fatalf("index b: got %q, %v", bv, err)
	}
}
