// Package hash implements an in-memory extendible hash table: a
// doubling directory of buckets, splitting one bucket at a time on
// overflow. Used as the buffer pool's page table and as a standalone
// generic map for testing (spec.md §4.2).
//
// Grounded on FeatureBaseDB-featurebase/extendiblehash/extendiblehash.go,
// adapted from page-backed buckets to plain in-memory ones.
package hash

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// entry is one (key, value) pair inside a bucket, kept in insertion
// order so bucket iteration is deterministic for tests.
type entry[K comparable, V any] struct {
	key K
	val V
}

// bucket holds up to bucketSize entries plus the local depth it was
// created with.
type bucket[K comparable, V any] struct {
	entries    []entry[K, V]
	localDepth uint
}

// Table is a generic extendible hash table.
type Table[K comparable, V any] struct {
	mu          sync.Mutex
	dir         []*bucket[K, V]
	globalDepth uint
	bucketSize  int
	numBuckets  int
	hashKey     func(K) uint64
}

// NewTable creates an extendible hash table whose buckets hold up to
// bucketSize entries each. hashKey, if nil, defaults to xxhash over the
// key's fmt representation via hashAny.
func NewTable[K comparable, V any](bucketSize int, hashKey func(K) uint64) *Table[K, V] {
	if bucketSize < 1 {
		bucketSize = 1
	}
	if hashKey == nil {
		hashKey = hashAny[K]
	}
	return &Table[K, V]{
		dir:        []*bucket[K, V]{{localDepth: 0}},
		bucketSize: bucketSize,
		numBuckets: 1,
		hashKey:    hashKey,
	}
}

// hashAny hashes an arbitrary comparable key by feeding xxhash its
// fmt.Sprintf("%v", k) representation. Callers with a cheaper natural
// byte/integer representation should pass their own hashKey to NewTable
// instead.
func hashAny[K comparable](k K) uint64 {
	return xxhash.Sum64String(fmt.Sprintf("%v", k))
}

func (t *Table[K, V]) slot(k K) int {
	h := t.hashKey(k)
	mask := uint64(1)<<t.globalDepth - 1
	return int(h & mask)
}

// Find returns the value for k and true if present.
func (t *Table[K, V]) Find(k K) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b := t.dir[t.slot(k)]
	for _, e := range b.entries {
		if e.key == k {
			return e.val, true
		}
	}
	var zero V
	return zero, false
}

// Remove deletes k if present, returning whether it was found.
func (t *Table[K, V]) Remove(k K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	b := t.dir[t.slot(k)]
	for i, e := range b.entries {
		if e.key == k {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Insert adds or overwrites the value for k, splitting buckets and
// doubling the directory as needed (spec.md §4.2).
func (t *Table[K, V]) Insert(k K, v V) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.insertLocked(k, v)
}

func (t *Table[K, V]) insertLocked(k K, v V) {
	idx := t.slot(k)
	b := t.dir[idx]

	for i, e := range b.entries {
		if e.key == k {
			b.entries[i].val = v
			return
		}
	}

	if len(b.entries) < t.bucketSize {
		b.entries = append(b.entries, entry[K, V]{key: k, val: v})
		return
	}

	t.splitAndRetry(idx, k, v)
}

// splitAndRetry performs one round of the directory-doubling / bucket-
// split algorithm and retries the insert. It may recurse (via
// insertLocked -> splitAndRetry again) if every entry in the overflowing
// bucket collides into one of the two new buckets — spec.md §4.2's
// "this handles pathological cases" note, exercised by scenario 3 in
// spec.md §8.
func (t *Table[K, V]) splitAndRetry(idx int, k K, v V) {
	old := t.dir[idx]

	if old.localDepth == t.globalDepth {
		t.dir = append(t.dir, t.dir...)
		t.globalDepth++
	}

	newLocalDepth := old.localDepth + 1
	b0 := &bucket[K, V]{localDepth: newLocalDepth}
	b1 := &bucket[K, V]{localDepth: newLocalDepth}
	t.numBuckets++

	hiBit := uint64(1) << (newLocalDepth - 1)
	for i, d := range t.dir {
		if d == old {
			if uint64(i)&hiBit != 0 {
				t.dir[i] = b1
			} else {
				t.dir[i] = b0
			}
		}
	}

	for _, e := range old.entries {
		h := t.hashKey(e.key)
		if h&hiBit != 0 {
			b1.entries = append(b1.entries, e)
		} else {
			b0.entries = append(b0.entries, e)
		}
	}

	t.insertLocked(k, v)
}

// GlobalDepth returns the current directory depth.
func (t *Table[K, V]) GlobalDepth() uint {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.globalDepth
}

// NumBuckets returns the number of distinct buckets currently allocated.
func (t *Table[K, V]) NumBuckets() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.numBuckets
}
