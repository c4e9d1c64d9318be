// Package replacer implements the LRU-K eviction policy used by the
// buffer pool to choose a victim frame among the unpinned ones.
package replacer

import (
	"container/list"
	"fmt"
	"sync"
)

// entry tracks one frame's access history. It lives in exactly one of
// the replacer's two lists at a time (fifoList while accessCount < k,
// lruList once it reaches k) — see spec.md §3/§4.3's L/M/R sentinel
// description: fifoList and lruList together are those two logical
// lists, joined conceptually at M.
type entry struct {
	frameID     int
	accessCount int
	evictable   bool
}

// LRUK tracks at most numFrames frames and picks an eviction victim:
// frames seen fewer than k times are cold and go first, oldest first;
// once a frame's access count reaches k it graduates to the LRU list and
// is evicted in order of the time of that k-th access. Accesses after
// the k-th do not move the frame again — this mirrors the reference
// implementation's "approximate LRU-K" rather than classic LRU-K, which
// would re-rank on every access past k (spec.md §9).
type LRUK struct {
	mu sync.Mutex

	k         int
	numFrames int

	fifoList *list.List // access_count < k, oldest at Back()
	lruList  *list.List // access_count >= k, oldest-graduated at Back()

	elements map[int]*list.Element // frameID -> node in fifoList or lruList
	nodes    map[int]*entry

	evictableCount int
}

// NewLRUK creates a replacer tracking up to numFrames frames, promoting a
// frame to the LRU list on its k-th access.
func NewLRUK(numFrames, k int) *LRUK {
	return &LRUK{
		k:         k,
		numFrames: numFrames,
		fifoList:  list.New(),
		lruList:   list.New(),
		elements:  make(map[int]*list.Element),
		nodes:     make(map[int]*entry),
	}
}

func (r *LRUK) checkFrame(op string, frameID int) {
	if frameID < 0 || frameID >= r.numFrames {
		panic(fmt.Sprintf("replacer: %s: frame id %d out of range [0,%d)", op, frameID, r.numFrames))
	}
}

// RecordAccess registers an access to frameID, creating it at the FIFO
// head if unseen, or incrementing its access count and promoting it to
// the LRU list's head the moment the count reaches k.
func (r *LRUK) RecordAccess(frameID int) {
	r.checkFrame("RecordAccess", frameID)

	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[frameID]
	if !ok {
		n = &entry{frameID: frameID, accessCount: 1}
		r.nodes[frameID] = n
		elem := r.fifoList.PushFront(n)
		r.elements[frameID] = elem
		return
	}

	n.accessCount++
	if n.accessCount == r.k {
		elem := r.elements[frameID]
		r.fifoList.Remove(elem)
		newElem := r.lruList.PushFront(n)
		r.elements[frameID] = newElem
	}
	// Accesses beyond k leave position untouched (spec.md §9).
}

// SetEvictable marks frameID evictable or not. A no-op for unknown
// frames or when the flag is unchanged.
func (r *LRUK) SetEvictable(frameID int, evictable bool) {
	r.checkFrame("SetEvictable", frameID)

	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[frameID]
	if !ok || n.evictable == evictable {
		return
	}

	n.evictable = evictable
	if evictable {
		r.evictableCount++
	} else {
		r.evictableCount--
	}
}

// Evict picks a victim: the oldest evictable frame with access_count < k
// (scanning the FIFO list from its tail), else the oldest-graduated
// evictable frame (scanning the LRU list from its tail). It returns
// false if no evictable frame exists.
func (r *LRUK) Evict() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.evictableCount == 0 {
		return 0, false
	}

	for e := r.fifoList.Back(); e != nil; e = e.Prev() {
		n := e.Value.(*entry)
		if n.evictable {
			r.removeLocked(n.frameID)
			return n.frameID, true
		}
	}
	for e := r.lruList.Back(); e != nil; e = e.Prev() {
		n := e.Value.(*entry)
		if n.evictable {
			r.removeLocked(n.frameID)
			return n.frameID, true
		}
	}
	return 0, false
}

// Remove detaches frameID from tracking if it is currently evictable.
// Silently ignored if pinned (not evictable) or unknown.
func (r *LRUK) Remove(frameID int) {
	r.checkFrame("Remove", frameID)

	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[frameID]
	if !ok || !n.evictable {
		return
	}
	r.removeLocked(frameID)
}

// removeLocked detaches frameID from whichever list holds it. Caller
// must hold r.mu.
func (r *LRUK) removeLocked(frameID int) {
	n := r.nodes[frameID]
	elem := r.elements[frameID]

	if n.accessCount < r.k {
		r.fifoList.Remove(elem)
	} else {
		r.lruList.Remove(elem)
	}
	if n.evictable {
		r.evictableCount--
	}
	delete(r.elements, frameID)
	delete(r.nodes, frameID)
}

// Size returns the number of currently evictable frames.
func (r *LRUK) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evictableCount
}
