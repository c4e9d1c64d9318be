package bptree

import (
	"encoding/binary"
	"fmt"

	"relstore/disk"
)

// On-disk page layout (spec.md §6):
//
//	offset  0: page_type   uint32
//	offset  4: lsn         uint32 (reserved, always 0)
//	offset  8: size        uint32
//	offset 12: max_size    uint32
//	offset 16: parent_page_id int32
//	offset 20: page_id        int32
//	offset 24: next_page_id   int32   (leaf only)
//	then, size entries:
//	  leaf:     key_len uint32, key bytes, val_len uint32, val bytes
//	  internal: key_len uint32, key bytes, child_page_id int32
const headerSize = 24

func encodeNode(n *Node) []byte {
	buf := make([]byte, disk.PageSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(n.pageType))
	binary.LittleEndian.PutUint32(buf[4:8], 0)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(n.size()))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(n.maxSize))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(int32(n.parentID)))
	binary.LittleEndian.PutUint32(buf[20:24], uint32(int32(n.pageID)))

	off := headerSize
	if n.isLeaf() {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(int32(n.next)))
		off += 4
		for i := 0; i < n.size(); i++ {
			off = putBytes(buf, off, n.keys[i])
			off = putBytes(buf, off, n.values[i])
		}
	} else {
		for i := 0; i < n.size(); i++ {
			off = putBytes(buf, off, n.keys[i])
			binary.LittleEndian.PutUint32(buf[off:off+4], uint32(int32(n.children[i])))
			off += 4
		}
	}
	if off > disk.PageSize {
		panic(fmt.Sprintf("bptree: encoded node exceeds page size (%d > %d); reduce max_size or key/value size", off, disk.PageSize))
	}
	return buf
}

func putBytes(buf []byte, off int, b []byte) int {
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(b)))
	off += 4
	copy(buf[off:], b)
	return off + len(b)
}

func getBytes(buf []byte, off int) ([]byte, int) {
	n := binary.LittleEndian.Uint32(buf[off : off+4])
	off += 4
	b := make([]byte, n)
	copy(b, buf[off:off+int(n)])
	return b, off + int(n)
}

func decodeNode(buf []byte) *Node {
	n := &Node{}
	n.pageType = NodeType(binary.LittleEndian.Uint32(buf[0:4]))
	size := int(binary.LittleEndian.Uint32(buf[8:12]))
	n.maxSize = int32(binary.LittleEndian.Uint32(buf[12:16]))
	n.parentID = disk.PageID(int32(binary.LittleEndian.Uint32(buf[16:20])))
	n.pageID = disk.PageID(int32(binary.LittleEndian.Uint32(buf[20:24])))

	off := headerSize
	if n.isLeaf() {
		n.next = disk.PageID(int32(binary.LittleEndian.Uint32(buf[off : off+4])))
		off += 4
		n.keys = make([][]byte, size)
		n.values = make([][]byte, size)
		for i := 0; i < size; i++ {
			n.keys[i], off = getBytes(buf, off)
			n.values[i], off = getBytes(buf, off)
		}
	} else {
		n.keys = make([][]byte, size)
		n.children = make([]disk.PageID, size)
		for i := 0; i < size; i++ {
			n.keys[i], off = getBytes(buf, off)
			n.children[i] = disk.PageID(int32(binary.LittleEndian.Uint32(buf[off : off+4])))
			off += 4
		}
	}
	return n
}
