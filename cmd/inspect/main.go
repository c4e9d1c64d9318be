// inspect opens an on-disk page file and dumps the named index's B+ tree
// structure to stdout. Grounded on cmd/inspect_idx's CLI shape, rewired
// from a standalone bplustree.InspectIndexFile walk to the buffer-pool
// backed bptree.Tree.
//
// Usage: inspect <page-file> <index-name> [pool-size]
package main

import (
	"fmt"
	"os"
	"strconv"

	"relstore/bptree"
	"relstore/bufferpool"
	"relstore/disk"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: inspect <page-file> <index-name> [pool-size]")
		os.Exit(1)
	}
	path := os.Args[1]
	name := os.Args[2]

	poolSize := 64
	if len(os.Args) > 3 {
		n, err := strconv.Atoi(os.Args[3])
		if err != nil || n <= 0 {
			fmt.Fprintf(os.Stderr, "invalid pool-size %q\n", os.Args[3])
			os.Exit(1)
		}
		poolSize = n
	}

	dm, err := disk.NewFileManager(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", path, err)
		os.Exit(1)
	}
	defer dm.Close()

	pool := bufferpool.NewPool(poolSize, bufferpool.DefaultK, dm, nil)
	header, err := bptree.OpenHeader(pool)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open header: %v\n", err)
		os.Exit(1)
	}

	if _, ok := header.RootID(name); !ok {
		fmt.Fprintf(os.Stderr, "no such index %q in %s\n", name, path)
		os.Exit(1)
	}

	tree := bptree.Open(pool, header, name, 0, nil, nil)
	if err := tree.WriteDump(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "dump %s: %v\n", name, err)
		os.Exit(1)
	}
}
