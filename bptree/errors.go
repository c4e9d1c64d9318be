package bptree

import "errors"

// Sentinel errors for the non-fatal outcomes spec.md §7 lists for this
// component. Fatal outcomes (IOFailure, InvariantViolation) panic
// instead, matching the buffer pool and disk packages.
var (
	errOutOfFrames        = errors.New("bptree: out of buffer pool frames")
	errHeaderPageMismatch = errors.New("bptree: header page did not land on page 0 of a fresh file")
	errKeyNotFound        = errors.New("bptree: key not found")
	errDuplicateKey       = errors.New("bptree: key already exists")
)

// ErrDuplicateKey is returned by Insert when the key is already present
// (spec.md §4.5: "unique keys only").
var ErrDuplicateKey = errDuplicateKey

// ErrKeyNotFound is returned by GetValue when the key is absent.
var ErrKeyNotFound = errKeyNotFound
