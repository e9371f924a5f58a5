package loader

import "errors"

var (
	// ErrNotLoaded is returned for ids with no cache entry.
	ErrNotLoaded = errors.New("loader: asset not loaded")

	// ErrNotFound is returned for missing sprite clips and unknown banks.
	ErrNotFound = errors.New("loader: not found")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("loader: closed")
)
