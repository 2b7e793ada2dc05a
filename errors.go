package brickset

import "errors"

// ErrClosed is returned by operations attempted on a ConcurrentSet
// after Close.
var ErrClosed = errors.New("brickset: set is closed")
