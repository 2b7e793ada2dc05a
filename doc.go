/*
Package brickset implements an open-addressed hash set over
integer-like keys, in two flavors:

Set is a sequential engine for single-goroutine use: one flat table,
grown by doubling when its load factor crosses 75%.

ConcurrentSet is a lock-free engine safe for concurrent Insert and Find
calls from many goroutines, each through its own ThreadData. It grows by appending a new, larger
generation to a fixed-capacity vector of rows rather than resizing a
table in place; migrating cells from the old generation into the new
one is cooperative, so any goroutine that notices a growth in flight
helps move a share of the work before retrying its own operation.

Both engines are parameterized over a pluggable cell layout (fast:
value plus its own hash word; compact: value only, hash recomputed on
demand) and a pluggable Hasher. The package also provides a bit-packing
substrate, BitTuple, built on the bitcopy routine; neither engine stores
its cells through it.
*/
package brickset
