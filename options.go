package brickset

// Option configures a ConcurrentSet at construction time, following the
// functional-options idiom.
type Option func(*concurrentConfig)

type concurrentConfig struct {
	maxGrowths  int
	initialSize int
}

const (
	defaultMaxGrowths  = 64
	defaultInitialSize = 16
)

// WithMaxGrowths sets the length n of the set's row vector, so the set
// may advance to a larger generation row at most n-1 times over its
// lifetime. Once exhausted, Insert panics rather than silently refusing
// to grow, matching the original's ASSERT-on-overflow treatment of
// exhausted capacity.
func WithMaxGrowths(n int) Option {
	return func(c *concurrentConfig) { c.maxGrowths = n }
}

// WithInitialSize sets the requested initial capacity n. Row 0 is
// allocated at the smallest power of two whose next generation size is
// at least n, so the first growth reaches n (see setSize).
func WithInitialSize(n int) Option {
	return func(c *concurrentConfig) { c.initialSize = n }
}
