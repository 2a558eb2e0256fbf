package epoch

import "sync/atomic"

// Counter is the identity epoch. Every identity change bumps it; async
// completions capture the value they started under and discard their result
// when the counter moved, so a slow response can never cross an identity
// switch.
type Counter struct {
	n atomic.Uint64
}

func NewCounter() *Counter {
	return &Counter{}
}

func (c *Counter) Current() uint64 {
	return c.n.Load()
}

func (c *Counter) Bump() uint64 {
	return c.n.Add(1)
}
