package usecase

import "sync"

// fragmentCollector accumulates captured PCM for one recording.
type fragmentCollector struct {
	mu        sync.Mutex
	fragments [][]byte
	total     int
}

func newFragmentCollector() *fragmentCollector {
	return &fragmentCollector{}
}

func (c *fragmentCollector) Add(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	copied := append([]byte(nil), chunk...)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.fragments = append(c.fragments, copied)
	c.total += len(copied)
}

// Drain hands over the fragments and empties the collector.
func (c *fragmentCollector) Drain() ([][]byte, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fragments, total := c.fragments, c.total
	c.fragments = nil
	c.total = 0
	return fragments, total
}

func (c *fragmentCollector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}
