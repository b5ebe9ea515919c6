package cache

import "time"

// janitor actively sweeps expired entries so that keys which are never
// looked up again still get reclaimed. It runs until Close.
func (c *Cache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Cleanup()
		case <-c.stopCh:
			return
		}
	}
}
