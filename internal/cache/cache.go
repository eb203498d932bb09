package cache

import (
	"context"
	"time"

	"cardtrend/internal/log"
)

// Cache is the lookup surface the services depend on.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Purge() int
	Size() int
}

// Stats counts cache activity since creation.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Expired   uint64 `json:"expired"`
	Size      int    `json:"size"`
}

// Cleaner is implemented by caches that can drop expired entries in bulk.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically sweeps registered caches until its context ends.
type Janitor struct {
	caches []Cleaner
	logger *log.Logger
	done   chan struct{}
}

func NewJanitor(logger *log.Logger, caches ...Cleaner) *Janitor {
	return &Janitor{
		caches: caches,
		logger: logger.WithComponent(log.ComponentCache),
		done:   make(chan struct{}),
	}
}

// Run sweeps every interval and returns once ctx is cancelled.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	defer close(j.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := j.Sweep(); n > 0 {
				j.logger.Debug("Expired cache entries removed", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Sweep cleans every cache once and returns the number of removed entries.
func (j *Janitor) Sweep() int {
	total := 0
	for _, c := range j.caches {
		total += c.CleanExpired()
	}
	return total
}

// Done is closed when Run returns.
func (j *Janitor) Done() <-chan struct{} { return j.done }
