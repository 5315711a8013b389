package sentry_ext

import (
	"crypto/md5"
	"encoding/hex"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

const (
	recentErrorDuration = time.Minute * 5
	defaultCacheSize    = 100
)

// cache remembers when each distinct error message was last reported.
type cache struct {
	*lru.Cache
	now func() time.Time

	// mu makes the check-then-record in shouldCapture atomic.
	mu sync.Mutex
}

func newCache(size int) (*cache, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &cache{Cache: c, now: time.Now}, nil
}

// shouldCapture reports whether err has not been sent within the last
// recentErrorDuration, and records the attempt if so.
//
// A batch where every file fails against the same broken endpoint produces
// many identical messages; only the first one is sent.
func (c *cache) shouldCapture(err error) bool {
	sum := md5.Sum([]byte(err.Error()))
	key := hex.EncodeToString(sum[:])

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if lastSent, ok := c.Get(key); ok {
		if now.Sub(lastSent.(time.Time)) < recentErrorDuration {
			return false
		}
	}

	c.Add(key, now)
	return true
}
