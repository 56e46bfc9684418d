package httpapi

import (
	"sync"
	"time"
)

type bucket struct {
	count int
	last  time.Time
}

// slidingWindowLimiter counts attempts per key. The window slides on
// every attempt, so the counter only resets after a full quiet window;
// a key that keeps hammering stays limited indefinitely. Used to
// throttle login attempts per client IP.
type slidingWindowLimiter struct {
	mu      sync.Mutex
	win     time.Duration
	max     int
	buckets map[string]*bucket
	stopCh  chan struct{}
}

func newSlidingWindowLimiter(max int, window time.Duration) *slidingWindowLimiter {
	l := &slidingWindowLimiter{
		win:     window,
		max:     max,
		buckets: make(map[string]*bucket),
		stopCh:  make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

func (l *slidingWindowLimiter) Allow(key string) (bool, time.Duration) {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.buckets[key]
	if b == nil {
		b = &bucket{}
		l.buckets[key] = b
	}
	if now.After(b.last.Add(l.win)) {
		b.count = 0
	}
	b.count++
	b.last = now
	if b.count <= l.max {
		return true, 0
	}
	// The counter clears only after a full quiet window.
	return false, l.win
}

func (l *slidingWindowLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCh:
			return
		}
	}
}

func (l *slidingWindowLimiter) cleanup() {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if now.After(b.last.Add(l.win)) {
			delete(l.buckets, key)
		}
	}
}

func (l *slidingWindowLimiter) Stop() {
	close(l.stopCh)
}
