package fs

import (
	"sync"
	"time"
)

// debouncer coalesces rapid bursts of events per key. Editors often fire
// several writes for a single save; only the last one within the interval is
// delivered.
type debouncer struct {
	interval time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	wg      sync.WaitGroup
	stopped bool
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{
		interval: interval,
		timers:   make(map[string]*time.Timer),
	}
}

// enqueue schedules fn for key, resetting any pending timer for the same key.
func (d *debouncer) enqueue(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if timer, ok := d.timers[key]; ok {
		if timer.Stop() {
			d.wg.Done()
		}
	}

	d.wg.Add(1)
	d.timers[key] = time.AfterFunc(d.interval, func() {
		defer d.wg.Done()

		d.mu.Lock()
		stopped := d.stopped
		delete(d.timers, key)
		d.mu.Unlock()

		if stopped {
			return
		}
		fn()
	})
}

// stopAndWait rejects new events and waits for in-flight timers to finish,
// bounded by timeout.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	for key, timer := range d.timers {
		if timer.Stop() {
			d.wg.Done()
		}
		delete(d.timers, key)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
	}
}
