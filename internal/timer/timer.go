// Package timer provides cancellable one-shot and repeating timers behind a
// Clock so components can own their timers and tests can drive them.
package timer

import (
	"sort"
	"sync"
	"time"
)

// Stopper cancels a pending or repeating timer. Stop is idempotent.
type Stopper interface {
	Stop()
}

// Clock schedules callbacks. Callbacks run on their own goroutine.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Stopper
	Every(d time.Duration, f func()) Stopper
}

// Real is the wall-clock implementation.
type Real struct{}

func (Real) AfterFunc(d time.Duration, f func()) Stopper {
	return afterFunc{time.AfterFunc(d, f)}
}

// Every calls f at each interval until stopped. Ticks missed while f runs
// are dropped.
func (Real) Every(d time.Duration, f func()) Stopper {
	t := &ticker{done: make(chan struct{})}
	tk := time.NewTicker(d)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-tk.C:
				f()
			case <-t.done:
				return
			}
		}
	}()
	return t
}

type afterFunc struct{ t *time.Timer }

func (a afterFunc) Stop() { a.t.Stop() }

type ticker struct {
	once sync.Once
	done chan struct{}
}

func (t *ticker) Stop() { t.once.Do(func() { close(t.done) }) }

// Fake is a manually advanced Clock. Callbacks run synchronously inside
// Advance, in deadline order.
type Fake struct {
	mu     sync.Mutex
	now    time.Duration
	nextID int
	timers map[int]*fakeTimer
}

type fakeTimer struct {
	id       int
	at       time.Duration
	interval time.Duration // zero for one-shot
	f        func()
}

func NewFake() *Fake {
	return &Fake{timers: make(map[int]*fakeTimer)}
}

func (c *Fake) AfterFunc(d time.Duration, f func()) Stopper {
	return c.add(d, 0, f)
}

func (c *Fake) Every(d time.Duration, f func()) Stopper {
	return c.add(d, d, f)
}

func (c *Fake) add(d, interval time.Duration, f func()) Stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.timers[id] = &fakeTimer{id: id, at: c.now + d, interval: interval, f: f}
	return fakeStopper{c: c, id: id}
}

// Advance moves the clock forward, firing every timer that comes due.
func (c *Fake) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		due := c.nextDue(target)
		if due == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = due.at
		if due.interval > 0 {
			due.at += due.interval
		} else {
			delete(c.timers, due.id)
		}
		f := due.f
		c.mu.Unlock()
		f()
	}
}

// Pending is the number of scheduled timers.
func (c *Fake) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *Fake) nextDue(target time.Duration) *fakeTimer {
	var due []*fakeTimer
	for _, t := range c.timers {
		if t.at <= target {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].at != due[j].at {
			return due[i].at < due[j].at
		}
		return due[i].id < due[j].id
	})
	return due[0]
}

type fakeStopper struct {
	c  *Fake
	id int
}

func (s fakeStopper) Stop() {
	s.c.mu.Lock()
	delete(s.c.timers, s.id)
	s.c.mu.Unlock()
}
