// Package limiter bounds how many calls run at the same time.
package limiter

import "context"

type Limiter struct {
	slots chan struct{}
}

// New returns a Limiter admitting at most n concurrent calls. n below 1 is
// treated as 1.
func New(n int) *Limiter {
	return &Limiter{slots: make(chan struct{}, max(n, 1))}
}

// Run waits for a free slot and executes fn in the calling goroutine. The
// slot is released even if fn panics. Run returns ctx.Err() without calling
// fn when ctx is done first.
func (l *Limiter) Run(ctx context.Context, fn func()) error {
	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-l.slots }()

	fn()
	return nil
}

// InFlight reports the number of calls currently holding a slot.
func (l *Limiter) InFlight() int {
	return len(l.slots)
}
