package segio

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Timeout bounds how long a blocking operation may wait. It combines a
// per-call duration, an absolute deadline and an optional context; any of
// them may be unset. A zero Timeout never expires.
//
// A Timeout is configured by its caller before an operation and consulted
// by the operation. It is not safe to reconfigure while an operation that
// uses it is in progress.
type Timeout struct {
	timeout     time.Duration
	deadline    time.Time
	hasDeadline bool
	ctx         context.Context
	none        bool
}

// NoTimeout never expires and ignores every setter. Endpoints that never
// block return it.
var NoTimeout = &Timeout{none: true}

// NewTimeout returns a Timeout with neither a duration nor a deadline.
func NewTimeout() *Timeout {
	return &Timeout{}
}

// SetTimeout sets the longest a single wait may take. Zero means no limit.
// It panics if d is negative.
func (t *Timeout) SetTimeout(d time.Duration) *Timeout {
	if d < 0 {
		panic(fmt.Sprintf("segio: negative timeout %v", d))
	}
	if !t.none {
		t.timeout = d
	}
	return t
}

// Timeout returns the per-call duration, or zero if none is set.
func (t *Timeout) Timeout() time.Duration { return t.timeout }

// HasDeadline reports whether an absolute deadline is set.
func (t *Timeout) HasDeadline() bool { return t.hasDeadline }

// Deadline returns the absolute deadline and whether one is set.
func (t *Timeout) Deadline() (time.Time, bool) { return t.deadline, t.hasDeadline }

// SetDeadline sets the instant after which operations fail with ErrTimeout.
func (t *Timeout) SetDeadline(at time.Time) *Timeout {
	if !t.none {
		t.deadline = at
		t.hasDeadline = true
	}
	return t
}

// DeadlineAfter sets the deadline to d from now.
func (t *Timeout) DeadlineAfter(d time.Duration) *Timeout {
	if d <= 0 {
		panic(fmt.Sprintf("segio: non-positive duration %v", d))
	}
	return t.SetDeadline(time.Now().Add(d))
}

// ClearTimeout removes the per-call duration.
func (t *Timeout) ClearTimeout() *Timeout {
	t.timeout = 0
	return t
}

// ClearDeadline removes the absolute deadline.
func (t *Timeout) ClearDeadline() *Timeout {
	t.deadline = time.Time{}
	t.hasDeadline = false
	return t
}

// WithContext makes waits abort with ErrInterrupted once ctx is done.
// A nil ctx removes the context.
func (t *Timeout) WithContext(ctx context.Context) *Timeout {
	if !t.none {
		t.ctx = ctx
	}
	return t
}

// Context returns the context set by WithContext, or nil.
func (t *Timeout) Context() context.Context { return t.ctx }

// Check returns ErrTimeout if the deadline has passed and an error wrapping
// ErrInterrupted if the context is done.
func (t *Timeout) Check() error {
	if t.ctx != nil {
		if err := t.ctx.Err(); err != nil {
			return interrupted(err)
		}
	}
	if t.hasDeadline && !time.Now().Before(t.deadline) {
		return ErrTimeout
	}
	return nil
}

// Remaining returns how long a wait starting at now may last: the smaller of
// the per-call duration and the time left until the deadline. ok is false
// when neither is set.
func (t *Timeout) Remaining(now time.Time) (d time.Duration, ok bool) {
	switch {
	case t.timeout != 0 && t.hasDeadline:
		return min(t.timeout, t.deadline.Sub(now)), true
	case t.timeout != 0:
		return t.timeout, true
	case t.hasDeadline:
		return t.deadline.Sub(now), true
	}
	return 0, false
}

// deadlineFrom converts Remaining into an absolute instant for transports
// that take deadlines.
func (t *Timeout) deadlineFrom(now time.Time) (time.Time, bool) {
	d, ok := t.Remaining(now)
	if !ok {
		return time.Time{}, false
	}
	return now.Add(d), true
}

// WaitUntilNotified waits on cond until it is signalled, the wait budget is
// spent or the context is done. The caller must hold cond.L, as with
// cond.Wait. A nil return does not mean the awaited condition holds; callers
// loop and recheck it.
func (t *Timeout) WaitUntilNotified(cond *sync.Cond) error {
	if err := t.Check(); err != nil {
		return err
	}
	wait, bounded := t.Remaining(time.Now())
	if !bounded && t.ctx == nil {
		cond.Wait()
		return nil
	}
	if bounded && wait <= 0 {
		return ErrTimeout
	}

	expired := false
	if bounded {
		timer := time.AfterFunc(wait, func() {
			cond.L.Lock()
			expired = true
			cond.Broadcast()
			cond.L.Unlock()
		})
		defer timer.Stop()
	}
	if t.ctx != nil {
		stop := context.AfterFunc(t.ctx, func() {
			cond.L.Lock()
			cond.Broadcast()
			cond.L.Unlock()
		})
		defer stop()
	}

	cond.Wait()

	if expired {
		return ErrTimeout
	}
	if t.ctx != nil {
		if err := t.ctx.Err(); err != nil {
			return interrupted(err)
		}
	}
	return nil
}

func interrupted(cause error) error {
	return fmt.Errorf("%w: %w", ErrInterrupted, cause)
}
