package eq

import (
	"sync"
	"time"

	"github.com/vosd/vos/common/mclock"
	"github.com/vosd/vos/internal/verrs"
)

// ProgressFunc is invoked repeatedly by a Transport's progress loop. It
// must harvest whatever is ready under the EQ's own lock and report:
// rc > 0 to stop the loop (work was harvested, or the caller's stopping
// condition was otherwise satisfied), rc == 0 to keep progressing, or a
// non-nil error to abort the loop immediately (including a NonExist
// error when the EQ is finalizing with nothing left to report).
type ProgressFunc func() (rc int, err error)

// Transport drives the blocking side of Poll: repeatedly invoking a
// ProgressFunc until it is satisfied or a deadline passes. A real
// network transport would instead block on its own completion queue
// between polls; Create wires in a process-local implementation since
// this repository models one participant, not RPC.
type Transport interface {
	// Progress calls cb until it returns non-zero or an error, or until
	// timeout elapses (a negative timeout blocks indefinitely, a zero
	// timeout calls cb exactly once without blocking).
	Progress(timeout time.Duration, cb ProgressFunc) error
	// Notify wakes any goroutine currently blocked inside Progress, so a
	// completion on one goroutine is promptly observed by a poller on
	// another.
	Notify()
}

// localTransport is the in-process Transport wired in by Create, using a
// condition variable to coordinate a waiter with a producer goroutine.
// Its deadline arithmetic runs on an injected mclock.Clock rather than
// the "time" package directly, so eq_test.go can drive Poll's timeout
// paths against mclock.Simulated instead of sleeping in real time.
type localTransport struct {
	mu    sync.Mutex
	cond  *sync.Cond
	clock mclock.Clock
	gen   uint64 // bumped by Notify, so a racing wakeup is never lost
}

func newLocalTransport() *localTransport {
	return newLocalTransportWithClock(mclock.System{})
}

func newLocalTransportWithClock(clock mclock.Clock) *localTransport {
	t := &localTransport{clock: clock}
	t.cond = sync.NewCond(&t.mu)
	return t
}

func (t *localTransport) Progress(timeout time.Duration, cb ProgressFunc) error {
	var deadline mclock.AbsTime
	hasDeadline := timeout >= 0
	if hasDeadline {
		deadline = t.clock.Now().Add(timeout)
	}
	for {
		// Snapshot gen before calling cb, which checks the EQ's own state
		// under q.mu, a separate lock. If Notify runs anywhere between cb
		// returning and the gen check below, gen will have moved and the
		// wait is skipped in favor of an immediate retry, so a completion
		// racing with this exact window is never missed.
		t.mu.Lock()
		gen := t.gen
		t.mu.Unlock()

		rc, err := cb()
		if err != nil {
			return err
		}
		if rc != 0 {
			return nil
		}
		if timeout == 0 {
			return verrs.New("eq", verrs.TimedOut, "progress: nothing ready")
		}

		t.mu.Lock()
		if t.gen != gen {
			t.mu.Unlock()
			continue
		}
		if !hasDeadline {
			t.cond.Wait()
			t.mu.Unlock()
			continue
		}
		remaining := time.Duration(deadline - t.clock.Now())
		if remaining <= 0 {
			t.mu.Unlock()
			return verrs.New("eq", verrs.TimedOut, "progress: deadline exceeded")
		}
		timer := t.clock.AfterFunc(remaining, t.Notify)
		t.cond.Wait()
		timer.Stop()
		t.mu.Unlock()
	}
}

func (t *localTransport) Notify() {
	t.mu.Lock()
	t.gen++
	t.cond.Broadcast()
	t.mu.Unlock()
}
