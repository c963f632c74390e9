// Package eq implements an asynchronous event-completion queue: callers
// launch events representing in-flight operations and reap them, in
// completed order, by polling. It follows a lock-a-shared-state,
// notify-a-waiter shape, but an Event here tracks the lifecycle of one
// async operation rather than fanning a value out to subscribers.
package eq

import (
	"sync"

	"github.com/vosd/vos/internal/verrs"

	"github.com/vosd/vos/internal/handlehash"
)

// Handle identifies a created EQ across process API calls.
type Handle uint64

var eqTable = handlehash.NewTable[*EQ](nil)

var (
	libMu       sync.Mutex
	libRefcount int
	transport   Transport

	// newTransport builds the process-local transport LibInit installs.
	// Overridden by eq_test.go to install a localTransport wired to an
	// mclock.Simulated clock, so Poll's blocking-timeout path can be
	// driven deterministically instead of sleeping in real time.
	newTransport = func() Transport { return newLocalTransport() }
)

// LibInit brings up the eq library, refcounted so nested callers (a
// library and the application embedding it) can each call it
// independently. The first call installs the process-local transport
// every EQ shares.
func LibInit() error {
	libMu.Lock()
	defer libMu.Unlock()
	if libRefcount == 0 {
		transport = newTransport()
	}
	libRefcount++
	return nil
}

// LibFini releases one reference on the library. The transport is torn
// down once the last reference drops.
func LibFini() error {
	libMu.Lock()
	defer libMu.Unlock()
	if libRefcount == 0 {
		return verrs.New("eq", verrs.Uninit, "libfini: library not initialized")
	}
	libRefcount--
	if libRefcount == 0 {
		transport = nil
	}
	return nil
}

// EQ is one event queue: a dispatch list of inflight events, a
// completion list of events awaiting reap by Poll, and the counters
// Query reports. Every mutation of its lists, counters, and any Event
// reachable through it happens under mu.
type EQ struct {
	mu sync.Mutex

	dispatch  qlist
	completed qlist
	nDispatch int32
	nCompleted int32

	finalizing bool
	transport  Transport
}

// Create allocates a new EQ, returning a handle to it. LibInit must
// have been called first.
func Create() (Handle, error) {
	libMu.Lock()
	if libRefcount == 0 {
		libMu.Unlock()
		return 0, verrs.New("eq", verrs.Uninit, "create: library not initialized")
	}
	tr := transport
	libMu.Unlock()

	q := &EQ{transport: tr}
	q.dispatch.init()
	q.completed.init()
	cookie := eqTable.Insert(q)
	return Handle(cookie), nil
}

// Destroy releases h. Unless force is set, Destroy fails with Busy if
// any event is still dispatched or awaiting reap. With force, every
// dispatched event is aborted and every completed-but-unreaped event is
// dropped.
func Destroy(h Handle, force bool) error {
	q, ok := eqTable.Lookup(uint64(h))
	if !ok {
		return verrs.New("eq", verrs.NoHdl, "destroy: unknown handle")
	}
	defer eqTable.PutRef(uint64(h))

	q.mu.Lock()
	if !force && (!q.dispatch.empty() || !q.completed.empty()) {
		q.mu.Unlock()
		return verrs.New("eq", verrs.Busy, "destroy: events still inflight or unreaped")
	}
	q.finalizing = true
	var deferred []func()
	if force {
		for e := q.dispatch.front(); e != nil; e = q.dispatch.front() {
			deferred = append(deferred, q.abortLocked(e)...)
		}
		for e := q.completed.popFront(); e != nil; e = q.completed.popFront() {
			q.nCompleted--
		}
	}
	q.mu.Unlock()
	runDeferred(deferred)

	if err := eqTable.Delete(uint64(h)); err != nil {
		return err
	}
	return nil
}

// QueryMask selects which of an EQ's lists Query reports members from.
type QueryMask uint32

const (
	QueryDispatch QueryMask = 1 << iota
	QueryCompleted
)

// Query reports the current dispatch and completion counts, and fills
// out (up to its length) with events from the lists named by mask, in
// list order. Query never blocks.
func Query(h Handle, mask QueryMask, out []*Event) (nDispatch, nCompleted int, err error) {
	q, ok := eqTable.Lookup(uint64(h))
	if !ok {
		return 0, 0, verrs.New("eq", verrs.NoHdl, "query: unknown handle")
	}
	defer eqTable.PutRef(uint64(h))

	q.mu.Lock()
	defer q.mu.Unlock()
	nDispatch = int(q.nDispatch)
	nCompleted = int(q.nCompleted)

	i := 0
	if mask&QueryDispatch != 0 {
		for e := q.dispatch.front(); e != nil && i < len(out); e = q.dispatch.next(e) {
			out[i] = e
			i++
		}
	}
	if mask&QueryCompleted != 0 {
		for e := q.completed.front(); e != nil && i < len(out); e = q.completed.next(e) {
			out[i] = e
			i++
		}
	}
	return nDispatch, nCompleted, nil
}

// QueryCounts is Query without an output array, for callers that only
// want the inflight/unreaped counts.
func QueryCounts(h Handle) (nDispatch, nCompleted int, err error) {
	return Query(h, 0, nil)
}
