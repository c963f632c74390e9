package eq

import "github.com/vosd/vos/internal/verrs"

// Status is an event's position in the INIT -> DISPATCH -> {COMPLETED,
// ABORT} -> INIT state machine. Reaping an event at Poll (or a NO_POLL
// event completing in place) returns it to INIT so it can be launched
// again without a fresh Init/Fini cycle.
type Status int32

const (
	StatusInit Status = iota
	StatusDispatch
	StatusCompleted
	StatusAbort
)

func (s Status) String() string {
	switch s {
	case StatusInit:
		return "init"
	case StatusDispatch:
		return "dispatch"
	case StatusCompleted:
		return "completed"
	case StatusAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// Flag is a bitmask of per-event launch options.
type Flag uint32

const (
	// FlagNeedLaunch marks a composite event whose own Launch call must
	// be made explicitly by the caller, even once every child has
	// already completed, rather than completing automatically the
	// instant its last child does. Set on a parent event at Init time.
	FlagNeedLaunch Flag = 1 << iota
	// FlagNoPoll marks an event whose completion callback fires outside
	// the EQ lock and whose completion returns it straight to INIT
	// instead of onto the completion list, so it is never reaped by
	// Poll and never counted among nCompleted. While dispatched it sits
	// on the dispatch list and counts in nDispatch like any other event.
	FlagNoPoll
)

// AbortFunc and CompFunc are invoked, at most once per dispatch, on an
// event's abort or completion.
type AbortFunc func(ev *Event)
type CompFunc func(ev *Event)

// Event is one unit of asynchronous work tracked by an EQ: possibly a
// leaf operation, possibly a composite with its own children. All
// mutation of an Event's status, flags, counters, and list membership
// happens while its owning EQ's mutex is held — the EQ lock is the only
// synchronization primitive in this design, so Event itself carries no
// lock of its own.
type Event struct {
	handle Handle
	eq     *EQ

	status Status
	flags  Flag

	parent          *Event
	children        clist
	nChild          int32
	nChildCompleted int32
	guard           int32 // launch-guard: see Launch

	abortCB AbortFunc
	compCB  CompFunc
	err     error

	// qprev/qnext: membership in eq.dispatch or eq.completed.
	qprev, qnext *Event
	// cprev/cnext: membership in parent.children.
	cprev, cnext *Event
}

// NewEvent allocates a detached, uninitialized event. Init or InitAdv
// must be called before it can be launched.
func NewEvent() *Event { return &Event{} }

// Init initializes ev against the EQ named by h, optionally as a child
// of parent (nil for a top-level event).
func (ev *Event) Init(h Handle, parent *Event) error {
	return ev.InitAdv(h, 0, parent)
}

// InitAdv is Init with explicit flags. Only one level of parent/child
// nesting is supported: parent must itself be a top-level event.
func (ev *Event) InitAdv(h Handle, flags Flag, parent *Event) error {
	if ev.eq != nil {
		return verrs.New("eq", verrs.NoPerm, "init: event already initialized")
	}
	if parent != nil && parent.parent != nil {
		return verrs.New("eq", verrs.NoPerm, "init: nesting depth exceeds one level")
	}
	eq, ok := eqTable.Lookup(uint64(h))
	if !ok {
		return verrs.New("eq", verrs.NoHdl, "init: unknown eq handle")
	}

	ev.handle = h
	ev.eq = eq
	ev.flags = flags
	ev.status = StatusInit
	ev.children.init()
	if flags&FlagNeedLaunch != 0 {
		ev.guard = 1
	}

	if parent != nil {
		eq.mu.Lock()
		ev.parent = parent
		parent.children.pushBack(ev)
		parent.nChild++
		eq.mu.Unlock()
	}
	return nil
}

// Fini tears ev down, releasing its reference on the owning EQ. ev must
// not be in DISPATCH state.
func (ev *Event) Fini() error {
	if ev.eq == nil {
		return verrs.New("eq", verrs.NoHdl, "fini: event not initialized")
	}
	eq := ev.eq
	eq.mu.Lock()
	if ev.status == StatusDispatch {
		eq.mu.Unlock()
		return verrs.New("eq", verrs.Busy, "fini: event still dispatched")
	}
	if ev.parent != nil {
		ev.parent.children.remove(ev)
	}
	eq.mu.Unlock()

	eqTable.PutRef(uint64(ev.handle))
	ev.eq = nil
	return nil
}

// Launch validates ev is in INIT state on a non-finalizing EQ, moves it
// onto the dispatch list, and installs its completion/abort callbacks.
//
// A composite event created with FlagNeedLaunch carries a launch guard
// that starts at 1, standing in for "the parent's own launch hasn't
// happened yet" so the completion of its last already-dispatched child
// cannot complete the parent prematurely. Launch decrements the guard;
// if it reaches zero and every child has already completed by then, the
// parent completes immediately as part of this call. This replaces
// synthesizing an extra NO_POLL child purely to hold the completion
// open, at the cost of one counter on the parent instead of a phantom
// list member.
func (ev *Event) Launch(abortCB AbortFunc, compCB CompFunc) error {
	eq := ev.eq
	if eq == nil {
		return verrs.New("eq", verrs.NoHdl, "launch: event not initialized")
	}
	eq.mu.Lock()
	if ev.status != StatusInit {
		eq.mu.Unlock()
		return verrs.New("eq", verrs.NoPerm, "launch: event not in init state")
	}
	if eq.finalizing {
		eq.mu.Unlock()
		return verrs.New("eq", verrs.NoPerm, "launch: eq is finalizing")
	}
	if ev.flags&FlagNeedLaunch != 0 {
		for c := ev.children.front(); c != nil; c = ev.children.next(c) {
			if c.status == StatusInit {
				eq.mu.Unlock()
				return verrs.New("eq", verrs.NoPerm, "launch: child not yet launched")
			}
		}
	}

	ev.abortCB = abortCB
	ev.compCB = compCB
	ev.status = StatusDispatch
	eq.dispatch.pushBack(ev)
	eq.nDispatch++

	var deferred []func()
	completed := false
	if ev.flags&FlagNeedLaunch != 0 && ev.guard > 0 {
		ev.guard--
		if ev.guard == 0 && ev.nChild > 0 && ev.nChildCompleted == ev.nChild {
			deferred = eq.completeLocked(ev, 0)
			completed = true
		}
	}
	eq.mu.Unlock()

	runDeferred(deferred)
	if completed {
		eq.transport.Notify()
	}
	return nil
}

// Complete marks ev COMPLETED with result code rc (zero for success),
// runs its completion callback, and propagates completion counts and
// the first non-zero error up to a dispatched parent.
func (ev *Event) Complete(rc int) error {
	eq := ev.eq
	if eq == nil {
		return verrs.New("eq", verrs.NoHdl, "complete: event not initialized")
	}
	eq.mu.Lock()
	deferred := eq.completeLocked(ev, rc)
	eq.mu.Unlock()

	runDeferred(deferred)
	eq.transport.Notify()
	return nil
}

// completeLocked implements Complete under eq.mu, returning any
// callbacks that must run outside the lock (NO_POLL events).
// It is a no-op, returning nil, if ev is not currently DISPATCH — both
// Complete and the guard-triggered completion in Launch can legally
// race to complete the same composite parent, and only the first should
// take effect.
func (eq *EQ) completeLocked(ev *Event, rc int) []func() {
	if ev.status != StatusDispatch {
		return nil
	}
	ev.status = StatusCompleted
	if rc != 0 && ev.err == nil {
		ev.err = verrs.New("eq", verrs.Code(rc), "event completed with non-zero result")
	}

	var deferred []func()
	noPoll := ev.flags&FlagNoPoll != 0
	if ev.compCB != nil {
		if noPoll {
			cb, e := ev.compCB, ev
			deferred = append(deferred, func() { cb(e) })
		} else {
			ev.compCB(ev)
		}
	}

	if p := ev.parent; p != nil {
		p.nChildCompleted++
		if p.err == nil && ev.err != nil {
			p.err = ev.err
		}
		if p.status == StatusDispatch && p.guard == 0 && p.nChildCompleted == p.nChild {
			deferred = append(deferred, eq.completeLocked(p, 0)...)
		}
	}

	eq.dispatch.remove(ev)
	eq.nDispatch--
	if noPoll {
		ev.status = StatusInit
	} else {
		eq.completed.pushBack(ev)
		eq.nCompleted++
	}
	return deferred
}

// Abort cancels ev if it is currently dispatched; aborting an event
// that already finished is a silent no-op — cancellation races with
// natural completion and the loser is simply ignored.
func (ev *Event) Abort() error {
	eq := ev.eq
	if eq == nil {
		return verrs.New("eq", verrs.NoHdl, "abort: event not initialized")
	}
	eq.mu.Lock()
	deferred := eq.abortLocked(ev)
	eq.mu.Unlock()

	runDeferred(deferred)
	eq.transport.Notify()
	return nil
}

// abortLocked moves ev from the dispatch list to the completion list: a
// top-level event goes to the front, ahead of whatever else is there, so
// it is reaped before fresher, unrelated completions, and a child goes to
// the back. If ev's parent is still dispatched, the parent is then
// aborted the same way.
func (eq *EQ) abortLocked(ev *Event) []func() {
	if ev.status != StatusDispatch {
		return nil
	}
	ev.status = StatusAbort
	if ev.err == nil {
		ev.err = verrs.New("eq", verrs.Canceled, "event aborted")
	}

	var deferred []func()
	noPoll := ev.flags&FlagNoPoll != 0
	if ev.abortCB != nil {
		if noPoll {
			cb, e := ev.abortCB, ev
			deferred = append(deferred, func() { cb(e) })
		} else {
			ev.abortCB(ev)
		}
	}

	eq.dispatch.remove(ev)
	eq.nDispatch--
	if noPoll {
		ev.status = StatusInit
	} else if ev.parent == nil {
		eq.completed.pushFront(ev)
		eq.nCompleted++
	} else {
		eq.completed.pushBack(ev)
		eq.nCompleted++
	}

	if p := ev.parent; p != nil {
		p.nChildCompleted++
		if p.err == nil {
			p.err = ev.err
		}
		if p.status == StatusDispatch {
			deferred = append(deferred, eq.abortLocked(p)...)
		}
	}
	return deferred
}

// Next returns ev's next child after prev, or its first child if prev
// is nil, or nil once the child list is exhausted.
func Next(ev *Event, prev *Event) *Event {
	if prev == nil {
		return ev.children.front()
	}
	return ev.children.next(prev)
}

// Err returns the error recorded on ev's completion or abort, or nil if
// ev has not finished or finished successfully.
func (ev *Event) Err() error { return ev.err }

// Status reports ev's current state.
func (ev *Event) Status() Status { return ev.status }

func runDeferred(cbs []func()) {
	for _, cb := range cbs {
		cb()
	}
}
