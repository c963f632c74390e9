package eq

import (
	"testing"
	"time"

	"github.com/vosd/vos/common/mclock"
)

func withLib(t *testing.T) Handle {
	t.Helper()
	if err := LibInit(); err != nil {
		t.Fatalf("libinit: %v", err)
	}
	h, err := Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() {
		Destroy(h, true)
		LibFini()
	})
	return h
}

// S1: a single leaf event is created, launched, completed, and reaped.
func TestSimpleLaunchCompletePoll(t *testing.T) {
	h := withLib(t)

	ev := NewEvent()
	if err := ev.Init(h, nil); err != nil {
		t.Fatalf("init: %v", err)
	}
	var completed bool
	if err := ev.Launch(nil, func(e *Event) { completed = true }); err != nil {
		t.Fatalf("launch: %v", err)
	}

	nd, nc, err := QueryCounts(h)
	if err != nil || nd != 1 || nc != 0 {
		t.Fatalf("query before complete: nd=%d nc=%d err=%v", nd, nc, err)
	}

	if err := ev.Complete(0); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !completed {
		t.Fatalf("completion callback did not run")
	}

	out := make([]*Event, 1)
	n, err := Poll(h, false, 0, out)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if n != 1 || out[0] != ev {
		t.Fatalf("poll returned n=%d, want the completed event", n)
	}
	if ev.Status() != StatusInit {
		t.Fatalf("reaped event status = %v, want init", ev.Status())
	}
	if ev.Err() != nil {
		t.Fatalf("unexpected error on clean completion: %v", ev.Err())
	}

	if err := ev.Fini(); err != nil {
		t.Fatalf("fini: %v", err)
	}
}

// S2: a NEED_LAUNCH composite parent with two children launched before
// the parent itself. One child reports an error; the parent only
// becomes reapable once it is explicitly launched, and carries the
// first child error it saw.
func TestCompositeNeedLaunchErrorPropagation(t *testing.T) {
	h := withLib(t)

	parent := NewEvent()
	if err := parent.InitAdv(h, FlagNeedLaunch, nil); err != nil {
		t.Fatalf("parent init: %v", err)
	}
	childA := NewEvent()
	if err := childA.Init(h, parent); err != nil {
		t.Fatalf("childA init: %v", err)
	}
	childB := NewEvent()
	if err := childB.Init(h, parent); err != nil {
		t.Fatalf("childB init: %v", err)
	}

	if err := childA.Launch(nil, nil); err != nil {
		t.Fatalf("launch childA: %v", err)
	}
	if err := childB.Launch(nil, nil); err != nil {
		t.Fatalf("launch childB: %v", err)
	}

	// Both children complete before the parent is ever launched. With
	// no guard, this would already satisfy nChildCompleted == nChild and
	// the parent would wrongly be considered done.
	if err := childB.Complete(0); err != nil {
		t.Fatalf("complete childB: %v", err)
	}
	if err := childA.Complete(-5); err != nil {
		t.Fatalf("complete childA: %v", err)
	}

	if nd, nc, _ := QueryCounts(h); nd != 0 || nc != 2 {
		t.Fatalf("before parent launch: nd=%d nc=%d, want 0,2 (children only)", nd, nc)
	}

	var parentDone bool
	if err := parent.Launch(nil, func(e *Event) { parentDone = true }); err != nil {
		t.Fatalf("launch parent: %v", err)
	}
	if !parentDone {
		t.Fatalf("parent should complete as soon as it is launched, all children already done")
	}

	out := make([]*Event, 3)
	n, err := Poll(h, false, 0, out)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if n != 3 {
		t.Fatalf("poll harvested %d events, want 3", n)
	}
	var sawParent bool
	for _, e := range out[:n] {
		if e == parent {
			sawParent = true
			if e.Err() == nil {
				t.Fatalf("parent should carry childA's error")
			}
		}
	}
	if !sawParent {
		t.Fatalf("parent was not among reaped events")
	}
}

func TestPollWithoutWaitInfReturnsImmediatelyWhenIdle(t *testing.T) {
	h := withLib(t)
	out := make([]*Event, 4)
	n, err := Poll(h, false, time.Hour, out)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if n != 0 {
		t.Fatalf("poll on idle eq harvested %d, want 0", n)
	}
}

// Query's array-fill must stop at the sentinel, not wrap around it, when
// out is longer than the number of live events in the requested lists.
func TestQueryArrayFillStopsAtListEnd(t *testing.T) {
	h := withLib(t)

	a := NewEvent()
	if err := a.Init(h, nil); err != nil {
		t.Fatalf("init a: %v", err)
	}
	if err := a.Launch(nil, nil); err != nil {
		t.Fatalf("launch a: %v", err)
	}
	b := NewEvent()
	if err := b.Init(h, nil); err != nil {
		t.Fatalf("init b: %v", err)
	}
	if err := b.Launch(nil, nil); err != nil {
		t.Fatalf("launch b: %v", err)
	}

	out := make([]*Event, 5)
	nd, nc, err := Query(h, QueryDispatch, out)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if nd != 2 || nc != 0 {
		t.Fatalf("query counts: nd=%d nc=%d, want 2,0", nd, nc)
	}
	seen := map[*Event]bool{}
	for _, e := range out {
		if e == nil {
			continue
		}
		if seen[e] {
			t.Fatalf("event %p appeared more than once in out, list wrapped past sentinel", e)
		}
		seen[e] = true
	}
	if len(seen) != 2 || !seen[a] || !seen[b] {
		t.Fatalf("expected exactly {a, b} filled, got %v", out)
	}
	for i := 2; i < len(out); i++ {
		if out[i] != nil {
			t.Fatalf("out[%d] = %v, want nil past the live entries", i, out[i])
		}
	}
}

func TestDestroyBusyWithoutForce(t *testing.T) {
	if err := LibInit(); err != nil {
		t.Fatalf("libinit: %v", err)
	}
	defer LibFini()
	h, err := Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ev := NewEvent()
	ev.Init(h, nil)
	ev.Launch(nil, nil)

	if err := Destroy(h, false); err == nil {
		t.Fatalf("expected busy error destroying eq with an inflight event")
	}
	ev.Complete(0)
	if err := Destroy(h, true); err != nil {
		t.Fatalf("destroy force: %v", err)
	}
}

func TestAbortIsNoOpOnceCompleted(t *testing.T) {
	h := withLib(t)
	ev := NewEvent()
	ev.Init(h, nil)
	ev.Launch(nil, nil)
	ev.Complete(0)
	if err := ev.Abort(); err != nil {
		t.Fatalf("abort after completion: %v", err)
	}
	if ev.Status() != StatusCompleted {
		t.Fatalf("status changed by no-op abort: %v", ev.Status())
	}
}

// A blocking Poll's deadline is driven off the transport's injected
// clock rather than a real sleep, so this runs against a virtual clock
// advanced by the test instead of waiting on the wall clock.
func TestPollBlockingTimeoutUsesInjectedClock(t *testing.T) {
	clock := new(mclock.Simulated)
	prevFactory := newTransport
	newTransport = func() Transport { return newLocalTransportWithClock(clock) }
	t.Cleanup(func() { newTransport = prevFactory })

	h := withLib(t)

	done := make(chan struct{})
	var gotN int
	var gotErr error
	go func() {
		defer close(done)
		out := make([]*Event, 1)
		gotN, gotErr = Poll(h, true, 50*time.Millisecond, out)
	}()

	clock.WaitForTimers(1)
	clock.Run(50 * time.Millisecond)
	<-done

	if gotErr != nil {
		t.Fatalf("poll: %v", gotErr)
	}
	if gotN != 0 {
		t.Fatalf("expected timeout with 0 events harvested, got %d", gotN)
	}
}
