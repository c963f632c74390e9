package eq

import (
	"context"
	"sync"

	"github.com/vosd/vos/internal/verrs"
)

// privEntry is the lazily-created EQ+event pair backing one caller's
// private event.
type privEntry struct {
	handle Handle
	ev     *Event
}

var (
	privMu sync.Mutex
	priv   = map[context.Context]*privEntry{}
)

// PrivGet returns the thread-private event for ctx, creating its
// backing EQ and event on first use. Go has no goroutine-local storage
// to hang a genuinely per-thread event off of, so this package keys the
// lazy singleton by the caller-supplied context instead — a goroutine
// processing one request passes the same ctx through its call chain the
// way the original design relies on thread identity, and PrivRelease is
// the explicit teardown a context cannot provide on its own.
func PrivGet(ctx context.Context) (*Event, error) {
	privMu.Lock()
	defer privMu.Unlock()

	if e, ok := priv[ctx]; ok {
		return e.ev, nil
	}
	if err := LibInit(); err != nil {
		return nil, err
	}
	h, err := Create()
	if err != nil {
		LibFini()
		return nil, err
	}
	ev := NewEvent()
	if err := ev.Init(h, nil); err != nil {
		Destroy(h, true)
		LibFini()
		return nil, err
	}
	priv[ctx] = &privEntry{handle: h, ev: ev}
	return ev, nil
}

// IsPriv reports whether ev is a thread-private event obtained from
// PrivGet.
func IsPriv(ev *Event) bool {
	privMu.Lock()
	defer privMu.Unlock()
	for _, e := range priv {
		if e.ev == ev {
			return true
		}
	}
	return false
}

// PrivWait launches nothing itself; it blocks until ctx's private event
// next completes, returning whatever error was recorded on it.
func PrivWait(ctx context.Context) error {
	privMu.Lock()
	e, ok := priv[ctx]
	privMu.Unlock()
	if !ok {
		return verrs.New("eq", verrs.NonExist, "privwait: no private event for context")
	}

	out := make([]*Event, 1)
	n, err := Poll(e.handle, true, -1, out)
	if err != nil {
		return err
	}
	if n == 0 {
		return verrs.New("eq", verrs.Unreach, "privwait: poll returned no event")
	}
	return out[0].Err()
}

// PrivRelease tears down ctx's private event and its backing EQ. It must
// be called explicitly once the context's owning goroutine is done
// (typically from a defer at its exit), since there is no finalizer
// hook this package can rely on instead.
func PrivRelease(ctx context.Context) error {
	privMu.Lock()
	e, ok := priv[ctx]
	if ok {
		delete(priv, ctx)
	}
	privMu.Unlock()
	if !ok {
		return nil
	}
	e.ev.Fini()
	if err := Destroy(e.handle, true); err != nil {
		return err
	}
	return LibFini()
}
