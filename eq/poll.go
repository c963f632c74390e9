package eq

import (
	"time"

	"github.com/vosd/vos/internal/verrs"
)

// Poll drains up to len(out) completed events into out, returning how
// many were harvested.
//
// With waitInf set, Poll blocks (up to timeout, or indefinitely if
// timeout is negative) until at least one event completes or the EQ is
// destroyed with force while empty. Without waitInf, Poll returns
// immediately with zero events whenever nothing is currently dispatched
// — there is nothing left that could complete later, so waiting would
// never succeed.
//
// A timeout expiring with zero events harvested is not an error: it is
// reported back to the caller as (0, nil), matching the rest of this
// package's convention that TimedOut is a normal, expected outcome at a
// polling boundary rather than a failure.
func Poll(h Handle, waitInf bool, timeout time.Duration, out []*Event) (int, error) {
	q, ok := eqTable.Lookup(uint64(h))
	if !ok {
		return 0, verrs.New("eq", verrs.NoHdl, "poll: unknown handle")
	}
	defer eqTable.PutRef(uint64(h))

	harvested := 0
	cb := func() (int, error) {
		q.mu.Lock()
		defer q.mu.Unlock()

		for harvested < len(out) {
			e := q.completed.front()
			if e == nil {
				break
			}
			q.completed.remove(e)
			q.nCompleted--
			e.status = StatusInit
			out[harvested] = e
			harvested++
		}
		if harvested > 0 {
			return 1, nil
		}
		if q.finalizing && q.dispatch.empty() && q.completed.empty() {
			return 0, verrs.New("eq", verrs.NonExist, "poll: eq finalized")
		}
		if !waitInf && q.dispatch.empty() {
			return 1, nil
		}
		return 0, nil
	}

	err := q.transport.Progress(timeout, cb)
	if verrs.Is(err, verrs.TimedOut) {
		err = nil
	}
	return harvested, err
}
