package eq

// An Event is intrusively linked into two independent lists at once: the
// owning EQ's dispatch-or-completion queue (qprev/qnext) and its
// parent's child list (cprev/cnext). Using the language-independent
// design's own node fields rather than container/list avoids boxing
// every event behind an interface{} on each enqueue.

// qlist is an EQ's dispatch or completion list.
type qlist struct {
	root Event
}

func (l *qlist) init() {
	l.root.qnext = &l.root
	l.root.qprev = &l.root
}

func (l *qlist) empty() bool { return l.root.qnext == &l.root }

func (l *qlist) pushBack(e *Event) {
	e.qprev = l.root.qprev
	e.qnext = &l.root
	e.qprev.qnext = e
	e.qnext.qprev = e
}

func (l *qlist) pushFront(e *Event) {
	e.qnext = l.root.qnext
	e.qprev = &l.root
	e.qnext.qprev = e
	e.qprev.qnext = e
}

// remove detaches e from whichever qlist currently holds it. e.qprev/qnext
// are left nil, so a detached event is identifiable without a separate
// "linked" flag.
func (l *qlist) remove(e *Event) {
	if e.qprev == nil || e.qnext == nil {
		return
	}
	e.qprev.qnext = e.qnext
	e.qnext.qprev = e.qprev
	e.qprev = nil
	e.qnext = nil
}

func (l *qlist) front() *Event {
	if l.empty() {
		return nil
	}
	return l.root.qnext
}

func (l *qlist) popFront() *Event {
	e := l.front()
	if e != nil {
		l.remove(e)
	}
	return e
}

// next returns e's successor in this list, or nil once the sentinel
// root is reached.
func (l *qlist) next(e *Event) *Event {
	if e.qnext == &l.root {
		return nil
	}
	return e.qnext
}

// clist is an Event's own list of children. Its sentinel root is allocated
// by init rather than embedded, since every Event embeds a clist.
type clist struct {
	root *Event
}

func (l *clist) init() {
	l.root = &Event{}
	l.root.cnext = l.root
	l.root.cprev = l.root
}

func (l *clist) empty() bool { return l.root == nil || l.root.cnext == l.root }

func (l *clist) pushBack(e *Event) {
	e.cprev = l.root.cprev
	e.cnext = l.root
	e.cprev.cnext = e
	e.cnext.cprev = e
}

func (l *clist) remove(e *Event) {
	if e.cprev == nil || e.cnext == nil {
		return
	}
	e.cprev.cnext = e.cnext
	e.cnext.cprev = e.cprev
	e.cprev = nil
	e.cnext = nil
}

// front returns the first real child, or nil if l has none.
func (l *clist) front() *Event {
	if l.empty() {
		return nil
	}
	return l.root.cnext
}

// next returns e's successor in its parent's child list, or nil once the
// sentinel root is reached.
func (l *clist) next(e *Event) *Event {
	if e.cnext == l.root {
		return nil
	}
	return e.cnext
}
