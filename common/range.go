package common

import "cmp"

// Range is an inclusive [Lo, Hi] span over an ordered integer type, used for
// epoch ranges.
type Range[T cmp.Ordered] struct {
	Lo, Hi T
}

// NewRange builds a Range. If hi < lo the range is empty.
func NewRange[T cmp.Ordered](lo, hi T) Range[T] {
	return Range[T]{Lo: lo, Hi: hi}
}

// Empty reports whether the range contains no values.
func (r Range[T]) Empty() bool {
	return r.Hi < r.Lo
}

// Contains reports whether v falls within [Lo, Hi].
func (r Range[T]) Contains(v T) bool {
	return !(v < r.Lo) && !(r.Hi < v)
}

// Iter yields every value in [Lo, Hi] in ascending order. It is a
// range-over-func iterator (Go 1.23+), usable with slices.Collect.
func (r Range[T]) Iter() func(yield func(T) bool) {
	return func(yield func(T) bool) {
		if r.Empty() {
			return
		}
		for v := r.Lo; ; v++ {
			if !yield(v) {
				return
			}
			if v == r.Hi {
				return
			}
		}
	}
}
