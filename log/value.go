// Copyright 2025 the libevm authors.
//
// The libevm additions to go-ethereum are free software: you can redistribute
// them and/or modify them under the terms of the GNU Lesser General Public License
// as published by the Free Software Foundation, either version 3 of the License,
// or (at your option) any later version.
//
// The libevm additions are distributed in the hope that they will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU Lesser
// General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see
// <http://www.gnu.org/licenses/>.

package log

import (
	"fmt"
	"log/slog"
)

// typeOfValue implements slog.LogValuer, logging only the %T of the value it
// wraps instead of its full contents, useful when the value itself is large
// or not meaningfully printable (an open file handle, a mutex-guarded
// struct).
type typeOfValue struct {
	v any
}

// TypeOf wraps v so that, when logged, only its Go type is recorded.
func TypeOf(v any) slog.LogValuer {
	return typeOfValue{v: v}
}

func (t typeOfValue) LogValue() slog.Value {
	return slog.StringValue(fmt.Sprintf("%T", t.v))
}

// lazyValue implements slog.LogValuer by deferring evaluation of fn until
// the record is actually going to be emitted, so an expensive-to-compute
// attribute costs nothing on a disabled log level.
type lazyValue struct {
	fn func() slog.Value
}

// Lazy wraps fn so its result is only computed if the record is emitted.
func Lazy(fn func() slog.Value) slog.LogValuer {
	return lazyValue{fn: fn}
}

func (l lazyValue) LogValue() slog.Value {
	return l.fn()
}
