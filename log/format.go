// Copyright 2023 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package log

import (
	"io"
	"math/big"
	"strconv"
	"time"
)

const termTimeFormat = "01-02|15:04:05.000"

// writeTimeTermFormat writes t in the terminal handler's compact local-time
// format, avoiding the allocation that time.Format would cost in the hot
// logging path.
func writeTimeTermFormat(w io.Writer, t time.Time) {
	w.Write(t.AppendFormat(nil, termTimeFormat))
}

// FormatLogfmtInt64 formats n with comma thousands separators once it has
// more than 5 digits, the way logfmt output keeps large counters readable.
func FormatLogfmtInt64(n int64) string {
	if n < 0 {
		return "-" + FormatLogfmtUint64(uint64(-n))
	}
	return FormatLogfmtUint64(uint64(n))
}

// FormatLogfmtUint64 formats n with comma thousands separators once it has
// more than 5 digits.
func FormatLogfmtUint64(n uint64) string {
	in := strconv.FormatUint(n, 10)
	if len(in) <= 5 {
		return in
	}
	return groupDigits(in)
}

func formatLogfmtBigInt(n *big.Int) string {
	if n == nil {
		return "<nil>"
	}
	in := n.String()
	neg := false
	if len(in) > 0 && in[0] == '-' {
		neg = true
		in = in[1:]
	}
	if len(in) <= 5 {
		if neg {
			return "-" + in
		}
		return in
	}
	out := groupDigits(in)
	if neg {
		return "-" + out
	}
	return out
}

// groupDigits inserts a comma every three digits from the right of a
// non-negative decimal digit string.
func groupDigits(in string) string {
	out := make([]byte, 0, len(in)+len(in)/3)
	pos := len(in) % 3
	if pos == 0 {
		pos = 3
	}
	out = append(out, in[:pos]...)
	for ; pos < len(in); pos += 3 {
		out = append(out, ',')
		out = append(out, in[pos:pos+3]...)
	}
	return string(out)
}
