// Copyright 2018 The go-ethereum Authors
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

//go:build !unix

package fdlimit

import "errors"

var errUnsupported = errors.New("fdlimit: unsupported platform")

// Raise is a no-op on platforms without an rlimit-style descriptor cap.
func Raise(max uint64) (uint64, error) {
	return max, nil
}

// Current always errors on unsupported platforms.
func Current() (int, error) {
	return 0, errUnsupported
}

// Maximum always errors on unsupported platforms.
func Maximum() (int, error) {
	return 0, errUnsupported
}
