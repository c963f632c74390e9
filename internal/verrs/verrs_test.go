// Copyright 2015 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-ethereum.  If not, see <http://www.gnu.org/licenses/>.

package verrs

import (
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	err := New("vos", NonExist, "dkey %x not found", []byte{0xab})
	message := fmt.Sprintf("%v", err)
	exp := "[vos] WARN: no such object, key or record: dkey ab not found"
	if message != exp {
		t.Errorf("error message incorrect. expected %v, got %v", exp, message)
	}
}

func TestErrorSeverity(t *testing.T) {
	err := New("vos", NoMem, "allocator exhausted")
	if !err.Fatal() {
		t.Errorf("error should be fatal")
	}
	warn := New("vos", Busy, "object ref held")
	if warn.Fatal() {
		t.Errorf("error should not be fatal")
	}
}

func TestIs(t *testing.T) {
	err := New("eq", NoHdl, "stale event handle")
	if !Is(err, NoHdl) {
		t.Errorf("Is should match the error's own code")
	}
	if Is(err, Inval) {
		t.Errorf("Is should not match an unrelated code")
	}
}
