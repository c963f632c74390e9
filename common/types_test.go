// Copyright 2015 The go-ethereum Authors
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

package common

import "testing"

func TestBytesToObjID(t *testing.T) {
	bytes := []byte{5}
	id := BytesToObjID(bytes)

	var exp ObjID
	exp[15] = 5

	if id != exp {
		t.Errorf("expected %x got %x", exp, id)
	}
}

func TestBytesToObjIDTruncates(t *testing.T) {
	long := make([]byte, 20)
	long[19] = 7
	id := BytesToObjID(long)

	var exp ObjID
	exp[15] = 7
	if id != exp {
		t.Errorf("expected %x got %x", exp, id)
	}
}

func TestNewObjIDUnique(t *testing.T) {
	a, b := NewObjID(), NewObjID()
	if a == b {
		t.Fatal("two freshly generated object ids collided")
	}
	if a.IsZero() || b.IsZero() {
		t.Fatal("freshly generated object id should not be zero")
	}
}

func TestCookieString(t *testing.T) {
	c := BytesToCookie([]byte{0xde, 0xad})
	if len(c.String()) != 2+2*UIDLength {
		t.Fatalf("unexpected cookie string length: %q", c.String())
	}
}

func TestObjIDTextRoundTrip(t *testing.T) {
	want := NewObjID()
	text, err := want.MarshalText()
	if err != nil {
		t.Fatalf("marshaltext: %v", err)
	}
	var got ObjID
	if err := got.UnmarshalText(text); err != nil {
		t.Fatalf("unmarshaltext: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %s want %s", got, want)
	}
}

func TestCookieTextRoundTrip(t *testing.T) {
	want := NewCookie()
	text, err := want.MarshalText()
	if err != nil {
		t.Fatalf("marshaltext: %v", err)
	}
	var got Cookie
	if err := got.UnmarshalText(text); err != nil {
		t.Fatalf("unmarshaltext: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %s want %s", got, want)
	}
}
