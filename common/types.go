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

import (
	"github.com/google/uuid"

	"github.com/vosd/vos/common/hexutil"
)

// UIDLength is the byte width of the 128-bit identifiers used throughout
// vos: object unit identifiers and update cookies.
const UIDLength = 16

// ObjID is a 128-bit object unit identifier.
type ObjID [UIDLength]byte

// Cookie is a 128-bit originator identifier attached to every update.
type Cookie [UIDLength]byte

// BytesToObjID converts b to an ObjID, truncating from the left if b is
// longer than UIDLength and zero-padding on the left if it is shorter.
func BytesToObjID(b []byte) ObjID {
	if len(b) > UIDLength {
		b = b[len(b)-UIDLength:]
	}
	var o ObjID
	copy(o[:], LeftPadBytes(b, UIDLength))
	return o
}

// BytesToCookie converts b to a Cookie the same way BytesToObjID does.
func BytesToCookie(b []byte) Cookie {
	return Cookie(BytesToObjID(b))
}

// NewObjID returns a randomly generated object id.
func NewObjID() ObjID {
	return ObjID(uuid.New())
}

// NewCookie returns a randomly generated cookie, used when a caller performs
// an update without tracking its own originator id.
func NewCookie() Cookie {
	return Cookie(uuid.New())
}

func (o ObjID) Bytes() []byte   { return o[:] }
func (o ObjID) IsZero() bool    { return o == ObjID{} }
func (o ObjID) String() string  { return hexutil.Encode(o[:]) }

// MarshalText implements encoding.TextMarshaler, so an ObjID round-trips
// through JSON (and any other encoding built on it) as a 0x-prefixed hex
// string rather than a byte array.
func (o ObjID) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *ObjID) UnmarshalText(text []byte) error {
	b, err := hexutil.Decode(string(text))
	if err != nil {
		return err
	}
	*o = BytesToObjID(b)
	return nil
}

func (c Cookie) Bytes() []byte  { return c[:] }
func (c Cookie) IsZero() bool   { return c == Cookie{} }
func (c Cookie) String() string { return hexutil.Encode(c[:]) }

// MarshalText implements encoding.TextMarshaler.
func (c Cookie) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Cookie) UnmarshalText(text []byte) error {
	b, err := hexutil.Decode(string(text))
	if err != nil {
		return err
	}
	*c = BytesToCookie(b)
	return nil
}
