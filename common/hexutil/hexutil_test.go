// Copyright 2016 The go-ethereum Authors
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

package hexutil

import (
	"bytes"
	"testing"
)

var encodeBytesTests = []struct {
	input []byte
	want  string
}{
	{[]byte{}, "0x"},
	{[]byte{0}, "0x00"},
	{[]byte{0, 0, 1, 2}, "0x00000102"},
}

var encodeUint64Tests = []struct {
	input uint64
	want  string
}{
	{0, "0x0"},
	{1, "0x1"},
	{0xff, "0xff"},
	{0x1122334455667788, "0x1122334455667788"},
}

func TestEncode(t *testing.T) {
	for _, test := range encodeBytesTests {
		enc := Encode(test.input)
		if enc != test.want {
			t.Errorf("input %x: wrong encoding %s", test.input, enc)
		}
	}
}

func TestDecode(t *testing.T) {
	for _, test := range encodeBytesTests {
		dec, err := Decode(test.want)
		if err != nil {
			t.Errorf("input %s: unexpected error %v", test.want, err)
			continue
		}
		if !bytes.Equal(dec, test.input) {
			t.Errorf("input %s: wrong decoding %x", test.want, dec)
		}
	}
	if _, err := Decode(""); err != ErrEmptyString {
		t.Errorf("wrong error for empty string: %v", err)
	}
	if _, err := Decode("0x0g"); err != ErrSyntax {
		t.Errorf("wrong error for invalid syntax: %v", err)
	}
	if _, err := Decode("ab"); err != ErrMissingPrefix {
		t.Errorf("wrong error for missing prefix: %v", err)
	}
}

func TestEncodeUint64(t *testing.T) {
	for _, test := range encodeUint64Tests {
		enc := EncodeUint64(test.input)
		if enc != test.want {
			t.Errorf("input %x: wrong encoding %s", test.input, enc)
		}
	}
}

func TestDecodeUint64(t *testing.T) {
	for _, test := range encodeUint64Tests {
		dec, err := DecodeUint64(test.want)
		if err != nil {
			t.Errorf("input %s: unexpected error %v", test.want, err)
			continue
		}
		if dec != test.input {
			t.Errorf("input %s: wrong decoding %d", test.want, dec)
		}
	}
}
