// Package vos implements a single-node, versioned object store: objects
// addressed by a 128-bit id, nested as dkey -> akey -> recx, with every
// record tagged by a monotonic epoch. Storage is composed from
// internal/otree (ordered keyspace) and internal/pmem (transactional
// arena); vos itself only arranges their keys and byte layouts.
package vos

import (
	"encoding/binary"

	"github.com/vosd/vos/internal/verrs"
)

// Epoch is a monotonic 64-bit version tag on every written record.
type Epoch uint64

// EpochMax stands for "latest"/"now": a fetch at EpochMax resolves to
// the highest committed epoch for each record it touches.
const EpochMax = Epoch(^uint64(0))

// EpochRange bounds an epoch predicate; Hi == EpochMax means unbounded
// above.
type EpochRange struct {
	Lo, Hi Epoch
}

// Recx is a record extent: Nr fixed-size records starting at Idx.
type Recx struct {
	Idx, Nr uint64
}

// IOV is a single scatter/gather buffer.
type IOV struct {
	Buf []byte
}

// SGL is an ordered scatter/gather list: one logical byte stream spread
// across possibly several buffers.
type SGL struct {
	Iovs []IOV
}

// IOD is one I/O descriptor: the akey and record extents an operation
// touches, plus an optional epoch-range override. On Fetch, Rsize is an
// output (the resolved per-record size, zero if nothing matched); on
// Update it is an input (the uniform record size this write uses for
// akey).
type IOD struct {
	Akey  []byte
	Recx  []Recx
	Epr   *EpochRange
	Rsize uint64
}

func encodeRecxKey(idx uint64, epoch Epoch) []byte {
	key := make([]byte, 16)
	binary.BigEndian.PutUint64(key[0:8], idx)
	binary.BigEndian.PutUint64(key[8:16], uint64(epoch))
	return key
}

func decodeRecxKey(key []byte) (idx uint64, epoch Epoch) {
	idx = binary.BigEndian.Uint64(key[0:8])
	epoch = Epoch(binary.BigEndian.Uint64(key[8:16]))
	return idx, epoch
}

// encodeRecxValue builds the value stored at one (idx, epoch) key: the uniform
// akey rsize this record was written with, its originating cookie, and
// its data (empty for a punch).
func encodeRecxValue(rsize uint64, cookie [16]byte, data []byte) []byte {
	v := make([]byte, 8+16+len(data))
	binary.BigEndian.PutUint64(v[0:8], rsize)
	copy(v[8:24], cookie[:])
	copy(v[24:], data)
	return v
}

func decodeRecxValue(v []byte) (rsize uint64, cookie [16]byte, data []byte, err error) {
	if len(v) < 24 {
		return 0, cookie, nil, verrs.New("vos", verrs.IOInval, "corrupt recx record")
	}
	rsize = binary.BigEndian.Uint64(v[0:8])
	copy(cookie[:], v[8:24])
	data = v[24:]
	return rsize, cookie, data, nil
}

func encodeAkeyMeta(rsize uint64) []byte {
	v := make([]byte, 8)
	binary.BigEndian.PutUint64(v, rsize)
	return v
}

func decodeAkeyMeta(v []byte) uint64 {
	return binary.BigEndian.Uint64(v)
}
