package vos

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vosd/vos/common"
)

func newTestContainer(t *testing.T) *Container {
	t.Helper()
	c, err := OpenMem()
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func sglOf(buf []byte) SGL { return SGL{Iovs: []IOV{{Buf: buf}}} }

func repeat(b byte, n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = b
	}
	return buf
}

func TestFetchNeverWrittenObjectEmptiesCleanly(t *testing.T) {
	c := newTestContainer(t)
	obj := common.NewObjID()

	buf := repeat(0xAA, 32)
	iods := []IOD{{Akey: []byte("a"), Recx: []Recx{{Idx: 0, Nr: 4}}}}
	sgls := []SGL{sglOf(buf)}

	require.NoError(t, c.Fetch(obj, EpochMax, []byte("d"), iods, sgls))
	require.Equal(t, uint64(0), iods[0].Rsize)
	require.True(t, bytes.Equal(buf, repeat(0xAA, 32)), "sgl must be left untouched")
}

// Fetch is a read: it must never materialise the object marker for an
// object that has never been written.
func TestFetchNeverWrittenObjectLeavesObjNonexistent(t *testing.T) {
	c := newTestContainer(t)
	obj := common.NewObjID()

	iods := []IOD{{Akey: []byte("a"), Recx: []Recx{{Idx: 0, Nr: 1}}}}
	sgls := []SGL{sglOf(make([]byte, 1))}
	require.NoError(t, c.Fetch(obj, EpochMax, []byte("d"), iods, sgls))

	exists, err := c.ObjExists(obj)
	require.NoError(t, err)
	require.False(t, exists, "a fetch must not turn a never-written object into an existent one")
}

// Distinct objects that happen to share a (dkey, akey) name must not
// collide in the akey subtree cache: object B's fetch of the same
// (dkey, akey) pair already cached for object A must not see A's data.
func TestFetchIsolatesAkeySubtreeCacheAcrossObjects(t *testing.T) {
	c := newTestContainer(t)
	objA := common.NewObjID()
	objB := common.NewObjID()

	iods := []IOD{{Akey: []byte("a"), Recx: []Recx{{Idx: 0, Nr: 1}}, Rsize: 1}}
	require.NoError(t, c.Update(objA, 1, common.NewCookie(), []byte("d"), iods, []SGL{sglOf([]byte("A"))}))

	// Warm the akey subtree cache for (dkey="d", akey="a") via objA.
	warmIods := []IOD{{Akey: []byte("a"), Recx: []Recx{{Idx: 0, Nr: 1}}}}
	warmSgls := []SGL{sglOf(make([]byte, 1))}
	require.NoError(t, c.Fetch(objA, EpochMax, []byte("d"), warmIods, warmSgls))
	require.Equal(t, []byte("A"), warmSgls[0].Iovs[0].Buf)

	// objB shares the dkey but has only a different akey written, so its
	// fetch of akey "a" reaches the akey subtree cache.
	otherIods := []IOD{{Akey: []byte("b"), Recx: []Recx{{Idx: 0, Nr: 1}}, Rsize: 1}}
	require.NoError(t, c.Update(objB, 1, common.NewCookie(), []byte("d"), otherIods, []SGL{sglOf([]byte("B"))}))
	bIods := []IOD{{Akey: []byte("a"), Recx: []Recx{{Idx: 0, Nr: 1}}}}
	bSgls := []SGL{sglOf(repeat(0xAA, 1))}
	require.NoError(t, c.Fetch(objB, EpochMax, []byte("d"), bIods, bSgls))
	require.Equal(t, uint64(0), bIods[0].Rsize, "objB must not see objA's akey subtree")
	require.Equal(t, repeat(0xAA, 1), bSgls[0].Iovs[0].Buf, "sgl must be left untouched")
}

func TestUpdateThenFetchSameEpochRoundTrips(t *testing.T) {
	c := newTestContainer(t)
	obj := common.NewObjID()
	cookie := common.NewCookie()

	src := bytes.Repeat([]byte("A"), 32)
	iods := []IOD{{Akey: []byte("a"), Recx: []Recx{{Idx: 0, Nr: 4}}, Rsize: 8}}
	sgls := []SGL{sglOf(append([]byte{}, src...))}

	require.NoError(t, c.Update(obj, 10, cookie, []byte("d"), iods, sgls))

	out := make([]byte, 32)
	fetchIods := []IOD{{Akey: []byte("a"), Recx: []Recx{{Idx: 0, Nr: 4}}}}
	fetchSgls := []SGL{sglOf(out)}
	require.NoError(t, c.Fetch(obj, 10, []byte("d"), fetchIods, fetchSgls))

	require.Equal(t, uint64(8), fetchIods[0].Rsize)
	require.Equal(t, src, out)
}

func TestEpochMonotonicity(t *testing.T) {
	c := newTestContainer(t)
	obj := common.NewObjID()
	cookie := common.NewCookie()

	b1 := bytes.Repeat([]byte("1"), 8)
	b2 := bytes.Repeat([]byte("2"), 8)

	iods1 := []IOD{{Akey: []byte("a"), Recx: []Recx{{Idx: 0, Nr: 1}}, Rsize: 8}}
	require.NoError(t, c.Update(obj, 5, cookie, []byte("d"), iods1, []SGL{sglOf(append([]byte{}, b1...))}))

	iods2 := []IOD{{Akey: []byte("a"), Recx: []Recx{{Idx: 0, Nr: 1}}, Rsize: 8}}
	require.NoError(t, c.Update(obj, 9, cookie, []byte("d"), iods2, []SGL{sglOf(append([]byte{}, b2...))}))

	out1 := make([]byte, 8)
	f1 := []IOD{{Akey: []byte("a"), Recx: []Recx{{Idx: 0, Nr: 1}}}}
	require.NoError(t, c.Fetch(obj, 5, []byte("d"), f1, []SGL{sglOf(out1)}))
	require.Equal(t, b1, out1)

	out2 := make([]byte, 8)
	f2 := []IOD{{Akey: []byte("a"), Recx: []Recx{{Idx: 0, Nr: 1}}}}
	require.NoError(t, c.Fetch(obj, 9, []byte("d"), f2, []SGL{sglOf(out2)}))
	require.Equal(t, b2, out2)
}

func TestPunchReadsAsHoleAtOrAfterEpoch(t *testing.T) {
	c := newTestContainer(t)
	obj := common.NewObjID()
	cookie := common.NewCookie()

	// First, a real write at epoch 5.
	real := []IOD{{Akey: []byte("a"), Recx: []Recx{{Idx: 0, Nr: 1}}, Rsize: 4}}
	require.NoError(t, c.Update(obj, 5, cookie, []byte("d"), real, []SGL{sglOf([]byte("RRRR"))}))

	// Then punch it at epoch 8.
	punch := []IOD{{Akey: []byte("a"), Recx: []Recx{{Idx: 0, Nr: 1}}, Rsize: 0}}
	require.NoError(t, c.Update(obj, 8, cookie, []byte("d"), punch, []SGL{{}}))

	out := repeat(0xFF, 4)
	f := []IOD{{Akey: []byte("a"), Recx: []Recx{{Idx: 0, Nr: 1}}}}
	require.NoError(t, c.Fetch(obj, 10, []byte("d"), f, []SGL{sglOf(out)}))
	require.Equal(t, uint64(0), f[0].Rsize)
	require.Equal(t, repeat(0xFF, 4), out, "hole must be left untouched")
}

func TestRsizeMismatchFailsAndLeavesStateUnchanged(t *testing.T) {
	c := newTestContainer(t)
	obj := common.NewObjID()
	cookie := common.NewCookie()

	first := []IOD{{Akey: []byte("a"), Recx: []Recx{{Idx: 0, Nr: 1}}, Rsize: 8}}
	require.NoError(t, c.Update(obj, 1, cookie, []byte("d"), first, []SGL{sglOf(bytes.Repeat([]byte("x"), 8))}))

	bad := []IOD{{Akey: []byte("a"), Recx: []Recx{{Idx: 1, Nr: 1}}, Rsize: 4}}
	err := c.Update(obj, 2, cookie, []byte("d"), bad, []SGL{sglOf(bytes.Repeat([]byte("y"), 4))})
	require.Error(t, err)

	// The original record must still read back untouched.
	out := make([]byte, 8)
	f := []IOD{{Akey: []byte("a"), Recx: []Recx{{Idx: 0, Nr: 1}}}}
	require.NoError(t, c.Fetch(obj, 1, []byte("d"), f, []SGL{sglOf(out)}))
	require.Equal(t, uint64(8), f[0].Rsize)
	require.Equal(t, bytes.Repeat([]byte("x"), 8), out)
}

func TestCookieIndexTracksMaxEpoch(t *testing.T) {
	c := newTestContainer(t)
	obj := common.NewObjID()
	cookie := common.NewCookie()

	iods1 := []IOD{{Akey: []byte("a"), Recx: []Recx{{Idx: 0, Nr: 1}}, Rsize: 1}}
	require.NoError(t, c.Update(obj, 3, cookie, []byte("d"), iods1, []SGL{sglOf([]byte("x"))}))

	iods2 := []IOD{{Akey: []byte("a"), Recx: []Recx{{Idx: 1, Nr: 1}}, Rsize: 1}}
	require.NoError(t, c.Update(obj, 7, cookie, []byte("d"), iods2, []SGL{sglOf([]byte("y"))}))

	ref, err := c.objRef(obj)
	require.NoError(t, err)
	defer c.releaseObjRef(obj)

	epoch, ok := ref.CookieEpoch(cookie)
	require.True(t, ok)
	require.Equal(t, Epoch(7), epoch)
}

// Leading holes are back-filled once the first real record's rsize is
// known; trailing holes are left untouched too.
func TestHoleReadBackfillsAroundRealRecord(t *testing.T) {
	c := newTestContainer(t)
	obj := common.NewObjID()
	cookie := common.NewCookie()

	// One write at idx=4, epoch=7, 8 bytes 'B'.
	iod := []IOD{{Akey: []byte("a"), Recx: []Recx{{Idx: 4, Nr: 1}}, Rsize: 8}}
	require.NoError(t, c.Update(obj, 7, cookie, []byte("d"), iod, []SGL{sglOf(bytes.Repeat([]byte("B"), 8))}))

	out := repeat(0xFF, 64)
	f := []IOD{{Akey: []byte("a"), Recx: []Recx{{Idx: 0, Nr: 8}}}}
	require.NoError(t, c.Fetch(obj, 10, []byte("d"), f, []SGL{sglOf(out)}))

	require.Equal(t, uint64(8), f[0].Rsize)
	require.Equal(t, repeat(0xFF, 32), out[0:32], "leading holes (idx 0..3) untouched")
	require.Equal(t, bytes.Repeat([]byte("B"), 8), out[32:40], "real record at idx 4")
	require.Equal(t, repeat(0xFF, 24), out[40:64], "trailing holes (idx 5..7) untouched")
}

func TestFetchUpdateLengthMismatchIsInval(t *testing.T) {
	c := newTestContainer(t)
	obj := common.NewObjID()
	err := c.Fetch(obj, EpochMax, []byte("d"), []IOD{{Akey: []byte("a")}}, nil)
	require.Error(t, err)
}
