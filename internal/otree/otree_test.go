package otree

import "testing"

func newTestTree(t *testing.T) *Tree {
	t.Helper()
	tr, err := OpenMem()
	if err != nil {
		t.Fatalf("OpenMem: %v", err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestInsertGet(t *testing.T) {
	tr := newTestTree(t)
	if err := tr.Insert([]byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	v, ok, err := tr.Get([]byte("k1"))
	if err != nil || !ok {
		t.Fatalf("get: %v, %v", ok, err)
	}
	if string(v) != "v1" {
		t.Fatalf("value = %q, want v1", v)
	}
}

func TestGetMissing(t *testing.T) {
	tr := newTestTree(t)
	_, ok, err := tr.Get([]byte("nope"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatalf("expected miss")
	}
}

func TestCursorOrder(t *testing.T) {
	tr := newTestTree(t)
	for _, k := range []string{"b", "a", "c"} {
		tr.Insert([]byte(k), []byte(k))
	}
	c := tr.Cursor()
	defer c.Release()
	var got []string
	for ok := c.First(); ok; ok = c.Next() {
		got = append(got, string(c.Key()))
	}
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestProbeGE_LE_EQ(t *testing.T) {
	tr := newTestTree(t)
	for _, k := range []string{"10", "20", "30"} {
		tr.Insert([]byte(k), []byte(k))
	}

	if k, _, ok, _ := tr.Probe(ProbeEQ, []byte("20")); !ok || string(k) != "20" {
		t.Fatalf("ProbeEQ(20) = %q, %v", k, ok)
	}
	if k, _, ok, _ := tr.Probe(ProbeEQ, []byte("25")); ok {
		t.Fatalf("ProbeEQ(25) unexpectedly matched %q", k)
	}
	if k, _, ok, _ := tr.Probe(ProbeGE, []byte("15")); !ok || string(k) != "20" {
		t.Fatalf("ProbeGE(15) = %q, %v, want 20", k, ok)
	}
	if k, _, ok, _ := tr.Probe(ProbeLE, []byte("25")); !ok || string(k) != "20" {
		t.Fatalf("ProbeLE(25) = %q, %v, want 20", k, ok)
	}
	if k, _, ok, _ := tr.Probe(ProbeLE, []byte("05")); ok {
		t.Fatalf("ProbeLE(05) unexpectedly matched %q", k)
	}
	if k, _, ok, _ := tr.Probe(ProbeFirst, nil); !ok || string(k) != "10" {
		t.Fatalf("ProbeFirst = %q, %v, want 10", k, ok)
	}
	if k, _, ok, _ := tr.Probe(ProbeLast, nil); !ok || string(k) != "30" {
		t.Fatalf("ProbeLast = %q, %v, want 30", k, ok)
	}
}

func TestOpenSubtreeMaterialisesMarkerOnce(t *testing.T) {
	tr := newTestTree(t)
	child1, created1, err := tr.OpenSubtree([]byte("obj1"))
	if err != nil || !created1 {
		t.Fatalf("first OpenSubtree: created=%v err=%v", created1, err)
	}
	child1.Insert([]byte("dkey"), []byte("v"))

	child2, created2, err := tr.OpenSubtree([]byte("obj1"))
	if err != nil || created2 {
		t.Fatalf("second OpenSubtree: created=%v err=%v, want created=false", created2, err)
	}
	v, ok, err := child2.Get([]byte("dkey"))
	if err != nil || !ok || string(v) != "v" {
		t.Fatalf("child2 should see child1's write: v=%q ok=%v err=%v", v, ok, err)
	}
}

func TestSubtreesUnderDifferentParentKeysDoNotCollide(t *testing.T) {
	tr := newTestTree(t)
	a, _, _ := tr.OpenSubtree([]byte("a"))
	b, _, _ := tr.OpenSubtree([]byte("b"))
	a.Insert([]byte("x"), []byte("in-a"))
	b.Insert([]byte("x"), []byte("in-b"))

	va, _, _ := a.Get([]byte("x"))
	vb, _, _ := b.Get([]byte("x"))
	if string(va) != "in-a" || string(vb) != "in-b" {
		t.Fatalf("subtree isolation broken: a=%q b=%q", va, vb)
	}
}

func TestDelete(t *testing.T) {
	tr := newTestTree(t)
	tr.Insert([]byte("k"), []byte("v"))
	if err := tr.Delete([]byte("k")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := tr.Get([]byte("k")); ok {
		t.Fatalf("key should be gone after delete")
	}
}
