package sx

import "testing"

func TestOrderedSetPreservesInsertionOrderAndDedups(t *testing.T) {
	s := newOrderedSet()
	s.Add("/a")
	s.Add("/b")
	s.Add("/a")
	got := s.Slice()
	want := []string{"/a", "/b"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestOrderedSetUnionAppendsNewOnly(t *testing.T) {
	a := orderedSetFrom([]string{"/a", "/b"})
	b := orderedSetFrom([]string{"/b", "/c"})
	a.Union(b)
	got := a.Slice()
	want := []string{"/a", "/b", "/c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestPolicyCloneIsIndependent(t *testing.T) {
	p := newPolicy("/tmp/demo", "/Users/u")
	p.FS.AllowWrite.Add("/tmp/demo")

	c := p.Clone()
	c.FS.AllowWrite.Add("/extra")

	if p.FS.AllowWrite.Has("/extra") {
		t.Fatal("mutating the clone must not affect the original")
	}
}
