package ssa

import "testing"

func TestNamer(t *testing.T) {
	n := newNamer(1)
	if _, ok := n.current("x"); ok {
		t.Fatal("fresh namer has an active version")
	}

	n.fresh("x")
	n.fresh("x")
	if v, _ := n.current("x"); v != 1 {
		t.Errorf("current = %d, want 1", v)
	}
	n.pop("x")
	if v, _ := n.current("x"); v != 0 {
		t.Errorf("current after pop = %d, want 0", v)
	}
	// popping never rewinds the counter
	if v := n.fresh("x"); v != 2 {
		t.Errorf("fresh = %d, want 2", v)
	}
	if d := n.depth("x"); d != 2 {
		t.Errorf("depth = %d, want 2", d)
	}
}

func TestNamerCountsDown(t *testing.T) {
	n := newNamer(-1)
	for _, want := range []int{0, -1, -2} {
		if got := n.fresh("y"); got != want {
			t.Errorf("fresh = %d, want %d", got, want)
		}
	}
	n.pop("z")
	if d := n.depth("z"); d != 0 {
		t.Errorf("depth = %d, want 0", d)
	}
}
