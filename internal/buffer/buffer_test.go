package buffer

import (
	"fmt"
	"testing"
)

func TestPushEvictsOldest(t *testing.T) {
	r := NewRing[int](20)

	for i := 0; i < 25; i++ {
		r.Push(i)
	}

	if r.Len() != 20 {
		t.Fatalf("Len() = %d, want 20", r.Len())
	}

	// After 25 pushes the ring holds exactly 5..24 in insertion order.
	got := r.Oldest()
	for i, v := range got {
		if want := i + 5; v != want {
			t.Errorf("Oldest()[%d] = %d, want %d", i, v, want)
		}
	}
}

func TestSnapshotMostRecentFirst(t *testing.T) {
	r := NewRing[string](5)
	r.Push("a")
	r.Push("b")
	r.Push("c")

	got := r.Snapshot()
	want := []string{"c", "b", "a"}
	if len(got) != len(want) {
		t.Fatalf("Snapshot() length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Snapshot()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	r := NewRing[int](3)
	r.Push(1)

	snap := r.Snapshot()
	snap[0] = 99

	if got := r.Snapshot()[0]; got != 1 {
		t.Errorf("ring content changed through snapshot: got %d, want 1", got)
	}
}

func TestReplaceTruncatesToCapacity(t *testing.T) {
	r := NewRing[int](3)
	r.Push(0)

	r.Replace([]int{1, 2, 3, 4, 5})

	got := r.Oldest()
	want := []int{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("Oldest() length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Oldest()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestReplaceEmpty(t *testing.T) {
	r := NewRing[int](3)
	r.Push(1)
	r.Replace(nil)

	if r.Len() != 0 {
		t.Errorf("Len() after empty Replace = %d, want 0", r.Len())
	}
}

func TestConcurrentPush(t *testing.T) {
	r := NewRing[string](10)
	done := make(chan struct{})

	for g := 0; g < 4; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 100; i++ {
				r.Push(fmt.Sprintf("%d-%d", g, i))
			}
		}(g)
	}
	for g := 0; g < 4; g++ {
		<-done
	}

	if r.Len() != 10 {
		t.Errorf("Len() = %d, want 10", r.Len())
	}
}
