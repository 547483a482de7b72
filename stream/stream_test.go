package stream

import (
	"context"
	"testing"
)

func TestPipeline(t *testing.T) {
	ctx := context.Background()
	in := Slice(ctx, []int{1, 2, 3, 4, 5, 6})
	odd := Filter(ctx, func(v int) bool { return v%2 == 1 }, in)
	squared := Transform(ctx, func(v int) int { return v * v }, odd)
	got := Collect(ctx, squared)

	want := []int{1, 9, 25}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSliceCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := Slice(ctx, []int{1, 2, 3})
	n := 0
	for range out {
		n++
	}
	if n > 1 {
		t.Errorf("drained %d elements after cancel", n)
	}
}

func TestRingBuffer(t *testing.T) {
	rb := NewRingBuffer[int](3)
	if rb.Full() || rb.Len() != 0 {
		t.Fatal("fresh buffer not empty")
	}

	rb.Add(1)
	rb.Add(2)
	rb.Add(3)
	if !rb.Full() {
		t.Error("buffer should be full")
	}

	// Overwrites the oldest.
	rb.Add(4)
	got := rb.Get()
	want := []int{2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if rb.First() != 2 || rb.Last() != 4 {
		t.Errorf("First/Last: %d/%d", rb.First(), rb.Last())
	}

	rb.Reset()
	if rb.Len() != 0 {
		t.Error("reset did not empty the buffer")
	}
}
