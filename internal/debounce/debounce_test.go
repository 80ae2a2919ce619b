package debounce

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCoalescesBurst(t *testing.T) {
	var calls atomic.Int32
	d := New(30*time.Millisecond, func() { calls.Add(1) })

	for i := 0; i < 10; i++ {
		d.Trigger()
		time.Sleep(2 * time.Millisecond)
	}
	time.Sleep(80 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
	if d.Pending() {
		t.Error("Pending() = true after fire")
	}
}

func TestDebouncerSeparateBursts(t *testing.T) {
	var calls atomic.Int32
	d := New(10*time.Millisecond, func() { calls.Add(1) })

	d.Trigger()
	time.Sleep(40 * time.Millisecond)
	d.Trigger()
	time.Sleep(40 * time.Millisecond)

	if got := calls.Load(); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
}

func TestDebouncerStop(t *testing.T) {
	var calls atomic.Int32
	d := New(10*time.Millisecond, func() { calls.Add(1) })

	d.Trigger()
	d.Stop()
	d.Trigger()
	time.Sleep(40 * time.Millisecond)

	if got := calls.Load(); got != 0 {
		t.Fatalf("calls = %d, want 0", got)
	}
}

func TestKeyedLastValueWins(t *testing.T) {
	k := NewKeyed(20 * time.Millisecond)
	var last atomic.Value
	var calls atomic.Int32

	for _, s := range []string{"S", "SI", "SIN", "SIN HIELO"} {
		s := s
		k.Trigger("line-1", func() {
			calls.Add(1)
			last.Store(s)
		})
	}
	time.Sleep(60 * time.Millisecond)

	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
	if last.Load() != "SIN HIELO" {
		t.Errorf("last = %v, want SIN HIELO", last.Load())
	}
}

func TestKeyedCancel(t *testing.T) {
	k := NewKeyed(10 * time.Millisecond)
	var calls atomic.Int32
	k.Trigger("a", func() { calls.Add(1) })
	k.Cancel("a")
	time.Sleep(30 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatalf("calls = %d, want 0", calls.Load())
	}
}

func TestKeyedFlushAll(t *testing.T) {
	k := NewKeyed(time.Hour)
	var calls atomic.Int32
	k.Trigger("a", func() { calls.Add(1) })
	k.Trigger("b", func() { calls.Add(1) })

	k.FlushAll()
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
	k.FlushAll()
	if calls.Load() != 2 {
		t.Fatalf("second flush ran %d calls, want none", calls.Load()-2)
	}
}
