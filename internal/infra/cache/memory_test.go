package cache

import (
	"testing"
	"time"
)

func TestMemoryExpiry(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	m := NewMemoryWithClock(30*time.Second, clock)

	m.Set("nav:channels:weight:1:20", []byte("page"))
	if _, ok := m.Get("nav:channels:weight:1:20"); !ok {
		t.Fatal("свежая запись должна читаться")
	}

	now = now.Add(29 * time.Second)
	if _, ok := m.Get("nav:channels:weight:1:20"); !ok {
		t.Fatal("запись в пределах TTL должна читаться")
	}

	now = now.Add(2 * time.Second)
	if _, ok := m.Get("nav:channels:weight:1:20"); ok {
		t.Fatal("просроченная запись не должна читаться")
	}
}

func TestMemoryClear(t *testing.T) {
	m := NewMemory(time.Minute)
	m.Set("a", []byte("1"))
	m.Set("b", []byte("2"))
	m.Clear()
	if m.Len() != 0 {
		t.Fatalf("после Clear осталось записей: %d", m.Len())
	}
}

func TestMemorySweep(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	m := NewMemoryWithClock(10*time.Second, clock)

	m.Set("old", []byte("1"))
	now = now.Add(11 * time.Second)
	m.Set("fresh", []byte("2"))

	if removed := m.Sweep(); removed != 1 {
		t.Fatalf("Sweep удалил %d записей, ожидалась 1", removed)
	}
	if _, ok := m.Get("fresh"); !ok {
		t.Fatal("живая запись удалена при очистке")
	}
}
