package clock

import (
	"testing"
	"time"
)

func TestManual_SetAndAdvance(t *testing.T) {
	start := time.Date(2025, 3, 1, 23, 59, 59, 0, time.UTC)
	c := NewManual(start)

	if !c.Now().Equal(start) {
		t.Fatalf("expected %v, got %v", start, c.Now())
	}

	c.Advance(time.Second)
	if want := start.Add(time.Second); !c.Now().Equal(want) {
		t.Fatalf("expected %v, got %v", want, c.Now())
	}

	later := start.AddDate(0, 0, 7)
	c.Set(later)
	if !c.Now().Equal(later) {
		t.Fatalf("expected %v, got %v", later, c.Now())
	}
}

func TestSystem_Now(t *testing.T) {
	before := time.Now()
	got := System{}.Now()
	if got.Before(before) {
		t.Fatalf("expected system clock to move forward")
	}
}
