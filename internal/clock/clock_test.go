package clock

import (
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, 3, 14, 1, 0, 0, 0, time.UTC)
	b := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	if !SameDay(a, b) {
		t.Error("same calendar day reported as different")
	}
	if SameDay(a, b.Add(time.Minute)) {
		t.Error("midnight boundary not detected")
	}
}

func TestSameISOWeek(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"2026-03-09", "2026-03-15", true},  // Monday..Sunday of the same ISO week
		{"2026-03-15", "2026-03-16", false}, // Sunday vs following Monday
		// ISO week 1 of 2027 starts in December 2026.
		{"2026-12-28", "2027-01-03", true},
		{"2026-12-27", "2026-12-28", false},
	}
	for _, tt := range tests {
		if got := SameISOWeek(date(tt.a), date(tt.b)); got != tt.want {
			t.Errorf("SameISOWeek(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSameMonth(t *testing.T) {
	if !SameMonth(date("2026-02-01"), date("2026-02-28")) {
		t.Error("same month reported as different")
	}
	if SameMonth(date("2026-02-28"), date("2026-03-01")) {
		t.Error("month boundary not detected")
	}
	if SameMonth(date("2025-02-10"), date("2026-02-10")) {
		t.Error("same month in different years should differ")
	}
}

func TestFixedClock(t *testing.T) {
	now := date("2026-08-31")
	c := Fixed{T: now}
	if !c.Now().Equal(now) {
		t.Errorf("Fixed.Now() = %v, want %v", c.Now(), now)
	}
}
