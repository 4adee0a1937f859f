package types_test

import (
	"testing"
	"time"

	"github.com/portier-acs/portier/server/internal/portier/types"
)

func TestWeekdayOf_SundayFirstNumbering(t *testing.T) {
	cases := []struct {
		in   time.Weekday
		want types.Weekday
	}{
		{time.Sunday, types.Sunday},
		{time.Monday, types.Monday},
		{time.Wednesday, types.Wednesday},
		{time.Saturday, types.Saturday},
	}
	for _, c := range cases {
		if got := types.WeekdayOf(c.in); got != c.want {
			t.Errorf("WeekdayOf(%v) = %d, want %d", c.in, got, c.want)
		}
	}

	// Both numbering boundaries pinned: Sunday is 1, not 0 or 7.
	if types.WeekdayOf(time.Sunday) != 1 {
		t.Error("Sunday must map to 1")
	}
	if types.WeekdayOf(time.Saturday) != 7 {
		t.Error("Saturday must map to 7")
	}
}

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in      string
		want    types.TimeOfDay
		wantErr bool
	}{
		{"00:00:00", 0, false},
		{"23:59:59", 86399, false},
		{"09:30:15", 9*3600 + 30*60 + 15, false},
		{"24:00:00", 0, true},
		{"12:60:00", 0, true},
		{"12:00:60", 0, true},
		{"12:00", 0, true},
		{"garbage", 0, true},
		{"", 0, true},
	}
	for _, c := range cases {
		got, err := types.ParseTimeOfDay(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseTimeOfDay(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimeOfDay(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseTimeOfDay(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestTimeOfDay_StringRoundTrip(t *testing.T) {
	for _, s := range []string{"00:00:00", "09:05:07", "23:59:59"} {
		tod, err := types.ParseTimeOfDay(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if tod.String() != s {
			t.Errorf("round trip %q -> %q", s, tod.String())
		}
	}
}

func TestParseDate_Ordering(t *testing.T) {
	a, err := types.ParseDate("2024-06-10")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	b, err := types.ParseDate("2024-06-11")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if !a.Before(b) || b.Before(a) {
		t.Error("expected a < b")
	}
	if a.Before(a) || a.After(a) {
		t.Error("a date must not order before or after itself")
	}

	if _, err := types.ParseDate("2024-13-01"); err == nil {
		t.Error("expected error for month 13")
	}
	if _, err := types.ParseDate("10.06.2024"); err == nil {
		t.Error("expected error for wrong format")
	}
}

func mustRule(t *testing.T, start, end, from, to string, days ...types.Weekday) types.AccessRule {
	t.Helper()
	s, err := types.ParseTimeOfDay(start)
	if err != nil {
		t.Fatal(err)
	}
	e, err := types.ParseTimeOfDay(end)
	if err != nil {
		t.Fatal(err)
	}
	f, err := types.ParseDate(from)
	if err != nil {
		t.Fatal(err)
	}
	u, err := types.ParseDate(to)
	if err != nil {
		t.Fatal(err)
	}
	return types.AccessRule{
		UserID: 7, ScannerID: 3,
		TimeStart: s, TimeEnd: e,
		ValidFrom: f, ValidTo: u,
		Weekdays: days,
	}
}

func TestAppliesAt_WeekdayWindow(t *testing.T) {
	// Mon-Fri 09:00-17:00 through 2024.
	rule := mustRule(t, "09:00:00", "17:00:00", "2024-01-01", "2024-12-31",
		types.Monday, types.Tuesday, types.Wednesday, types.Thursday, types.Friday)

	monday := time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC) // a Monday
	if !rule.AppliesAt(monday) {
		t.Error("expected match on Monday 10:00")
	}

	saturday := time.Date(2024, 6, 8, 10, 0, 0, 0, time.UTC) // a Saturday
	if rule.AppliesAt(saturday) {
		t.Error("expected no match on Saturday")
	}
}

func TestAppliesAt_InclusiveBounds(t *testing.T) {
	rule := mustRule(t, "09:00:00", "17:00:00", "2024-06-10", "2024-06-14",
		types.Monday, types.Tuesday, types.Wednesday, types.Thursday, types.Friday)

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"start time exactly", time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC), true},
		{"end time exactly", time.Date(2024, 6, 10, 17, 0, 0, 0, time.UTC), true},
		{"one second before start", time.Date(2024, 6, 10, 8, 59, 59, 0, time.UTC), false},
		{"one second after end", time.Date(2024, 6, 10, 17, 0, 1, 0, time.UTC), false},
		{"first valid date", time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC), true},
		{"last valid date", time.Date(2024, 6, 14, 12, 0, 0, 0, time.UTC), true},
		{"day after range", time.Date(2024, 6, 17, 12, 0, 0, 0, time.UTC), false},
	}
	for _, c := range cases {
		if got := rule.AppliesAt(c.at); got != c.want {
			t.Errorf("%s: AppliesAt = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestAppliesAt_RequestIsInert(t *testing.T) {
	rule := mustRule(t, "00:00:00", "23:59:59", "2024-01-01", "2024-12-31",
		types.Sunday, types.Monday, types.Tuesday, types.Wednesday,
		types.Thursday, types.Friday, types.Saturday)
	rule.IsRequest = true

	at := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	if rule.AppliesAt(at) {
		t.Error("a pending request must never match")
	}
}
