package types

import (
	"fmt"
	"time"
)

// Weekday numbers days Sunday=1 through Saturday=7.  This is the
// convention the scanner rule schema has always used (it matches MySQL's
// DAYOFWEEK()); earlier firmware revisions used 0-based Monday-first
// numbering, so all conversions must go through WeekdayOf.
type Weekday int

const (
	Sunday    Weekday = 1
	Monday    Weekday = 2
	Tuesday   Weekday = 3
	Wednesday Weekday = 4
	Thursday  Weekday = 5
	Friday    Weekday = 6
	Saturday  Weekday = 7
)

// WeekdayOf maps a time.Weekday (Sunday=0) onto the rule numbering
// (Sunday=1).
func WeekdayOf(d time.Weekday) Weekday {
	return Weekday(int(d) + 1)
}

func (d Weekday) Valid() bool { return d >= Sunday && d <= Saturday }

// TimeOfDay is a wall-clock time expressed as seconds since midnight,
// range [0, 86399].  Rules compare it inclusively on both ends.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m, sec int
	if _, err := fmt.Sscanf(s, "%2d:%2d:%2d", &h, &m, &sec); err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	if len(s) != 8 || s[2] != ':' || s[5] != ':' {
		return 0, fmt.Errorf("parse time of day %q: want HH:MM:SS", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("parse time of day %q: out of range", s)
	}
	return TimeOfDay(h*3600 + m*60 + sec), nil
}

// TimeOfDayOf extracts the wall-clock time from t in t's location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return TimeOfDay(h*3600 + m*60 + s)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", int(t)/3600, int(t)/60%60, int(t)%60)
}

// Date is a calendar date with no time or zone component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// DateOf extracts the calendar date from t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) After(o Date) bool { return o.Before(d) }

// AccessRule grants a user a recurring time window on one scanner.  A rule
// with IsRequest set is a pending proposal and is never consulted during
// evaluation; approval flips IsRequest off exactly once.
type AccessRule struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ScannerID int64     `json:"scanner_id"`
	TimeStart TimeOfDay `json:"-"`
	TimeEnd   TimeOfDay `json:"-"`
	ValidFrom Date      `json:"-"`
	ValidTo   Date      `json:"-"`
	Weekdays  []Weekday `json:"weekdays"`
	IsRequest bool      `json:"is_request"`
}

// AppliesAt reports whether the rule's window covers the given instant:
// the calendar date lies in [ValidFrom, ValidTo], the wall-clock time lies
// in [TimeStart, TimeEnd], and the weekday is one of the rule's weekdays.
// All bounds are inclusive.  Requests never apply.
func (r AccessRule) AppliesAt(at time.Time) bool {
	if r.IsRequest {
		return false
	}
	d := DateOf(at)
	if d.Before(r.ValidFrom) || d.After(r.ValidTo) {
		return false
	}
	t := TimeOfDayOf(at)
	if t < r.TimeStart || t > r.TimeEnd {
		return false
	}
	wd := WeekdayOf(at.Weekday())
	for _, w := range r.Weekdays {
		if w == wd {
			return true
		}
	}
	return false
}
