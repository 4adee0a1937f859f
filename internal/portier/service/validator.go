package service

import (
	"github.com/portier-acs/portier/server/internal/portier/types"
)

// RuleInput is the wire shape for rule and request creation, shared by the
// management API and the CRUD collaborator.
type RuleInput struct {
	UserID    int64  `json:"user_id"`
	ScannerID int64  `json:"scanner_id"`
	TimeStart string `json:"time_start"` // HH:MM:SS
	TimeEnd   string `json:"time_end"`   // HH:MM:SS
	ValidFrom string `json:"valid_from"` // YYYY-MM-DD
	ValidTo   string `json:"valid_to"`   // YYYY-MM-DD
	Weekdays  []int  `json:"weekdays"`   // subset of 1..7, Sunday=1
}

// Validator turns a RuleInput into an AccessRule or a field-level
// ValidationError.
//
// RequireStrictTimeOrder selects the end-after-start comparison.  The two
// creation paths have historically disagreed: direct rule creation rejects
// time_start == time_end, request creation accepts it.  Both conventions
// are kept, each pinned by tests; callers pick one explicitly.
type Validator struct {
	RequireStrictTimeOrder bool
}

func (v Validator) Validate(in RuleInput) (types.AccessRule, error) {
	verr := newValidationError()

	if in.UserID <= 0 {
		verr.add("user_id", "must be a positive id")
	}
	if in.ScannerID <= 0 {
		verr.add("scanner_id", "must be a positive id")
	}

	start, err := types.ParseTimeOfDay(in.TimeStart)
	if err != nil {
		verr.add("time_start", "must be HH:MM:SS within 00:00:00..23:59:59")
	}
	end, err := types.ParseTimeOfDay(in.TimeEnd)
	if err != nil {
		verr.add("time_end", "must be HH:MM:SS within 00:00:00..23:59:59")
	}
	if verr.ok() {
		if v.RequireStrictTimeOrder && end <= start {
			verr.add("time_end", "must be after time_start")
		}
		if !v.RequireStrictTimeOrder && end < start {
			verr.add("time_end", "must not be before time_start")
		}
	}

	from, err := types.ParseDate(in.ValidFrom)
	if err != nil {
		verr.add("valid_from", "must be YYYY-MM-DD")
	}
	to, err := types.ParseDate(in.ValidTo)
	if err != nil {
		verr.add("valid_to", "must be YYYY-MM-DD")
	}
	if _, ok := verr.Fields["valid_from"]; !ok {
		if _, ok := verr.Fields["valid_to"]; !ok && to.Before(from) {
			verr.add("valid_to", "must not be before valid_from")
		}
	}

	weekdays := validateWeekdays(in.Weekdays, verr)

	if !verr.ok() {
		return types.AccessRule{}, verr
	}

	return types.AccessRule{
		UserID:    in.UserID,
		ScannerID: in.ScannerID,
		TimeStart: start,
		TimeEnd:   end,
		ValidFrom: from,
		ValidTo:   to,
		Weekdays:  weekdays,
	}, nil
}

// validateWeekdays requires an explicit non-empty set.  An empty set has
// meant both "every day" and "no day" in the wild; neither reading is
// accepted here — single-date rules supply the weekday of that date.
func validateWeekdays(in []int, verr *ValidationError) []types.Weekday {
	if len(in) == 0 {
		verr.add("weekdays", "must name at least one weekday (Sunday=1..Saturday=7)")
		return nil
	}
	if len(in) > 7 {
		verr.add("weekdays", "at most 7 entries")
		return nil
	}

	seen := make(map[types.Weekday]struct{}, len(in))
	out := make([]types.Weekday, 0, len(in))
	for _, n := range in {
		d := types.Weekday(n)
		if !d.Valid() {
			verr.add("weekdays", "entries must be within 1..7 (Sunday=1)")
			return nil
		}
		if _, dup := seen[d]; dup {
			verr.add("weekdays", "duplicate weekday")
			return nil
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
