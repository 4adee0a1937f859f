package service_test

import (
	"errors"
	"testing"

	"github.com/portier-acs/portier/server/internal/portier/service"
	"github.com/portier-acs/portier/server/internal/portier/types"
)

func validInput() service.RuleInput {
	return service.RuleInput{
		UserID:    7,
		ScannerID: 3,
		TimeStart: "09:00:00",
		TimeEnd:   "17:00:00",
		ValidFrom: "2024-01-01",
		ValidTo:   "2024-12-31",
		Weekdays:  []int{2, 3, 4, 5, 6},
	}
}

func fieldError(t *testing.T, err error, field string) string {
	t.Helper()
	var verr *service.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	msg, ok := verr.Fields[field]
	if !ok {
		t.Fatalf("expected error on field %q, got fields %v", field, verr.Fields)
	}
	return msg
}

func TestValidator_AcceptsValidInput(t *testing.T) {
	v := service.Validator{RequireStrictTimeOrder: true}

	rule, err := v.Validate(validInput())
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if rule.UserID != 7 || rule.ScannerID != 3 {
		t.Errorf("ids not carried over: %+v", rule)
	}
	if rule.TimeStart.String() != "09:00:00" || rule.TimeEnd.String() != "17:00:00" {
		t.Errorf("times not carried over: %+v", rule)
	}
	if len(rule.Weekdays) != 5 || rule.Weekdays[0] != types.Monday {
		t.Errorf("weekdays not carried over: %v", rule.Weekdays)
	}
}

func TestValidator_TimeOrderStrictness(t *testing.T) {
	in := validInput()
	in.TimeStart = "12:00:00"
	in.TimeEnd = "12:00:00"

	strict := service.Validator{RequireStrictTimeOrder: true}
	if _, err := strict.Validate(in); err == nil {
		t.Error("strict: equal start and end must be rejected")
	} else {
		fieldError(t, err, "time_end")
	}

	lenient := service.Validator{RequireStrictTimeOrder: false}
	if _, err := lenient.Validate(in); err != nil {
		t.Errorf("lenient: equal start and end must be accepted: %v", err)
	}

	// Reversed order is rejected by both.
	in.TimeEnd = "11:00:00"
	if _, err := strict.Validate(in); err == nil {
		t.Error("strict: end before start must be rejected")
	}
	if _, err := lenient.Validate(in); err == nil {
		t.Error("lenient: end before start must be rejected")
	}
}

func TestValidator_FieldErrors(t *testing.T) {
	v := service.Validator{RequireStrictTimeOrder: true}

	cases := []struct {
		name   string
		mutate func(*service.RuleInput)
		field  string
	}{
		{"zero user id", func(in *service.RuleInput) { in.UserID = 0 }, "user_id"},
		{"negative scanner id", func(in *service.RuleInput) { in.ScannerID = -1 }, "scanner_id"},
		{"bad start time", func(in *service.RuleInput) { in.TimeStart = "9am" }, "time_start"},
		{"bad end time", func(in *service.RuleInput) { in.TimeEnd = "25:00:00" }, "time_end"},
		{"bad from date", func(in *service.RuleInput) { in.ValidFrom = "01/01/2024" }, "valid_from"},
		{"bad to date", func(in *service.RuleInput) { in.ValidTo = "2024-02-30" }, "valid_to"},
		{"to before from", func(in *service.RuleInput) { in.ValidFrom = "2024-12-31"; in.ValidTo = "2024-01-01" }, "valid_to"},
		{"empty weekdays", func(in *service.RuleInput) { in.Weekdays = nil }, "weekdays"},
		{"weekday zero", func(in *service.RuleInput) { in.Weekdays = []int{0} }, "weekdays"},
		{"weekday eight", func(in *service.RuleInput) { in.Weekdays = []int{8} }, "weekdays"},
		{"duplicate weekday", func(in *service.RuleInput) { in.Weekdays = []int{2, 2} }, "weekdays"},
		{"too many weekdays", func(in *service.RuleInput) { in.Weekdays = []int{1, 2, 3, 4, 5, 6, 7, 1} }, "weekdays"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			in := validInput()
			c.mutate(&in)
			_, err := v.Validate(in)
			if err == nil {
				t.Fatal("expected validation error")
			}
			fieldError(t, err, c.field)
		})
	}
}

func TestValidator_CollectsMultipleFields(t *testing.T) {
	v := service.Validator{RequireStrictTimeOrder: true}

	in := validInput()
	in.UserID = 0
	in.TimeStart = "bad"
	in.Weekdays = nil

	_, err := v.Validate(in)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr *service.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	for _, field := range []string{"user_id", "time_start", "weekdays"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("missing field %q in %v", field, verr.Fields)
		}
	}
}
