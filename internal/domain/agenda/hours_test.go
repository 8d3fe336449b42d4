package agenda

import (
	"errors"
	"testing"
	"time"
)

// fixedNow is Monday 2026-03-02 08:00 local. The surrounding week:
// Fri 2026-03-06, Sat 2026-03-07, Sun 2026-03-08.
var fixedNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.Local)

func TestBusinessHoursValidate(t *testing.T) {
	hours := DefaultBusinessHours()

	tests := []struct {
		name string
		date string
		time string
		kind RejectionKind // "" means valid
	}{
		{"weekday afternoon", "2026-03-02", "15:00", ""},
		{"weekday opening minute", "2026-03-03", "08:00", ""},
		{"weekday closing minute", "2026-03-03", "17:00", ""},
		{"weekday before opening", "2026-03-03", "07:59", RejectOutsideBusinessHours},
		{"weekday after closing", "2026-03-03", "17:01", RejectOutsideBusinessHours},
		{"friday lunch start rejected", "2026-03-06", "12:00", RejectOutsideBusinessHours},
		{"friday mid lunch", "2026-03-06", "12:59", RejectOutsideBusinessHours},
		{"friday lunch end accepted", "2026-03-06", "13:00", ""},
		{"saturday opening minute", "2026-03-07", "08:00", ""},
		{"saturday closing minute", "2026-03-07", "12:00", ""},
		{"saturday after closing", "2026-03-07", "12:01", RejectOutsideBusinessHours},
		{"saturday before opening", "2026-03-07", "07:59", RejectOutsideBusinessHours},
		{"sunday", "2026-03-08", "10:00", RejectClosedDay},
		{"in the past", "2026-03-02", "07:00", RejectPastDate},
		{"under minimum lead", "2026-03-02", "09:30", RejectInsufficientLead},
		{"exactly minimum lead", "2026-03-02", "10:00", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := hours.Validate(tt.date, tt.time, fixedNow)
			if tt.kind == "" {
				if err != nil {
					t.Fatalf("Validate(%s %s) = %v, want nil", tt.date, tt.time, err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate(%s %s) = %v, want *ValidationError", tt.date, tt.time, err)
			}
			if verr.Kind != tt.kind {
				t.Errorf("rejection kind = %s, want %s", verr.Kind, tt.kind)
			}
		})
	}
}

func TestValidateMalformedInput(t *testing.T) {
	hours := DefaultBusinessHours()

	// A date or clock that cannot be parsed is a malformed request, not a
	// business-rule rejection.
	for _, tt := range []struct {
		name, date, time string
	}{
		{"slashed date", "03/02/2026", "10:00"},
		{"clock with seconds", "2026-03-02", "10:00:00"},
		{"empty date", "", "10:00"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			err := hours.Validate(tt.date, tt.time, fixedNow)
			var berr *BadRequestError
			if !errors.As(err, &berr) {
				t.Fatalf("Validate(%q %q) = %v, want *BadRequestError", tt.date, tt.time, err)
			}
		})
	}
}

func TestNewBusinessHours(t *testing.T) {
	h, err := NewBusinessHours("09:00", "18:00", "13:00", "14:00", "09:00", "13:00", time.Hour)
	if err != nil {
		t.Fatalf("NewBusinessHours: %v", err)
	}
	now := time.Date(2026, 3, 2, 7, 0, 0, 0, time.Local)

	if err := h.Validate("2026-03-02", "13:30", now); err == nil {
		t.Error("13:30 falls in the custom lunch closure, want rejection")
	}
	if err := h.Validate("2026-03-02", "14:00", now); err != nil {
		t.Errorf("14:00 is the custom lunch end, want valid, got %v", err)
	}

	if _, err := NewBusinessHours("9am", "18:00", "13:00", "14:00", "09:00", "13:00", time.Hour); err == nil {
		t.Error("malformed opening time accepted")
	}
}
