package agenda

import (
	"fmt"
	"time"
)

// BusinessHours is the pure rule set deciding whether a candidate moment is
// schedulable. Boundary semantics follow the pharmacy's rules: open windows
// are inclusive at both the opening and the closing minute; the lunch
// closure is inclusive at its start and exclusive at its end, so 12:00 is
// rejected and 13:00 is accepted.
type BusinessHours struct {
	WeekdayOpen   minuteOfDay
	WeekdayClose  minuteOfDay
	LunchStart    minuteOfDay
	LunchEnd      minuteOfDay
	SaturdayOpen  minuteOfDay
	SaturdayClose minuteOfDay
	MinLead       time.Duration
}

// minuteOfDay counts minutes since midnight.
type minuteOfDay int

func parseMinute(s string) (minuteOfDay, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return minuteOfDay(t.Hour()*60 + t.Minute()), nil
}

func (m minuteOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// DefaultBusinessHours returns the pharmacy's standard attention windows:
// Mon-Fri 08:00-17:00 with a 12:00-13:00 lunch closure, Sat 08:00-12:00,
// Sunday closed, 2 hour minimum lead.
func DefaultBusinessHours() BusinessHours {
	return BusinessHours{
		WeekdayOpen:   8 * 60,
		WeekdayClose:  17 * 60,
		LunchStart:    12 * 60,
		LunchEnd:      13 * 60,
		SaturdayOpen:  8 * 60,
		SaturdayClose: 12 * 60,
		MinLead:       2 * time.Hour,
	}
}

// NewBusinessHours builds a rule set from HH:MM strings, as carried by the
// configuration layer.
func NewBusinessHours(weekdayOpen, weekdayClose, lunchStart, lunchEnd, saturdayOpen, saturdayClose string, minLead time.Duration) (BusinessHours, error) {
	var h BusinessHours
	var err error
	if h.WeekdayOpen, err = parseMinute(weekdayOpen); err != nil {
		return h, err
	}
	if h.WeekdayClose, err = parseMinute(weekdayClose); err != nil {
		return h, err
	}
	if h.LunchStart, err = parseMinute(lunchStart); err != nil {
		return h, err
	}
	if h.LunchEnd, err = parseMinute(lunchEnd); err != nil {
		return h, err
	}
	if h.SaturdayOpen, err = parseMinute(saturdayOpen); err != nil {
		return h, err
	}
	if h.SaturdayClose, err = parseMinute(saturdayClose); err != nil {
		return h, err
	}
	h.MinLead = minLead
	return h, nil
}

// Validate decides whether the candidate (date, clock) is schedulable
// relative to now. Rules are evaluated in order and the first failure wins.
// A nil return means the candidate is valid; a malformed date or clock is a
// *BadRequestError, every other failure is a *ValidationError carrying a
// distinct RejectionKind.
func (h BusinessHours) Validate(date, clock string, now time.Time) error {
	candidate, err := CombineLocal(date, clock)
	if err != nil {
		return &BadRequestError{
			Reason: fmt.Sprintf("invalid date/time: use YYYY-MM-DD and HH:MM (%v)", err),
		}
	}

	if candidate.Before(now) {
		return &ValidationError{
			Kind:   RejectPastDate,
			Reason: fmt.Sprintf("cannot schedule in the past; current moment is %s", now.Format("2006-01-02 15:04")),
		}
	}

	if candidate.Sub(now) < h.MinLead {
		return &ValidationError{
			Kind:   RejectInsufficientLead,
			Reason: fmt.Sprintf("services require at least %s of lead time", h.MinLead),
		}
	}

	day := candidate.Weekday()
	minute := minuteOfDay(candidate.Hour()*60 + candidate.Minute())

	switch day {
	case time.Sunday:
		return &ValidationError{
			Kind:   RejectClosedDay,
			Reason: "the pharmacy is closed on Sundays",
		}
	case time.Saturday:
		if minute < h.SaturdayOpen || minute > h.SaturdayClose {
			return &ValidationError{
				Kind:   RejectOutsideBusinessHours,
				Reason: fmt.Sprintf("Saturday hours are %s to %s", h.SaturdayOpen, h.SaturdayClose),
			}
		}
	default:
		if minute >= h.LunchStart && minute < h.LunchEnd {
			return &ValidationError{
				Kind:   RejectOutsideBusinessHours,
				Reason: fmt.Sprintf("closed for lunch between %s and %s", h.LunchStart, h.LunchEnd),
			}
		}
		if minute < h.WeekdayOpen || minute > h.WeekdayClose {
			return &ValidationError{
				Kind:   RejectOutsideBusinessHours,
				Reason: fmt.Sprintf("weekday hours are %s to %s", h.WeekdayOpen, h.WeekdayClose),
			}
		}
	}

	return nil
}
