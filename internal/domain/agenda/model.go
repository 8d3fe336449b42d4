// Package agenda implements the scheduling core for pharmacy deliveries and
// in-person appointments: business-hours validation, conflict detection,
// filterable queries, and the facade that orchestrates them over the ledger.
package agenda

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ServiceType identifies how the patient is attended.
type ServiceType string

const (
	HomeDelivery        ServiceType = "Entrega Domicilio"
	InPersonAppointment ServiceType = "Cita Presencial"
)

// ParseServiceType normalizes common user phrasings to a canonical type.
func ParseServiceType(s string) (ServiceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "domicilio", "entrega domicilio", "entrega a domicilio":
		return HomeDelivery, nil
	case "presencial", "cita presencial", "cita":
		return InPersonAppointment, nil
	}
	return "", fmt.Errorf("unknown service type: %q", s)
}

// Valid reports whether t is one of the canonical service types.
func (t ServiceType) Valid() bool {
	return t == HomeDelivery || t == InPersonAppointment
}

// Status is the lifecycle state of a service record. Pending is initial;
// Delivered and Cancelled are terminal.
type Status string

const (
	StatusPending   Status = "Pendiente"
	StatusDelivered Status = "Entregado"
	StatusCancelled Status = "Cancelado"
)

// ParseStatus maps a stored or requested status string to a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.TrimSpace(s)) {
	case StatusPending:
		return StatusPending, nil
	case StatusDelivered:
		return StatusDelivered, nil
	case StatusCancelled:
		return StatusCancelled, nil
	}
	return "", fmt.Errorf("unknown status: %q", s)
}

// Valid reports whether st is a known status.
func (st Status) Valid() bool {
	return st == StatusPending || st == StatusDelivered || st == StatusCancelled
}

// Terminal reports whether no forward transition leaves st.
func (st Status) Terminal() bool {
	return st == StatusDelivered || st == StatusCancelled
}

// CanTransitionTo reports whether the st -> next transition is legal without
// an administrative override. Only Pending moves forward; nothing re-enters
// Pending.
func (st Status) CanTransitionTo(next Status) bool {
	return st == StatusPending && (next == StatusDelivered || next == StatusCancelled)
}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var timeRe = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)

// ValidDate reports whether s is a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := time.ParseInLocation(DateLayout, s, time.Local)
	return err == nil
}

// ValidTime reports whether s is a HH:MM 24-hour clock time.
func ValidTime(s string) bool {
	return timeRe.MatchString(s)
}

// ServiceRecord is a single scheduled delivery or appointment.
type ServiceRecord struct {
	ID          uuid.UUID   `json:"id"`
	PatientID   string      `json:"patient_id"`
	PatientName string      `json:"patient_name"`
	Medication  string      `json:"medication,omitempty"`
	ServiceType ServiceType `json:"service_type"`
	Site        string      `json:"site"`
	Date        string      `json:"date"` // YYYY-MM-DD, local calendar date
	Time        string      `json:"time"` // HH:MM, minute resolution
	Status      Status      `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// StartsAt combines Date and Time into a local time.Time.
func (r *ServiceRecord) StartsAt() (time.Time, error) {
	return CombineLocal(r.Date, r.Time)
}

// CombineLocal parses a YYYY-MM-DD date and HH:MM time into a local moment.
func CombineLocal(date, clock string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+clock, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date/time %q %q: %w", date, clock, err)
	}
	return t, nil
}

// ScheduleRequest is the structured input the external agent hands the
// facade after intent parsing.
type ScheduleRequest struct {
	PatientID   string `json:"patient_id"`
	PatientName string `json:"patient_name"`
	Medication  string `json:"medication,omitempty"`
	ServiceType string `json:"service_type"`
	Site        string `json:"site"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

// Normalize validates field shapes and resolves the service type. It returns
// the canonical record fields or a field-level error.
func (req *ScheduleRequest) Normalize() (*ServiceRecord, error) {
	if n := len(strings.TrimSpace(req.PatientID)); n < 5 || n > 20 {
		return nil, fmt.Errorf("patient_id must be 5-20 characters, got %d", n)
	}
	if n := len(strings.TrimSpace(req.PatientName)); n < 2 || n > 100 {
		return nil, fmt.Errorf("patient_name must be 2-100 characters, got %d", n)
	}
	if n := len(strings.TrimSpace(req.Site)); n < 2 || n > 100 {
		return nil, fmt.Errorf("site must be 2-100 characters, got %d", n)
	}
	st, err := ParseServiceType(req.ServiceType)
	if err != nil {
		return nil, err
	}
	// A delivery always carries its medication; an appointment may not.
	if st == HomeDelivery && strings.TrimSpace(req.Medication) == "" {
		return nil, fmt.Errorf("medication is required for home deliveries")
	}
	if !ValidDate(req.Date) {
		return nil, fmt.Errorf("date must be YYYY-MM-DD, got %q", req.Date)
	}
	if !ValidTime(req.Time) {
		return nil, fmt.Errorf("time must be HH:MM (24h), got %q", req.Time)
	}
	clock, err := time.Parse(TimeLayout, req.Time)
	if err != nil {
		return nil, fmt.Errorf("time must be HH:MM (24h), got %q", req.Time)
	}
	return &ServiceRecord{
		PatientID:   strings.TrimSpace(req.PatientID),
		PatientName: strings.TrimSpace(req.PatientName),
		Medication:  strings.TrimSpace(req.Medication),
		ServiceType: st,
		Site:        strings.TrimSpace(req.Site),
		Date:        req.Date,
		Time:        clock.Format(TimeLayout), // re-pad "8:30" to "08:30"
		Status:      StatusPending,
	}, nil
}
