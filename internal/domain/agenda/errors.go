package agenda

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel store errors. The ledger implementation wraps these so callers
// can classify failures with errors.Is.
var (
	ErrRecordNotFound   = errors.New("service record not found")
	ErrStoreUnavailable = errors.New("ledger unavailable")
)

// RejectionKind names the specific business-hours rule a candidate violated.
type RejectionKind string

const (
	RejectPastDate             RejectionKind = "past_date"
	RejectInsufficientLead     RejectionKind = "insufficient_lead"
	RejectOutsideBusinessHours RejectionKind = "outside_business_hours"
	RejectClosedDay            RejectionKind = "closed_day"
)

// ValidationError is a recoverable rejection from the business-hours
// validator. Reason is safe to show to the end user.
type ValidationError struct {
	Kind   RejectionKind
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Kind, e.Reason)
}

// BadRequestError rejects a request whose fields are malformed before any
// business rule runs (bad date format, unknown service type, ...).
type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string { return e.Reason }

// ConflictKind names the class of booking collision.
type ConflictKind string

const (
	// SiteOverlap is a hard rejection: another pending booking occupies an
	// intersecting slot at the same site on the same date.
	SiteOverlap ConflictKind = "site_overlap"
	// DuplicatePatient is a warning: the patient already has a pending
	// booking that day, possibly at another site.
	DuplicatePatient ConflictKind = "duplicate_patient"
)

// ConflictError reports colliding pending bookings.
type ConflictError struct {
	Kind      ConflictKind
	RecordIDs []uuid.UUID
	Reason    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict (%s): %s", e.Kind, e.Reason)
}

// TransitionError rejects an illegal status change.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}

// SchemaError reports persisted data that fails to parse into the record
// shape. Row is 1-based and includes the header row, matching what a user
// sees when opening the workbook.
type SchemaError struct {
	Row   int
	Cause error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("ledger row %d violates schema: %v", e.Row, e.Cause)
}

func (e *SchemaError) Unwrap() error { return e.Cause }
