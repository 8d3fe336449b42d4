package agenda

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Recorder receives structured domain events (created, cancelled, rejected,
// ...). The platform telemetry package provides the production
// implementation; tests inject their own.
type Recorder interface {
	Emit(event string, fields map[string]interface{})
}

type nopRecorder struct{}

func (nopRecorder) Emit(string, map[string]interface{}) {}

// Service is the scheduling facade: it runs validation, conflict detection
// and persistence for every mutating request, and delegates reads to the
// query engine over a store snapshot.
type Service struct {
	ledger  LedgerRepository
	hours   BusinessHours
	slotLen time.Duration
	now     func() time.Time
	log     zerolog.Logger
	events  Recorder
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the wall clock, fixing "now" for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRecorder installs the observability hook.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.events = r }
}

// WithSlotLength overrides the implicit booking duration used for conflict
// detection.
func WithSlotLength(d time.Duration) Option {
	return func(s *Service) { s.slotLen = d }
}

func NewService(ledger LedgerRepository, hours BusinessHours, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		ledger:  ledger,
		hours:   hours,
		slotLen: 30 * time.Minute,
		now:     time.Now,
		log:     log,
		events:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScheduleResult is the outcome of a successful Schedule call. Warnings
// carries non-blocking clashes (duplicate patient bookings) the caller may
// want the end user to confirm.
type ScheduleResult struct {
	Record   *ServiceRecord `json:"record"`
	Warnings []Clash        `json:"warnings,omitempty"`
}

// Schedule validates the request, checks conflicts against pending bookings,
// and appends the record. Business-hours failures and site overlaps abort
// with the specific rejection; a duplicate-patient clash is reported as a
// warning next to the created record. The conflict check runs inside the
// ledger's append critical section, so two concurrent calls for the same
// slot cannot both pass it.
func (s *Service) Schedule(ctx context.Context, req *ScheduleRequest) (*ScheduleResult, error) {
	rec, err := req.Normalize()
	if err != nil {
		return nil, &BadRequestError{Reason: err.Error()}
	}

	if err := s.hours.Validate(rec.Date, rec.Time, s.now()); err != nil {
		s.reject(rec, err)
		return nil, err
	}

	var warnings []Clash
	err = s.ledger.Append(ctx, rec, func(existing []ServiceRecord) error {
		overlap, duplicate, derr := DetectConflicts(rec, existing, s.slotLen)
		if derr != nil {
			return derr
		}
		if overlap != nil {
			return &ConflictError{
				Kind:      SiteOverlap,
				RecordIDs: overlap.RecordIDs,
				Reason:    fmt.Sprintf("site %s already has a pending booking around %s %s", rec.Site, rec.Date, rec.Time),
			}
		}
		if duplicate != nil {
			warnings = append(warnings, *duplicate)
		}
		return nil
	})
	if err != nil {
		var cerr *ConflictError
		if errors.As(err, &cerr) {
			s.reject(rec, cerr)
		}
		return nil, err
	}

	result := &ScheduleResult{Record: rec, Warnings: warnings}

	s.log.Info().
		Str("record_id", rec.ID.String()).
		Str("patient_id", rec.PatientID).
		Str("site", rec.Site).
		Str("date", rec.Date).
		Str("time", rec.Time).
		Int("warnings", len(result.Warnings)).
		Msg("service scheduled")
	s.events.Emit("service.scheduled", map[string]interface{}{
		"record_id": rec.ID.String(),
		"type":      string(rec.ServiceType),
		"site":      rec.Site,
	})
	return result, nil
}

// UpdateStatus moves a record to newStatus. Illegal transitions return a
// *TransitionError; force permits the administrative overwrite of a terminal
// status.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus Status, force bool) (*ServiceRecord, error) {
	if !newStatus.Valid() {
		return nil, &BadRequestError{Reason: fmt.Sprintf("unknown status: %q", newStatus)}
	}
	rec, err := s.ledger.Update(ctx, id, func(r *ServiceRecord) error {
		if !r.Status.CanTransitionTo(newStatus) && !force {
			return &TransitionError{From: r.Status, To: newStatus}
		}
		r.Status = newStatus
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("record_id", id.String()).
		Str("status", string(newStatus)).
		Bool("force", force).
		Msg("status updated")
	s.events.Emit("service.status_updated", map[string]interface{}{
		"record_id": id.String(),
		"status":    string(newStatus),
	})
	return rec, nil
}

// CancelReport summarizes a bulk cancellation.
type CancelReport struct {
	Cancelled int         `json:"cancelled"`
	RecordIDs []uuid.UUID `json:"record_ids"`
}

// CancelServices transitions every pending record matching the filter to
// Cancelled in a single ledger commit and reports what was affected.
// Cancelling zero records is not an error.
func (s *Service) CancelServices(ctx context.Context, f Filter) (*CancelReport, error) {
	affected, err := s.ledger.UpdateWhere(ctx,
		func(r *ServiceRecord) bool {
			return r.Status == StatusPending && f.Matches(r)
		},
		func(r *ServiceRecord) error {
			r.Status = StatusCancelled
			return nil
		})
	if err != nil {
		return nil, err
	}
	report := &CancelReport{Cancelled: len(affected)}
	for i := range affected {
		report.RecordIDs = append(report.RecordIDs, affected[i].ID)
	}
	s.log.Info().Int("cancelled", report.Cancelled).Msg("bulk cancellation")
	s.events.Emit("service.bulk_cancelled", map[string]interface{}{
		"count": report.Cancelled,
	})
	return report, nil
}

// DeleteServices physically removes matching records from the ledger. This
// is the audit-worthy hard delete, distinct from cancellation; an empty
// filter is refused so a caller cannot wipe the agenda by accident.
func (s *Service) DeleteServices(ctx context.Context, f Filter) (int, error) {
	if f.Empty() {
		return 0, &BadRequestError{Reason: "refusing to delete with an empty filter"}
	}
	f.IncludeCancelled = true
	deleted, err := s.ledger.DeleteWhere(ctx, func(r *ServiceRecord) bool {
		return f.Matches(r)
	})
	if err != nil {
		return 0, err
	}
	s.log.Warn().Int("deleted", deleted).Msg("records hard-deleted")
	s.events.Emit("service.deleted", map[string]interface{}{"count": deleted})
	return deleted, nil
}

// Query returns the matching records as a restartable, ordered sequence over
// a point-in-time snapshot of the ledger.
func (s *Service) Query(ctx context.Context, f Filter) (iter.Seq[ServiceRecord], error) {
	snapshot, err := s.ledger.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return Find(snapshot, f), nil
}

// Get loads a single record by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ServiceRecord, error) {
	return s.ledger.LoadByID(ctx, id)
}

func (s *Service) reject(rec *ServiceRecord, cause error) {
	s.log.Info().
		Str("patient_id", rec.PatientID).
		Str("date", rec.Date).
		Str("time", rec.Time).
		Err(cause).
		Msg("schedule request rejected")
	s.events.Emit("service.rejected", map[string]interface{}{
		"patient_id": rec.PatientID,
		"reason":     cause.Error(),
	})
}
