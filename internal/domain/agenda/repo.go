package agenda

import (
	"context"

	"github.com/google/uuid"
)

// LedgerRepository is the durable store of service records. Implementations
// must apply every mutating call atomically: concurrent readers observe the
// ledger either before or after a commit, never mid-write, and a crash
// during a commit leaves the previous ledger state intact.
type LedgerRepository interface {
	// Append persists a new record, filling CreatedAt/UpdatedAt. When
	// precheck is non-nil it runs against the freshly read ledger inside the
	// same critical section as the commit; a precheck error aborts the append
	// and leaves the ledger untouched. Conflict detection must happen here —
	// a check against an earlier snapshot can race a concurrent append.
	Append(ctx context.Context, r *ServiceRecord, precheck func([]ServiceRecord) error) error
	// Update applies mutate to the record with the given id and commits the
	// result. Returns ErrRecordNotFound for unknown ids; if mutate returns
	// an error the ledger is left untouched and that error is propagated.
	Update(ctx context.Context, id uuid.UUID, mutate func(*ServiceRecord) error) (*ServiceRecord, error)
	// UpdateWhere applies mutate to every record matching the predicate in a
	// single commit and returns the affected records.
	UpdateWhere(ctx context.Context, match func(*ServiceRecord) bool, mutate func(*ServiceRecord) error) ([]ServiceRecord, error)
	// DeleteWhere physically removes matching records in a single commit and
	// returns how many were removed.
	DeleteWhere(ctx context.Context, match func(*ServiceRecord) bool) (int, error)
	// ListAll returns a point-in-time snapshot of every record.
	ListAll(ctx context.Context) ([]ServiceRecord, error)
	// LoadByID returns the record with the given id or ErrRecordNotFound.
	LoadByID(ctx context.Context, id uuid.UUID) (*ServiceRecord, error)
}
