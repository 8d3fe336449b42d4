package agenda

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Clash reports a set of pending records colliding with a candidate.
type Clash struct {
	Kind      ConflictKind `json:"kind"`
	RecordIDs []uuid.UUID  `json:"record_ids"`
}

// DetectConflicts checks a candidate against the pending records already on
// the ledger. A booking implicitly occupies [Time, Time+slotLen). It returns
// the hard site-overlap clash (nil when absent) and the non-blocking
// duplicate-patient warning (nil when absent). Records that are not Pending,
// and the candidate itself, never conflict.
func DetectConflicts(candidate *ServiceRecord, existing []ServiceRecord, slotLen time.Duration) (overlap, duplicate *Clash, err error) {
	candStart, perr := candidate.StartsAt()
	if perr != nil {
		return nil, nil, perr
	}
	candEnd := candStart.Add(slotLen)

	var overlapIDs, duplicateIDs []uuid.UUID
	for i := range existing {
		other := &existing[i]
		if other.Status != StatusPending || other.ID == candidate.ID {
			continue
		}
		if other.Date != candidate.Date {
			continue
		}

		if other.PatientID == candidate.PatientID {
			duplicateIDs = append(duplicateIDs, other.ID)
		}

		if other.Site != candidate.Site {
			continue
		}
		otherStart, perr := other.StartsAt()
		if perr != nil {
			// A malformed pending row cannot be conflict-checked against;
			// surface it instead of silently booking over it.
			return nil, nil, fmt.Errorf("pending record %s: %w", other.ID, perr)
		}
		otherEnd := otherStart.Add(slotLen)
		if candStart.Before(otherEnd) && otherStart.Before(candEnd) {
			overlapIDs = append(overlapIDs, other.ID)
		}
	}

	if len(overlapIDs) > 0 {
		overlap = &Clash{Kind: SiteOverlap, RecordIDs: overlapIDs}
	}
	if len(duplicateIDs) > 0 {
		duplicate = &Clash{Kind: DuplicatePatient, RecordIDs: duplicateIDs}
	}
	return overlap, duplicate, nil
}
