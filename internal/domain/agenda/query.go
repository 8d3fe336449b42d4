package agenda

import (
	"iter"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/vitalfarma/agenda/pkg/textnorm"
)

// Filter selects service records. Zero-valued fields are ignored; set fields
// compose conjunctively. Name and medication filters are substring matches,
// insensitive to case and accents. Unless a Status is given or
// IncludeCancelled is set, cancelled records are excluded — a search for "my
// deliveries" should not resurface what was called off.
type Filter struct {
	ID               *uuid.UUID
	PatientID        string
	PatientName      string
	Medication       string
	Site             string
	Date             string // exact YYYY-MM-DD
	DateFrom         string // inclusive range start
	DateTo           string // inclusive range end
	Status           Status
	IncludeCancelled bool
}

// Empty reports whether the filter matches unconditionally (no field set).
func (f Filter) Empty() bool {
	return f.ID == nil && f.PatientID == "" && f.PatientName == "" &&
		f.Medication == "" && f.Site == "" && f.Date == "" &&
		f.DateFrom == "" && f.DateTo == "" && f.Status == ""
}

// Matches reports whether r satisfies every set predicate.
func (f Filter) Matches(r *ServiceRecord) bool {
	if f.ID != nil && r.ID != *f.ID {
		return false
	}
	if f.PatientID != "" && r.PatientID != f.PatientID {
		return false
	}
	if f.PatientName != "" && !textnorm.ContainsFold(r.PatientName, f.PatientName) {
		return false
	}
	if f.Medication != "" && !textnorm.ContainsFold(r.Medication, f.Medication) {
		return false
	}
	if f.Site != "" && !strings.EqualFold(r.Site, f.Site) {
		return false
	}
	if f.Date != "" && r.Date != f.Date {
		return false
	}
	// ISO dates compare correctly as strings.
	if f.DateFrom != "" && r.Date < f.DateFrom {
		return false
	}
	if f.DateTo != "" && r.Date > f.DateTo {
		return false
	}
	if f.Status != "" {
		if r.Status != f.Status {
			return false
		}
	} else if !f.IncludeCancelled && r.Status == StatusCancelled {
		return false
	}
	return true
}

// Find returns a restartable sequence of the records matching f, ordered by
// (date, time) ascending and stable with respect to the snapshot order for
// ties. The snapshot is not mutated; callers may range over the result any
// number of times.
func Find(snapshot []ServiceRecord, f Filter) iter.Seq[ServiceRecord] {
	matched := make([]ServiceRecord, 0, len(snapshot))
	for i := range snapshot {
		if f.Matches(&snapshot[i]) {
			matched = append(matched, snapshot[i])
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Date != matched[j].Date {
			return matched[i].Date < matched[j].Date
		}
		return matched[i].Time < matched[j].Time
	})
	return func(yield func(ServiceRecord) bool) {
		for _, r := range matched {
			if !yield(r) {
				return
			}
		}
	}
}

// Collect materializes a sequence into a slice.
func Collect(seq iter.Seq[ServiceRecord]) []ServiceRecord {
	var out []ServiceRecord
	for r := range seq {
		out = append(out, r)
	}
	return out
}
