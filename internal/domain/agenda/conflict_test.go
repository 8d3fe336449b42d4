package agenda

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func pendingRecord(patientID, site, date, clock string) ServiceRecord {
	return ServiceRecord{
		ID:          uuid.New(),
		PatientID:   patientID,
		PatientName: "Paciente",
		ServiceType: HomeDelivery,
		Medication:  "Insulina",
		Site:        site,
		Date:        date,
		Time:        clock,
		Status:      StatusPending,
	}
}

func TestDetectConflictsSiteOverlap(t *testing.T) {
	slot := 30 * time.Minute
	candidate := pendingRecord("1234567890", "Sede Norte", "2026-03-05", "10:00")

	tests := []struct {
		name    string
		other   ServiceRecord
		overlap bool
	}{
		{"same slot", pendingRecord("0000011111", "Sede Norte", "2026-03-05", "10:00"), true},
		{"overlapping from before", pendingRecord("0000011111", "Sede Norte", "2026-03-05", "09:45"), true},
		{"overlapping from after", pendingRecord("0000011111", "Sede Norte", "2026-03-05", "10:15"), true},
		{"touching before", pendingRecord("0000011111", "Sede Norte", "2026-03-05", "09:30"), false},
		{"touching after", pendingRecord("0000011111", "Sede Norte", "2026-03-05", "10:30"), false},
		{"other site", pendingRecord("0000011111", "Sede Sur", "2026-03-05", "10:00"), false},
		{"other date", pendingRecord("0000011111", "Sede Norte", "2026-03-06", "10:00"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			overlap, _, err := DetectConflicts(&candidate, []ServiceRecord{tt.other}, slot)
			if err != nil {
				t.Fatalf("DetectConflicts: %v", err)
			}
			if got := overlap != nil; got != tt.overlap {
				t.Errorf("overlap = %v, want %v", got, tt.overlap)
			}
			if overlap != nil {
				if overlap.Kind != SiteOverlap {
					t.Errorf("kind = %s, want %s", overlap.Kind, SiteOverlap)
				}
				if len(overlap.RecordIDs) != 1 || overlap.RecordIDs[0] != tt.other.ID {
					t.Errorf("RecordIDs = %v, want [%s]", overlap.RecordIDs, tt.other.ID)
				}
			}
		})
	}
}

func TestDetectConflictsDuplicatePatient(t *testing.T) {
	slot := 30 * time.Minute
	candidate := pendingRecord("1234567890", "Sede Norte", "2026-03-05", "10:00")

	// Same patient across sites on the same day is a warning, not a block.
	other := pendingRecord("1234567890", "Sede Sur", "2026-03-05", "15:00")
	overlap, duplicate, err := DetectConflicts(&candidate, []ServiceRecord{other}, slot)
	if err != nil {
		t.Fatalf("DetectConflicts: %v", err)
	}
	if overlap != nil {
		t.Errorf("unexpected overlap: %+v", overlap)
	}
	if duplicate == nil {
		t.Fatal("want duplicate-patient clash, got none")
	}
	if duplicate.Kind != DuplicatePatient {
		t.Errorf("kind = %s, want %s", duplicate.Kind, DuplicatePatient)
	}
	if len(duplicate.RecordIDs) != 1 || duplicate.RecordIDs[0] != other.ID {
		t.Errorf("RecordIDs = %v, want [%s]", duplicate.RecordIDs, other.ID)
	}

	// A different day is not a duplicate.
	other.Date = "2026-03-06"
	if _, duplicate, _ = DetectConflicts(&candidate, []ServiceRecord{other}, slot); duplicate != nil {
		t.Errorf("duplicate across dates: %+v", duplicate)
	}
}

func TestDetectConflictsIgnoresSettled(t *testing.T) {
	slot := 30 * time.Minute
	candidate := pendingRecord("1234567890", "Sede Norte", "2026-03-05", "10:00")

	delivered := pendingRecord("1234567890", "Sede Norte", "2026-03-05", "10:00")
	delivered.Status = StatusDelivered
	cancelled := pendingRecord("1234567890", "Sede Norte", "2026-03-05", "10:00")
	cancelled.Status = StatusCancelled

	overlap, duplicate, err := DetectConflicts(&candidate, []ServiceRecord{delivered, cancelled}, slot)
	if err != nil {
		t.Fatalf("DetectConflicts: %v", err)
	}
	if overlap != nil || duplicate != nil {
		t.Errorf("settled records conflicted: overlap=%+v duplicate=%+v", overlap, duplicate)
	}
}

func TestDetectConflictsSkipsSelf(t *testing.T) {
	candidate := pendingRecord("1234567890", "Sede Norte", "2026-03-05", "10:00")
	overlap, duplicate, err := DetectConflicts(&candidate, []ServiceRecord{candidate}, 30*time.Minute)
	if err != nil {
		t.Fatalf("DetectConflicts: %v", err)
	}
	if overlap != nil || duplicate != nil {
		t.Error("record conflicted with itself")
	}
}

func TestDetectConflictsMalformedPendingRow(t *testing.T) {
	candidate := pendingRecord("1234567890", "Sede Norte", "2026-03-05", "10:00")
	broken := pendingRecord("0000011111", "Sede Norte", "2026-03-05", "25:99")
	if _, _, err := DetectConflicts(&candidate, []ServiceRecord{broken}, 30*time.Minute); err == nil {
		t.Error("malformed pending row did not surface an error")
	}
}
