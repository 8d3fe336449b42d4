// End-to-end scheduling flow over a real workbook ledger: book, query,
// conflict, cancel, and reopen the file between steps.
package integration

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vitalfarma/agenda/internal/domain/agenda"
	"github.com/vitalfarma/agenda/internal/platform/ledger"
)

// Monday 2026-03-02 08:00 local; bookings target Thursday the 5th.
var clock = time.Date(2026, 3, 2, 8, 0, 0, 0, time.Local)

func newAgenda(t *testing.T, path string) (*agenda.Service, *ledger.Store) {
	t.Helper()
	store, err := ledger.Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	store.SetClock(func() time.Time { return clock })
	svc := agenda.NewService(store, agenda.DefaultBusinessHours(), zerolog.Nop(),
		agenda.WithClock(func() time.Time { return clock }))
	return svc, store
}

func TestSchedulingFlow(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "agenda.xlsx")
	svc, _ := newAgenda(t, path)

	req := agenda.ScheduleRequest{
		PatientID:   "1234567890",
		PatientName: "Juan Pérez",
		Medication:  "Insulina",
		ServiceType: "domicilio",
		Site:        "Sede Norte",
		Date:        "2026-03-05",
		Time:        "15:00",
	}

	result, err := svc.Schedule(ctx, &req)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	id := result.Record.ID

	t.Run("SameSlotConflicts", func(t *testing.T) {
		again := req
		again.PatientID = "0987654321"
		again.PatientName = "Laura Torres"
		_, err := svc.Schedule(ctx, &again)
		var cerr *agenda.ConflictError
		if !errors.As(err, &cerr) || cerr.Kind != agenda.SiteOverlap {
			t.Fatalf("Schedule = %v, want site overlap", err)
		}
	})

	t.Run("QueryWithoutAccents", func(t *testing.T) {
		seq, err := svc.Query(ctx, agenda.Filter{PatientName: "juan perez"})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		got := agenda.Collect(seq)
		if len(got) != 1 || got[0].ID != id {
			t.Fatalf("query = %+v", got)
		}
	})

	t.Run("SurvivesReopen", func(t *testing.T) {
		svc2, _ := newAgenda(t, path)
		rec, err := svc2.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get after reopen: %v", err)
		}
		if rec.PatientName != "Juan Pérez" || rec.Status != agenda.StatusPending {
			t.Fatalf("record = %+v", rec)
		}
	})

	t.Run("CancelAndHide", func(t *testing.T) {
		report, err := svc.CancelServices(ctx, agenda.Filter{PatientID: "1234567890"})
		if err != nil {
			t.Fatalf("CancelServices: %v", err)
		}
		if report.Cancelled != 1 {
			t.Fatalf("cancelled = %d, want 1", report.Cancelled)
		}

		// The cancelled delivery no longer shows in default queries.
		seq, err := svc.Query(ctx, agenda.Filter{PatientName: "juan"})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if got := agenda.Collect(seq); len(got) != 0 {
			t.Fatalf("cancelled record resurfaced: %+v", got)
		}

		// And the slot is free again.
		again := req
		again.PatientID = "0987654321"
		again.PatientName = "Laura Torres"
		if _, err := svc.Schedule(ctx, &again); err != nil {
			t.Fatalf("rebooking freed slot: %v", err)
		}
	})
}

func TestStatusFlowAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "agenda.xlsx")
	svc, _ := newAgenda(t, path)

	req := agenda.ScheduleRequest{
		PatientID:   "1234567890",
		PatientName: "María Rodríguez",
		Medication:  "Metformina",
		ServiceType: "domicilio",
		Site:        "Sede Sur",
		Date:        "2026-03-05",
		Time:        "10:00",
	}
	result, err := svc.Schedule(ctx, &req)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	if _, err := svc.UpdateStatus(ctx, result.Record.ID, agenda.StatusDelivered, false); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	svc2, _ := newAgenda(t, path)
	rec, err := svc2.Get(ctx, result.Record.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Status != agenda.StatusDelivered {
		t.Fatalf("status = %s, want %s", rec.Status, agenda.StatusDelivered)
	}

	// Terminal states stay terminal through a fresh process.
	_, err = svc2.UpdateStatus(ctx, rec.ID, agenda.StatusCancelled, false)
	var terr *agenda.TransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("UpdateStatus = %v, want *TransitionError", err)
	}
}
