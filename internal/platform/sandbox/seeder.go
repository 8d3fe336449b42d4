// Package sandbox populates an empty ledger with synthetic service records
// for demos and local development. Seeding is idempotent: a ledger that
// already holds data is left alone.
package sandbox

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vitalfarma/agenda/internal/domain/agenda"
)

// seedEntry is one synthetic booking, dated relative to the seeding moment.
type seedEntry struct {
	patientID  string
	name       string
	medication string
	svcType    agenda.ServiceType
	site       string
	dayOffset  int
	clock      string
	status     agenda.Status
}

// baseData mixes future pending work with past settled and cancelled records
// so queries, conflict checks and status reports all have something to show.
var baseData = []seedEntry{
	{"101202564", "Reinaldo González", "Losartan", agenda.HomeDelivery, "Sur", 2, "14:00", agenda.StatusPending},
	{"523456789", "María Rodríguez", "Insulina", agenda.HomeDelivery, "Norte", 1, "10:00", agenda.StatusPending},
	{"789123456", "Carlos Méndez", "Metformina", agenda.InPersonAppointment, "Centro", 3, "15:30", agenda.StatusPending},
	{"456789123", "Ana López", "Atorvastatina", agenda.HomeDelivery, "Sur", -2, "11:00", agenda.StatusDelivered},
	{"321654987", "Pedro Sánchez", "Omeprazol", agenda.HomeDelivery, "Norte", -5, "09:00", agenda.StatusDelivered},
	{"654321987", "Laura Torres", "Adalimumab", agenda.InPersonAppointment, "Centro", 4, "16:00", agenda.StatusPending},
	{"987654321", "Roberto Jiménez", "Amlodipino", agenda.HomeDelivery, "Sur", 5, "13:00", agenda.StatusPending},
	{"147258369", "Carmen Vásquez", "Levotiroxina", agenda.HomeDelivery, "Norte", -1, "14:30", agenda.StatusCancelled},
	{"258369147", "Fernando Castro", "Enalapril", agenda.InPersonAppointment, "Centro", 6, "10:30", agenda.StatusPending},
	{"369147258", "Patricia Morales", "Losartan", agenda.HomeDelivery, "Sur", 7, "11:30", agenda.StatusPending},
	{"741852963", "Jorge Ramírez", "Metformina", agenda.HomeDelivery, "Norte", 8, "15:00", agenda.StatusPending},
	{"852963741", "Sofía Herrera", "Insulina", agenda.InPersonAppointment, "Centro", -3, "08:30", agenda.StatusDelivered},
}

// Seeder writes the synthetic dataset through the ledger repository.
type Seeder struct {
	ledger agenda.LedgerRepository
	log    zerolog.Logger
	now    func() time.Time
}

func NewSeeder(ledger agenda.LedgerRepository, log zerolog.Logger) *Seeder {
	return &Seeder{ledger: ledger, log: log, now: time.Now}
}

// SetClock overrides the reference moment the offsets are applied to.
func (s *Seeder) SetClock(now func() time.Time) { s.now = now }

// Seed appends the synthetic records when the ledger is empty. It returns how
// many records were written; zero means the ledger already had data.
func (s *Seeder) Seed(ctx context.Context) (int, error) {
	existing, err := s.ledger.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		s.log.Info().Int("records", len(existing)).Msg("ledger already populated, skipping seed")
		return 0, nil
	}

	ref := s.now()
	for _, e := range baseData {
		rec := &agenda.ServiceRecord{
			PatientID:   e.patientID,
			PatientName: e.name,
			Medication:  e.medication,
			ServiceType: e.svcType,
			Site:        e.site,
			Date:        ref.AddDate(0, 0, e.dayOffset).Format(agenda.DateLayout),
			Time:        e.clock,
			Status:      e.status,
		}
		if err := s.ledger.Append(ctx, rec, nil); err != nil {
			return 0, fmt.Errorf("seed record for %s: %w", e.name, err)
		}
	}
	s.log.Info().Int("records", len(baseData)).Msg("ledger seeded with sample data")
	return len(baseData), nil
}
