// Package ledger persists service records in an Excel workbook, the format
// the pharmacy staff already opens directly. Every mutation rewrites the
// whole sheet to a temporary file which is fsynced and atomically renamed
// over the live workbook, so a crash mid-write can never corrupt the agenda.
package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/vitalfarma/agenda/internal/domain/agenda"
)

const sheetName = "Agenda"

// Columns is the stable, ordered on-disk column set.
var Columns = []string{
	"ID_Servicio",
	"Paciente_ID",
	"Nombre_Paciente",
	"Medicamento",
	"Tipo_Servicio",
	"Sede",
	"Fecha",
	"Hora",
	"Estado",
	"Creado_En",
	"Actualizado_En",
}

// Store is the exclusive owner of the workbook at path. Mutations are
// serialized behind mu for the whole read-modify-write-rename cycle; reads
// take the read lock only to obtain a consistent snapshot.
type Store struct {
	mu   sync.RWMutex
	path string
	log  zerolog.Logger
	now  func() time.Time
}

// Open returns a Store over the workbook at path, creating an empty ledger
// with the header row when the file does not exist yet.
func Open(path string, log zerolog.Logger) (*Store, error) {
	s := &Store{path: path, log: log, now: time.Now}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("%w: %v", agenda.ErrStoreUnavailable, err)
		}
		if err := s.commit(nil); err != nil {
			return nil, err
		}
		log.Info().Str("path", path).Msg("ledger created")
		return s, nil
	}
	// Repair structural drift from hand edits, then validate the workbook
	// parses before accepting it.
	if err := s.heal(); err != nil {
		return nil, err
	}
	if _, err := s.read(); err != nil {
		return nil, err
	}
	return s, nil
}

// heal repairs the damage staff editing the workbook by hand tends to leave:
// columns out of order or missing are restored to the canonical set, and rows
// without an ID_Servicio get a fresh one. Cell values are never rewritten;
// rows that still fail to parse surface through read.
func (s *Store) heal() error {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", agenda.ErrStoreUnavailable, s.path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil || len(rows) == 0 {
		// Missing sheet or header entirely: read reports the violation.
		return nil
	}

	// Locate each canonical column in the header by name.
	idx := make([]int, len(Columns))
	drift := false
	for i, want := range Columns {
		idx[i] = -1
		for j, got := range rows[0] {
			if got == want {
				idx[i] = j
				break
			}
		}
		if idx[i] != i {
			drift = true
		}
	}

	healed := make([][]interface{}, 0, len(rows)-1)
	blankIDs := false
	for _, row := range rows[1:] {
		if emptyRow(row) {
			continue
		}
		cells := make([]interface{}, len(Columns))
		for i := range Columns {
			cells[i] = ""
			if idx[i] >= 0 && idx[i] < len(row) {
				cells[i] = row[idx[i]]
			}
		}
		if cells[0] == "" {
			cells[0] = uuid.New().String()
			blankIDs = true
		}
		healed = append(healed, cells)
	}

	if !drift && !blankIDs {
		return nil
	}
	s.log.Warn().
		Bool("column_drift", drift).
		Bool("blank_ids", blankIDs).
		Str("path", s.path).
		Msg("repairing ledger structure")
	return s.commitRaw(healed)
}

// SetClock overrides the timestamp source. Intended for tests.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// Path returns the live workbook location.
func (s *Store) Path() string { return s.path }

// Append implements agenda.LedgerRepository. The precheck runs against the
// records read under the write lock, so a conflict check passed here cannot
// be invalidated by a concurrent append.
func (s *Store) Append(ctx context.Context, r *agenda.ServiceRecord, precheck func([]agenda.ServiceRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}
	if precheck != nil {
		if err := precheck(records); err != nil {
			return err
		}
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	for i := range records {
		if records[i].ID == r.ID {
			return fmt.Errorf("duplicate record id %s", r.ID)
		}
	}
	now := s.now()
	r.CreatedAt = now
	r.UpdatedAt = now
	records = append(records, *r)
	return s.commit(records)
}

// Update implements agenda.LedgerRepository.
func (s *Store) Update(ctx context.Context, id uuid.UUID, mutate func(*agenda.ServiceRecord) error) (*agenda.ServiceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID != id {
			continue
		}
		if err := mutate(&records[i]); err != nil {
			return nil, err
		}
		records[i].UpdatedAt = s.now()
		if err := s.commit(records); err != nil {
			return nil, err
		}
		rec := records[i]
		return &rec, nil
	}
	return nil, fmt.Errorf("%w: %s", agenda.ErrRecordNotFound, id)
}

// UpdateWhere implements agenda.LedgerRepository. All matching records are
// mutated and persisted in one commit; if any mutation fails, nothing is
// written.
func (s *Store) UpdateWhere(ctx context.Context, match func(*agenda.ServiceRecord) bool, mutate func(*agenda.ServiceRecord) error) ([]agenda.ServiceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return nil, err
	}
	var affected []agenda.ServiceRecord
	now := s.now()
	for i := range records {
		if !match(&records[i]) {
			continue
		}
		if err := mutate(&records[i]); err != nil {
			return nil, err
		}
		records[i].UpdatedAt = now
		affected = append(affected, records[i])
	}
	if len(affected) == 0 {
		return nil, nil
	}
	if err := s.commit(records); err != nil {
		return nil, err
	}
	return affected, nil
}

// DeleteWhere implements agenda.LedgerRepository.
func (s *Store) DeleteWhere(ctx context.Context, match func(*agenda.ServiceRecord) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return 0, err
	}
	kept := records[:0:0]
	deleted := 0
	for i := range records {
		if match(&records[i]) {
			deleted++
			continue
		}
		kept = append(kept, records[i])
	}
	if deleted == 0 {
		return 0, nil
	}
	if err := s.commit(kept); err != nil {
		return 0, err
	}
	return deleted, nil
}

// ListAll implements agenda.LedgerRepository.
func (s *Store) ListAll(ctx context.Context) ([]agenda.ServiceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read()
}

// LoadByID implements agenda.LedgerRepository.
func (s *Store) LoadByID(ctx context.Context, id uuid.UUID) (*agenda.ServiceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.read()
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			rec := records[i]
			return &rec, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", agenda.ErrRecordNotFound, id)
}

// read parses the live workbook into records. Rows that fail to parse
// surface as *agenda.SchemaError rather than being silently dropped.
func (s *Store) read() ([]agenda.ServiceRecord, error) {
	if _, err := os.Stat(s.path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: stat %s: %v", agenda.ErrStoreUnavailable, s.path, err)
	}
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", agenda.ErrStoreUnavailable, s.path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, &agenda.SchemaError{Row: 1, Cause: fmt.Errorf("sheet %q missing: %v", sheetName, err)}
	}
	if len(rows) == 0 {
		return nil, &agenda.SchemaError{Row: 1, Cause: fmt.Errorf("header row missing")}
	}
	if err := checkHeader(rows[0]); err != nil {
		return nil, &agenda.SchemaError{Row: 1, Cause: err}
	}

	records := make([]agenda.ServiceRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if emptyRow(row) {
			continue
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, &agenda.SchemaError{Row: i + 2, Cause: err}
		}
		records = append(records, *rec)
	}
	return records, nil
}

// commit writes the full snapshot to a temp file in the ledger directory,
// flushes it, and renames it over the live workbook. The live file is never
// written in place.
func (s *Store) commit(records []agenda.ServiceRecord) error {
	rows := make([][]interface{}, len(records))
	for i := range records {
		rows[i] = formatRow(&records[i])
	}
	return s.commitRaw(rows)
}

func (s *Store) commitRaw(rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("prepare workbook: %w", err)
	}
	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row coordinate: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".agenda-*.xlsx")
	if err != nil {
		return fmt.Errorf("%w: create temp ledger: %v", agenda.ErrStoreUnavailable, err)
	}
	tmpName := tmp.Name()
	// On any failure below the temp file is removed; the live ledger stays
	// at its last-known-good state.
	fail := func(step string, cause error) error {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", agenda.ErrStoreUnavailable, step, cause)
	}

	if err := f.Write(tmp); err != nil {
		return fail("write temp ledger", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("flush temp ledger", err)
	}
	if err := tmp.Close(); err != nil {
		return fail("close temp ledger", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: replace ledger: %v", agenda.ErrStoreUnavailable, err)
	}

	s.log.Debug().Int("records", len(rows)).Str("path", s.path).Msg("ledger committed")
	return nil
}

func checkHeader(got []string) error {
	if len(got) < len(Columns) {
		return fmt.Errorf("expected %d columns, found %d", len(Columns), len(got))
	}
	for i, want := range Columns {
		if got[i] != want {
			return fmt.Errorf("column %d: expected %q, found %q", i+1, want, got[i])
		}
	}
	return nil
}

func emptyRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

func formatRow(r *agenda.ServiceRecord) []interface{} {
	return []interface{}{
		r.ID.String(),
		r.PatientID,
		r.PatientName,
		r.Medication,
		string(r.ServiceType),
		r.Site,
		r.Date,
		r.Time,
		string(r.Status),
		r.CreatedAt.Format(time.RFC3339),
		r.UpdatedAt.Format(time.RFC3339),
	}
}

func parseRow(row []string) (*agenda.ServiceRecord, error) {
	// GetRows trims trailing empty cells; pad so optional columns are safe
	// to index.
	cells := make([]string, len(Columns))
	copy(cells, row)

	id, err := uuid.Parse(cells[0])
	if err != nil {
		return nil, fmt.Errorf("ID_Servicio: %w", err)
	}
	svcType, err := agenda.ParseServiceType(cells[4])
	if err != nil {
		return nil, fmt.Errorf("Tipo_Servicio: %w", err)
	}
	status, err := agenda.ParseStatus(cells[8])
	if err != nil {
		return nil, fmt.Errorf("Estado: %w", err)
	}
	if !agenda.ValidDate(cells[6]) {
		return nil, fmt.Errorf("Fecha: invalid date %q", cells[6])
	}
	if !agenda.ValidTime(cells[7]) {
		return nil, fmt.Errorf("Hora: invalid time %q", cells[7])
	}

	rec := &agenda.ServiceRecord{
		ID:          id,
		PatientID:   cells[1],
		PatientName: cells[2],
		Medication:  cells[3],
		ServiceType: svcType,
		Site:        cells[5],
		Date:        cells[6],
		Time:        cells[7],
		Status:      status,
	}
	if cells[9] != "" {
		if rec.CreatedAt, err = time.Parse(time.RFC3339, cells[9]); err != nil {
			return nil, fmt.Errorf("Creado_En: %w", err)
		}
	}
	if cells[10] != "" {
		if rec.UpdatedAt, err = time.Parse(time.RFC3339, cells[10]); err != nil {
			return nil, fmt.Errorf("Actualizado_En: %w", err)
		}
	}
	return rec, nil
}
