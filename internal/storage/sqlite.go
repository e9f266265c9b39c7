package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"snakevo/internal/model"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sqlx.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sqlx.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("migrate: %w", err)
	}

	s.db = db
	return nil
}

// runRow is the indexed projection of a run; the full record is the payload.
type runRow struct {
	ID            string `db:"id"`
	Label         string `db:"label"`
	CreatedAt     int64  `db:"created_at"`
	SchemaVersion int    `db:"schema_version"`
	CodecVersion  int    `db:"codec_version"`
	Payload       []byte `db:"payload"`
}

type logbookRow struct {
	RunID       string  `db:"run_id"`
	Generation  int     `db:"gen"`
	Evaluations int     `db:"nevals"`
	Mean        float64 `db:"mean"`
	Std         float64 `db:"std"`
	Median      float64 `db:"median"`
	Min         float64 `db:"min"`
	Max         float64 `db:"max"`
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run model.RunRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeRun(run)
	if err != nil {
		return err
	}

	_, err = db.NamedExecContext(ctx, `
		INSERT INTO runs (id, label, created_at, schema_version, codec_version, payload)
		VALUES (:id, :label, :created_at, :schema_version, :codec_version, :payload)
		ON CONFLICT(id) DO UPDATE SET
			label = excluded.label,
			created_at = excluded.created_at,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, runRow{
		ID:            run.ID,
		Label:         run.Label,
		CreatedAt:     run.CreatedAt.UnixNano(),
		SchemaVersion: run.SchemaVersion,
		CodecVersion:  run.CodecVersion,
		Payload:       payload,
	})
	return err
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (model.RunRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.RunRecord{}, false, err
	}

	var payload []byte
	err = db.GetContext(ctx, &payload, `SELECT payload FROM runs WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RunRecord{}, false, nil
		}
		return model.RunRecord{}, false, err
	}

	run, err := DecodeRun(payload)
	if err != nil {
		return model.RunRecord{}, false, fmt.Errorf("decode run %s: %w", id, err)
	}
	return run, true, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]model.RunRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	var rows []runRow
	if err := db.SelectContext(ctx, &rows, `SELECT * FROM runs ORDER BY created_at, id`); err != nil {
		return nil, err
	}
	runs := make([]model.RunRecord, 0, len(rows))
	for _, row := range rows {
		run, err := DecodeRun(row.Payload)
		if err != nil {
			return nil, fmt.Errorf("decode run %s: %w", row.ID, err)
		}
		runs = append(runs, run)
	}
	sortRuns(runs)
	return runs, nil
}

func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM logbook WHERE run_id = ?`,
		`DELETE FROM logbook_runs WHERE run_id = ?`,
		`DELETE FROM populations WHERE run_id = ?`,
		`DELETE FROM runs WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveLogbook replaces the run's logbook, one row per generation.
func (s *SQLiteStore) SaveLogbook(ctx context.Context, runID string, logbook []model.GenerationRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM logbook WHERE run_id = ?`, runID); err != nil {
		return err
	}
	// An empty logbook still needs a marker so GetLogbook can report found.
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO logbook_runs (run_id, row_count) VALUES (?, ?)`, runID, len(logbook)); err != nil {
		return err
	}
	for _, record := range logbook {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO logbook (run_id, gen, nevals, mean, std, median, min, max)
			VALUES (:run_id, :gen, :nevals, :mean, :std, :median, :min, :max)
		`, logbookRow{
			RunID:       runID,
			Generation:  record.Generation,
			Evaluations: record.Evaluations,
			Mean:        record.Mean,
			Std:         record.Std,
			Median:      record.Median,
			Min:         record.Min,
			Max:         record.Max,
		})
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetLogbook(ctx context.Context, runID string) ([]model.GenerationRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var count int
	err = db.GetContext(ctx, &count, `SELECT row_count FROM logbook_runs WHERE run_id = ?`, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var rows []logbookRow
	if err := db.SelectContext(ctx, &rows, `SELECT * FROM logbook WHERE run_id = ? ORDER BY gen`, runID); err != nil {
		return nil, false, err
	}
	if len(rows) != count {
		return nil, false, fmt.Errorf("logbook %s: got %d rows, want %d", runID, len(rows), count)
	}
	logbook := make([]model.GenerationRecord, len(rows))
	for i, row := range rows {
		logbook[i] = model.GenerationRecord{
			Generation:  row.Generation,
			Evaluations: row.Evaluations,
			Mean:        row.Mean,
			Std:         row.Std,
			Median:      row.Median,
			Min:         row.Min,
			Max:         row.Max,
		}
	}
	return logbook, true, nil
}

func (s *SQLiteStore) SavePopulation(ctx context.Context, snapshot model.PopulationSnapshot) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodePopulation(snapshot)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO populations (run_id, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, snapshot.RunID, snapshot.SchemaVersion, snapshot.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetPopulation(ctx context.Context, runID string) (model.PopulationSnapshot, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.PopulationSnapshot{}, false, err
	}

	var payload []byte
	err = db.GetContext(ctx, &payload, `SELECT payload FROM populations WHERE run_id = ?`, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.PopulationSnapshot{}, false, nil
		}
		return model.PopulationSnapshot{}, false, err
	}

	snapshot, err := DecodePopulation(payload)
	if err != nil {
		return model.PopulationSnapshot{}, false, fmt.Errorf("decode population %s: %w", runID, err)
	}
	return snapshot, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sqlx.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS logbook_runs (
			run_id TEXT PRIMARY KEY,
			row_count INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS logbook (
			run_id TEXT NOT NULL,
			gen INTEGER NOT NULL,
			nevals INTEGER NOT NULL,
			mean REAL NOT NULL,
			std REAL NOT NULL,
			median REAL NOT NULL,
			min REAL NOT NULL,
			max REAL NOT NULL,
			PRIMARY KEY (run_id, gen)
		);
		CREATE TABLE IF NOT EXISTS populations (
			run_id TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_label ON runs(label);
	`)
	return err
}
