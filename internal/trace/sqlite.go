package trace

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/models"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/pipeline"
)

// SQLiteRecorder keeps stage snapshots in a SQLite file so a run can be
// inspected after the fact without digging through dump files.
type SQLiteRecorder struct {
	conn *sql.DB
}

// StageRecord is one recorded snapshot, as read back from the store.
type StageRecord struct {
	RunID      string
	Stage      pipeline.Stage
	OfferCount int
	Offers     []models.Offer
	RecordedAt time.Time
}

// NewSQLiteRecorder opens (or creates) the trace database.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("trace: opening database: %w", err)
	}

	r := &SQLiteRecorder{conn: conn}
	if err := r.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("trace: initializing schema: %w", err)
	}
	return r, nil
}

func (r *SQLiteRecorder) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS stage_traces (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			stage TEXT NOT NULL,
			offer_count INTEGER NOT NULL,
			snapshot TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stage_traces_run_id ON stage_traces(run_id)`,
	}

	for _, query := range queries {
		if _, err := r.conn.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRecorder) Record(runID string, stage pipeline.Stage, offers []models.Offer) error {
	snapshot, err := json.Marshal(offers)
	if err != nil {
		return fmt.Errorf("trace: marshaling %s snapshot: %w", stage, err)
	}

	_, err = r.conn.Exec(
		`INSERT INTO stage_traces (run_id, stage, offer_count, snapshot, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		runID,
		string(stage),
		len(offers),
		string(snapshot),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("trace: inserting %s snapshot: %w", stage, err)
	}
	return nil
}

// RunStages returns the recorded snapshots for a run in insertion order.
func (r *SQLiteRecorder) RunStages(runID string) ([]StageRecord, error) {
	rows, err := r.conn.Query(
		`SELECT run_id, stage, offer_count, snapshot, recorded_at
		 FROM stage_traces WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("trace: querying run %s: %w", runID, err)
	}
	defer rows.Close()

	var records []StageRecord
	for rows.Next() {
		var rec StageRecord
		var stage, snapshot, recordedAt string
		if err := rows.Scan(&rec.RunID, &stage, &rec.OfferCount, &snapshot, &recordedAt); err != nil {
			return nil, fmt.Errorf("trace: scanning record: %w", err)
		}
		rec.Stage = pipeline.Stage(stage)
		if err := json.Unmarshal([]byte(snapshot), &rec.Offers); err != nil {
			return nil, fmt.Errorf("trace: decoding snapshot: %w", err)
		}
		rec.RecordedAt, err = time.Parse(time.RFC3339, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("trace: parsing recorded_at: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trace: iterating records: %w", err)
	}
	return records, nil
}

// Close closes the underlying database.
func (r *SQLiteRecorder) Close() error {
	return r.conn.Close()
}
