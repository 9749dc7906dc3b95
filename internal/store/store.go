// Package store persists finished assessments to SQLite so history
// queries survive restarts. Write-through: each run is saved as soon as
// the pipeline finishes.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"creditlens/internal/pipeline"
)

type Store struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS assessments (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_name  TEXT NOT NULL,
	risk_score   REAL NOT NULL,
	risk_tier    TEXT NOT NULL,
	generated_at TEXT NOT NULL,
	result       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_entity
	ON assessments (entity_name, generated_at DESC);
`

func Open(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Record is one persisted assessment. Result carries the full response
// document; the scalar columns exist for listing without unmarshalling.
type Record struct {
	ID          int64           `json:"id"`
	EntityName  string          `json:"entity_name"`
	RiskScore   float64         `json:"risk_score"`
	RiskTier    string          `json:"risk_tier"`
	GeneratedAt time.Time       `json:"generated_at"`
	Result      pipeline.Result `json:"result"`
}

func (s *Store) Save(res pipeline.Result) (int64, error) {
	doc, err := json.Marshal(res)
	if err != nil {
		return 0, fmt.Errorf("marshal result: %w", err)
	}
	out, err := s.db.Exec(
		`INSERT INTO assessments (entity_name, risk_score, risk_tier, generated_at, result)
		 VALUES (?, ?, ?, ?, ?)`,
		res.EntityName,
		res.Assessment.RiskScore,
		string(res.Assessment.RiskTier),
		res.GeneratedAt.UTC().Format(time.RFC3339Nano),
		string(doc),
	)
	if err != nil {
		return 0, fmt.Errorf("insert assessment: %w", err)
	}
	return out.LastInsertId()
}

// History returns the most recent assessments for one entity, newest
// first. A limit of zero or less falls back to 20.
func (s *Store) History(entityName string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, entity_name, risk_score, risk_tier, generated_at, result
		 FROM assessments WHERE entity_name = ?
		 ORDER BY generated_at DESC, id DESC LIMIT ?`,
		entityName, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var r Record
		var generatedAt, doc string
		if err := rows.Scan(&r.ID, &r.EntityName, &r.RiskScore, &r.RiskTier, &generatedAt, &doc); err != nil {
			return nil, err
		}
		r.GeneratedAt, _ = time.Parse(time.RFC3339Nano, generatedAt)
		if err := json.Unmarshal([]byte(doc), &r.Result); err != nil {
			return nil, fmt.Errorf("unmarshal assessment %d: %w", r.ID, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
