// Package history persists completed-transfer records in a local SQLite
// database, keeping only the most recent entries.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // sqlite driver
)

// MaxRecords is the number of transfer records retained. Older records are
// dropped when the cap is exceeded.
const MaxRecords = 50

// Record is one completed transfer.
type Record struct {
	Title      string    `json:"title"`
	StartedAt  time.Time `json:"started_at"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	Duration   string    `json:"duration"`
	TotalSize  string    `json:"total_size"`
	AvgSpeed   string    `json:"avg_speed"`
	TotalFiles int       `json:"total_files"`
	ErrorCount int       `json:"error_count"`
	FileNames  []string  `json:"file_names"`
}

const schema = `
CREATE TABLE IF NOT EXISTS transfers (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	duration    TEXT NOT NULL,
	total_size  TEXT NOT NULL,
	avg_speed   TEXT NOT NULL,
	total_files INTEGER NOT NULL,
	error_count INTEGER NOT NULL,
	file_names  TEXT NOT NULL
);
`

// Store is a SQLite-backed transfer history.
type Store struct {
	db  *sql.DB
	cap int
}

// Open opens (creating if needed) the history database at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()

		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return &Store{db: db, cap: MaxRecords}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append stores a record, drops the oldest entries beyond the cap, and
// returns the full list oldest-first.
func (s *Store) Append(rec Record) ([]Record, error) {
	names, err := json.Marshal(rec.FileNames)
	if err != nil {
		return nil, fmt.Errorf("failed to encode file names: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO transfers
			(title, started_at, duration, total_size, avg_speed, total_files, error_count, file_names)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Title, rec.StartedAt.Format(time.RFC3339), rec.Duration,
		rec.TotalSize, rec.AvgSpeed, rec.TotalFiles, rec.ErrorCount, string(names),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert history record: %w", err)
	}

	_, err = s.db.Exec(
		`DELETE FROM transfers WHERE id NOT IN
			(SELECT id FROM transfers ORDER BY id DESC LIMIT ?)`,
		s.cap,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to trim history: %w", err)
	}

	return s.All()
}

// All returns every retained record, oldest-first.
func (s *Store) All() ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT title, started_at, duration, total_size, avg_speed, total_files, error_count, file_names
		 FROM transfers ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []Record

	for rows.Next() {
		var (
			rec       Record
			startedAt string
			names     string
		)

		err := rows.Scan(
			&rec.Title, &startedAt, &rec.Duration, &rec.TotalSize,
			&rec.AvgSpeed, &rec.TotalFiles, &rec.ErrorCount, &names,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}

		if t, perr := time.Parse(time.RFC3339, startedAt); perr == nil {
			rec.StartedAt = t
			rec.Date = t.Format("Jan 02")
			rec.Time = t.Format("3:04 PM")
		}

		if err := json.Unmarshal([]byte(names), &rec.FileNames); err != nil {
			rec.FileNames = nil
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}

	return records, nil
}
