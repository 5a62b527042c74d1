package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jgoulah/binpusher/pkg/models"
	_ "modernc.org/sqlite"
)

// sampledAtLayout has a fixed width so rows sort by time as text
const sampledAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB wraps the journal database connection
type DB struct {
	conn *sql.DB
}

// Stats summarizes the journal
type Stats struct {
	Total     int
	Published int
	Failed    int
	LastAt    time.Time
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cycles (
		id TEXT PRIMARY KEY,
		sampled_at TEXT NOT NULL,
		house_id TEXT NOT NULL,
		fill_level INTEGER NOT NULL,
		status TEXT NOT NULL,
		last_updated TEXT NOT NULL,
		waste_type TEXT NOT NULL,
		weight REAL NOT NULL,
		ml_confidence INTEGER NOT NULL,
		log_key TEXT,
		published INTEGER DEFAULT 0,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_cycles_sampled_at ON cycles(sampled_at);
	CREATE INDEX IF NOT EXISTS idx_cycles_house_id ON cycles(house_id);
	CREATE INDEX IF NOT EXISTS idx_cycles_published ON cycles(published);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// InsertCycle stores one cycle, ignoring a cycle id that was already journaled
func (db *DB) InsertCycle(c *models.Cycle) error {
	query := `
	INSERT OR IGNORE INTO cycles (id, sampled_at, house_id, fill_level, status, last_updated,
		waste_type, weight, ml_confidence, log_key, published, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	published := 0
	if c.Published {
		published = 1
	}

	_, err := db.conn.Exec(query,
		c.ID,
		c.SampledAt.UTC().Format(sampledAtLayout),
		c.Status.HouseID,
		c.Status.FillLevel,
		string(c.Status.Status),
		c.Status.LastUpdated,
		string(c.Log.WasteType),
		c.Log.Weight,
		c.Log.MLConfidence,
		c.LogKey,
		published,
		c.Error,
	)
	if err != nil {
		return fmt.Errorf("inserting cycle: %w", err)
	}

	return nil
}

// ListCycles retrieves the most recent cycles, newest first. A limit <= 0 returns all.
func (db *DB) ListCycles(limit int) ([]models.Cycle, error) {
	query := `
	SELECT id, sampled_at, house_id, fill_level, status, last_updated,
		waste_type, weight, ml_confidence, log_key, published, error
	FROM cycles
	ORDER BY sampled_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying cycles: %w", err)
	}
	defer rows.Close()

	var results []models.Cycle
	for rows.Next() {
		var c models.Cycle
		var sampledAt, status, wasteType string
		var logKey, errText sql.NullString
		var published int

		if err := rows.Scan(&c.ID, &sampledAt, &c.Status.HouseID, &c.Status.FillLevel, &status,
			&c.Status.LastUpdated, &wasteType, &c.Log.Weight, &c.Log.MLConfidence,
			&logKey, &published, &errText); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		c.SampledAt, err = time.Parse(sampledAtLayout, sampledAt)
		if err != nil {
			return nil, fmt.Errorf("parsing sampled_at: %w", err)
		}

		c.Status.Status = models.Status(status)
		c.Log.HouseID = c.Status.HouseID
		c.Log.WasteType = models.WasteType(wasteType)
		c.Log.Timestamp = c.Status.LastUpdated
		c.Log.FillLevel = c.Status.FillLevel
		c.LogKey = logKey.String
		c.Published = published == 1
		c.Error = errText.String

		results = append(results, c)
	}

	return results, rows.Err()
}

// Stats counts journaled cycles by outcome
func (db *DB) Stats() (*Stats, error) {
	query := `
	SELECT COUNT(*), COALESCE(SUM(published), 0), MAX(sampled_at)
	FROM cycles
	`

	var s Stats
	var lastAt sql.NullString
	if err := db.conn.QueryRow(query).Scan(&s.Total, &s.Published, &lastAt); err != nil {
		return nil, fmt.Errorf("querying stats: %w", err)
	}
	s.Failed = s.Total - s.Published

	if lastAt.Valid && lastAt.String != "" {
		t, err := time.Parse(sampledAtLayout, lastAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing sampled_at: %w", err)
		}
		s.LastAt = t
	}

	return &s, nil
}
