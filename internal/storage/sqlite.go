package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/afroash/storm-antenna/internal/models"
)

// timeLayout sorts lexically, so range queries work on the text column
const timeLayout = "2006-01-02 15:04:05.000"

// Store defines the interface for cycle and command history
type Store interface {
	Close() error
	Migrate() error
	InsertCycle(rec *models.CycleRecord) error
	InsertCycleBatch(recs []*models.CycleRecord) error
	InsertCommand(rec *models.CommandRecord) error
	InsertCommandBatch(recs []*models.CommandRecord) error
	GetCyclesInRange(start, end time.Time, limit int) ([]*models.CycleRecord, error)
	GetCyclesBefore(before time.Time, limit int) ([]*models.CycleRecord, error)
	GetLatestCycle() (*models.CycleRecord, error)
	GetCommands(limit int) ([]*models.CommandRecord, error)
	GetDailyStats(start, end time.Time) ([]DailyStat, error)
	DeleteOlderThan(days int) (int64, error)
	GetStorageStats() (*StorageStats, error)
}

// Compile-time interface check
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore persists decision cycles and control commands
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// DailyStat aggregates one day of cycles
type DailyStat struct {
	Date            time.Time `json:"date"`
	Cycles          int       `json:"cycles"`
	ConnectedCycles int       `json:"connected_cycles"`
	StormCycles     int       `json:"storm_cycles"`
	FaultCycles     int       `json:"fault_cycles"`
	MinTemperature  *float64  `json:"min_temperature"`
	MaxTemperature  *float64  `json:"max_temperature"`
	AvgTemperature  *float64  `json:"avg_temperature"`
	MinHumidity     *float64  `json:"min_humidity"`
	MaxHumidity     *float64  `json:"max_humidity"`
	AvgHumidity     *float64  `json:"avg_humidity"`
}

// StorageStats contains information about the database
type StorageStats struct {
	TotalCycles    int64     `json:"total_cycles"`
	TotalCommands  int64     `json:"total_commands"`
	OldestCycle    time.Time `json:"oldest_cycle,omitempty"`
	NewestCycle    time.Time `json:"newest_cycle,omitempty"`
	DatabaseSizeMB float64   `json:"database_size_mb"`
}

// NewSQLiteStore opens (and migrates) the history database
func NewSQLiteStore(dbPath string, logger zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := store.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("SQLite history store initialized")

	return store, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate creates the database schema if it doesn't exist
func (s *SQLiteStore) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cycles (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		recorded_at TEXT NOT NULL,
		presence INTEGER NOT NULL,
		storm INTEGER NOT NULL,
		temperature REAL,
		humidity REAL,
		antenna_connect INTEGER NOT NULL,
		fault TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL,
		payload TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cycles_time ON cycles(recorded_at DESC);

	CREATE TABLE IF NOT EXISTS commands (
		id TEXT PRIMARY KEY,
		issued_at TEXT NOT NULL,
		command TEXT NOT NULL,
		channel TEXT NOT NULL DEFAULT '',
		state INTEGER NOT NULL,
		ok INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_commands_time ON commands(issued_at DESC);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	s.logger.Debug().Msg("Database schema migrated")
	return nil
}

const insertCycleSQL = `
	INSERT OR REPLACE INTO cycles
		(id, kind, recorded_at, presence, storm, temperature, humidity, antenna_connect, fault, reason, payload)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const insertCommandSQL = `
	INSERT OR REPLACE INTO commands (id, issued_at, command, channel, state, ok, error)
	VALUES (?, ?, ?, ?, ?, ?, ?)
`

// InsertCycle inserts a single cycle record
func (s *SQLiteStore) InsertCycle(rec *models.CycleRecord) error {
	args, err := cycleArgs(rec)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(insertCycleSQL, args...); err != nil {
		return fmt.Errorf("failed to insert cycle: %w", err)
	}
	return nil
}

// InsertCycleBatch inserts multiple cycle records in a single transaction
func (s *SQLiteStore) InsertCycleBatch(recs []*models.CycleRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertCycleSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		args, err := cycleArgs(rec)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("failed to insert cycle in batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Debug().Int("count", len(recs)).Msg("Cycle batch insert completed")
	return nil
}

// InsertCommand inserts a single command record
func (s *SQLiteStore) InsertCommand(rec *models.CommandRecord) error {
	return s.InsertCommandBatch([]*models.CommandRecord{rec})
}

// InsertCommandBatch inserts command records in a single transaction
func (s *SQLiteStore) InsertCommandBatch(recs []*models.CommandRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range recs {
		_, err := tx.Exec(insertCommandSQL,
			rec.ID,
			rec.IssuedAt.UTC().Format(timeLayout),
			rec.Command,
			string(rec.Channel),
			rec.State,
			rec.OK,
			rec.Error,
		)
		if err != nil {
			return fmt.Errorf("failed to insert command: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func cycleArgs(rec *models.CycleRecord) ([]any, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cycle %s: %w", rec.ID, err)
	}
	return []any{
		rec.ID,
		string(rec.Kind),
		rec.RecordedAt.UTC().Format(timeLayout),
		rec.Snapshot.Presence,
		rec.Snapshot.Storm,
		toNull(rec.Snapshot.Temperature),
		toNull(rec.Snapshot.Humidity),
		rec.Plan.AntennaShouldConnect,
		rec.Snapshot.Fault,
		rec.Plan.Reason,
		string(payload),
	}, nil
}

// GetCyclesInRange returns cycles within a time range, newest first
func (s *SQLiteStore) GetCyclesInRange(start, end time.Time, limit int) ([]*models.CycleRecord, error) {
	rows, err := s.db.Query(`
		SELECT payload FROM cycles
		WHERE recorded_at BETWEEN ? AND ?
		ORDER BY recorded_at DESC
		LIMIT ?`,
		start.UTC().Format(timeLayout),
		end.UTC().Format(timeLayout),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	return scanCycles(rows)
}

// GetCyclesBefore returns cycles before a specific time (for scrolling back)
func (s *SQLiteStore) GetCyclesBefore(before time.Time, limit int) ([]*models.CycleRecord, error) {
	rows, err := s.db.Query(`
		SELECT payload FROM cycles
		WHERE recorded_at < ?
		ORDER BY recorded_at DESC
		LIMIT ?`,
		before.UTC().Format(timeLayout),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	return scanCycles(rows)
}

// GetLatestCycle returns the most recent cycle, or nil if there is none
func (s *SQLiteStore) GetLatestCycle() (*models.CycleRecord, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM cycles ORDER BY recorded_at DESC LIMIT 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest cycle: %w", err)
	}
	return decodeCycle(payload)
}

// GetCommands returns the most recent commands, newest first
func (s *SQLiteStore) GetCommands(limit int) ([]*models.CommandRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, issued_at, command, channel, state, ok, error
		FROM commands
		ORDER BY issued_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query commands: %w", err)
	}
	defer rows.Close()

	var commands []*models.CommandRecord
	for rows.Next() {
		var c models.CommandRecord
		var issuedAt, channel string
		if err := rows.Scan(&c.ID, &issuedAt, &c.Command, &channel, &c.State, &c.OK, &c.Error); err != nil {
			return nil, fmt.Errorf("failed to scan command: %w", err)
		}
		c.Channel = models.Channel(channel)
		if c.IssuedAt, err = parseTimestamp(issuedAt); err != nil {
			return nil, fmt.Errorf("failed to parse issued_at: %w", err)
		}
		commands = append(commands, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return commands, nil
}

// GetDailyStats returns per-day aggregates for a time range, newest day first
func (s *SQLiteStore) GetDailyStats(start, end time.Time) ([]DailyStat, error) {
	rows, err := s.db.Query(`
		SELECT
			substr(recorded_at, 1, 10) AS day,
			COUNT(*),
			SUM(antenna_connect),
			SUM(storm),
			SUM(CASE WHEN fault != '' THEN 1 ELSE 0 END),
			MIN(temperature), MAX(temperature), AVG(temperature),
			MIN(humidity), MAX(humidity), AVG(humidity)
		FROM cycles
		WHERE kind = 'cycle' AND recorded_at BETWEEN ? AND ?
		GROUP BY day
		ORDER BY day DESC`,
		start.UTC().Format(timeLayout),
		end.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	var stats []DailyStat
	for rows.Next() {
		var stat DailyStat
		var day string
		var minT, maxT, avgT, minH, maxH, avgH sql.NullFloat64

		err := rows.Scan(&day, &stat.Cycles, &stat.ConnectedCycles, &stat.StormCycles, &stat.FaultCycles,
			&minT, &maxT, &avgT, &minH, &maxH, &avgH)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily stat: %w", err)
		}

		stat.Date, err = time.Parse("2006-01-02", day)
		if err != nil {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}
		stat.MinTemperature = nullable(minT)
		stat.MaxTemperature = nullable(maxT)
		stat.AvgTemperature = nullable(avgT)
		stat.MinHumidity = nullable(minH)
		stat.MaxHumidity = nullable(maxH)
		stat.AvgHumidity = nullable(avgH)

		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return stats, nil
}

// DeleteOlderThan removes cycles and commands older than the given number of days
func (s *SQLiteStore) DeleteOlderThan(days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(timeLayout)

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var deleted int64
	for _, q := range []string{
		"DELETE FROM cycles WHERE recorded_at < ?",
		"DELETE FROM commands WHERE issued_at < ?",
	} {
		result, err := tx.Exec(q, cutoff)
		if err != nil {
			return 0, fmt.Errorf("failed to delete old history: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get rows affected: %w", err)
		}
		deleted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info().
		Int("days", days).
		Int64("deleted", deleted).
		Str("cutoff", cutoff).
		Msg("Deleted old history")

	return deleted, nil
}

// GetStorageStats returns statistics about the database
func (s *SQLiteStore) GetStorageStats() (*StorageStats, error) {
	stats := &StorageStats{}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM cycles").Scan(&stats.TotalCycles); err != nil {
		return nil, fmt.Errorf("failed to count cycles: %w", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM commands").Scan(&stats.TotalCommands); err != nil {
		return nil, fmt.Errorf("failed to count commands: %w", err)
	}

	if stats.TotalCycles > 0 {
		var oldest, newest string
		err := s.db.QueryRow("SELECT MIN(recorded_at), MAX(recorded_at) FROM cycles").Scan(&oldest, &newest)
		if err != nil {
			return nil, fmt.Errorf("failed to get timestamp range: %w", err)
		}
		stats.OldestCycle, _ = parseTimestamp(oldest)
		stats.NewestCycle, _ = parseTimestamp(newest)
	}

	var pageCount, pageSize int64
	s.db.QueryRow("PRAGMA page_count").Scan(&pageCount)
	s.db.QueryRow("PRAGMA page_size").Scan(&pageSize)
	stats.DatabaseSizeMB = float64(pageCount*pageSize) / (1024 * 1024)

	return stats, nil
}

func scanCycles(rows *sql.Rows) ([]*models.CycleRecord, error) {
	var recs []*models.CycleRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		rec, err := decodeCycle(payload)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return recs, nil
}

func decodeCycle(payload string) (*models.CycleRecord, error) {
	var rec models.CycleRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode cycle: %w", err)
	}
	return &rec, nil
}

func toNull(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// parseTimestamp tries the formats SQLite text timestamps come in
func parseTimestamp(ts string) (time.Time, error) {
	formats := []string{
		timeLayout,
		"2006-01-02 15:04:05",
		time.RFC3339Nano,
	}
	for _, format := range formats {
		if t, err := time.Parse(format, ts); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", ts)
}
