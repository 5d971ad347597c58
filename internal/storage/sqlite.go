// Package storage provides SQLite-based persistence for run telemetry.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/carlaview/internal/core"
	"github.com/vovakirdan/carlaview/internal/sensor"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("storage: not found")

// ErrAmbiguous is returned when an ID prefix matches several sessions.
var ErrAmbiguous = errors.New("storage: ambiguous session id")

// Store manages the SQLite database connection for telemetry.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Session is one recorded run.
type Session struct {
	ID        string
	Mode      string // "sensors", "drive" or "manual"
	Backend   string
	Vehicle   string
	StartedAt time.Time
	EndedAt   time.Time // zero while running
	Ticks     int
	EndReason string
}

// Running reports whether the session has not been ended.
func (s Session) Running() bool {
	return s.EndedAt.IsZero()
}

// Duration returns the wall-clock length of an ended session.
func (s Session) Duration() time.Duration {
	if s.Running() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// SensorStat is the processing time summary of one sensor in a session.
type SensorStat struct {
	Kind string
	sensor.StatsSnapshot
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}
	return store, nil
}

// DefaultPath returns ~/.carlaview/telemetry.db.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "telemetry.db"
	}
	return filepath.Join(home, ".carlaview", "telemetry.db")
}

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// migrate applies pending schema migrations. The migrate instance is not
// closed since that would close the shared connection.
func (s *Store) migrate() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// SchemaVersion returns the applied migration version.
func (s *Store) SchemaVersion() (uint, error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("storage: cannot read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("storage: schema version %d is dirty", version)
	}
	return version, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// StartSession records the start of a run and returns it.
func (s *Store) StartSession(mode, backend, vehicle string) (Session, error) {
	sess := Session{
		ID:        uuid.NewString(),
		Mode:      mode,
		Backend:   backend,
		Vehicle:   vehicle,
		StartedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, mode, backend, vehicle, started_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.Mode, sess.Backend, sess.Vehicle, sess.StartedAt.UnixMilli(),
	)
	if err != nil {
		return Session{}, fmt.Errorf("storage: cannot start session: %w", err)
	}
	return sess, nil
}

// SetVehicle records the vehicle type driven in a session.
func (s *Store) SetVehicle(id, vehicle string) error {
	return s.update(`UPDATE sessions SET vehicle = ? WHERE id = ?`, vehicle, id)
}

// EndSession marks a session finished. The tick count is taken from the
// recorded ticks.
func (s *Store) EndSession(id, reason string) error {
	return s.update(
		`UPDATE sessions
		 SET ended_at = ?, end_reason = ?,
		     tick_count = (SELECT COUNT(*) FROM ticks WHERE session_id = ?)
		 WHERE id = ?`,
		s.now().UTC().UnixMilli(), reason, id, id,
	)
}

func (s *Store) update(query string, args ...any) error {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("storage: cannot update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: cannot update session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordTicks stores a batch of samples in one transaction.
func (s *Store) RecordTicks(id string, samples []core.TickSample) (err error) {
	if len(samples) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("storage: cannot begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.Prepare(
		`INSERT INTO ticks (session_id, tick, sim_time, speed_kph, throttle, steer, brake, predicted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot prepare tick insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range samples {
		if _, err = stmt.Exec(id, t.Tick, t.SimTime, t.SpeedKPH, t.Throttle, t.Steer, t.Brake, t.Predicted); err != nil {
			return fmt.Errorf("storage: cannot save tick %d: %w", t.Tick, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("storage: cannot commit ticks: %w", err)
	}
	return nil
}

// SaveSensorStats records the timing summary of one sensor.
func (s *Store) SaveSensorStats(id, kind string, st sensor.StatsSnapshot) error {
	_, err := s.db.Exec(
		`INSERT INTO sensor_stats (session_id, kind, ticks, total_ns, mean_ms, stddev_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, kind, st.Ticks, int64(st.Total), st.MeanMS, st.StdDevMS,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot save sensor stats: %w", err)
	}
	return nil
}

const sessionColumns = `id, mode, backend, vehicle, started_at, ended_at, tick_count, end_reason`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var sess Session
	var started int64
	var ended sql.NullInt64
	if err := row.Scan(&sess.ID, &sess.Mode, &sess.Backend, &sess.Vehicle,
		&started, &ended, &sess.Ticks, &sess.EndReason); err != nil {
		return Session{}, err
	}
	sess.StartedAt = time.UnixMilli(started).UTC()
	if ended.Valid {
		sess.EndedAt = time.UnixMilli(ended.Int64).UTC()
	}
	return sess, nil
}

// Session retrieves one session by ID.
func (s *Store) Session(id string) (Session, error) {
	sess, err := scanSession(s.db.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("storage: cannot query session: %w", err)
	}
	return sess, nil
}

// FindSession retrieves the one session whose ID starts with prefix.
func (s *Store) FindSession(prefix string) (Session, error) {
	if prefix == "" {
		return Session{}, ErrNotFound
	}
	rows, err := s.db.Query(
		`SELECT `+sessionColumns+` FROM sessions WHERE substr(id, 1, ?) = ? LIMIT 2`,
		len(prefix), prefix,
	)
	if err != nil {
		return Session{}, fmt.Errorf("storage: cannot query session: %w", err)
	}
	defer rows.Close()

	var found []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return Session{}, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		found = append(found, sess)
	}
	if err := rows.Err(); err != nil {
		return Session{}, fmt.Errorf("storage: row iteration error: %w", err)
	}
	switch len(found) {
	case 0:
		return Session{}, ErrNotFound
	case 1:
		return found[0], nil
	}
	return Session{}, fmt.Errorf("%w: %q", ErrAmbiguous, prefix)
}

// Sessions retrieves the most recent sessions, newest first.
func (s *Store) Sessions(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT `+sessionColumns+`
		 FROM sessions
		 ORDER BY started_at DESC, rowid DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return sessions, nil
}

// Ticks retrieves every sample of a session in tick order.
func (s *Store) Ticks(id string) ([]core.TickSample, error) {
	rows, err := s.db.Query(
		`SELECT tick, sim_time, speed_kph, throttle, steer, brake, predicted
		 FROM ticks
		 WHERE session_id = ?
		 ORDER BY tick`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query ticks: %w", err)
	}
	defer rows.Close()

	var samples []core.TickSample
	for rows.Next() {
		var t core.TickSample
		if err := rows.Scan(&t.Tick, &t.SimTime, &t.SpeedKPH, &t.Throttle, &t.Steer, &t.Brake, &t.Predicted); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		samples = append(samples, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return samples, nil
}

// SensorStats retrieves the sensor summaries of a session.
func (s *Store) SensorStats(id string) ([]SensorStat, error) {
	rows, err := s.db.Query(
		`SELECT kind, ticks, total_ns, mean_ms, stddev_ms
		 FROM sensor_stats
		 WHERE session_id = ?
		 ORDER BY rowid`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query sensor stats: %w", err)
	}
	defer rows.Close()

	var stats []SensorStat
	for rows.Next() {
		var st SensorStat
		var total int64
		if err := rows.Scan(&st.Kind, &st.Ticks, &total, &st.MeanMS, &st.StdDevMS); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		st.Total = time.Duration(total)
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return stats, nil
}

// DeleteSession removes a session with its ticks and sensor stats.
func (s *Store) DeleteSession(id string) error {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("storage: cannot delete session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
