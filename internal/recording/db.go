// Package recording stores received serial lines in sqlite so a session can
// be inspected later or replayed through the normal serial pipeline.
package recording

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	ErrNoSession  = errors.New("recording: no such session")
	ErrNoSessions = errors.New("recording: database has no sessions")
)

// LatestSession selects the most recently started session in Resolve.
const LatestSession = "latest"

type DB struct {
	*sql.DB
	path string
}

// Session describes one recorded connection.
type Session struct {
	ID        string
	Tool      string
	Port      string
	BaudRate  int
	StartedAt time.Time
	EndedAt   time.Time // zero while recording
	LineCount int
}

// Line is one received serial line.
type Line struct {
	Seq        int64
	ReceivedAt time.Time
	Text       string
}

// Open opens (creating if needed) a recording database and brings its
// schema up to date.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer; sqlite serialises anyway and this keeps pragmas per-connection
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	rdb := &DB{DB: db, path: path}
	if err := rdb.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return rdb, nil
}

// MigrateUp applies every pending embedded migration.
func (db *DB) MigrateUp() error {
	m, err := db.newMigrate()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// SchemaVersion returns the applied migration version.
func (db *DB) SchemaVersion() (uint, bool, error) {
	m, err := db.newMigrate()
	if err != nil {
		return 0, false, err
	}
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func (db *DB) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	return m, nil
}

type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	log.Printf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool { return false }

// StartSession registers a new session and returns it with a fresh id.
func (db *DB) StartSession(tool, port string, baud int, startedAt time.Time) (Session, error) {
	s := Session{
		ID:        uuid.NewString(),
		Tool:      tool,
		Port:      port,
		BaudRate:  baud,
		StartedAt: startedAt,
	}
	_, err := db.Exec(
		`INSERT INTO sessions (session_id, tool, port, baud_rate, started_unix_nanos) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.Tool, s.Port, s.BaudRate, startedAt.UnixNano(),
	)
	if err != nil {
		return Session{}, fmt.Errorf("failed to start session: %w", err)
	}
	return s, nil
}

// AppendLines writes a batch in one transaction and bumps the session's
// line count.
func (db *DB) AppendLines(sessionID string, lines []Line) error {
	if len(lines) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO lines (session_id, seq, received_unix_nanos, line) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, l := range lines {
		if _, err := stmt.Exec(sessionID, l.Seq, l.ReceivedAt.UnixNano(), l.Text); err != nil {
			return fmt.Errorf("failed to insert line %d: %w", l.Seq, err)
		}
	}
	res, err := tx.Exec(`UPDATE sessions SET line_count = line_count + ? WHERE session_id = ?`, len(lines), sessionID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNoSession, sessionID)
	}
	return tx.Commit()
}

// EndSession stamps the session's end time.
func (db *DB) EndSession(sessionID string, endedAt time.Time) error {
	res, err := db.Exec(`UPDATE sessions SET ended_unix_nanos = ? WHERE session_id = ?`, endedAt.UnixNano(), sessionID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNoSession, sessionID)
	}
	return nil
}

const sessionColumns = `session_id, tool, port, baud_rate, started_unix_nanos, ended_unix_nanos, line_count`

func scanSession(row interface{ Scan(...any) error }) (Session, error) {
	var (
		s       Session
		started int64
		ended   sql.NullInt64
	)
	if err := row.Scan(&s.ID, &s.Tool, &s.Port, &s.BaudRate, &started, &ended, &s.LineCount); err != nil {
		return Session{}, err
	}
	s.StartedAt = time.Unix(0, started).UTC()
	if ended.Valid {
		s.EndedAt = time.Unix(0, ended.Int64).UTC()
	}
	return s, nil
}

// Sessions lists every session, newest first.
func (db *DB) Sessions() ([]Session, error) {
	rows, err := db.Query(`SELECT ` + sessionColumns + ` FROM sessions ORDER BY started_unix_nanos DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Session looks one session up by id.
func (db *DB) Session(id string) (Session, error) {
	s, err := scanSession(db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE session_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrNoSession, id)
	}
	return s, err
}

// Resolve accepts a session id or LatestSession.
func (db *DB) Resolve(id string) (Session, error) {
	if id != LatestSession {
		return db.Session(id)
	}
	s, err := scanSession(db.QueryRow(`SELECT ` + sessionColumns + ` FROM sessions ORDER BY started_unix_nanos DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNoSessions
	}
	return s, err
}

// Lines returns a session's lines in receive order.
func (db *DB) Lines(sessionID string) ([]Line, error) {
	rows, err := db.Query(
		`SELECT seq, received_unix_nanos, line FROM lines WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var (
			l  Line
			ns int64
		)
		if err := rows.Scan(&l.Seq, &ns, &l.Text); err != nil {
			return nil, err
		}
		l.ReceivedAt = time.Unix(0, ns).UTC()
		out = append(out, l)
	}
	return out, rows.Err()
}
