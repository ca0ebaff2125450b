package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wricardo/tile-grid-game/game/service"
)

const sessionsSchema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id                TEXT PRIMARY KEY,
		config_name       TEXT NOT NULL,
		created_at        TIMESTAMP NOT NULL,
		last_accessed_at  TIMESTAMP NOT NULL,
		data              TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_last_accessed ON sessions(last_accessed_at);
`

// SQLitePersistence implements SessionPersistence on a single SQLite table.
// The full session record is stored as JSON in the data column.
type SQLitePersistence struct {
	db            *sql.DB
	configManager service.ConfigManager
}

// NewSQLitePersistence opens (or creates) the database at path
func NewSQLitePersistence(path string, configManager service.ConfigManager) (*SQLitePersistence, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	// One writer at a time; modernc sqlite serializes anyway
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sessionsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	return &SQLitePersistence{
		db:            db,
		configManager: configManager,
	}, nil
}

// Close closes the underlying database
func (sp *SQLitePersistence) Close() error {
	return sp.db.Close()
}

// Save upserts a session row
func (sp *SQLitePersistence) Save(session *service.Session) error {
	data, err := newPersistedSessionData(session, sp.configManager)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	_, err = sp.db.Exec(`
		INSERT INTO sessions (id, config_name, created_at, last_accessed_at, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			config_name = excluded.config_name,
			last_accessed_at = excluded.last_accessed_at,
			data = excluded.data`,
		strings.ToLower(data.ID), data.ConfigName, data.CreatedAt.UTC(), data.LastAccessedAt.UTC(), string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", data.ID, err)
	}

	return nil
}

// Load retrieves a session row
func (sp *SQLitePersistence) Load(id string) (*service.Session, error) {
	var payload string
	err := sp.db.QueryRow(`SELECT data FROM sessions WHERE id = ?`, strings.ToLower(id)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}

	return data.restore(sp.configManager)
}

// Delete removes a session row
func (sp *SQLitePersistence) Delete(id string) error {
	res, err := sp.db.Exec(`DELETE FROM sessions WHERE id = ?`, strings.ToLower(id))
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// ListAll returns all persisted session IDs, oldest first
func (sp *SQLitePersistence) ListAll() ([]string, error) {
	rows, err := sp.db.Query(`SELECT id FROM sessions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Exists checks if a session row exists
func (sp *SQLitePersistence) Exists(id string) bool {
	var one int
	err := sp.db.QueryRow(`SELECT 1 FROM sessions WHERE id = ?`, strings.ToLower(id)).Scan(&one)
	return err == nil
}

// PruneInactive deletes rows not accessed since cutoff and returns how many were removed
func (sp *SQLitePersistence) PruneInactive(cutoff time.Time) (int, error) {
	res, err := sp.db.Exec(`DELETE FROM sessions WHERE last_accessed_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
