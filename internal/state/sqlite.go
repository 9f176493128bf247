// Package state provides SQLite-based storage for the lplocker custody ledger.
package state

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lockboxlabs/lplocker/internal/errors"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/001_initial.sql
var initialMigration string

//go:embed migrations/002_add_events.sql
var eventsMigration string

// Store is the SQLite-backed custody ledger: vault configuration, lock
// records, and the append-only event log.
type Store struct {
	db      *sql.DB
	dataDir string
}

// Config is the vault's global configuration record.
type Config struct {
	PositionManager string // immutable after init
	Owner           string
	LockFee         string // wei, decimal string
	FeeCollector    string
	MinDuration     time.Duration
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Lock is a custody record for a single position token. A record is created
// active, flips to inactive exactly once at withdrawal, and is never deleted.
type Lock struct {
	ID              int64
	PositionTokenID string // uint256, decimal string
	Depositor       string
	CreatedAt       time.Time
	UnlockAt        time.Time
	Active          bool
	WithdrawnAt     *time.Time
}

// Event is a row in the append-only audit log.
type Event struct {
	ID              string
	Type            string
	LockID          *int64
	PositionTokenID string
	Caller          string
	Details         map[string]string
	CreatedAt       time.Time
}

// New creates a new Store with the given data directory.
// The database file will be created at <dataDir>/lplocker.db.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "lplocker.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't handle concurrent writes well
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &Store{
		db:      db,
		dataDir: dataDir,
	}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DataDir returns the data directory path.
func (s *Store) DataDir() string {
	return s.dataDir
}

// migrate runs database migrations.
func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		if _, err := s.db.Exec(initialMigration); err != nil {
			return fmt.Errorf("failed to run initial migration: %w", err)
		}
		version = 1
	}

	if version < 1 {
		if _, err := s.db.Exec(initialMigration); err != nil {
			return fmt.Errorf("failed to run initial migration: %w", err)
		}
		version = 1
	}

	if version < 2 {
		if _, err := s.db.Exec(eventsMigration); err != nil {
			return fmt.Errorf("failed to run events migration: %w", err)
		}
	}

	return nil
}

// --- Config Operations ---

// InitConfig writes the one-time vault configuration. It fails with
// ErrAlreadyInitialized if a configuration row already exists.
func (s *Store) InitConfig(ctx context.Context, c *Config) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	query := `
		INSERT INTO vault_config (id, position_manager, owner, lock_fee, fee_collector, min_duration_secs, created_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		c.PositionManager, c.Owner, c.LockFee, c.FeeCollector,
		int64(c.MinDuration/time.Second), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.ErrAlreadyInitialized
		}
		return fmt.Errorf("failed to init config: %w", err)
	}

	return nil
}

// GetConfig retrieves the vault configuration.
func (s *Store) GetConfig(ctx context.Context) (*Config, error) {
	query := `
		SELECT position_manager, owner, lock_fee, fee_collector, min_duration_secs, created_at, updated_at
		FROM vault_config WHERE id = 1
	`

	var c Config
	var minSecs int64
	err := s.db.QueryRowContext(ctx, query).Scan(
		&c.PositionManager, &c.Owner, &c.LockFee, &c.FeeCollector,
		&minSecs, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrNotInitialized
		}
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	c.MinDuration = time.Duration(minSecs) * time.Second
	return &c, nil
}

// SetLockFee updates the lock creation fee.
func (s *Store) SetLockFee(ctx context.Context, fee string) error {
	return s.updateConfig(ctx, "lock_fee", fee)
}

// SetFeeCollector updates the fee collector address.
func (s *Store) SetFeeCollector(ctx context.Context, collector string) error {
	return s.updateConfig(ctx, "fee_collector", collector)
}

func (s *Store) updateConfig(ctx context.Context, column, value string) error {
	query := fmt.Sprintf(`UPDATE vault_config SET %s = ?, updated_at = ? WHERE id = 1`, column)
	result, err := s.db.ExecContext(ctx, query, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.ErrNotInitialized
	}

	return nil
}

// --- Lock Operations ---

// CreateLock inserts a new active lock record and assigns its id.
// Fails with ErrTokenAlreadyLocked if the token already has an active lock.
func (s *Store) CreateLock(ctx context.Context, l *Lock) error {
	query := `
		INSERT INTO locks (position_token_id, depositor, created_at, unlock_at, active)
		VALUES (?, ?, ?, ?, 1)
	`

	result, err := s.db.ExecContext(ctx, query,
		l.PositionTokenID, l.Depositor, l.CreatedAt, l.UnlockAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.ErrTokenAlreadyLocked
		}
		return fmt.Errorf("failed to create lock: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read lock id: %w", err)
	}
	l.ID = id
	l.Active = true

	return nil
}

// GetLock retrieves a lock by id.
func (s *Store) GetLock(ctx context.Context, id int64) (*Lock, error) {
	query := `
		SELECT id, position_token_id, depositor, created_at, unlock_at, active, withdrawn_at
		FROM locks WHERE id = ?
	`

	var l Lock
	var withdrawnAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&l.ID, &l.PositionTokenID, &l.Depositor, &l.CreatedAt, &l.UnlockAt,
		&l.Active, &withdrawnAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrLockNotFound
		}
		return nil, fmt.Errorf("failed to get lock: %w", err)
	}

	if withdrawnAt.Valid {
		l.WithdrawnAt = &withdrawnAt.Time
	}
	return &l, nil
}

// GetActiveLockByToken returns the active lock holding the given position
// token, if any.
func (s *Store) GetActiveLockByToken(ctx context.Context, tokenID string) (*Lock, error) {
	query := `
		SELECT id, position_token_id, depositor, created_at, unlock_at, active, withdrawn_at
		FROM locks WHERE position_token_id = ? AND active = 1
	`

	var l Lock
	var withdrawnAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, tokenID).Scan(
		&l.ID, &l.PositionTokenID, &l.Depositor, &l.CreatedAt, &l.UnlockAt,
		&l.Active, &withdrawnAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrLockNotFound
		}
		return nil, fmt.Errorf("failed to get active lock: %w", err)
	}

	if withdrawnAt.Valid {
		l.WithdrawnAt = &withdrawnAt.Time
	}
	return &l, nil
}

// CountActiveLocks returns the number of locks currently in custody.
func (s *Store) CountActiveLocks(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM locks WHERE active = 1`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count active locks: %w", err)
	}
	return n, nil
}

// ListLocks returns lock records, most recent first. With activeOnly set,
// withdrawn records are filtered out.
func (s *Store) ListLocks(ctx context.Context, activeOnly bool, limit int) ([]*Lock, error) {
	query := `
		SELECT id, position_token_id, depositor, created_at, unlock_at, active, withdrawn_at
		FROM locks
	`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list locks: %w", err)
	}
	defer rows.Close()

	var locks []*Lock
	for rows.Next() {
		var l Lock
		var withdrawnAt sql.NullTime
		if err := rows.Scan(
			&l.ID, &l.PositionTokenID, &l.Depositor, &l.CreatedAt, &l.UnlockAt,
			&l.Active, &withdrawnAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan lock: %w", err)
		}
		if withdrawnAt.Valid {
			l.WithdrawnAt = &withdrawnAt.Time
		}
		locks = append(locks, &l)
	}

	return locks, rows.Err()
}

// MarkWithdrawn flips a lock from active to withdrawn. The WHERE clause makes
// the transition one-way: a second call reports ErrAlreadyWithdrawn.
func (s *Store) MarkWithdrawn(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE locks SET active = 0, withdrawn_at = ? WHERE id = ? AND active = 1`
	result, err := s.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark lock withdrawn: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.ErrAlreadyWithdrawn
	}

	return nil
}

// RestoreActive reverts a MarkWithdrawn whose follow-up custody return
// failed. Only the registry calls this, while it still holds the operation
// guard, so the intermediate state is never observable.
func (s *Store) RestoreActive(ctx context.Context, id int64) error {
	query := `UPDATE locks SET active = 1, withdrawn_at = NULL WHERE id = ? AND active = 0`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to restore lock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.ErrLockNotFound
	}

	return nil
}

// --- Event Operations ---

// AppendEvent appends an event to the audit log.
func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	var details []byte
	if len(e.Details) > 0 {
		var err error
		details, err = json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal event details: %w", err)
		}
	}

	query := `
		INSERT INTO events (id, type, lock_id, position_token_id, caller, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.Type, e.LockID, nullString(e.PositionTokenID),
		nullString(e.Caller), nullString(string(details)), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	return nil
}

// ListEvents returns audit events, most recent first.
func (s *Store) ListEvents(ctx context.Context, limit int) ([]*Event, error) {
	query := `
		SELECT id, type, lock_id, position_token_id, caller, details, created_at
		FROM events ORDER BY created_at DESC, id DESC LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		var lockID sql.NullInt64
		var token, caller, details sql.NullString
		if err := rows.Scan(&e.ID, &e.Type, &lockID, &token, &caller, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if lockID.Valid {
			id := lockID.Int64
			e.LockID = &id
		}
		e.PositionTokenID = token.String
		e.Caller = caller.String
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &e.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event details: %w", err)
			}
		}
		events = append(events, &e)
	}

	return events, rows.Err()
}

// --- Helpers ---

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
