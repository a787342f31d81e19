package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"spendbook/internal/core"
	"spendbook/internal/identity"
)

// SQLiteRepository persists records, users and sessions in a single SQLite
// database. It implements records.Store and identity.Store.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateRecord implements records.Store. The record id is generated here.
func (r *SQLiteRepository) CreateRecord(ctx context.Context, rec core.Record) (core.Record, error) {
	rec.ID = uuid.NewString()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO records (id, owner, text, amount_cents, category, date) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Owner, rec.Text, rec.Amount.Cents, string(rec.Category), rec.Date.UTC().Format(time.RFC3339))
	if err != nil {
		return core.Record{}, fmt.Errorf("insert record: %w", err)
	}

	slog.InfoContext(ctx, "Record saved to SQLite",
		"record_id", rec.ID,
		"owner", rec.Owner,
		"amount_cents", rec.Amount.Cents,
		"category", rec.Category)

	return rec, nil
}

// GetRecord implements records.Store.
func (r *SQLiteRepository) GetRecord(ctx context.Context, id string) (core.Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner, text, amount_cents, category, date FROM records WHERE id = ?`, id)
	return scanRecord(row)
}

// ListByOwner implements records.Store, ordered by date descending.
func (r *SQLiteRepository) ListByOwner(ctx context.Context, owner string) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner, text, amount_cents, category, date FROM records WHERE owner = ? ORDER BY date DESC`,
		owner)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var recs []core.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// UpdateRecord implements records.Store. Only text, amount and category are
// written; owner and date stay as created.
func (r *SQLiteRepository) UpdateRecord(ctx context.Context, rec core.Record) (core.Record, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE records SET text = ?, amount_cents = ?, category = ?, exported = 0, export_error = 0 WHERE id = ?`,
		rec.Text, rec.Amount.Cents, string(rec.Category), rec.ID)
	if err != nil {
		return core.Record{}, fmt.Errorf("update record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.Record{}, core.ErrNotFound
	}
	return r.GetRecord(ctx, rec.ID)
}

// DeleteRecord implements records.Store. Removal is permanent.
func (r *SQLiteRepository) DeleteRecord(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ListUnexported returns records not yet pushed to the spreadsheet export,
// oldest first. Used by the worker's startup and periodic scans.
func (r *SQLiteRepository) ListUnexported(ctx context.Context, limit int) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner, text, amount_cents, category, date FROM records
		 WHERE exported = 0 AND export_error = 0 ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unexported records: %w", err)
	}
	defer rows.Close()

	var recs []core.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// MarkExported flags a record as successfully exported.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE records SET exported = 1, export_error = 0 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark record exported: %w", err)
	}
	return nil
}

// MarkExportError flags a record so the periodic scan stops retrying it.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE records SET export_error = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark record export error: %w", err)
	}
	slog.WarnContext(ctx, "Record marked with export error", "record_id", id)
	return nil
}

// CreateUser implements identity.Store.
func (r *SQLiteRepository) CreateUser(ctx context.Context, username, passwordHash string) (identity.User, error) {
	user := identity.User{
		ID:        uuid.NewString(),
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Username, passwordHash, user.CreatedAt.Format(time.RFC3339))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return identity.User{}, identity.ErrUserExists
		}
		return identity.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// GetUserByUsername implements identity.Store, returning the stored password
// hash alongside the user.
func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (identity.User, string, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`, username)

	var u identity.User
	var hash, createdAt string
	if err := row.Scan(&u.ID, &u.Username, &hash, &createdAt); err != nil {
		return identity.User{}, "", fmt.Errorf("query user: %w", err)
	}
	u.CreatedAt = parseStoredTime(createdAt)
	return u, hash, nil
}

// GetUserByID implements identity.Store.
func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (identity.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, username, created_at FROM users WHERE id = ?`, id)

	var u identity.User
	var createdAt string
	if err := row.Scan(&u.ID, &u.Username, &createdAt); err != nil {
		return identity.User{}, fmt.Errorf("query user: %w", err)
	}
	u.CreatedAt = parseStoredTime(createdAt)
	return u, nil
}

// CreateSession implements identity.Store.
func (r *SQLiteRepository) CreateSession(ctx context.Context, s identity.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		s.Token, s.UserID, s.ExpiresAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession implements identity.Store.
func (r *SQLiteRepository) GetSession(ctx context.Context, token string) (identity.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT token, user_id, expires_at FROM sessions WHERE token = ?`, token)

	var s identity.Session
	var expiresAt string
	if err := row.Scan(&s.Token, &s.UserID, &expiresAt); err != nil {
		return identity.Session{}, fmt.Errorf("query session: %w", err)
	}
	s.ExpiresAt = parseStoredTime(expiresAt)
	return s, nil
}

// DeleteSession implements identity.Store.
func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions implements identity.Store.
func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (core.Record, error) {
	var rec core.Record
	var category, date string
	if err := row.Scan(&rec.ID, &rec.Owner, &rec.Text, &rec.Amount.Cents, &category, &date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Record{}, core.ErrNotFound
		}
		return core.Record{}, fmt.Errorf("scan record: %w", err)
	}
	rec.Category = core.Category(category)
	rec.Date = core.Date{Time: parseStoredTime(date)}
	return rec, nil
}

// parseStoredTime decodes the RFC3339 timestamps this repository writes. A
// zero time comes back for anything unparseable rather than an error; the
// domain validation catches it downstream.
func parseStoredTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
