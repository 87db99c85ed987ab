// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface.
//
// WHY SQLite?
// ───────────
// SQLite stores everything in a single file on disk. There is no
// network, no separate server process, and no installation beyond the
// driver. It is the default backend of config/local.yaml and the one the
// handler tests run against.
//
// Queries are built with squirrel and scanned with sqlx, which maps the
// db:"..." tags of types.User onto the selected columns.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/aanand-mishra/users-api/internal/storage"
	"github.com/aanand-mishra/users-api/internal/types"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

const table = "users"

var columns = []string{"id", "name", "email", "age"}

// SQLite is the concrete implementation of storage.Storage.
// It holds a *sqlx.DB which wraps the connection pool of database/sql.
// A single *sqlx.DB is safe for concurrent use by multiple goroutines.
type SQLite struct {
	db *sqlx.DB
	qb sq.StatementBuilderType
}

var _ storage.Storage = (*SQLite)(nil)

// New opens the SQLite database at path, creates the users table if it
// does not already exist, and returns a ready-to-use *SQLite.
//
// path may be ":memory:" for a throwaway database.
func New(ctx context.Context, path string) (*SQLite, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite.New: create dir: %w", err)
		}
	}

	// sql.Open does NOT open a real connection yet; it just validates
	// the driver name and data source name (DSN).
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// SQLite serialises writers anyway, and every connection to
	// ":memory:" would otherwise see its own empty database.
	db.SetMaxOpenConns(1)

	// CREATE TABLE IF NOT EXISTS is idempotent, so safe to run on every
	// startup. If the table already exists nothing happens.
	//
	// Schema:
	//   id    UUID assigned by CreateUser, text primary key
	//   name  user's name
	//   email user's email address (not unique)
	//   age   age in years
	//
	// The implicit rowid keeps insertion order for ListUsers.
	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id    TEXT    PRIMARY KEY,
			name  TEXT    NOT NULL,
			email TEXT    NOT NULL,
			age   INTEGER NOT NULL CHECK (age >= 0)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create table: %w", mapError(err))
	}

	return &SQLite{
		db: db,
		qb: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}, nil
}

// mapError translates driver errors into the storage sentinels.
func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", storage.ErrNotFound, err)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch {
		case sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique,
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %v", storage.ErrDuplicate, err)
		case sqliteErr.Code == sqlite3.ErrConstraint:
			return fmt.Errorf("%w: %v", storage.ErrInvalidEntity, err)
		case sqliteErr.Code == sqlite3.ErrBusy,
			sqliteErr.Code == sqlite3.ErrLocked,
			sqliteErr.Code == sqlite3.ErrCantOpen:
			return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
		}
	}
	return err
}

// parseID validates and normalises a UUID path id.
// Malformed ids never reach the database.
func parseID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q", storage.ErrInvalidID, id)
	}
	return parsed.String(), nil
}

// CreateUser inserts a new row. The UUID is generated here, so the row
// can be returned without a second query.
func (s *SQLite) CreateUser(ctx context.Context, req types.CreateUserRequest) (types.User, error) {
	user := types.NewUser(uuid.NewString(), req)

	query, args, err := s.qb.Insert(table).
		Columns(columns...).
		Values(user.ID, user.Name, user.Email, user.Age).
		ToSql()
	if err != nil {
		return types.User{}, fmt.Errorf("CreateUser: build: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return types.User{}, fmt.Errorf("CreateUser: exec: %w", mapError(err))
	}
	return user, nil
}

// ListUsers returns all rows in insertion order.
func (s *SQLite) ListUsers(ctx context.Context) ([]types.User, error) {
	query, args, err := s.qb.Select(columns...).From(table).OrderBy("rowid").ToSql()
	if err != nil {
		return nil, fmt.Errorf("ListUsers: build: %w", err)
	}

	// Pre-allocate an empty (non-nil) slice.
	// Returning [] instead of null in JSON is better API behaviour.
	users := make([]types.User, 0)
	if err := s.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("ListUsers: select: %w", mapError(err))
	}
	return users, nil
}

func (s *SQLite) GetUserByID(ctx context.Context, id string) (types.User, error) {
	key, err := parseID(id)
	if err != nil {
		return types.User{}, err
	}

	query, args, err := s.qb.Select(columns...).From(table).Where(sq.Eq{"id": key}).Limit(1).ToSql()
	if err != nil {
		return types.User{}, fmt.Errorf("GetUserByID: build: %w", err)
	}

	var user types.User
	if err := s.db.GetContext(ctx, &user, query, args...); err != nil {
		return types.User{}, fmt.Errorf("GetUserByID %s: %w", key, mapError(err))
	}
	return user, nil
}

// UpdateUserByID sets the provided columns and reads the row back in
// the same statement with RETURNING, so the update and the read cannot
// interleave with another writer.
func (s *SQLite) UpdateUserByID(ctx context.Context, id string, patch types.UserPatch) (types.User, error) {
	key, err := parseID(id)
	if err != nil {
		return types.User{}, err
	}

	set := setClause(patch)
	if len(set) == 0 {
		return s.GetUserByID(ctx, key)
	}

	query, args, err := s.qb.Update(table).
		SetMap(set).
		Where(sq.Eq{"id": key}).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return types.User{}, fmt.Errorf("UpdateUserByID: build: %w", err)
	}

	var user types.User
	if err := s.db.GetContext(ctx, &user, query, args...); err != nil {
		return types.User{}, fmt.Errorf("UpdateUserByID %s: %w", key, mapError(err))
	}
	return user, nil
}

func (s *SQLite) DeleteUserByID(ctx context.Context, id string) error {
	key, err := parseID(id)
	if err != nil {
		return err
	}

	query, args, err := s.qb.Delete(table).Where(sq.Eq{"id": key}).ToSql()
	if err != nil {
		return fmt.Errorf("DeleteUserByID: build: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("DeleteUserByID %s: exec: %w", key, mapError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteUserByID %s: rows affected: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("DeleteUserByID %s: %w", key, storage.ErrNotFound)
	}
	return nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping: %w", mapError(err))
	}
	return nil
}

func (s *SQLite) Close(context.Context) error {
	return s.db.Close()
}

// setClause turns the non-nil fields of a patch into a column map.
func setClause(p types.UserPatch) map[string]any {
	set := make(map[string]any, 3)
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Email != nil {
		set["email"] = *p.Email
	}
	if p.Age != nil {
		set["age"] = *p.Age
	}
	return set
}
