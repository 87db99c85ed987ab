// Package postgres provides a PostgreSQL implementation of
// storage.Storage on top of a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/aanand-mishra/users-api/internal/storage"
	"github.com/aanand-mishra/users-api/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQL error codes
const (
	uniqueViolationCode  = "23505"
	checkViolationCode   = "23514"
	notNullViolationCode = "23502"
	// Class 08 is "connection exception", 57P03 is "cannot connect now".
	connectionExceptionClass = "08"
	cannotConnectNowCode     = "57P03"
)

const table = "users"

// id is stored as UUID and read back as text so it scans into
// types.User.ID.
var columns = []string{"id::text AS id", "name", "email", "age"}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id    UUID    PRIMARY KEY,
	seq   BIGINT  GENERATED ALWAYS AS IDENTITY,
	name  TEXT    NOT NULL,
	email TEXT    NOT NULL,
	age   INTEGER NOT NULL CHECK (age >= 0)
)`

// Postgres implements storage.Storage with a *pgxpool.Pool, which is
// safe for concurrent use.
type Postgres struct {
	pool *pgxpool.Pool
	qb   sq.StatementBuilderType
}

var _ storage.Storage = (*Postgres)(nil)

// New connects to dsn, verifies the connection and creates the users
// table if needed.
func New(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", MapError(err))
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: create table: %w", MapError(err))
	}

	return &Postgres{
		pool: pool,
		qb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}, nil
}

// MapError maps a database error to a storage sentinel, wrapping the
// original so it stays available for logs.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %v", storage.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == uniqueViolationCode:
			return fmt.Errorf("%w: %v", storage.ErrDuplicate, err)
		case pgErr.Code == checkViolationCode,
			pgErr.Code == notNullViolationCode:
			return fmt.Errorf("%w: %s: %v", storage.ErrInvalidEntity, pgErr.ConstraintName, err)
		case strings.HasPrefix(pgErr.Code, connectionExceptionClass),
			pgErr.Code == cannotConnectNowCode:
			return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return err
}

func parseID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q", storage.ErrInvalidID, id)
	}
	return parsed.String(), nil
}

func (p *Postgres) queryOne(ctx context.Context, b sq.Sqlizer) (types.User, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return types.User{}, fmt.Errorf("build query: %w", err)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return types.User{}, MapError(err)
	}
	user, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[types.User])
	if err != nil {
		return types.User{}, MapError(err)
	}
	return user, nil
}

func (p *Postgres) CreateUser(ctx context.Context, req types.CreateUserRequest) (types.User, error) {
	user := types.NewUser(uuid.NewString(), req)

	query, args, err := p.qb.Insert(table).
		Columns("id", "name", "email", "age").
		Values(user.ID, user.Name, user.Email, user.Age).
		ToSql()
	if err != nil {
		return types.User{}, fmt.Errorf("CreateUser: build: %w", err)
	}

	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return types.User{}, fmt.Errorf("CreateUser: exec: %w", MapError(err))
	}
	return user, nil
}

// ListUsers returns every row in insertion order.
func (p *Postgres) ListUsers(ctx context.Context) ([]types.User, error) {
	query, args, err := p.qb.Select(columns...).From(table).OrderBy("seq").ToSql()
	if err != nil {
		return nil, fmt.Errorf("ListUsers: build: %w", err)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListUsers: query: %w", MapError(err))
	}
	users, err := pgx.CollectRows(rows, pgx.RowToStructByName[types.User])
	if err != nil {
		return nil, fmt.Errorf("ListUsers: scan: %w", MapError(err))
	}
	if users == nil {
		users = make([]types.User, 0)
	}
	return users, nil
}

func (p *Postgres) GetUserByID(ctx context.Context, id string) (types.User, error) {
	key, err := parseID(id)
	if err != nil {
		return types.User{}, err
	}

	user, err := p.queryOne(ctx, p.qb.Select(columns...).From(table).Where(sq.Eq{"id": key}))
	if err != nil {
		return types.User{}, fmt.Errorf("GetUserByID %s: %w", key, err)
	}
	return user, nil
}

// UpdateUserByID applies the patch and returns the post-update row in
// one statement.
func (p *Postgres) UpdateUserByID(ctx context.Context, id string, patch types.UserPatch) (types.User, error) {
	key, err := parseID(id)
	if err != nil {
		return types.User{}, err
	}

	if patch.IsEmpty() {
		return p.GetUserByID(ctx, key)
	}

	set := make(map[string]any, 3)
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Email != nil {
		set["email"] = *patch.Email
	}
	if patch.Age != nil {
		set["age"] = *patch.Age
	}

	user, err := p.queryOne(ctx, p.qb.Update(table).
		SetMap(set).
		Where(sq.Eq{"id": key}).
		Suffix("RETURNING "+strings.Join(columns, ", ")))
	if err != nil {
		return types.User{}, fmt.Errorf("UpdateUserByID %s: %w", key, err)
	}
	return user, nil
}

func (p *Postgres) DeleteUserByID(ctx context.Context, id string) error {
	key, err := parseID(id)
	if err != nil {
		return err
	}

	query, args, err := p.qb.Delete(table).Where(sq.Eq{"id": key}).ToSql()
	if err != nil {
		return fmt.Errorf("DeleteUserByID: build: %w", err)
	}

	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("DeleteUserByID %s: %w", key, MapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("DeleteUserByID %s: %w", key, storage.ErrNotFound)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", MapError(err))
	}
	return nil
}

func (p *Postgres) Close(context.Context) error {
	p.pool.Close()
	return nil
}

