package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/myriad-social/myriad_api/internal/apperr"
)

// ErrNonceConflict is returned when a nonce advance loses against a
// concurrent advance of the same nonce.
var ErrNonceConflict = fmt.Errorf("nonce already consumed: %w", apperr.ErrAuthentication)

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	// AdvanceNonce moves the nonce from expected to expected+1, failing with
	// ErrNonceConflict when the stored nonce no longer equals expected.
	AdvanceNonce(ctx context.Context, id string, expected int64) (int64, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, name, username, COALESCE(email, ''), nonce, permissions, full_access, created_at, updated_at`

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	var email any
	if user.Email != "" {
		email = user.Email
	}
	permissions := user.Permissions
	if permissions == nil {
		permissions = []string{}
	}
	_, err := r.db.Exec(ctx, `INSERT INTO users (id, name, username, email, nonce, permissions, full_access, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.Name, user.Username, email, user.Nonce, permissions, user.FullAccess, user.CreatedAt.UTC(), user.UpdatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("user %s: %w", user.ID, apperr.ErrConflict)
	}
	return err
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// FindByUsername fetches a user by username.
func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

// FindByEmail fetches a user by email address.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// AdvanceNonce performs a conditional update on the nonce column.
func (r *PostgresRepository) AdvanceNonce(ctx context.Context, id string, expected int64) (int64, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE users SET nonce = nonce + 1, updated_at = $3
        WHERE id = $1 AND nonce = $2`, id, expected, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if cmd.RowsAffected() == 0 {
		return 0, ErrNonceConflict
	}
	return expected + 1, nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.Nonce, &u.Permissions, &u.FullAccess, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, fmt.Errorf("user: %w", apperr.ErrNotFound)
		}
		return User{}, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}
