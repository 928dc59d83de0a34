package wallet

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

const uniqueViolation = "23505"

// Repository persists wallets and reads network reference data.
type Repository interface {
	Create(ctx context.Context, wallet Wallet) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (Wallet, error)
	// FindByUser returns the first wallet of userID on one of networkIDs.
	FindByUser(ctx context.Context, userID string, networkIDs []string) (Wallet, error)
	Network(ctx context.Context, id string) (Network, error)
	NetworksByPlatform(ctx context.Context, platform string) ([]Network, error)
}

// PostgresRepository stores wallets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a wallet record. A duplicate address yields apperr.ErrConflict.
func (r *PostgresRepository) Create(ctx context.Context, wallet Wallet) error {
	_, err := r.db.Exec(ctx, `INSERT INTO wallets (id, user_id, network_id, is_primary, created_at)
        VALUES ($1, $2, $3, $4, $5)`, wallet.ID, wallet.UserID, wallet.NetworkID, wallet.Primary, wallet.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("wallet %s: %w", wallet.ID, apperr.ErrConflict)
	}
	return err
}

// Delete removes a wallet; missing wallets are ignored.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM wallets WHERE id = $1`, id)
	return err
}

// Get fetches a wallet by address.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Wallet, error) {
	row := r.db.QueryRow(ctx, `SELECT id, user_id, network_id, is_primary, created_at
        FROM wallets WHERE id = $1`, id)
	return scanWallet(row)
}

// FindByUser fetches the user's wallet living on one of the given networks.
func (r *PostgresRepository) FindByUser(ctx context.Context, userID string, networkIDs []string) (Wallet, error) {
	row := r.db.QueryRow(ctx, `SELECT id, user_id, network_id, is_primary, created_at
        FROM wallets WHERE user_id = $1 AND network_id = ANY($2)
        ORDER BY is_primary DESC, created_at ASC LIMIT 1`, userID, networkIDs)
	return scanWallet(row)
}

// Network fetches a network by identifier.
func (r *PostgresRepository) Network(ctx context.Context, id string) (Network, error) {
	var n Network
	err := r.db.QueryRow(ctx, `SELECT id, platform, chain_id, rpc_url FROM networks WHERE id = $1`, id).
		Scan(&n.ID, &n.Platform, &n.ChainID, &n.RPCURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return Network{}, fmt.Errorf("network %s: %w", id, apperr.ErrNotFound)
	}
	return n, err
}

// NetworksByPlatform lists networks of a blockchain platform.
func (r *PostgresRepository) NetworksByPlatform(ctx context.Context, platform string) ([]Network, error) {
	rows, err := r.db.Query(ctx, `SELECT id, platform, chain_id, rpc_url FROM networks WHERE platform = $1`, platform)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Network
	for rows.Next() {
		var n Network
		if err := rows.Scan(&n.ID, &n.Platform, &n.ChainID, &n.RPCURL); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var w Wallet
	var createdAt time.Time
	if err := row.Scan(&w.ID, &w.UserID, &w.NetworkID, &w.Primary, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, fmt.Errorf("wallet: %w", apperr.ErrNotFound)
		}
		return Wallet{}, err
	}
	w.CreatedAt = createdAt.UTC()
	return w, nil
}
