/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface for deployments that need the ledger to survive restarts. It
 * contains the SQL queries against the `transfers` table.
 *
 * @dependencies
 * - context, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/susupay/momo-service/internal/domain"
)

// PostgresRepository is a concrete implementation of the Repository interface
// for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateTransfer inserts a new ledger record. The primary key on
// reference_id enforces the assigned-exactly-once invariant.
func (r *PostgresRepository) CreateTransfer(ctx context.Context, transfer *domain.Transfer) error {
	query := `
		INSERT INTO transfers (reference_id, kind, amount, currency, recipient_party, message, status, provider_response, provider_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		transfer.ReferenceID,
		transfer.Kind,
		transfer.Amount,
		transfer.Currency,
		transfer.RecipientParty,
		transfer.Message,
		transfer.Status,
		transfer.ProviderResponse,
		transfer.ProviderError,
	).Scan(&transfer.CreatedAt, &transfer.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateReference
		}
		return err
	}
	return nil
}

// GetTransfer retrieves a ledger record by its reference id.
func (r *PostgresRepository) GetTransfer(ctx context.Context, referenceID string) (*domain.Transfer, error) {
	var transfer domain.Transfer
	query := `
		SELECT reference_id, kind, amount, currency, recipient_party, message, status, provider_response, provider_error, created_at, updated_at
		FROM transfers WHERE reference_id = $1`
	err := r.db.QueryRow(ctx, query, referenceID).Scan(
		&transfer.ReferenceID,
		&transfer.Kind,
		&transfer.Amount,
		&transfer.Currency,
		&transfer.RecipientParty,
		&transfer.Message,
		&transfer.Status,
		&transfer.ProviderResponse,
		&transfer.ProviderError,
		&transfer.CreatedAt,
		&transfer.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransferNotFound
		}
		return nil, err
	}
	return &transfer, nil
}

// UpdateTransferStatus refreshes the status and provider payloads of a record.
// Empty payload strings keep whatever was stored previously.
func (r *PostgresRepository) UpdateTransferStatus(ctx context.Context, referenceID string, update StatusUpdate) error {
	query := `
		UPDATE transfers
		SET status = $2,
		    provider_response = CASE WHEN $3 <> '' THEN $3 ELSE provider_response END,
		    provider_error = CASE WHEN $4 <> '' THEN $4 ELSE provider_error END,
		    updated_at = now()
		WHERE reference_id = $1`
	tag, err := r.db.Exec(ctx, query, referenceID, update.Status, update.ProviderResponse, update.ProviderError)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransferNotFound
	}
	return nil
}

// ListTransfers returns all ledger records, newest first.
func (r *PostgresRepository) ListTransfers(ctx context.Context) ([]domain.Transfer, error) {
	query := `
		SELECT reference_id, kind, amount, currency, recipient_party, message, status, provider_response, provider_error, created_at, updated_at
		FROM transfers ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []domain.Transfer
	for rows.Next() {
		var transfer domain.Transfer
		if err := rows.Scan(
			&transfer.ReferenceID,
			&transfer.Kind,
			&transfer.Amount,
			&transfer.Currency,
			&transfer.RecipientParty,
			&transfer.Message,
			&transfer.Status,
			&transfer.ProviderResponse,
			&transfer.ProviderError,
			&transfer.CreatedAt,
			&transfer.UpdatedAt,
		); err != nil {
			return nil, err
		}
		transfers = append(transfers, transfer)
	}
	return transfers, rows.Err()
}
