/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract
 * for the transfer ledger used by the momo-service. By defining an interface,
 * we decouple the application's business logic from the specific storage
 * implementation (in-memory map or PostgreSQL), making the code more modular
 * and easier to test.
 *
 * @dependencies
 * - context: Standard Go library.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"errors"

	"github.com/susupay/momo-service/internal/domain"
)

var (
	ErrTransferNotFound   = errors.New("transfer not found")
	ErrDuplicateReference = errors.New("reference id already exists")
)

// Repository defines the set of methods for interacting with the ledger.
type Repository interface {
	// CreateTransfer inserts a new ledger record. Reference ids are assigned
	// exactly once; inserting an existing id fails with ErrDuplicateReference.
	CreateTransfer(ctx context.Context, transfer *domain.Transfer) error

	// GetTransfer returns the record for a reference id, or ErrTransferNotFound.
	GetTransfer(ctx context.Context, referenceID string) (*domain.Transfer, error)

	// UpdateTransferStatus updates the status and, when non-empty, the raw
	// provider payloads of an existing record.
	UpdateTransferStatus(ctx context.Context, referenceID string, update StatusUpdate) error

	// ListTransfers returns all known records, newest first.
	ListTransfers(ctx context.Context) ([]domain.Transfer, error)
}

// StatusUpdate carries the fields a provider response may refresh on a record.
// Empty strings leave the stored payloads untouched.
type StatusUpdate struct {
	Status           string
	ProviderResponse string
	ProviderError    string
}
