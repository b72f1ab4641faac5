/**
 * @description
 * This file provides the in-memory implementation of the `Repository`
 * interface. It is the default ledger when no database is configured and the
 * one used by the test suite. Records live for the lifetime of the process
 * and are never deleted.
 *
 * @dependencies
 * - context, sort, sync, time: Standard Go libraries.
 * - internal/domain: Contains the domain models.
 */

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/susupay/momo-service/internal/domain"
)

// MemoryRepository is a mutex-guarded map keyed by reference id.
type MemoryRepository struct {
	mu        sync.RWMutex
	transfers map[string]domain.Transfer
}

// NewMemoryRepository creates an empty in-memory ledger.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{transfers: make(map[string]domain.Transfer)}
}

// CreateTransfer inserts a new record, rejecting reference id reuse.
func (r *MemoryRepository) CreateTransfer(ctx context.Context, transfer *domain.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.transfers[transfer.ReferenceID]; exists {
		return ErrDuplicateReference
	}

	now := time.Now().UTC()
	if transfer.CreatedAt.IsZero() {
		transfer.CreatedAt = now
	}
	transfer.UpdatedAt = now
	r.transfers[transfer.ReferenceID] = *transfer
	return nil
}

// GetTransfer returns a copy of the record for a reference id.
func (r *MemoryRepository) GetTransfer(ctx context.Context, referenceID string) (*domain.Transfer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	transfer, ok := r.transfers[referenceID]
	if !ok {
		return nil, ErrTransferNotFound
	}
	return &transfer, nil
}

// UpdateTransferStatus refreshes the status and provider payloads of a record.
func (r *MemoryRepository) UpdateTransferStatus(ctx context.Context, referenceID string, update StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	transfer, ok := r.transfers[referenceID]
	if !ok {
		return ErrTransferNotFound
	}

	transfer.Status = update.Status
	if update.ProviderResponse != "" {
		transfer.ProviderResponse = update.ProviderResponse
	}
	if update.ProviderError != "" {
		transfer.ProviderError = update.ProviderError
	}
	transfer.UpdatedAt = time.Now().UTC()
	r.transfers[referenceID] = transfer
	return nil
}

// ListTransfers returns all records, newest first.
func (r *MemoryRepository) ListTransfers(ctx context.Context) ([]domain.Transfer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Transfer, 0, len(r.transfers))
	for _, transfer := range r.transfers {
		out = append(out, transfer)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
