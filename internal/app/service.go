/**
 * @description
 * This file contains the core business logic for the momo-service. The
 * `Service` struct orchestrates all money movement operations, coordinating
 * between the transfer ledger, the provider's disbursement API client, and
 * the message broker.
 *
 * Key features:
 * - Implements the three money movement use cases: Donate, Save, Withdraw.
 *   Donations and savings always pay the platform party; withdrawals pay the
 *   caller's own phone.
 * - Writes the ledger record BEFORE the provider call so failed attempts stay
 *   auditable, then updates it with the provider's response.
 * - Serves transfer status from the local ledger when the status is terminal,
 *   re-querying the provider only while a transfer is still in flight.
 * - Publishes transfer status events to RabbitMQ for asynchronous consumers.
 *
 * @dependencies
 * - context, errors, fmt, log, strings, time: Standard Go libraries.
 * - github.com/google/uuid: For collision-resistant reference id generation.
 * - internal/domain, internal/store: For domain models and ledger access.
 * - pkg/momoclient, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/susupay/momo-service/internal/domain"
	"github.com/susupay/momo-service/internal/store"
	"github.com/susupay/momo-service/pkg/momoclient"
	"github.com/susupay/momo-service/pkg/rabbitmq"
)

// MinTransferAmount is the platform-level minimum for any money movement, in
// whole currency units.
const MinTransferAmount = 100

// minPhoneDigits is the shortest MSISDN we accept after stripping formatting.
const minPhoneDigits = 10

var (
	ErrInvalidAmount = fmt.Errorf("amount must be at least %d", MinTransferAmount)
	ErrInvalidPhone  = fmt.Errorf("phone number must contain at least %d digits", minPhoneDigits)
	ErrMissingGoal   = errors.New("savings goal is required")
)

// ProviderClient abstracts the disbursement API client so tests can count and
// stub provider calls.
type ProviderClient interface {
	Transfer(ctx context.Context, req momoclient.TransferRequest) (*momoclient.TransferResult, error)
	GetTransfer(ctx context.Context, referenceID string) (*momoclient.TransferStatus, error)
}

// Service provides the core business logic for transfers.
type Service struct {
	repo          store.Repository
	provider      ProviderClient
	eventProducer rabbitmq.Publisher
	platformParty string
	currency      string
}

// NewService creates a new transfer service instance.
func NewService(repo store.Repository, provider ProviderClient, producer rabbitmq.Publisher, platformParty, currency string) *Service {
	return &Service{
		repo:          repo,
		provider:      provider,
		eventProducer: producer,
		platformParty: platformParty,
		currency:      currency,
	}
}

// PlatformParty returns the platform's own payee identifier.
func (s *Service) PlatformParty() string {
	return s.platformParty
}

// NormalizePhone strips every non-digit character from the input and requires
// the remainder to be a plausible MSISDN.
func NormalizePhone(phone string) (string, error) {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() < minPhoneDigits {
		return "", ErrInvalidPhone
	}
	return digits.String(), nil
}

// Donate validates a donation request and moves the amount from the caller to
// the platform party. The phone identifies the donor but donations always
// flow to the platform.
func (s *Service) Donate(ctx context.Context, req domain.DonateRequest) (*domain.Transfer, error) {
	if req.Amount < MinTransferAmount {
		return nil, ErrInvalidAmount
	}
	donorPhone, err := NormalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}

	message := fmt.Sprintf("Donation from %s", donorPhone)
	if note := strings.TrimSpace(req.Message); note != "" {
		message = fmt.Sprintf("%s: %s", message, note)
	}

	return s.initiateTransfer(ctx, domain.KindDonation, req.Amount, s.platformParty, message)
}

// Save validates a savings deposit and moves the amount to the platform
// party. Functionally the same money path as Donate with a different message;
// the frequency defaults to monthly.
func (s *Service) Save(ctx context.Context, req domain.SaveRequest) (*domain.Transfer, error) {
	goal := strings.TrimSpace(req.Goal)
	if goal == "" {
		return nil, ErrMissingGoal
	}
	if req.Amount < MinTransferAmount {
		return nil, ErrInvalidAmount
	}
	frequency := strings.TrimSpace(req.Frequency)
	if frequency == "" {
		frequency = "monthly"
	}

	message := fmt.Sprintf("Savings deposit toward %q (%s)", goal, frequency)
	return s.initiateTransfer(ctx, domain.KindSavings, req.Amount, s.platformParty, message)
}

// Withdraw validates a withdrawal and moves the amount from the platform to
// the caller's phone.
func (s *Service) Withdraw(ctx context.Context, req domain.WithdrawRequest) (*domain.Transfer, error) {
	if req.Amount < MinTransferAmount {
		return nil, ErrInvalidAmount
	}
	payeePhone, err := NormalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}

	message := fmt.Sprintf("Withdrawal to %s", payeePhone)
	return s.initiateTransfer(ctx, domain.KindWithdrawal, req.Amount, payeePhone, message)
}

// initiateTransfer records the transfer, issues the provider call, and
// updates the record with the outcome. The record is written before the call
// so a rejected or unreachable provider still leaves an auditable FAILED row.
func (s *Service) initiateTransfer(ctx context.Context, kind string, amount int64, payee, message string) (*domain.Transfer, error) {
	transfer := &domain.Transfer{
		ReferenceID:    uuid.NewString(),
		Kind:           kind,
		Amount:         amount,
		Currency:       s.currency,
		RecipientParty: payee,
		Message:        message,
		Status:         domain.StatusInitiated,
	}
	if err := s.repo.CreateTransfer(ctx, transfer); err != nil {
		return nil, fmt.Errorf("failed to record transfer: %w", err)
	}

	result, err := s.provider.Transfer(ctx, momoclient.TransferRequest{
		ReferenceID:  transfer.ReferenceID,
		Amount:       amount,
		Currency:     s.currency,
		PartyID:      payee,
		PayerMessage: message,
		PayeeNote:    message,
	})
	if err != nil {
		log.Printf("level=warn component=app op=%s outcome=failed reference_id=%s amount=%d err=%v", kind, transfer.ReferenceID, amount, err)
		update := store.StatusUpdate{Status: domain.StatusFailed, ProviderError: err.Error()}
		var provErr *momoclient.ErrorResponse
		if errors.As(err, &provErr) && provErr.Raw != "" {
			update.ProviderError = provErr.Raw
		}
		if updateErr := s.repo.UpdateTransferStatus(ctx, transfer.ReferenceID, update); updateErr != nil {
			log.Printf("level=error component=app msg=\"failed to mark transfer failed\" reference_id=%s err=%v", transfer.ReferenceID, updateErr)
		}
		s.publishStatusEvent(ctx, "transfer.status.failed", transfer, domain.StatusFailed, err.Error())
		return nil, fmt.Errorf("transfer %s failed: %w", transfer.ReferenceID, err)
	}

	if err := s.repo.UpdateTransferStatus(ctx, transfer.ReferenceID, store.StatusUpdate{
		Status:           domain.StatusAccepted,
		ProviderResponse: result.Raw,
	}); err != nil {
		log.Printf("level=error component=app msg=\"failed to mark transfer accepted\" reference_id=%s err=%v", transfer.ReferenceID, err)
	}

	log.Printf("level=info component=app op=%s outcome=accepted reference_id=%s amount=%d payee=%s", kind, transfer.ReferenceID, amount, payee)
	s.publishStatusEvent(ctx, "transfer.status.accepted", transfer, domain.StatusAccepted, "")

	accepted, err := s.repo.GetTransfer(ctx, transfer.ReferenceID)
	if err != nil {
		// The record was just written; fall back to the local copy.
		transfer.Status = domain.StatusAccepted
		return transfer, nil
	}
	return accepted, nil
}

// GetTransferStatus implements the status lookup policy: a terminal cached
// record is served without a provider call; a non-terminal record is
// refreshed from the provider; an unknown reference falls back to a direct
// provider lookup before reporting not found.
func (s *Service) GetTransferStatus(ctx context.Context, referenceID string) (*domain.Transfer, *momoclient.TransferStatus, error) {
	transfer, err := s.repo.GetTransfer(ctx, referenceID)
	if err != nil {
		if !errors.Is(err, store.ErrTransferNotFound) {
			return nil, nil, err
		}
		// Unknown locally; the provider may still recognize the reference.
		providerStatus, provErr := s.provider.GetTransfer(ctx, referenceID)
		if provErr != nil {
			return nil, nil, store.ErrTransferNotFound
		}
		return transferFromProviderStatus(referenceID, providerStatus), providerStatus, nil
	}

	if transfer.IsTerminal() {
		return transfer, nil, nil
	}

	providerStatus, err := s.provider.GetTransfer(ctx, referenceID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query transfer status: %w", err)
	}

	if providerStatus.Status != "" && !strings.EqualFold(providerStatus.Status, transfer.Status) {
		update := store.StatusUpdate{
			Status:           strings.ToUpper(providerStatus.Status),
			ProviderResponse: providerStatus.Raw,
		}
		if err := s.repo.UpdateTransferStatus(ctx, referenceID, update); err != nil {
			log.Printf("level=error component=app msg=\"failed to refresh transfer status\" reference_id=%s err=%v", referenceID, err)
		} else {
			transfer.Status = update.Status
			transfer.ProviderResponse = providerStatus.Raw
			transfer.UpdatedAt = time.Now().UTC()
		}
		s.publishStatusEvent(ctx, "transfer.status.refreshed", transfer, transfer.Status, providerStatus.Reason.Message)
	}

	return transfer, providerStatus, nil
}

// ListTransfers returns every ledger record, newest first.
func (s *Service) ListTransfers(ctx context.Context) ([]domain.Transfer, error) {
	return s.repo.ListTransfers(ctx)
}

// transferFromProviderStatus synthesizes a read-only view for a reference the
// ledger does not know (e.g. after a restart wiped the in-memory ledger). The
// view is not written back to the ledger.
func transferFromProviderStatus(referenceID string, status *momoclient.TransferStatus) *domain.Transfer {
	amount, err := strconv.ParseInt(status.Amount, 10, 64)
	if err != nil {
		amount = 0
	}
	return &domain.Transfer{
		ReferenceID:      referenceID,
		Amount:           amount,
		Currency:         status.Currency,
		RecipientParty:   status.PayeeParty(),
		Status:           strings.ToUpper(status.Status),
		ProviderResponse: status.Raw,
	}
}

func (s *Service) publishStatusEvent(ctx context.Context, routingKey string, transfer *domain.Transfer, status, reason string) {
	event := rabbitmq.TransferStatusEvent{
		ReferenceID:    transfer.ReferenceID,
		Kind:           transfer.Kind,
		Status:         status,
		Amount:         transfer.Amount,
		RecipientParty: transfer.RecipientParty,
		Reason:         reason,
		Timestamp:      time.Now().UTC(),
	}
	if err := s.eventProducer.PublishTransferStatusEvent(ctx, routingKey, event); err != nil {
		log.Printf("level=warn component=app msg=\"transfer event publish failed\" routing_key=%s reference_id=%s err=%v", routingKey, transfer.ReferenceID, err)
	}
}
