package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/susupay/momo-service/internal/domain"
	"github.com/susupay/momo-service/internal/store"
	"github.com/susupay/momo-service/pkg/momoclient"
	"github.com/susupay/momo-service/pkg/rabbitmq"
)

const testPlatformParty = "231880000000"

type providerStub struct {
	transferCalls int
	statusCalls   int

	transferErr error
	lastRequest momoclient.TransferRequest

	status    *momoclient.TransferStatus
	statusErr error
}

func (p *providerStub) Transfer(ctx context.Context, req momoclient.TransferRequest) (*momoclient.TransferResult, error) {
	p.transferCalls++
	p.lastRequest = req
	if p.transferErr != nil {
		return nil, p.transferErr
	}
	return &momoclient.TransferResult{ReferenceID: req.ReferenceID}, nil
}

func (p *providerStub) GetTransfer(ctx context.Context, referenceID string) (*momoclient.TransferStatus, error) {
	p.statusCalls++
	if p.statusErr != nil {
		return nil, p.statusErr
	}
	return p.status, nil
}

type publisherStub struct {
	routingKeys []string
}

func (p *publisherStub) PublishTransferStatusEvent(ctx context.Context, routingKey string, event rabbitmq.TransferStatusEvent) error {
	p.routingKeys = append(p.routingKeys, routingKey)
	return nil
}

func (p *publisherStub) Close() {}

func newTestService(provider *providerStub) (*Service, *store.MemoryRepository, *publisherStub) {
	repo := store.NewMemoryRepository()
	publisher := &publisherStub{}
	return NewService(repo, provider, publisher, testPlatformParty, "EUR"), repo, publisher
}

func TestTransfers_RejectAmountBelowMinimum(t *testing.T) {
	tests := []struct {
		name string
		run  func(s *Service) error
	}{
		{
			name: "donate",
			run: func(s *Service) error {
				_, err := s.Donate(context.Background(), domain.DonateRequest{Phone: "231887716973", Amount: 99})
				return err
			},
		},
		{
			name: "save",
			run: func(s *Service) error {
				_, err := s.Save(context.Background(), domain.SaveRequest{Goal: "school fees", Amount: 50})
				return err
			},
		},
		{
			name: "withdraw",
			run: func(s *Service) error {
				_, err := s.Withdraw(context.Background(), domain.WithdrawRequest{Phone: "231887716973", Amount: 1})
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &providerStub{}
			service, repo, _ := newTestService(provider)

			if err := tt.run(service); !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("expected ErrInvalidAmount, got %v", err)
			}
			if provider.transferCalls != 0 {
				t.Fatalf("expected no provider calls, got %d", provider.transferCalls)
			}
			transfers, _ := repo.ListTransfers(context.Background())
			if len(transfers) != 0 {
				t.Fatalf("expected empty ledger, got %d records", len(transfers))
			}
		})
	}
}

func TestTransfers_RejectShortPhone(t *testing.T) {
	provider := &providerStub{}
	service, repo, _ := newTestService(provider)

	if _, err := service.Donate(context.Background(), domain.DonateRequest{Phone: "123", Amount: 500}); !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("expected ErrInvalidPhone from donate, got %v", err)
	}
	if _, err := service.Withdraw(context.Background(), domain.WithdrawRequest{Phone: "+1 (23) 4", Amount: 500}); !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("expected ErrInvalidPhone from withdraw, got %v", err)
	}

	if provider.transferCalls != 0 {
		t.Fatalf("expected no provider calls, got %d", provider.transferCalls)
	}
	transfers, _ := repo.ListTransfers(context.Background())
	if len(transfers) != 0 {
		t.Fatalf("expected no ledger entry for rejected requests, got %d", len(transfers))
	}
}

func TestSave_RequiresGoal(t *testing.T) {
	provider := &providerStub{}
	service, _, _ := newTestService(provider)

	if _, err := service.Save(context.Background(), domain.SaveRequest{Goal: "  ", Amount: 500}); !errors.Is(err, ErrMissingGoal) {
		t.Fatalf("expected ErrMissingGoal, got %v", err)
	}
	if provider.transferCalls != 0 {
		t.Fatalf("expected no provider calls, got %d", provider.transferCalls)
	}
}

func TestDonateAndSave_AlwaysPayThePlatform(t *testing.T) {
	provider := &providerStub{}
	service, _, _ := newTestService(provider)

	if _, err := service.Donate(context.Background(), domain.DonateRequest{Phone: "231-88-771-6973", Amount: 500}); err != nil {
		t.Fatalf("donate failed: %v", err)
	}
	if provider.lastRequest.PartyID != testPlatformParty {
		t.Fatalf("expected donation payee %s, got %s", testPlatformParty, provider.lastRequest.PartyID)
	}

	if _, err := service.Save(context.Background(), domain.SaveRequest{Goal: "rainy day", Amount: 250}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if provider.lastRequest.PartyID != testPlatformParty {
		t.Fatalf("expected savings payee %s, got %s", testPlatformParty, provider.lastRequest.PartyID)
	}
}

func TestWithdraw_PaysTheCallerPhone(t *testing.T) {
	provider := &providerStub{}
	service, _, _ := newTestService(provider)

	if _, err := service.Withdraw(context.Background(), domain.WithdrawRequest{Phone: "+231 88 771 6973", Amount: 500}); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if provider.lastRequest.PartyID != "231887716973" {
		t.Fatalf("expected withdrawal payee 231887716973, got %s", provider.lastRequest.PartyID)
	}
}

func TestSave_DefaultsFrequencyToMonthly(t *testing.T) {
	provider := &providerStub{}
	service, _, _ := newTestService(provider)

	if _, err := service.Save(context.Background(), domain.SaveRequest{Goal: "school fees", Amount: 500}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.Contains(provider.lastRequest.PayerMessage, "monthly") {
		t.Fatalf("expected message to carry default frequency, got %q", provider.lastRequest.PayerMessage)
	}
}

func TestInitiateTransfer_SuccessMarksLedgerAccepted(t *testing.T) {
	provider := &providerStub{}
	service, repo, publisher := newTestService(provider)

	transfer, err := service.Donate(context.Background(), domain.DonateRequest{Phone: "231887716973", Amount: 500})
	if err != nil {
		t.Fatalf("donate failed: %v", err)
	}
	if transfer.ReferenceID == "" {
		t.Fatal("expected a reference id")
	}
	if transfer.ReferenceID != provider.lastRequest.ReferenceID {
		t.Fatalf("reference id changed between ledger and provider: %s vs %s", transfer.ReferenceID, provider.lastRequest.ReferenceID)
	}

	stored, err := repo.GetTransfer(context.Background(), transfer.ReferenceID)
	if err != nil {
		t.Fatalf("expected ledger record, got %v", err)
	}
	if stored.Status != domain.StatusAccepted {
		t.Fatalf("expected status %s, got %s", domain.StatusAccepted, stored.Status)
	}
	if stored.Amount != 500 {
		t.Fatalf("expected amount 500, got %d", stored.Amount)
	}

	if len(publisher.routingKeys) != 1 || publisher.routingKeys[0] != "transfer.status.accepted" {
		t.Fatalf("expected one accepted event, got %v", publisher.routingKeys)
	}
}

func TestInitiateTransfer_FailureLeavesAuditableRecord(t *testing.T) {
	provider := &providerStub{
		transferErr: &momoclient.ErrorResponse{
			Op:         "transfer",
			StatusCode: 500,
			Message:    "payee not allowed to receive",
			Raw:        `{"code":"PAYEE_NOT_ALLOWED","message":"payee not allowed to receive"}`,
		},
	}
	service, repo, publisher := newTestService(provider)

	_, err := service.Withdraw(context.Background(), domain.WithdrawRequest{Phone: "231887716973", Amount: 500})
	if err == nil {
		t.Fatal("expected transfer error")
	}

	transfers, _ := repo.ListTransfers(context.Background())
	if len(transfers) != 1 {
		t.Fatalf("expected the failed attempt to be recorded, got %d records", len(transfers))
	}
	failed := transfers[0]
	if failed.Status != domain.StatusFailed {
		t.Fatalf("expected status %s, got %s", domain.StatusFailed, failed.Status)
	}
	if !strings.Contains(failed.ProviderError, "PAYEE_NOT_ALLOWED") {
		t.Fatalf("expected raw provider error payload, got %q", failed.ProviderError)
	}

	if len(publisher.routingKeys) != 1 || publisher.routingKeys[0] != "transfer.status.failed" {
		t.Fatalf("expected one failed event, got %v", publisher.routingKeys)
	}
}

func TestGetTransferStatus_TerminalStatusSkipsProviderCall(t *testing.T) {
	provider := &providerStub{}
	service, repo, _ := newTestService(provider)

	record := &domain.Transfer{
		ReferenceID:    "ref-terminal",
		Kind:           domain.KindDonation,
		Amount:         500,
		RecipientParty: testPlatformParty,
		Status:         "SUCCESSFUL",
	}
	if err := repo.CreateTransfer(context.Background(), record); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	transfer, providerStatus, err := service.GetTransferStatus(context.Background(), "ref-terminal")
	if err != nil {
		t.Fatalf("status lookup failed: %v", err)
	}
	if provider.statusCalls != 0 {
		t.Fatalf("expected no provider calls for terminal status, got %d", provider.statusCalls)
	}
	if providerStatus != nil {
		t.Fatal("expected no provider payload for cached terminal status")
	}
	if transfer.Status != "SUCCESSFUL" {
		t.Fatalf("expected cached status SUCCESSFUL, got %s", transfer.Status)
	}
}

func TestGetTransferStatus_NonTerminalRefreshesFromProvider(t *testing.T) {
	provider := &providerStub{
		status: &momoclient.TransferStatus{Status: "SUCCESSFUL", Raw: `{"status":"SUCCESSFUL"}`},
	}
	service, repo, publisher := newTestService(provider)

	record := &domain.Transfer{
		ReferenceID:    "ref-pending",
		Kind:           domain.KindWithdrawal,
		Amount:         500,
		RecipientParty: "231887716973",
		Status:         domain.StatusAccepted,
	}
	if err := repo.CreateTransfer(context.Background(), record); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	transfer, providerStatus, err := service.GetTransferStatus(context.Background(), "ref-pending")
	if err != nil {
		t.Fatalf("status lookup failed: %v", err)
	}
	if provider.statusCalls != 1 {
		t.Fatalf("expected one provider call, got %d", provider.statusCalls)
	}
	if providerStatus == nil || providerStatus.Status != "SUCCESSFUL" {
		t.Fatalf("expected provider payload SUCCESSFUL, got %+v", providerStatus)
	}
	if transfer.Status != "SUCCESSFUL" {
		t.Fatalf("expected refreshed status SUCCESSFUL, got %s", transfer.Status)
	}

	stored, _ := repo.GetTransfer(context.Background(), "ref-pending")
	if stored.Status != "SUCCESSFUL" {
		t.Fatalf("expected ledger refreshed to SUCCESSFUL, got %s", stored.Status)
	}
	if len(publisher.routingKeys) != 1 || publisher.routingKeys[0] != "transfer.status.refreshed" {
		t.Fatalf("expected one refreshed event, got %v", publisher.routingKeys)
	}
}

func TestGetTransferStatus_UnknownEverywhereIsNotFound(t *testing.T) {
	provider := &providerStub{
		statusErr: &momoclient.ErrorResponse{Op: "status", StatusCode: 404, Message: "resource not found"},
	}
	service, _, _ := newTestService(provider)

	_, _, err := service.GetTransferStatus(context.Background(), "ref-missing")
	if !errors.Is(err, store.ErrTransferNotFound) {
		t.Fatalf("expected ErrTransferNotFound, got %v", err)
	}
	if provider.statusCalls != 1 {
		t.Fatalf("expected the provider fallback lookup, got %d calls", provider.statusCalls)
	}
}

func TestGetTransferStatus_UnknownLocallyFallsBackToProvider(t *testing.T) {
	provider := &providerStub{
		status: &momoclient.TransferStatus{
			Amount:   "500",
			Currency: "EUR",
			Status:   "SUCCESSFUL",
			Raw:      `{"amount":"500","currency":"EUR","status":"SUCCESSFUL"}`,
		},
	}
	service, _, _ := newTestService(provider)

	transfer, providerStatus, err := service.GetTransferStatus(context.Background(), "ref-external")
	if err != nil {
		t.Fatalf("status lookup failed: %v", err)
	}
	if providerStatus == nil {
		t.Fatal("expected provider payload")
	}
	if transfer.ReferenceID != "ref-external" || transfer.Amount != 500 || transfer.Status != "SUCCESSFUL" {
		t.Fatalf("unexpected synthesized view: %+v", transfer)
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "231887716973", want: "231887716973"},
		{input: "+231 (88) 771-6973", want: "231887716973"},
		{input: "123", wantErr: true},
		{input: "abc-def-ghij", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizePhone(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPhone) {
					t.Fatalf("expected ErrInvalidPhone, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
