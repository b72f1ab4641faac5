/**
 * @description
 * This file defines the core domain models for the momo-service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, ledger storage, and API layers.
 *
 * @notes
 * - Using distinct types for API requests, ledger records, and provider
 *   payloads keeps the external JSON shapes decoupled from internal state.
 * - Amounts are whole currency units as `int64`; the platform-level minimum
 *   of 100 units is enforced by the application service, not here.
 */

package domain

import (
	"strings"
	"time"
)

// Transfer statuses. INITIATED and ACCEPTED are the only non-terminal
// statuses; everything else the provider reports (SUCCESSFUL, REJECTED, ...)
// is treated as terminal.
const (
	StatusInitiated = "INITIATED"
	StatusAccepted  = "ACCEPTED"
	StatusFailed    = "FAILED"
)

// Transfer kinds. Donations and savings move money the same way (caller to
// platform); the kind is a labeling distinction carried for reporting.
const (
	KindDonation   = "donation"
	KindSavings    = "savings"
	KindWithdrawal = "withdrawal"
)

// Transfer is the ledger record for one initiated money movement. It maps to
// the `transfers` table when the Postgres-backed ledger is used.
type Transfer struct {
	ReferenceID      string    `json:"referenceId"`
	Kind             string    `json:"kind"`
	Amount           int64     `json:"amount"`
	Currency         string    `json:"currency"`
	RecipientParty   string    `json:"recipientParty"`
	Message          string    `json:"message"`
	Status           string    `json:"status"`
	ProviderResponse string    `json:"providerResponse,omitempty"`
	ProviderError    string    `json:"providerError,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// IsTerminal reports whether no further status change is expected for the
// transfer. Unknown provider-reported statuses are considered terminal.
func (t *Transfer) IsTerminal() bool {
	switch strings.ToUpper(t.Status) {
	case StatusInitiated, StatusAccepted:
		return false
	}
	return true
}

// DonateRequest is the DTO for incoming donation API requests.
type DonateRequest struct {
	Phone   string `json:"phone"`
	Amount  int64  `json:"amount"`
	Message string `json:"message"`
}

// SaveRequest is the DTO for incoming savings deposit API requests.
type SaveRequest struct {
	Goal      string `json:"goal"`
	Amount    int64  `json:"amount"`
	Frequency string `json:"frequency"`
}

// WithdrawRequest is the DTO for incoming withdrawal API requests.
type WithdrawRequest struct {
	Phone  string `json:"phone"`
	Amount int64  `json:"amount"`
}
