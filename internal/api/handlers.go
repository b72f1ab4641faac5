/**
 * @description
 * This file contains the HTTP handlers for the momo-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the
 * appropriate methods on the application service, and writing the HTTP
 * response. They act as the bridge between the web layer and the business
 * logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http, time: Standard Go libraries.
 * - github.com/go-chi/chi/v5: For URL parameter extraction.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 * - pkg/momoclient: For typed provider errors and status payloads.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/susupay/momo-service/internal/app"
	"github.com/susupay/momo-service/internal/domain"
	"github.com/susupay/momo-service/internal/store"
	"github.com/susupay/momo-service/pkg/momoclient"
)

// TransferHandlers holds the application service that handlers will use.
type TransferHandlers struct {
	service     *app.Service
	environment string
}

// NewTransferHandlers creates a new instance of TransferHandlers.
func NewTransferHandlers(service *app.Service, environment string) *TransferHandlers {
	return &TransferHandlers{service: service, environment: environment}
}

// transferInitiationResponse is the reply for the donate, save, and withdraw
// endpoints. The form front-end reads `transactionId` to poll status later.
type transferInitiationResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	TransactionID string `json:"transactionId"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// HealthHandler reports liveness along with the configured platform party.
func (h *TransferHandlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"platformPhone": h.service.PlatformParty(),
		"environment":   h.environment,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})
}

// DonateHandler handles requests for donations to the platform.
func (h *TransferHandlers) DonateHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.DonateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=donate outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	transfer, err := h.service.Donate(r.Context(), req)
	if err != nil {
		h.writeTransferError(w, "donate", err)
		return
	}

	h.writeJSON(w, http.StatusOK, transferInitiationResponse{
		Success:       true,
		Message:       "Donation initiated",
		TransactionID: transfer.ReferenceID,
	})
}

// SaveHandler handles requests for savings deposits.
func (h *TransferHandlers) SaveHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=save outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	transfer, err := h.service.Save(r.Context(), req)
	if err != nil {
		h.writeTransferError(w, "save", err)
		return
	}

	h.writeJSON(w, http.StatusOK, transferInitiationResponse{
		Success:       true,
		Message:       "Savings deposit initiated",
		TransactionID: transfer.ReferenceID,
	})
}

// WithdrawHandler handles requests for withdrawals to the caller's phone.
func (h *TransferHandlers) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=withdraw outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	transfer, err := h.service.Withdraw(r.Context(), req)
	if err != nil {
		h.writeTransferError(w, "withdraw", err)
		return
	}

	h.writeJSON(w, http.StatusOK, transferInitiationResponse{
		Success:       true,
		Message:       "Withdrawal initiated",
		TransactionID: transfer.ReferenceID,
	})
}

// GetTransactionHandler returns one transfer by reference id, refreshed from
// the provider while its status is still non-terminal.
func (h *TransferHandlers) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	referenceID := chi.URLParam(r, "referenceID")

	transfer, providerStatus, err := h.service.GetTransferStatus(r.Context(), referenceID)
	if err != nil {
		if errors.Is(err, store.ErrTransferNotFound) {
			h.writeError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		log.Printf("level=warn component=api endpoint=get_transaction outcome=failed reference_id=%s err=%v", referenceID, err)
		h.writeError(w, http.StatusInternalServerError, providerErrorMessage(err, "Failed to query transaction status"))
		return
	}

	response := map[string]interface{}{
		"success":     true,
		"transaction": transfer,
	}
	if providerStatus != nil {
		response["mtmStatus"] = providerStatus
	}
	h.writeJSON(w, http.StatusOK, response)
}

// ListTransactionsHandler returns every known transfer, newest first.
func (h *TransferHandlers) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	transfers, err := h.service.ListTransfers(r.Context())
	if err != nil {
		log.Printf("level=error component=api endpoint=list_transactions outcome=failed err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"count":        len(transfers),
		"transactions": transfers,
	})
}

// writeTransferError maps service errors from the three money movement
// endpoints: validation problems become 400s, everything else (token
// exchange, provider rejection, ledger failure) becomes a 500 carrying the
// provider's message when one is available.
func (h *TransferHandlers) writeTransferError(w http.ResponseWriter, endpoint string, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidAmount),
		errors.Is(err, app.ErrInvalidPhone),
		errors.Is(err, app.ErrMissingGoal):
		log.Printf("level=warn component=api endpoint=%s outcome=reject reason=validation err=%v", endpoint, err)
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("level=warn component=api endpoint=%s outcome=failed err=%v", endpoint, err)
		h.writeError(w, http.StatusInternalServerError, providerErrorMessage(err, "Transfer failed"))
	}
}

// providerErrorMessage surfaces the provider's own error message when the
// failure originated from the disbursement API.
func providerErrorMessage(err error, fallback string) string {
	var provErr *momoclient.ErrorResponse
	if errors.As(err, &provErr) && provErr.Message != "" {
		return provErr.Message
	}
	return fallback
}

func (h *TransferHandlers) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("level=error component=api msg=\"failed to encode response\" err=%v", err)
	}
}

func (h *TransferHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Success: false, Error: message})
}
