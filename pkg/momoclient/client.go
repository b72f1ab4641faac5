/**
 * @description
 * This package provides a client for the mobile-money provider's disbursement
 * API. It encapsulates the logic for exchanging API credentials for a bearer
 * token, issuing transfer requests, querying transfer status, and parsing the
 * provider's responses.
 *
 * Key features:
 * - Client-credentials token grant over Basic auth; a fresh token is acquired
 *   for every operation, which trades an extra round trip for never holding a
 *   stale token in this low-volume, human-triggered flow.
 * - Typed error payloads implementing `error` so callers can surface the
 *   provider's own message.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package momoclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"
)

// Client is a client for the provider's disbursement API.
type Client struct {
	BaseURL           string
	ConsumerKey       string
	ConsumerSecret    string
	SubscriptionKey   string
	TargetEnvironment string
	HTTPClient        *http.Client
}

// NewClient creates a new disbursement API client.
func NewClient(baseURL, consumerKey, consumerSecret, subscriptionKey, targetEnvironment string) *Client {
	return &Client{
		BaseURL:           baseURL,
		ConsumerKey:       consumerKey,
		ConsumerSecret:    consumerSecret,
		SubscriptionKey:   subscriptionKey,
		TargetEnvironment: targetEnvironment,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// tokenResponse is the body of a successful client-credentials grant.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// transferPayload is the JSON body of a disbursement transfer request.
type transferPayload struct {
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	ExternalID   string `json:"externalId"`
	Payee        party  `json:"payee"`
	PayerMessage string `json:"payerMessage"`
	PayeeNote    string `json:"payeeNote"`
}

type party struct {
	PartyIDType string `json:"partyIdType"`
	PartyID     string `json:"partyId"`
}

// TransferRequest describes one outbound disbursement.
type TransferRequest struct {
	ReferenceID  string
	Amount       int64
	Currency     string
	PartyID      string
	PayerMessage string
	PayeeNote    string
}

// TransferResult is what the provider returned for an accepted transfer. The
// provider acknowledges with 202 and an empty body, so Raw is often empty.
type TransferResult struct {
	ReferenceID string
	Raw         string
}

// TransferStatus is the provider's view of a transfer queried by reference id.
type TransferStatus struct {
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	ExternalID string `json:"externalId"`
	Payee      party  `json:"payee"`
	Status     string `json:"status"`
	Reason     struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"reason"`
	Raw string `json:"-"`
}

// PayeeParty returns the payee identifier reported by the provider.
func (s *TransferStatus) PayeeParty() string {
	return s.Payee.PartyID
}

// ErrorResponse represents an error payload from the provider API.
type ErrorResponse struct {
	Op         string `json:"-"`
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Raw        string `json:"-"`
}

func (e *ErrorResponse) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("provider %s error (status %d): %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %s error (status %d)", e.Op, e.StatusCode)
}

// AcquireToken exchanges the configured consumer key and secret for a
// short-lived bearer token.
func (c *Client) AcquireToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/disbursement/token/", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(c.ConsumerKey, c.ConsumerSecret)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.SubscriptionKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute token request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", c.decodeError("token", resp.StatusCode, bodyBytes)
	}

	var token tokenResponse
	if err := json.Unmarshal(bodyBytes, &token); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}
	return token.AccessToken, nil
}

// Transfer sends one disbursement to the provider. The reference id goes in
// the X-Reference-Id header and doubles as the externalId in the body.
func (c *Client) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	token, err := c.AcquireToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := transferPayload{
		Amount:       strconv.FormatInt(req.Amount, 10),
		Currency:     req.Currency,
		ExternalID:   req.ReferenceID,
		Payee:        party{PartyIDType: "MSISDN", PartyID: req.PartyID},
		PayerMessage: req.PayerMessage,
		PayeeNote:    req.PayeeNote,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transfer request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/disbursement/v1_0/transfer", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create transfer request: %w", err)
	}
	c.setCommonHeaders(httpReq, token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Reference-Id", req.ReferenceID)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute transfer request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read transfer response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.decodeError("transfer", resp.StatusCode, bodyBytes)
	}

	return &TransferResult{ReferenceID: req.ReferenceID, Raw: string(bodyBytes)}, nil
}

// GetTransfer queries the provider for the current status of a transfer.
func (c *Client) GetTransfer(ctx context.Context, referenceID string) (*TransferStatus, error) {
	token, err := c.AcquireToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"/disbursement/v1_0/transfer/"+referenceID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}
	c.setCommonHeaders(req, token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute status request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read status response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.decodeError("status", resp.StatusCode, bodyBytes)
	}

	var status TransferStatus
	if err := json.Unmarshal(bodyBytes, &status); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	status.Raw = string(bodyBytes)
	return &status, nil
}

func (c *Client) setCommonHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.SubscriptionKey)
	req.Header.Set("X-Target-Environment", c.TargetEnvironment)
}

func (c *Client) decodeError(op string, statusCode int, body []byte) error {
	errResp := &ErrorResponse{Op: op, StatusCode: statusCode, Raw: string(body)}
	if err := json.Unmarshal(body, errResp); err != nil {
		log.Printf("level=warn component=momo_client op=%s status=%d msg=\"non-2xx response (unparsable error body)\"", op, statusCode)
		return errResp
	}
	log.Printf("level=warn component=momo_client op=%s status=%d code=%q message=%q", op, statusCode, errResp.Code, errResp.Message)
	return errResp
}
