package executor

import (
	"PayoutGuard/internal/core/domain"
	"PayoutGuard/internal/core/ports"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// maxErrorBody caps how much of a failed response is kept as the failure reason.
const maxErrorBody = 512

// HTTPClient hands payouts to the rails service over HTTP.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

var _ ports.PayoutExecutor = (*HTTPClient)(nil)

// NewHTTPClient creates an executor client for baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration, baseLogger *zerolog.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        baseLogger.With().Str("component", "payout_executor").Logger(),
	}
}

type executeRequest struct {
	ActionID             string `json:"actionId"`
	OrganizerID          string `json:"organizerId"`
	Amount               string `json:"amount"`
	Currency             string `json:"currency"`
	DestinationAccountID string `json:"destinationAccountId"`
	PaymentMethod        string `json:"paymentMethod,omitempty"`
}

type executeResponse struct {
	Success   bool   `json:"success"`
	Reference string `json:"reference"`
	Error     string `json:"error"`
}

// Execute POSTs the payout. The action ID doubles as the idempotency key so a
// retried request cannot move money twice.
func (c *HTTPClient) Execute(ctx context.Context, req domain.ExecutionRequest) (domain.ExecutionResult, error) {
	if c.baseURL == "" {
		return domain.ExecutionResult{}, fmt.Errorf("payout executor base URL is not configured")
	}

	body, err := json.Marshal(executeRequest{
		ActionID:             req.ActionID.String(),
		OrganizerID:          req.OrganizerID.String(),
		Amount:               req.Amount.StringFixed(2),
		Currency:             req.Currency,
		DestinationAccountID: req.DestinationAccountID.String(),
		PaymentMethod:        req.PaymentMethod,
	})
	if err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("failed to marshal payout payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payouts", bytes.NewReader(body))
	if err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.ActionID.String())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Error().Err(err).Str("action_id", req.ActionID.String()).Msg("Payout executor unreachable")
		return domain.ExecutionResult{}, fmt.Errorf("failed to execute request to payout executor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.Warn().Int("status", resp.StatusCode).Str("action_id", req.ActionID.String()).Msg("Payout executor returned error status")
		return domain.ExecutionResult{}, fmt.Errorf("payout executor returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("failed to decode payout executor response: %w", err)
	}
	return domain.ExecutionResult{Success: out.Success, Reference: out.Reference, Error: out.Error}, nil
}
