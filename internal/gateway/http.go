package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HTTPGateway talks to the payment-provider sidecar over its internal
// JSON API.
type HTTPGateway struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewHTTPGateway(baseURL string, log *zap.Logger) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

type moneyRequest struct {
	UserID      string `json:"user_id"`
	AmountCents int64  `json:"amount_cents"`
}

func (g *HTTPGateway) Charge(ctx context.Context, requesterID uuid.UUID, totalCents int64) (Result, error) {
	return g.call(ctx, "charge", requesterID, totalCents)
}

func (g *HTTPGateway) Transfer(ctx context.Context, helperID uuid.UUID, amountCents int64) (Result, error) {
	return g.call(ctx, "transfer", helperID, amountCents)
}

func (g *HTTPGateway) Refund(ctx context.Context, requesterID uuid.UUID, totalCents int64) (Result, error) {
	return g.call(ctx, "refund", requesterID, totalCents)
}

func (g *HTTPGateway) call(ctx context.Context, op string, userID uuid.UUID, amountCents int64) (Result, error) {
	body, err := json.Marshal(moneyRequest{UserID: userID.String(), AmountCents: amountCents})
	if err != nil {
		return Result{}, err
	}

	url := fmt.Sprintf("%s/internal/payments/%s", g.baseURL, op)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("payment provider unavailable: %w", err)
	}
	defer resp.Body.Close()

	// The provider answers 200 for both approvals and business declines;
	// anything else is a transport-level fault.
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return Result{}, fmt.Errorf("payment provider returned %d: %s", resp.StatusCode, string(b))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, err
	}
	if !result.OK {
		g.log.Debug("provider declined",
			zap.String("op", op),
			zap.String("user_id", userID.String()),
			zap.String("reason", result.Reason),
		)
	}
	return result, nil
}
