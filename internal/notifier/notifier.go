package notifier

import (
	"bytes"
	"collections-engine/internal/config"
	"collections-engine/internal/pkg/apperrors"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Receipt is the delivery acknowledgement returned by the messaging gateway.
// Simulated is set when no gateway is configured and delivery was mocked; it
// must be surfaced to the caller, not hidden.
type Receipt struct {
	MessageID  string    `json:"messageId"`
	Simulated  bool      `json:"simulated"`
	AcceptedAt time.Time `json:"acceptedAt"`
}

// Notifier delivers a text body to a phone address. Implementations are
// best-effort with a bounded timeout; callers must never hold a database
// transaction open across a Send.
type Notifier interface {
	Send(ctx context.Context, to, body string) (*Receipt, error)
}

type gatewayRequest struct {
	To       string `json:"to"`
	From     string `json:"from"`
	Body     string `json:"body"`
	ClientID string `json:"clientId"`
}

type gatewayResponse struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

// GatewayClient talks to an HTTP SMS gateway. With no gateway URL configured
// it simulates successful delivery so the engine stays usable in development.
type GatewayClient struct {
	cfg        config.NotifierConfig
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Notifier = (*GatewayClient)(nil)

func NewGatewayClient(cfg config.NotifierConfig, logger *slog.Logger) *GatewayClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &GatewayClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "GatewayClient")),
	}
}

func (c *GatewayClient) Send(ctx context.Context, to, body string) (*Receipt, error) {
	if c.cfg.GatewayURL == "" {
		receipt := &Receipt{
			MessageID:  "simulated-" + uuid.NewString(),
			Simulated:  true,
			AcceptedAt: time.Now(),
		}
		c.logger.WarnContext(ctx, "No messaging gateway configured, simulating delivery",
			slog.String("to", to), slog.String("message_id", receipt.MessageID))
		return receipt, nil
	}

	payload, err := json.Marshal(gatewayRequest{
		To:       to,
		From:     c.cfg.SenderID,
		Body:     body,
		ClientID: uuid.NewString(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.GatewayURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "Gateway request failed", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", apperrors.ErrDelivery, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		c.logger.ErrorContext(ctx, "Gateway rejected message",
			slog.Int("status", res.StatusCode), slog.String("body", string(raw)))
		return nil, fmt.Errorf("%w: gateway returned status %d", apperrors.ErrDelivery, res.StatusCode)
	}

	var parsed gatewayResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		c.logger.WarnContext(ctx, "Gateway response was not parseable, treating as accepted", slog.Any("error", err))
	}
	messageID := parsed.MessageID
	if messageID == "" {
		messageID = uuid.NewString()
	}

	return &Receipt{
		MessageID:  messageID,
		Simulated:  false,
		AcceptedAt: time.Now(),
	}, nil
}
