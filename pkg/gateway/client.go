package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/fixitlabs/fixit-backend/pkg/config"
	pkgerrors "github.com/fixitlabs/fixit-backend/pkg/errors"
)

// Charger is the surface services use to collect money from a customer.
type Charger interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// ChargeRequest describes a single mobile-money charge attempt.
type ChargeRequest struct {
	Phone       string `json:"phone"`
	AmountCents int64  `json:"amount"`
	Reference   string `json:"reference"`
}

// ChargeResult is the provider's answer to a charge attempt.
type ChargeResult struct {
	ReferenceID string
	Raw         json.RawMessage
}

type chargeResponse struct {
	Success     bool   `json:"success"`
	ReferenceID string `json:"reference_id"`
	Message     string `json:"message"`
}

// Client calls the mobile-money charge API over HTTP.
type Client struct {
	cfg        config.GatewayConfig
	httpClient *http.Client
}

// New builds a gateway client. httpClient may be nil, in which case a
// client with the configured timeout is used.
func New(cfg config.GatewayConfig, httpClient *http.Client) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("gateway base url is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, httpClient: httpClient}, nil
}

// Charge posts a charge to the provider. A declined or failed charge comes
// back as a payment-coded error so callers can abort their transaction.
func (c *Client) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if req.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}
	if req.Phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge phone is required")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding charge request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/charges", bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building charge request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	if c.cfg.MerchantID != "" {
		httpReq.Header.Set("X-Merchant-ID", c.cfg.MerchantID)
	}

	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling payment gateway")
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading gateway response")
	}

	if res.StatusCode >= http.StatusInternalServerError {
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("payment gateway returned status %d", res.StatusCode))
	}

	var parsed chargeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		// A 4xx is a decline even when the body is garbage. Only 2xx bodies
		// we cannot read point at the gateway itself.
		if res.StatusCode >= http.StatusBadRequest {
			return nil, pkgerrors.New(pkgerrors.CodePayment, "charge was declined")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding gateway response")
	}

	if res.StatusCode >= http.StatusBadRequest || !parsed.Success {
		msg := parsed.Message
		if msg == "" {
			msg = "charge was declined"
		}
		return nil, pkgerrors.New(pkgerrors.CodePayment, msg)
	}

	return &ChargeResult{ReferenceID: parsed.ReferenceID, Raw: raw}, nil
}
