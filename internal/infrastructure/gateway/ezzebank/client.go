package ezzebank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pixgate/internal/application/charge/gateway"
	"pixgate/internal/shared/biztime"
	"pixgate/internal/shared/config"
	"pixgate/internal/shared/errors"
	"pixgate/internal/shared/logger"
)

const (
	// Maximum response body size for gateway API responses (256KB)
	maxResponseSize = 256 << 10
)

// qrCodeRequest is the wire payload for POST /pix/qrcode.
type qrCodeRequest struct {
	ExternalID  string  `json:"external_id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
	// Expiration is the validity window in seconds.
	Expiration  int    `json:"expiration,omitempty"`
	CallbackURL string `json:"callback_url,omitempty"`
	Payer       *payer `json:"payer,omitempty"`
}

type payer struct {
	Name     string `json:"name,omitempty"`
	Document string `json:"document,omitempty"`
}

// qrCodeResponse is the gateway's view of a charge, shared by the creation
// and query endpoints. The detail endpoint additionally fills debitParty.
type qrCodeResponse struct {
	TransactionID string      `json:"transactionId"`
	ExternalID    string      `json:"externalId"`
	QRCode        string      `json:"qrcode"`
	QRCodeBase64  string      `json:"qrcodeBase64"`
	Value         float64     `json:"value"`
	Status        string      `json:"status"`
	PaymentID     string      `json:"paymentId,omitempty"`
	PaymentDate   string      `json:"paymentDate,omitempty"`
	DebitParty    *debitParty `json:"debitParty,omitempty"`
}

type debitParty struct {
	Name  string `json:"name"`
	TaxID string `json:"taxId"`
}

type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Error      string `json:"error,omitempty"`
}

// Client implements the PIX gateway contract against the EzzeBank v2 API.
// Every request carries a bearer token from the TokenCache; a 401 response
// invalidates the cache and the request is retried once with a fresh token.
type Client struct {
	httpClient  *http.Client
	tokens      *TokenCache
	baseURL     string
	callbackURL string
	logger      logger.Interface
}

// NewClient creates a gateway client from configuration.
func NewClient(cfg *config.GatewayConfig, logger logger.Interface) *Client {
	httpClient := &http.Client{Timeout: cfg.Timeout()}
	return &Client{
		httpClient:  httpClient,
		tokens:      NewTokenCache(httpClient, cfg.BaseURL, cfg.ClientID, cfg.ClientSecret, logger),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		callbackURL: cfg.CallbackURL,
		logger:      logger,
	}
}

// Ensure Client implements the gateway contract
var _ gateway.PixGateway = (*Client)(nil)

// CreateCharge registers a dynamic QR-code charge.
func (c *Client) CreateCharge(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeCreated, error) {
	if req.Amount <= 0 {
		return nil, errors.NewValidationError("amount must be positive")
	}

	payload := qrCodeRequest{
		ExternalID:  req.ExternalID,
		Amount:      req.Amount,
		Description: req.PayerQuestion,
		Expiration:  req.ExpirationSeconds,
		CallbackURL: c.callbackURL,
	}
	if req.PayerName != "" || req.PayerDocument != "" {
		payload.Payer = &payer{Name: req.PayerName, Document: req.PayerDocument}
	}

	var out qrCodeResponse
	if err := c.do(ctx, http.MethodPost, "/pix/qrcode", payload, &out); err != nil {
		return nil, err
	}

	return &gateway.ChargeCreated{
		TransactionID: out.TransactionID,
		ExternalID:    out.ExternalID,
		QRCode:        out.QRCode,
		QRCodeImage:   out.QRCodeBase64,
	}, nil
}

// GetChargeByTransactionID fetches the gateway's current view of a charge.
func (c *Client) GetChargeByTransactionID(ctx context.Context, transactionID string) (*gateway.ChargeSnapshot, error) {
	var out qrCodeResponse
	if err := c.do(ctx, http.MethodGet, "/pix/qrcode/"+transactionID, nil, &out); err != nil {
		return nil, err
	}
	return c.snapshot(&out), nil
}

// GetChargeByExternalID fetches gateway state by correlation id.
func (c *Client) GetChargeByExternalID(ctx context.Context, externalID string) (*gateway.ChargeSnapshot, error) {
	var out qrCodeResponse
	if err := c.do(ctx, http.MethodGet, "/pix/qrcode/external/"+externalID, nil, &out); err != nil {
		return nil, err
	}
	return c.snapshot(&out), nil
}

// GetChargeDetail fetches the extended view including payer identity.
func (c *Client) GetChargeDetail(ctx context.Context, transactionID string) (*gateway.ChargeSnapshot, error) {
	var out qrCodeResponse
	if err := c.do(ctx, http.MethodGet, "/pix/qrcode/"+transactionID+"/detail", nil, &out); err != nil {
		return nil, err
	}
	return c.snapshot(&out), nil
}

// snapshot maps a wire response to the application-level view.
func (c *Client) snapshot(out *qrCodeResponse) *gateway.ChargeSnapshot {
	s := &gateway.ChargeSnapshot{
		TransactionID: out.TransactionID,
		ExternalID:    out.ExternalID,
		Status:        out.Status,
		AmountCents:   int64(out.Value*100 + 0.5),
		PaymentID:     out.PaymentID,
	}
	if out.PaymentDate != "" {
		if t, err := parseGatewayTime(out.PaymentDate); err == nil {
			s.PaymentDate = &t
		} else {
			c.logger.Warnw("unparseable payment date from gateway",
				"payment_date", out.PaymentDate,
				"transaction_id", out.TransactionID,
			)
		}
	}
	if out.DebitParty != nil {
		s.PayerName = out.DebitParty.Name
		s.PayerTaxID = out.DebitParty.TaxID
	}
	return s
}

// do performs one authenticated request. On a 401 the cached token is
// invalidated and the request retried once with a fresh token.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	retried := false
	for {
		status, err := c.doOnce(ctx, method, path, body, out)
		if err == nil {
			return nil
		}
		if status == http.StatusUnauthorized && !retried {
			retried = true
			c.logger.Warnw("gateway rejected token, refreshing", "path", path)
			c.tokens.Invalidate()
			continue
		}
		return err
	}
}

func (c *Client) doOnce(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		return 0, err
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return 0, errors.NewGatewayTimeoutError(fmt.Sprintf("%s %s timed out", method, path))
		}
		return 0, errors.NewGatewayError(0, fmt.Sprintf("%s %s failed: %v", method, path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody errorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&errBody)
		message := errBody.Message
		if message == "" {
			message = resp.Status
		}
		if resp.StatusCode == http.StatusNotFound {
			return resp.StatusCode, errors.NewNotFoundError("charge not found at gateway", message)
		}
		return resp.StatusCode, errors.NewGatewayError(resp.StatusCode, message)
	}

	if out != nil {
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(out); err != nil {
			return resp.StatusCode, errors.NewGatewayError(resp.StatusCode, fmt.Sprintf("failed to decode response: %v", err))
		}
	}
	return resp.StatusCode, nil
}

// parseGatewayTime accepts the timestamp shapes the gateway emits.
func parseGatewayTime(s string) (time.Time, error) {
	if t, err := biztime.ParseRFC3339(s); err == nil {
		return t, nil
	}
	layouts := []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
