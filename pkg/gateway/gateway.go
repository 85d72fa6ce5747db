package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrGatewayUnavailable marks provider-side failures: network errors,
// non-2xx responses, or provider error codes. Callers retry with backoff
// before surfacing a failed checkout.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

type CreateLinkRequest struct {
	OrderCode   string
	Amount      int64
	Description string
	ReturnURL   string
	CancelURL   string
}

type PaymentLink struct {
	CheckoutURL    string
	QRCode         string
	ExternalLinkID string
}

// PaymentGateway creates hosted checkout sessions with an external provider.
type PaymentGateway interface {
	CreatePaymentLink(ctx context.Context, req CreateLinkRequest) (*PaymentLink, error)
	VerifySignature(payload []byte, signature string) bool
}

type Config struct {
	BaseURL     string
	APIKey      string
	ChecksumKey string
	Timeout     time.Duration
}

// Client is an HTTP adapter for a hosted-checkout provider. The provider is
// treated as a black box: it may be slow, it may fail, and every call
// carries an explicit timeout.
type Client struct {
	config Config
	http   *http.Client
	log    *zap.Logger
}

func NewClient(config Config, log *zap.Logger) *Client {
	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
		log:    log.With(zap.String("component", "payment_gateway")),
	}
}

type createLinkPayload struct {
	OrderCode   string `json:"orderCode"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	ReturnURL   string `json:"returnUrl"`
	CancelURL   string `json:"cancelUrl"`
	Signature   string `json:"signature"`
}

type createLinkResponse struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
	Data struct {
		CheckoutURL   string `json:"checkoutUrl"`
		QRCode        string `json:"qrCode"`
		PaymentLinkID string `json:"paymentLinkId"`
	} `json:"data"`
}

func (c *Client) CreatePaymentLink(ctx context.Context, req CreateLinkRequest) (*PaymentLink, error) {
	payload := createLinkPayload{
		OrderCode:   req.OrderCode,
		Amount:      req.Amount,
		Description: req.Description,
		ReturnURL:   req.ReturnURL,
		CancelURL:   req.CancelURL,
		Signature:   c.sign(req),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payment link request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v2/payment-requests", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build payment link request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.config.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Warn("Payment gateway request failed",
			zap.Error(err),
			zap.String("order_code", req.OrderCode),
		)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("Payment gateway returned non-2xx",
			zap.Int("status", resp.StatusCode),
			zap.String("order_code", req.OrderCode),
		)
		return nil, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	var linkResp createLinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&linkResp); err != nil {
		return nil, fmt.Errorf("decode payment link response: %w", err)
	}

	// "00" is the provider's success code; anything else is a rejected
	// request even with HTTP 200.
	if linkResp.Code != "00" {
		c.log.Warn("Payment gateway rejected request",
			zap.String("code", linkResp.Code),
			zap.String("desc", linkResp.Desc),
			zap.String("order_code", req.OrderCode),
		)
		return nil, fmt.Errorf("%w: provider code %s (%s)", ErrGatewayUnavailable, linkResp.Code, linkResp.Desc)
	}

	return &PaymentLink{
		CheckoutURL:    linkResp.Data.CheckoutURL,
		QRCode:         linkResp.Data.QRCode,
		ExternalLinkID: linkResp.Data.PaymentLinkID,
	}, nil
}

// sign produces the HMAC-SHA256 checksum over the canonical field order the
// provider expects.
func (c *Client) sign(req CreateLinkRequest) string {
	data := fmt.Sprintf("amount=%d&cancelUrl=%s&description=%s&orderCode=%s&returnUrl=%s",
		req.Amount, req.CancelURL, req.Description, req.OrderCode, req.ReturnURL)

	mac := hmac.New(sha256.New, []byte(c.config.ChecksumKey))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a webhook body against its signature header.
// Events that fail this check must never be trusted.
func (c *Client) VerifySignature(payload []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.config.ChecksumKey))
	mac.Write(payload)
	expected := mac.Sum(nil)

	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	return hmac.Equal(expected, got)
}
