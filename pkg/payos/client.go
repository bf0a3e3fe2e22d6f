package payos

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"
	"time"
)

// Client talks to the PayOS merchant API. Payment links are created with a
// checksum signature over the canonical field string; webhook payloads carry
// the same HMAC scheme over the data object.
type Client struct {
	baseURL     string
	clientID    string
	apiKey      string
	checksumKey string
	httpClient  *http.Client
}

func NewClient(baseURL, clientID, apiKey, checksumKey string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		clientID:    clientID,
		apiKey:      apiKey,
		checksumKey: checksumKey,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

type CreateLinkRequest struct {
	OrderCode   int64  `json:"orderCode"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	ReturnURL   string `json:"returnUrl"`
	CancelURL   string `json:"cancelUrl"`
	ExpiredAt   int64  `json:"expiredAt,omitempty"`
	Signature   string `json:"signature"`
}

type PaymentLink struct {
	OrderCode     int64  `json:"orderCode"`
	PaymentLinkID string `json:"paymentLinkId"`
	CheckoutURL   string `json:"checkoutUrl"`
	QRCode        string `json:"qrCode"`
	Status        string `json:"status"`
}

type createLinkResponse struct {
	Code string       `json:"code"`
	Desc string       `json:"desc"`
	Data *PaymentLink `json:"data"`
}

var orderCodeSeq atomic.Int64

// NewOrderCode derives the gateway order code from the current time plus a
// process-local sequence, so two orders placed in the same millisecond still
// get distinct codes. PayOS requires a numeric code unique per merchant.
func NewOrderCode(now time.Time) int64 {
	return now.UnixMilli()*1000 + orderCodeSeq.Add(1)%1000
}

func (c *Client) signCreateLink(req *CreateLinkRequest) string {
	raw := fmt.Sprintf(
		"amount=%d&cancelUrl=%s&description=%s&orderCode=%d&returnUrl=%s",
		req.Amount, req.CancelURL, req.Description, req.OrderCode, req.ReturnURL,
	)
	return c.hmacHex(raw)
}

func (c *Client) hmacHex(raw string) string {
	mac := hmac.New(sha256.New, []byte(c.checksumKey))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// CreatePaymentLink registers a payment request and returns the hosted
// checkout link.
func (c *Client) CreatePaymentLink(ctx context.Context, req CreateLinkRequest) (*PaymentLink, error) {
	req.Signature = c.signCreateLink(&req)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal payment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v2/payment-requests", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build payment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-client-id", c.clientID)
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, raw)
	}

	var parsed createLinkResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	if parsed.Code != "00" || parsed.Data == nil {
		return nil, fmt.Errorf("gateway rejected request: code=%s desc=%s", parsed.Code, parsed.Desc)
	}
	return parsed.Data, nil
}

// WebhookPayload is the delivery envelope PayOS posts to the webhook URL.
type WebhookPayload struct {
	Code      string          `json:"code"`
	Desc      string          `json:"desc"`
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

// WebhookData is the settlement detail inside a webhook delivery.
type WebhookData struct {
	OrderCode int64  `json:"orderCode"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
	Code      string `json:"code"`
	Desc      string `json:"desc"`
}

// VerifyWebhook checks the payload signature and returns the parsed data.
// The signature covers the data object as sorted key=value pairs.
func (c *Client) VerifyWebhook(payload WebhookPayload) (*WebhookData, error) {
	if payload.Signature == "" {
		return nil, fmt.Errorf("missing webhook signature")
	}

	canonical, err := canonicalizeData(payload.Data)
	if err != nil {
		return nil, err
	}

	expected := c.hmacHex(canonical)
	if !hmac.Equal([]byte(expected), []byte(payload.Signature)) {
		return nil, fmt.Errorf("webhook signature mismatch")
	}

	var data WebhookData
	if err := json.Unmarshal(payload.Data, &data); err != nil {
		return nil, fmt.Errorf("decode webhook data: %w", err)
	}
	return &data, nil
}

// SignData produces the signature PayOS would attach for the given data
// object. Exposed so webhook tests can build valid deliveries.
func (c *Client) SignData(data json.RawMessage) (string, error) {
	canonical, err := canonicalizeData(data)
	if err != nil {
		return "", err
	}
	return c.hmacHex(canonical), nil
}

func canonicalizeData(data json.RawMessage) (string, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", fmt.Errorf("decode webhook data: %w", err)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(fields[k])))
	}
	return strings.Join(parts, "&"), nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		raw, _ := json.Marshal(val)
		return string(raw)
	}
}
