package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/greenbasket/orderapi/internal/config"
	apperrors "github.com/greenbasket/orderapi/pkg/errors"
)

// GatewayOrder is a payment transaction created at the gateway before any
// order row exists on our side.
type GatewayOrder struct {
	ID       string  `json:"id"`
	Amount   int64   `json:"amount"` // smallest currency unit (paise)
	Currency string  `json:"currency"`
	Receipt  string  `json:"receipt"`
	Rupees   float64 `json:"-"`
}

// Gateway is the payment provider surface the reconciler depends on
type Gateway interface {
	CreateOrder(ctx context.Context, amount float64, receipt string) (*GatewayOrder, error)
	VerifySignature(gatewayOrderID, paymentID, signature string) bool
}

// RazorpayClient talks to the Razorpay Orders API
type RazorpayClient struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewRazorpayClient creates a new Razorpay client
func NewRazorpayClient(cfg config.RazorpayConfig, logger *zap.Logger) *RazorpayClient {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")

	return &RazorpayClient{
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		baseURL:   baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// CreateOrder registers a transaction for the given rupee amount. The
// amount is always computed server-side from the authoritative cart.
func (c *RazorpayClient) CreateOrder(ctx context.Context, amount float64, receipt string) (*GatewayOrder, error) {
	url := fmt.Sprintf("%s/v1/orders", c.baseURL)

	paise := int64(math.Round(amount * 100))
	reqBody := map[string]interface{}{
		"amount":   paise,
		"currency": "INR",
		"receipt":  receipt,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apperrors.ErrGateway{Message: fmt.Sprintf("payment gateway unreachable: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Razorpay order creation failed",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return nil, &apperrors.ErrGateway{Message: fmt.Sprintf("payment gateway error: status %d", resp.StatusCode)}
	}

	var order GatewayOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	order.Rupees = amount

	return &order, nil
}

// VerifySignature checks the gateway's signed payment confirmation:
// HMAC-SHA256 over "orderID|paymentID" keyed with the API secret.
func (c *RazorpayClient) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
