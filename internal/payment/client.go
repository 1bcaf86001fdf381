// Package payment is the boundary to a PhonePe-style hosted payment page.
// Payloads are base64-encoded JSON signed with a salted SHA-256 checksum; every
// call goes through a rate limiter and a circuit breaker.
package payment

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/tiered-billing-engine/internal/domain"
	"github.com/tiered-billing-engine/internal/money"
)

const (
	payPath    = "/pg/v1/pay"
	statusPath = "/pg/v1/status"
)

// Config represents configuration for the gateway client
type Config struct {
	BaseURL          string
	MerchantID       string
	SaltKey          string
	SaltIndex        int
	RedirectURL      string
	CallbackURL      string
	Timeout          time.Duration
	RateLimit        int    // requests per second
	FailureThreshold uint32 // consecutive failures before the breaker opens
}

// ConfigFromDomain maps application payment settings onto the client config.
func ConfigFromDomain(cfg domain.PaymentConfig) Config {
	return Config{
		BaseURL:          cfg.BaseURL,
		MerchantID:       cfg.MerchantID,
		SaltKey:          cfg.SaltKey,
		SaltIndex:        cfg.SaltIndex,
		RedirectURL:      cfg.RedirectURL,
		CallbackURL:      cfg.CallbackURL,
		Timeout:          cfg.Timeout,
		RateLimit:        cfg.RateLimit,
		FailureThreshold: cfg.FailureThreshold,
	}
}

// PaymentRequest asks the gateway for a hosted payment page.
type PaymentRequest struct {
	MerchantTransactionID string          `json:"merchantTransactionId,omitempty"`
	MerchantUserID        string          `json:"merchantUserId"`
	Amount                decimal.Decimal `json:"amount"`
	RedirectURL           string          `json:"redirectUrl,omitempty"`
	CallbackURL           string          `json:"callbackUrl,omitempty"`
	MobileNumber          string          `json:"mobileNumber,omitempty"`
}

// PaymentResponse is the normalized gateway answer.
type PaymentResponse struct {
	Success       bool   `json:"success"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	RedirectURL   string `json:"redirectUrl,omitempty"`
	TransactionID string `json:"transactionId"`
	State         string `json:"state,omitempty"`
}

// GatewayError describes a failed gateway exchange. StatusCode is zero for transport failures.
type GatewayError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *GatewayError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("payment gateway: %s", e.Message)
	}
	return fmt.Sprintf("payment gateway returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// Is lets errors.Is(err, domain.ErrPaymentGateway) match.
func (e *GatewayError) Is(target error) bool {
	return target == domain.ErrPaymentGateway
}

// retryable reports whether the failure says anything about gateway health.
// Declines and malformed requests do not trip the breaker.
func (e *GatewayError) retryable() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}

// Client talks to the payment gateway
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	log        *logrus.Logger
}

// NewClient creates a new gateway client
func NewClient(cfg Config, logger *logrus.Logger) (*Client, error) {
	if cfg.BaseURL == "" || cfg.MerchantID == "" || cfg.SaltKey == "" {
		return nil, fmt.Errorf("payment gateway base URL, merchant ID and salt key are required")
	}
	if cfg.SaltIndex == 0 {
		cfg.SaltIndex = 1
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 5
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	threshold := cfg.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			var gwErr *GatewayError
			if errors.As(err, &gwErr) {
				return !gwErr.retryable()
			}
			return err == nil
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		breaker:    breaker,
		log:        logger,
	}, nil
}

// Checksum computes the X-VERIFY header: sha256(payload + path + saltKey) + "###" + saltIndex.
func Checksum(payload, path, saltKey string, saltIndex int) string {
	sum := sha256.Sum256([]byte(payload + path + saltKey))
	return hex.EncodeToString(sum[:]) + "###" + strconv.Itoa(saltIndex)
}

// NewTransactionID returns a gateway-safe merchant transaction id (alphanumeric, 34 chars).
func NewTransactionID() string {
	return "TX" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

type payPayload struct {
	MerchantID            string            `json:"merchantId"`
	MerchantTransactionID string            `json:"merchantTransactionId"`
	MerchantUserID        string            `json:"merchantUserId"`
	Amount                int64             `json:"amount"`
	RedirectURL           string            `json:"redirectUrl,omitempty"`
	RedirectMode          string            `json:"redirectMode"`
	CallbackURL           string            `json:"callbackUrl,omitempty"`
	MobileNumber          string            `json:"mobileNumber,omitempty"`
	PaymentInstrument     paymentInstrument `json:"paymentInstrument"`
}

type paymentInstrument struct {
	Type string `json:"type"`
}

type gatewayResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MerchantTransactionID string `json:"merchantTransactionId"`
		TransactionID         string `json:"transactionId"`
		State                 string `json:"state"`
		InstrumentResponse    struct {
			Type         string `json:"type"`
			RedirectInfo struct {
				URL    string `json:"url"`
				Method string `json:"method"`
			} `json:"redirectInfo"`
		} `json:"instrumentResponse"`
	} `json:"data"`
}

// Validate checks a payment request before it is signed.
func (r *PaymentRequest) Validate() error {
	if strings.TrimSpace(r.MerchantUserID) == "" {
		return domain.NewValidationError("merchantUserId", "is required", r.MerchantUserID)
	}
	if !r.Amount.IsPositive() {
		return domain.NewValidationError("amount", "must be positive", r.Amount.String())
	}
	if money.ToMinorUnits(r.Amount) < 1 {
		return domain.NewValidationError("amount", "must be at least one minor unit", r.Amount.String())
	}
	if len(r.MerchantTransactionID) > 35 {
		return domain.NewValidationError("merchantTransactionId", "must be at most 35 characters", r.MerchantTransactionID)
	}
	return nil
}

// Initiate requests a hosted payment page for the given amount.
// A missing merchant transaction id is generated.
func (c *Client) Initiate(ctx context.Context, req PaymentRequest) (*PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.MerchantTransactionID == "" {
		req.MerchantTransactionID = NewTransactionID()
	}

	payload := payPayload{
		MerchantID:            c.cfg.MerchantID,
		MerchantTransactionID: req.MerchantTransactionID,
		MerchantUserID:        req.MerchantUserID,
		Amount:                money.ToMinorUnits(req.Amount),
		RedirectURL:           firstNonEmpty(req.RedirectURL, c.cfg.RedirectURL),
		RedirectMode:          "POST",
		CallbackURL:           firstNonEmpty(req.CallbackURL, c.cfg.CallbackURL),
		MobileNumber:          req.MobileNumber,
		PaymentInstrument:     paymentInstrument{Type: "PAY_PAGE"},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling payment payload: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)

	body, err := json.Marshal(map[string]string{"request": encoded})
	if err != nil {
		return nil, fmt.Errorf("marshaling payment request: %w", err)
	}

	headers := map[string]string{
		"Content-Type": "application/json",
		"X-VERIFY":     Checksum(encoded, payPath, c.cfg.SaltKey, c.cfg.SaltIndex),
	}

	resp, err := c.call(ctx, http.MethodPost, payPath, bytes.NewReader(body), headers)
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"transaction_id": req.MerchantTransactionID,
			"amount":         money.Format(req.Amount),
			"error":          err,
		}).Error("Payment initiation failed")
		return nil, err
	}

	out := &PaymentResponse{
		Success:       resp.Success,
		Code:          resp.Code,
		Message:       resp.Message,
		RedirectURL:   resp.Data.InstrumentResponse.RedirectInfo.URL,
		TransactionID: req.MerchantTransactionID,
	}

	c.log.WithFields(logrus.Fields{
		"transaction_id": out.TransactionID,
		"amount":         money.Format(req.Amount),
		"code":           out.Code,
	}).Info("Payment initiated")

	return out, nil
}

// Status fetches the state of a previously initiated transaction.
func (c *Client) Status(ctx context.Context, transactionID string) (*PaymentResponse, error) {
	if strings.TrimSpace(transactionID) == "" {
		return nil, domain.NewValidationError("transactionId", "is required", transactionID)
	}

	path := fmt.Sprintf("%s/%s/%s", statusPath, c.cfg.MerchantID, transactionID)
	headers := map[string]string{
		"Content-Type":  "application/json",
		"X-VERIFY":      Checksum("", path, c.cfg.SaltKey, c.cfg.SaltIndex),
		"X-MERCHANT-ID": c.cfg.MerchantID,
	}

	resp, err := c.call(ctx, http.MethodGet, path, nil, headers)
	if err != nil {
		return nil, err
	}

	return &PaymentResponse{
		Success:       resp.Success,
		Code:          resp.Code,
		Message:       resp.Message,
		TransactionID: transactionID,
		State:         resp.Data.State,
	}, nil
}

// call performs one rate-limited request through the breaker. Any response other
// than a 2xx with success=true is a *GatewayError.
func (c *Client) call(ctx context.Context, method, path string, body io.Reader, headers map[string]string) (*gatewayResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
		if err != nil {
			return nil, fmt.Errorf("creating gateway request: %w", err)
		}
		for k, v := range headers {
			httpReq.Header.Set(k, v)
		}

		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, &GatewayError{Message: err.Error()}
		}
		defer httpResp.Body.Close()

		data, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return nil, &GatewayError{StatusCode: httpResp.StatusCode, Message: fmt.Sprintf("reading body: %v", err)}
		}

		var parsed gatewayResponse
		if err := json.Unmarshal(data, &parsed); err != nil {
			return nil, &GatewayError{StatusCode: httpResp.StatusCode, Message: "malformed gateway response"}
		}

		if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 || !parsed.Success {
			return nil, &GatewayError{
				StatusCode: httpResp.StatusCode,
				Code:       parsed.Code,
				Message:    parsed.Message,
			}
		}
		return &parsed, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", domain.ErrPaymentGateway, err)
		}
		return nil, err
	}
	return result.(*gatewayResponse), nil
}

// BreakerState exposes the circuit breaker state for health reporting.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
