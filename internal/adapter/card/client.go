package card

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"loan-settlement-engine/internal/domain/apperr"
	"loan-settlement-engine/internal/domain/payment"

	"go.uber.org/zap"
)

const service = "card_processor"

// Client talks to the card processor's JSON charges API.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(baseURL, secretKey string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

type chargeBody struct {
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	PaymentMethod string `json:"payment_method"`
	Description   string `json:"description,omitempty"`
}

type chargeResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Card     struct {
		Last4 string `json:"last4"`
		Brand string `json:"brand"`
	} `json:"card"`
	FailureCode    string `json:"failure_code"`
	FailureMessage string `json:"failure_message"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) CreateCharge(ctx context.Context, req payment.CardChargeRequest) (payment.CardCharge, error) {
	if req.IdempotencyKey == "" {
		return payment.CardCharge{}, errors.New("card: idempotency key required")
	}
	body, err := json.Marshal(chargeBody{
		Amount:        req.Amount,
		Currency:      strings.ToLower(req.Currency),
		PaymentMethod: req.PaymentMethod,
		Description:   req.Description,
	})
	if err != nil {
		return payment.CardCharge{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/charges", bytes.NewReader(body))
	if err != nil {
		return payment.CardCharge{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)

	ch, err := c.do(httpReq)
	if err != nil {
		c.log.Warn("card charge failed",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Bool("transient", apperr.IsTransient(err)),
			zap.Error(err))
		return payment.CardCharge{}, err
	}
	c.log.Info("card charge created",
		zap.String("idempotency_key", req.IdempotencyKey),
		zap.String("ref", ch.Ref),
		zap.String("status", string(ch.Status)))
	return ch, nil
}

func (c *Client) GetCharge(ctx context.Context, ref string) (payment.CardCharge, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/charges/"+url.PathEscape(ref), nil)
	if err != nil {
		return payment.CardCharge{}, err
	}
	return c.do(httpReq)
}

func (c *Client) do(req *http.Request) (payment.CardCharge, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// timeouts included: the charge may or may not exist
		return payment.CardCharge{}, apperr.External(service, true, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return payment.CardCharge{}, apperr.External(service, true, err)
	}

	switch {
	case resp.StatusCode == http.StatusPaymentRequired:
		// declined: the body is the failed charge
		var cr chargeResponse
		if err := json.Unmarshal(raw, &cr); err != nil || cr.ID == "" {
			return payment.CardCharge{Status: payment.CardChargeFailed, FailureReason: "card_declined"}, nil
		}
		cr.Status = string(payment.CardChargeFailed)
		return toCharge(cr), nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return payment.CardCharge{}, apperr.External(service, true, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 300:
		var er errorResponse
		_ = json.Unmarshal(raw, &er)
		return payment.CardCharge{}, apperr.External(service, false,
			fmt.Errorf("status %d: %s %s", resp.StatusCode, er.Error.Code, er.Error.Message))
	}

	var cr chargeResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return payment.CardCharge{}, apperr.External(service, false, fmt.Errorf("decode charge: %w", err))
	}
	return toCharge(cr), nil
}

func toCharge(cr chargeResponse) payment.CardCharge {
	ch := payment.CardCharge{
		Ref:      cr.ID,
		Amount:   cr.Amount,
		Currency: strings.ToUpper(cr.Currency),
		Last4:    cr.Card.Last4,
		Brand:    cr.Card.Brand,
	}
	switch cr.Status {
	case "succeeded", "paid":
		ch.Status = payment.CardChargeSucceeded
	case "failed", "declined", "canceled", "cancelled":
		ch.Status = payment.CardChargeFailed
		ch.FailureReason = cr.FailureCode
		if ch.FailureReason == "" {
			ch.FailureReason = "card_declined"
		}
	default:
		ch.Status = payment.CardChargePending
	}
	return ch
}
