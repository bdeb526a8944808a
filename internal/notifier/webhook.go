package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// SettlementEvent is the payload emitted when a payment is approved. The
// webhook consumer and balance crediting live outside this service; its
// obligation ends at delivering this event.
type SettlementEvent struct {
	TransactionID  string          `json:"transaction_id"`
	PaymentID      uint            `json:"payment_id"`
	BusinessID     *uint           `json:"business_id,omitempty"`
	ExpectedAmount decimal.Decimal `json:"expected_amount"`
	ReceivedAmount decimal.Decimal `json:"received_amount"`
	IsMismatch     bool            `json:"is_mismatch"`
	AccountNumber  string          `json:"account_number"`
	EmailMessageID string          `json:"email_message_id"`
	SettledAt      time.Time       `json:"settled_at"`
}

// WebhookNotifier POSTs settlement events to a configured URL with bounded
// retries.
type WebhookNotifier struct {
	url        string
	maxRetries int
	client     *http.Client
}

// NewWebhookNotifier creates a WebhookNotifier. maxRetries below 1 is
// clamped to 1.
func NewWebhookNotifier(url string, maxRetries int, timeout time.Duration) *WebhookNotifier {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &WebhookNotifier{
		url:        url,
		maxRetries: maxRetries,
		client:     &http.Client{Timeout: timeout},
	}
}

// PaymentSettled delivers the settlement event. Retries use quadratic
// backoff and only fire on transport errors and 5xx responses; a 4xx means
// the consumer rejected the payload and retrying won't help.
func (n *WebhookNotifier) PaymentSettled(ctx context.Context, event SettlementEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		logrus.Errorf("Failed to encode settlement event for payment %d: %v", event.PaymentID, err)
		return
	}

	var lastErr error
	for attempt := 1; attempt <= n.maxRetries; attempt++ {
		if err := n.post(ctx, body); err != nil {
			lastErr = err
			logrus.Warnf("Failed to deliver settlement event (attempt %d/%d): %v", attempt, n.maxRetries, err)
			if !retryable(err) {
				break
			}
			select {
			case <-time.After(time.Duration(attempt*attempt) * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}
		logrus.Infof("Delivered settlement event for payment %d", event.PaymentID)
		return
	}
	logrus.Errorf("Giving up on settlement event for payment %d: %v", event.PaymentID, lastErr)
}

type httpStatusError struct {
	status int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("webhook returned status %d", e.status)
}

func retryable(err error) bool {
	if se, ok := err.(*httpStatusError); ok {
		return se.status >= 500
	}
	return true
}

func (n *WebhookNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return &httpStatusError{status: resp.StatusCode}
	}
	return nil
}

// NoopNotifier discards settlement events. Used when no webhook URL is
// configured.
type NoopNotifier struct{}

// PaymentSettled implements the notifier contract as a no-op.
func (NoopNotifier) PaymentSettled(ctx context.Context, event SettlementEvent) {
	logrus.Debugf("No webhook configured, dropping settlement event for payment %d", event.PaymentID)
}
