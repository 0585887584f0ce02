package payments

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Event is a verified inbound webhook payload, parsed into an explicit
// shape. Unknown event types are acknowledged and logged, never errors:
// the provider retries on non-2xx and unknown types are not our fault.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		PaymentID     string `json:"payment_id"`
		AmountCrypto  string `json:"amount_crypto"`
		AmountUSD     string `json:"amount_usd"`
		Currency      string `json:"currency"`
		Status        string `json:"status"`
		Confirmations int    `json:"confirmations"`
		TxHash        string `json:"tx_hash"`
	} `json:"data"`
	CreatedAt  string `json:"created_at"`
	BusinessID string `json:"business_id"`
}

// ParseEvent decodes a verified webhook body.
func ParseEvent(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("payments: decode event: %w", err)
	}
	if ev.Type == "" {
		return nil, fmt.Errorf("payments: event missing type")
	}
	return &ev, nil
}

// HandleEvent processes one verified event.
func HandleEvent(ev *Event, logger *zap.Logger) {
	fields := []zap.Field{
		zap.String("type", ev.Type),
		zap.String("payment_id", ev.Data.PaymentID),
		zap.String("amount_usd", ev.Data.AmountUSD),
		zap.String("currency", ev.Data.Currency),
	}
	switch ev.Type {
	case "payment.confirmed":
		logger.Info("donation confirmed", fields...)
	case "payment.forwarded":
		logger.Info("donation forwarded", fields...)
	case "payment.expired":
		logger.Info("donation expired", fields...)
	case "test.webhook":
		logger.Info("test webhook received")
	default:
		logger.Warn("unknown webhook event", fields...)
	}
}
