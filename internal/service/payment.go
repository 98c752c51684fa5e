package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// PaymentResult is the outcome of a charge attempt.  It is the sole
// input the lifecycle engine acts on when confirming a ticket.
type PaymentResult struct {
	Success       bool      `json:"success"`
	TransactionID string    `json:"transaction_id"`
	AmountCents   uint32    `json:"amount_cents"`
	Method        string    `json:"method"`
	Timestamp     time.Time `json:"timestamp"`
}

// RefundResult is the outcome of a refund attempt.
type RefundResult struct {
	Success       bool      `json:"success"`
	RefundID      string    `json:"refund_id"`
	TransactionID string    `json:"transaction_id"`
	AmountCents   uint32    `json:"amount_cents"`
	Timestamp     time.Time `json:"timestamp"`
}

// PaymentProcessor is the external payment gateway contract.  Calls
// may be slow and may fail; they are never retried automatically
// because re-charging has financial side effects.  The caller decides
// whether to re-attempt.
type PaymentProcessor interface {
	Charge(ctx context.Context, amountCents uint32, method string) (PaymentResult, error)
	Refund(ctx context.Context, transactionID string, amountCents uint32) (RefundResult, error)
}

// MockPaymentProcessor simulates a gateway.  It succeeds unless Fail
// is set, and generates transaction identifiers shaped like the real
// gateway's.
type MockPaymentProcessor struct {
	Fail bool
}

func paymentRef(prefix string) string {
	buf := make([]byte, 5)
	_, _ = rand.Read(buf)
	ts := strconv.FormatInt(time.Now().UTC().UnixMilli(), 36)
	return prefix + strings.ToUpper(ts+hex.EncodeToString(buf))
}

// Charge simulates a card charge.
func (m *MockPaymentProcessor) Charge(ctx context.Context, amountCents uint32, method string) (PaymentResult, error) {
	if method == "" {
		method = "mada"
	}
	if m.Fail {
		return PaymentResult{Success: false, AmountCents: amountCents, Method: method, Timestamp: time.Now().UTC()}, nil
	}
	return PaymentResult{
		Success:       true,
		TransactionID: paymentRef("TXN"),
		AmountCents:   amountCents,
		Method:        method,
		Timestamp:     time.Now().UTC(),
	}, nil
}

// Refund simulates a refund of a previous charge.
func (m *MockPaymentProcessor) Refund(ctx context.Context, transactionID string, amountCents uint32) (RefundResult, error) {
	return RefundResult{
		Success:       true,
		RefundID:      paymentRef("REF"),
		TransactionID: transactionID,
		AmountCents:   amountCents,
		Timestamp:     time.Now().UTC(),
	}, nil
}
