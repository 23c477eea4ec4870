package alerting

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Alert carries one newly emitted revenue mention to delivery channels.
type Alert struct {
	Company        string
	AmountMillions decimal.Decimal
	Kind           string
	Confidence     float64
	Source         string
	Title          string
	URL            string
	AlertedAt      time.Time
}

// Notifier delivers a digest of alerts produced by one scrape cycle.
// Implementations receive alerts in descending amount order and must not
// reorder them; "highest amount first" is part of the contract.
type Notifier interface {
	Notify(ctx context.Context, alerts []Alert) error
}

// Multi fans a digest out to several channels. Delivery failures on one
// channel do not stop the others; the first error is returned.
type Multi []Notifier

// Notify dispatches to every channel.
func (m Multi) Notify(ctx context.Context, alerts []Alert) error {
	var firstErr error
	for _, n := range m {
		if err := n.Notify(ctx, alerts); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ Notifier = (Multi)(nil)
