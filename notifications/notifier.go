// Package notifications abstracts the external delivery sink named
// out-of-scope in spec §1/§9 ("Discord/webhook delivery... excluded")
// behind a capability interface. The teacher's WebhookManager
// (webhook_manager.go) payload shape is adapted here as the Alert
// struct; LogNotifier stands in as the default, always-available
// implementation.
package notifications

import (
	"context"
	"log"
	"time"
)

// Alert is the payload a Notifier delivers — a trimmed version of the
// teacher's WebhookPayload, scoped to what AlertEmitter has on hand.
type Alert struct {
	SignalID  int64
	Symbol    string
	Strategy  string
	Tier      string
	Grade     string
	Message   string
	Timestamp time.Time
}

// Notifier delivers an Alert to an external sink. Implementations must
// not block the caller for long; slow delivery should be backgrounded.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// LogNotifier is the default Notifier: it writes the alert to the
// process log and nothing else. Swap in a real webhook/Discord/Slack
// sink by implementing Notifier.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, alert Alert) error {
	log.Printf("🔔 alert: %s %s tier=%s grade=%s %s", alert.Symbol, alert.Strategy, alert.Tier, alert.Grade, alert.Message)
	return nil
}
