// Package notify delivers operator-facing signal notifications. Delivery is
// best-effort: the pipeline logs failures and moves on, a dropped message
// must never stall event processing.
package notify

import "context"

// Type classifies a notification.
type Type string

const (
	TypeEntrySignal        Type = "ENTRY_SIGNAL"
	TypeExitSignal         Type = "EXIT_SIGNAL"
	TypeMonitoringStarted  Type = "MONITORING_STARTED"
	TypeMonitoringStopped  Type = "MONITORING_STOPPED"
	TypeMonitoringDegraded Type = "MONITORING_DEGRADED"
)

// Payload is one notification.
type Payload struct {
	Type        Type
	MintAddress string
	Timestamp   int64 // Unix milliseconds
	// Data carries type-specific fields (entry price, exit reason, ...).
	Data map[string]string
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, p Payload) error
}
