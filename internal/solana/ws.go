package solana

import "context"

// WSClient defines the Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeLogs subscribes to program logs matching the filter.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (*LogsSubscription, error)

	// UnsubscribeLogs cancels a server-side subscription by ID.
	UnsubscribeLogs(ctx context.Context, id int64) error

	// Done is closed when the connection has failed or been closed; the
	// client does not reconnect itself, the owner tears down and rebuilds
	// through a fresh endpoint.
	Done() <-chan struct{}

	// Close closes the WebSocket connection.
	Close() error
}

// LogsFilter defines subscription filter for logs.
type LogsFilter struct {
	// Mentions filters logs that mention any of these program IDs.
	Mentions []string
}

// LogsSubscription is one confirmed server-side subscription.
type LogsSubscription struct {
	// ID is the server-assigned subscription ID.
	ID int64
	// C delivers notifications. Closed when the subscription ends, either
	// by UnsubscribeLogs or because the connection died.
	C <-chan LogNotification
}

// LogNotification represents a logs subscription message.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}
