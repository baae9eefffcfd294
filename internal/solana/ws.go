package solana

import "context"

// WSClient defines WebSocket subscription interface.
type WSClient interface {
	// SubscribeAccount subscribes to changes of a single account.
	SubscribeAccount(ctx context.Context, pubkey string) (<-chan AccountNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// AccountNotification represents an accountNotification message.
type AccountNotification struct {
	Pubkey  string
	Slot    int64
	Account *AccountInfo // nil when the account was closed
}
