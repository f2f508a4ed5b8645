package solana

import "context"

// WSClient defines the Solana WebSocket slot feed.
type WSClient interface {
	// SubscribeSlots opens a new connection and subscribes to slot updates.
	// The returned channel is closed when the connection drops or ctx ends;
	// reconnecting is the caller's job.
	SubscribeSlots(ctx context.Context) (<-chan SlotNotification, error)
}

// SlotNotification represents a slotSubscribe message.
type SlotNotification struct {
	Slot   int64
	Parent int64
	Root   int64
}
