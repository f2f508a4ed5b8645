package stub

import (
	"context"
	"errors"
	"sync"

	"solana-mev-agent/internal/solana"
)

// ErrNoFeed is returned once WSClient runs out of scripted feeds.
var ErrNoFeed = errors.New("no feed scripted")

// WSClient implements solana.WSClient with scripted subscriptions.
// Each SubscribeSlots call consumes the next entry of Feeds; a nil
// channel entry fails that call with the matching Errs entry.
type WSClient struct {
	mu    sync.Mutex
	Feeds []chan solana.SlotNotification
	Errs  []error
	calls int
}

var _ solana.WSClient = (*WSClient)(nil)

// SubscribeSlots returns the next scripted feed.
func (w *WSClient) SubscribeSlots(_ context.Context) (<-chan solana.SlotNotification, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.calls
	w.calls++
	if i < len(w.Errs) && w.Errs[i] != nil {
		return nil, w.Errs[i]
	}
	if i >= len(w.Feeds) || w.Feeds[i] == nil {
		return nil, ErrNoFeed
	}
	return w.Feeds[i], nil
}

// Calls returns how many subscriptions were attempted.
func (w *WSClient) Calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}
