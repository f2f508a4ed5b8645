package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration
	// SubscribeTimeout bounds the wait for the subscription confirmation.
	SubscribeTimeout time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// BufferSize is the capacity of the notification channel.
	BufferSize int
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		HandshakeTimeout: 10 * time.Second,
		SubscribeTimeout: 30 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		BufferSize:       100,
	}
}

// ErrSubscriptionRejected is returned when the node answers slotSubscribe with an error.
var ErrSubscriptionRejected = errors.New("subscription rejected")

// WSClientImpl implements WSClient using gorilla/websocket.
// Every SubscribeSlots call owns its own connection.
type WSClientImpl struct {
	endpoint  string
	config    WSClientConfig
	requestID atomic.Uint64
}

// NewWSClient creates a new WebSocket client for endpoint.
func NewWSClient(endpoint string, config *WSClientConfig) *WSClientImpl {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	return &WSClientImpl{
		endpoint: endpoint,
		config:   cfg,
	}
}

// Compile-time interface check.
var _ WSClient = (*WSClientImpl)(nil)

// SubscribeSlots dials, sends slotSubscribe and waits for the confirmation.
func (c *WSClientImpl) SubscribeSlots(ctx context.Context) (<-chan SlotNotification, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.config.HandshakeTimeout}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	reqID := c.requestID.Add(1)
	conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := conn.WriteJSON(wsRequest{JSONRPC: "2.0", ID: reqID, Method: "slotSubscribe"}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write subscribe: %w", err)
	}

	subID, err := c.awaitConfirmation(ctx, conn, reqID)
	if err != nil {
		conn.Close()
		return nil, err
	}

	s := &slotSession{
		conn:   conn,
		config: c.config,
		subID:  subID,
		out:    make(chan SlotNotification, c.config.BufferSize),
		done:   make(chan struct{}),
	}
	s.start(ctx)

	return s.out, nil
}

// awaitConfirmation reads until the response for reqID arrives.
// Notifications that race ahead of the confirmation are discarded.
func (c *WSClientImpl) awaitConfirmation(ctx context.Context, conn *websocket.Conn, reqID uint64) (int64, error) {
	deadline := time.Now().Add(c.config.SubscribeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetReadDeadline(deadline)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			return 0, fmt.Errorf("await subscription: %w", err)
		}

		var env wsEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			continue
		}
		if env.ID == nil || *env.ID != reqID {
			continue
		}
		if env.Error != nil {
			return 0, fmt.Errorf("%w: %s", ErrSubscriptionRejected, env.Error.Error())
		}

		var subID int64
		if err := json.Unmarshal(env.Result, &subID); err != nil {
			return 0, fmt.Errorf("parse subscription id: %w", err)
		}
		return subID, nil
	}
}

// slotSession pumps one connection's notifications into out.
type slotSession struct {
	conn   *websocket.Conn
	connMu sync.Mutex
	config WSClientConfig
	subID  int64
	out    chan SlotNotification
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

func (s *slotSession) start(ctx context.Context) {
	s.wg.Add(2)
	go s.readLoop(ctx)
	go s.pingLoop()

	// Unblock ReadMessage on cancellation.
	go func() {
		select {
		case <-ctx.Done():
			s.shutdown()
		case <-s.done:
		}
	}()

	go func() {
		s.wg.Wait()
		close(s.out)
	}()
}

func (s *slotSession) shutdown() {
	s.once.Do(func() {
		close(s.done)
		s.connMu.Lock()
		s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
		s.connMu.Unlock()
	})
}

// readLoop exits on the first read error; the session is not reused.
func (s *slotSession) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer s.shutdown()

	for {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		notif, ok := s.parseNotification(message)
		if !ok {
			continue
		}

		select {
		case s.out <- notif:
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *slotSession) parseNotification(message []byte) (SlotNotification, bool) {
	var env wsEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		return SlotNotification{}, false
	}
	if env.Method != "slotNotification" || env.Params == nil || env.Params.Subscription != s.subID {
		return SlotNotification{}, false
	}

	var v wsSlotInfo
	if err := json.Unmarshal(env.Params.Result, &v); err != nil {
		return SlotNotification{}, false
	}
	return SlotNotification{Slot: v.Slot, Parent: v.Parent, Root: v.Root}, true
}

// pingLoop sends periodic ping frames to keep connection alive.
func (s *slotSession) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			err := s.conn.WriteMessage(websocket.PingMessage, nil)
			s.connMu.Unlock()
			if err != nil {
				// Reader observes the broken connection and ends the session.
				return
			}
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// wsEnvelope covers responses and notifications.
type wsEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  *struct {
		Subscription int64           `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params,omitempty"`
}

type wsSlotInfo struct {
	Slot   int64 `json:"slot"`
	Parent int64 `json:"parent"`
	Root   int64 `json:"root"`
}
