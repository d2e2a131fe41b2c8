package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"pump-sentinel/internal/observability"
)

// WSConfig configures WebSocket client behavior.
type WSConfig struct {
	// HandshakeTimeout bounds the initial dial.
	HandshakeTimeout time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// RequestTimeout bounds waiting for a subscribe/unsubscribe response.
	RequestTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		RequestTimeout:   30 * time.Second,
	}
}

// notificationBuffer absorbs launch-hour bursts; sends block rather than
// drop once it fills.
const notificationBuffer = 10000

// WSConn implements WSClient over one gorilla/websocket connection. It does
// not reconnect: when the connection dies every subscription channel closes
// and Done fires, and the owner rebuilds through another endpoint.
type WSConn struct {
	endpoint string
	config   WSConfig

	conn      *websocket.Conn
	writeMu   sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps subscription ID to delivery channel. pendingSubs holds a
	// subscribe's channel under its request ID until the server assigns a
	// subscription ID; the read loop moves it into subs while handling the
	// confirmation frame, before any later frame is dispatched.
	subs        map[int64]chan LogNotification
	pendingSubs map[uint64]chan LogNotification
	subsMu      sync.Mutex

	// pending maps request ID to channel waiting for the RPC result
	pending   map[uint64]chan wsResult
	pendingMu sync.Mutex

	done     chan struct{}
	shutdown sync.Once
	wg       sync.WaitGroup
}

type wsResult struct {
	result json.RawMessage
	err    error
}

// DialWS connects to a WebSocket endpoint and starts its read and ping
// loops.
func DialWS(ctx context.Context, endpoint string, config *WSConfig) (*WSConn, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &WSConn{
		endpoint:    endpoint,
		config:      cfg,
		conn:        conn,
		subs:        make(map[int64]chan LogNotification),
		pendingSubs: make(map[uint64]chan LogNotification),
		pending:     make(map[uint64]chan wsResult),
		done:        make(chan struct{}),
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

var _ WSClient = (*WSConn)(nil)

// SubscribeLogs subscribes to program logs matching the filter.
func (c *WSConn) SubscribeLogs(ctx context.Context, filter LogsFilter) (*LogsSubscription, error) {
	mentions := make(map[string]interface{})
	if len(filter.Mentions) > 0 {
		mentions["mentions"] = filter.Mentions
	} else {
		mentions["all"] = nil
	}

	// The channel is parked under the request ID before the subscribe goes
	// out. The read loop binds it to the subscription ID while handling the
	// confirmation, so a notification on the very next frame cannot race the
	// registration.
	reqID := c.requestID.Add(1)
	ch := make(chan LogNotification, notificationBuffer)
	c.subsMu.Lock()
	c.pendingSubs[reqID] = ch
	c.subsMu.Unlock()

	raw, err := c.request(ctx, reqID, "logsSubscribe", []interface{}{
		mentions,
		map[string]string{"commitment": "confirmed"},
	})
	if err != nil {
		c.subsMu.Lock()
		delete(c.pendingSubs, reqID)
		c.subsMu.Unlock()
		return nil, err
	}

	var subID int64
	if err := json.Unmarshal(raw, &subID); err != nil {
		c.subsMu.Lock()
		delete(c.pendingSubs, reqID)
		c.subsMu.Unlock()
		return nil, fmt.Errorf("subscription id: %w", err)
	}

	return &LogsSubscription{ID: subID, C: ch}, nil
}

// UnsubscribeLogs cancels a server-side subscription by ID.
func (c *WSConn) UnsubscribeLogs(ctx context.Context, id int64) error {
	c.subsMu.Lock()
	if ch, ok := c.subs[id]; ok {
		delete(c.subs, id)
		close(ch)
	}
	c.subsMu.Unlock()

	raw, err := c.request(ctx, c.requestID.Add(1), "logsUnsubscribe", []interface{}{id})
	if err != nil {
		return err
	}

	var ok bool
	if err := json.Unmarshal(raw, &ok); err != nil {
		return fmt.Errorf("unsubscribe result: %w", err)
	}
	if !ok {
		return fmt.Errorf("subscription %d not found", id)
	}
	return nil
}

// Done is closed when the connection has failed or been closed.
func (c *WSConn) Done() <-chan struct{} {
	return c.done
}

// Close closes the WebSocket connection.
func (c *WSConn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.writeMu.Lock()
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	c.teardown(nil)
	c.wg.Wait()
	return nil
}

// request sends one RPC over the socket and waits for its response.
func (c *WSConn) request(ctx context.Context, reqID uint64, method string, params []interface{}) (json.RawMessage, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	resultCh := make(chan wsResult, 1)
	c.pendingMu.Lock()
	c.pending[reqID] = resultCh
	c.pendingMu.Unlock()

	abandon := func() {
		c.pendingMu.Lock()
		delete(c.pending, reqID)
		c.pendingMu.Unlock()
	}

	c.writeMu.Lock()
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		abandon()
		return nil, fmt.Errorf("write %s: %w", method, err)
	}

	select {
	case res := <-resultCh:
		return res.result, res.err
	case <-time.After(c.config.RequestTimeout):
		abandon()
		return nil, fmt.Errorf("%s timeout after %s", method, c.config.RequestTimeout)
	case <-c.done:
		return nil, fmt.Errorf("connection lost")
	case <-ctx.Done():
		abandon()
		return nil, ctx.Err()
	}
}

// teardown closes the socket and every delivery channel exactly once.
func (c *WSConn) teardown(cause error) {
	c.shutdown.Do(func() {
		c.closed.Store(true)
		close(c.done)
		c.conn.Close()

		c.subsMu.Lock()
		for id, ch := range c.subs {
			close(ch)
			delete(c.subs, id)
		}
		for id, ch := range c.pendingSubs {
			close(ch)
			delete(c.pendingSubs, id)
		}
		c.subsMu.Unlock()

		c.pendingMu.Lock()
		for id, ch := range c.pending {
			if cause != nil {
				ch <- wsResult{err: cause}
			}
			close(ch)
			delete(c.pending, id)
		}
		c.pendingMu.Unlock()
	})
}

// readLoop reads messages from the socket and dispatches to subscribers.
func (c *WSConn) readLoop() {
	defer c.wg.Done()

	for {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if !c.closed.Load() {
				c.teardown(fmt.Errorf("websocket read: %w", err))
			} else {
				c.teardown(nil)
			}
			return
		}
		c.handleMessage(message)
	}
}

// handleMessage routes one incoming frame.
func (c *WSConn) handleMessage(message []byte) {
	var frame struct {
		ID     uint64                `json:"id"`
		Method string                `json:"method"`
		Result json.RawMessage       `json:"result"`
		Error  *rpcError             `json:"error"`
		Params *wsNotificationParams `json:"params"`
	}
	if err := json.Unmarshal(message, &frame); err != nil {
		return
	}

	if frame.Method == "logsNotification" && frame.Params != nil {
		start := time.Now()
		c.dispatch(frame.Params)
		observability.DefaultMetrics.WSMessageLatency.Observe(time.Since(start).Seconds())
		return
	}

	if frame.ID == 0 {
		return
	}

	c.pendingMu.Lock()
	ch, ok := c.pending[frame.ID]
	if ok {
		delete(c.pending, frame.ID)
	}
	c.pendingMu.Unlock()
	if !ok {
		return
	}

	if frame.Error != nil {
		c.subsMu.Lock()
		delete(c.pendingSubs, frame.ID)
		c.subsMu.Unlock()
		ch <- wsResult{err: frame.Error}
	} else {
		c.bindSubscription(frame.ID, frame.Result)
		ch <- wsResult{result: frame.Result}
	}
}

// bindSubscription moves a parked subscribe channel under the subscription
// ID the server assigned. Runs on the read loop so it is ordered before any
// notification for that ID.
func (c *WSConn) bindSubscription(reqID uint64, result json.RawMessage) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	ch, ok := c.pendingSubs[reqID]
	if !ok {
		return
	}

	var subID int64
	if err := json.Unmarshal(result, &subID); err != nil {
		return
	}
	delete(c.pendingSubs, reqID)
	c.subs[subID] = ch
}

// dispatch delivers one notification to its subscription channel. Sends
// block rather than drop once the buffer fills.
func (c *WSConn) dispatch(params *wsNotificationParams) {
	notif := LogNotification{
		Signature: params.Result.Value.Signature,
		Logs:      params.Result.Value.Logs,
		Err:       params.Result.Value.Err,
	}
	if params.Result.Context != nil {
		notif.Slot = params.Result.Context.Slot
	}

	// The lock is held across the send so UnsubscribeLogs cannot close the
	// channel mid-delivery. teardown closes done before taking the lock, so
	// a blocked send always unwinds on shutdown.
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	ch, ok := c.subs[params.Subscription]
	if !ok {
		return
	}

	select {
	case ch <- notif:
	case <-c.done:
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *WSConn) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
		}
	}
}

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}
