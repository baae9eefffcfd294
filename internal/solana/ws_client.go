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
	"github.com/sirupsen/logrus"
)

// ErrWSClosed is returned by calls made after Close.
var ErrWSClosed = errors.New("websocket client closed")

// WSClientConfig tunes the account subscription client.
type WSClientConfig struct {
	// ReconnectDelay is the first wait after a dropped connection; it doubles up to MaxReconnectDelay.
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	PingInterval      time.Duration
	// ReadTimeout must exceed PingInterval: pongs are what keep the read deadline moving.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// SubscribeTimeout bounds the wait for a subscription id.
	SubscribeTimeout time.Duration
	// Buffer is the per-subscription channel capacity.
	Buffer int
}

// DefaultWSConfig returns the settings used when NewWSClient gets nil.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      20 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
		Buffer:            256,
	}
}

type subscription struct {
	pubkey string
	ch     chan AccountNotification
}

type subscribeReply struct {
	id  int64
	err error
}

// pendingSub is an accountSubscribe awaiting its reply. The read loop files sub
// under the confirmed id before waking the caller, so no notification can race it.
type pendingSub struct {
	sub   *subscription
	oldID int64
	reply chan subscribeReply
}

// WSClientImpl is a WSClient over gorilla/websocket. A dropped connection is
// redialed with backoff and every live subscription is re-sent.
type WSClientImpl struct {
	endpoint string
	config   WSClientConfig
	log      *logrus.Entry

	writeMu sync.Mutex
	conn    *websocket.Conn

	mu      sync.Mutex
	subs    map[int64]*subscription
	pending map[uint64]*pendingSub

	nextID atomic.Uint64
	closed atomic.Bool
	done   chan struct{}
	wg     sync.WaitGroup
}

var _ WSClient = (*WSClientImpl)(nil)

// NewWSClient dials endpoint and starts the read and ping loops.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig) (*WSClientImpl, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.SubscribeTimeout <= 0 {
		cfg.SubscribeTimeout = 30 * time.Second
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}

	c := &WSClientImpl{
		endpoint: endpoint,
		config:   cfg,
		log:      logrus.WithField("component", "ws-client"),
		subs:     make(map[int64]*subscription),
		pending:  make(map[uint64]*pendingSub),
		done:     make(chan struct{}),
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	c.conn = conn

	c.wg.Add(2)
	go c.readLoop(conn)
	go c.pingLoop()
	return c, nil
}

func (c *WSClientImpl) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", c.endpoint, err)
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	})
	return conn, nil
}

// SubscribeAccount sends accountSubscribe and returns the notification channel.
// The channel is closed by Close.
func (c *WSClientImpl) SubscribeAccount(ctx context.Context, pubkey string) (<-chan AccountNotification, error) {
	sub := &subscription{pubkey: pubkey, ch: make(chan AccountNotification, c.config.Buffer)}
	if err := c.subscribe(ctx, sub, -1); err != nil {
		c.drop(sub)
		return nil, err
	}
	return sub.ch, nil
}

// drop forgets sub when its caller gave up after the confirmation was filed.
func (c *WSClientImpl) drop(sub *subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, s := range c.subs {
		if s == sub {
			delete(c.subs, id)
		}
	}
}

// subscribe performs the request/confirm round trip for sub. When oldID is not
// negative the confirmed id replaces it.
func (c *WSClientImpl) subscribe(ctx context.Context, sub *subscription, oldID int64) error {
	if c.closed.Load() {
		return ErrWSClosed
	}

	reqID := c.nextID.Add(1)
	reply := make(chan subscribeReply, 1)
	c.mu.Lock()
	c.pending[reqID] = &pendingSub{sub: sub, oldID: oldID, reply: reply}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, reqID)
		c.mu.Unlock()
	}()

	if err := c.write(accountSubscribeRequest(reqID, sub.pubkey)); err != nil {
		return fmt.Errorf("send accountSubscribe: %w", err)
	}

	timer := time.NewTimer(c.config.SubscribeTimeout)
	defer timer.Stop()

	select {
	case r := <-reply:
		return r.err
	case <-timer.C:
		return fmt.Errorf("accountSubscribe %s: no reply after %s", sub.pubkey, c.config.SubscribeTimeout)
	case <-c.done:
		return ErrWSClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *WSClientImpl) write(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return errors.New("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(v)
}

// Close stops both loops and closes every subscription channel. It is safe to call twice.
func (c *WSClientImpl) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)

	c.writeMu.Lock()
	if c.conn != nil {
		c.conn.SetWriteDeadline(time.Now().Add(time.Second))
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.writeMu.Unlock()

	c.wg.Wait()

	c.mu.Lock()
	for id, sub := range c.subs {
		close(sub.ch)
		delete(c.subs, id)
	}
	c.mu.Unlock()
	return nil
}

// readLoop owns the connection: it reads until an error, then redials.
func (c *WSClientImpl) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err == nil {
			c.dispatch(msg)
			continue
		}
		if c.closed.Load() {
			return
		}

		c.log.WithError(err).Warn("connection lost, reconnecting")
		if conn = c.reconnect(); conn == nil {
			return
		}
	}
}

// reconnect dials with exponential backoff until it succeeds or Close is
// called, then re-sends every subscription in the background.
func (c *WSClientImpl) reconnect() *websocket.Conn {
	c.writeMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.writeMu.Unlock()

	delay := c.config.ReconnectDelay
	for {
		select {
		case <-c.done:
			return nil
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		conn, err := c.dial(ctx)
		cancel()
		if err == nil {
			c.writeMu.Lock()
			if c.closed.Load() {
				c.writeMu.Unlock()
				conn.Close()
				return nil
			}
			c.conn = conn
			c.writeMu.Unlock()

			c.wg.Add(1)
			go c.resubscribe()
			return conn
		}

		c.log.WithError(err).WithField("retry_in", delay).Debug("redial failed")
		if delay *= 2; delay > c.config.MaxReconnectDelay {
			delay = c.config.MaxReconnectDelay
		}
	}
}

// resubscribe moves each subscription to the id the new connection assigns.
// A subscription that cannot be re-sent keeps its stale id and stays silent.
// Replies are read by readLoop, so this runs on its own goroutine.
func (c *WSClientImpl) resubscribe() {
	defer c.wg.Done()

	c.mu.Lock()
	old := make(map[int64]*subscription, len(c.subs))
	for id, sub := range c.subs {
		old[id] = sub
	}
	c.mu.Unlock()

	for oldID, sub := range old {
		if err := c.subscribe(context.Background(), sub, oldID); err != nil {
			c.log.WithError(err).WithField("pubkey", sub.pubkey).Warn("resubscribe failed")
		}
	}
}

// wsEnvelope covers replies and notifications; which fields are set tells them apart.
type wsEnvelope struct {
	ID     *uint64               `json:"id"`
	Result json.RawMessage       `json:"result"`
	Error  *RPCError             `json:"error"`
	Method string                `json:"method"`
	Params *wsNotificationParams `json:"params"`
}

func (c *WSClientImpl) dispatch(msg []byte) {
	var env wsEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		c.log.WithError(err).Debug("undecodable message")
		return
	}

	switch {
	case env.ID != nil:
		c.confirm(*env.ID, env)
	case env.Method == "accountNotification" && env.Params != nil:
		c.notify(env.Params)
	}
}

func (c *WSClientImpl) confirm(reqID uint64, env wsEnvelope) {
	var r subscribeReply
	switch {
	case env.Error != nil:
		r.err = env.Error
	default:
		if err := json.Unmarshal(env.Result, &r.id); err != nil {
			r.err = fmt.Errorf("decode subscription id: %w", err)
		}
	}

	c.mu.Lock()
	p, ok := c.pending[reqID]
	if ok {
		delete(c.pending, reqID)
		if r.err == nil {
			if p.oldID >= 0 {
				delete(c.subs, p.oldID)
			}
			c.subs[r.id] = p.sub
		}
	}
	c.mu.Unlock()

	if ok {
		p.reply <- r
	}
}

// notify blocks until the subscriber takes the update or the client closes.
func (c *WSClientImpl) notify(p *wsNotificationParams) {
	c.mu.Lock()
	sub, ok := c.subs[p.Subscription]
	c.mu.Unlock()
	if !ok {
		return
	}

	update := AccountNotification{Pubkey: sub.pubkey}
	if p.Result.Context != nil {
		update.Slot = p.Result.Context.Slot
	}
	if v := p.Result.Value; v != nil {
		update.Account = v.toAccountInfo()
	}

	select {
	case sub.ch <- update:
	case <-c.done:
	}
}

func (c *WSClientImpl) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			if c.conn != nil {
				c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.config.WriteTimeout))
			}
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
	Subscription int64 `json:"subscription"`
	Result       struct {
		Context *struct {
			Slot int64 `json:"slot"`
		} `json:"context"`
		Value *getAccountInfoValue `json:"value"`
	} `json:"result"`
}

func accountSubscribeRequest(reqID uint64, pubkey string) wsRequest {
	return wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "accountSubscribe",
		Params: []interface{}{
			pubkey,
			map[string]string{"encoding": "base64", "commitment": "confirmed"},
		},
	}
}
