package rpc

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"solana-token-transfer/internal/ledger"
	"solana-token-transfer/internal/observability"
	"solana-token-transfer/internal/solana"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

// wsSession is one WebSocket connection and the subscriptions it owns.
type wsSession struct {
	server *Server
	conn   *websocket.Conn
	logger *logrus.Entry

	writeMu sync.Mutex

	mu   sync.Mutex
	subs map[uint64]struct{}
	wg   sync.WaitGroup
}

type wsNotification struct {
	JSONRPC string             `json:"jsonrpc"`
	Method  string             `json:"method"`
	Params  wsNotificationBody `json:"params"`
}

type wsNotificationBody struct {
	Subscription uint64       `json:"subscription"`
	Result       contextValue `json:"result"`
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	sess := &wsSession{
		server: s,
		conn:   conn,
		logger: s.logger.WithField("remote", r.RemoteAddr),
		subs:   make(map[uint64]struct{}),
	}
	sess.logger.Debug("websocket connected")
	sess.run()
}

func (ws *wsSession) run() {
	done := make(chan struct{})
	defer func() {
		close(done)
		ws.unsubscribeAll()
		ws.wg.Wait()
		ws.conn.Close()
		ws.logger.Debug("websocket closed")
	}()

	ws.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	ws.conn.SetPongHandler(func(string) error {
		return ws.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go ws.pingLoop(done)

	for {
		_, msg, err := ws.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				ws.logger.WithError(err).Debug("websocket read failed")
			}
			return
		}
		ws.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		ws.write(ws.handle(msg))
	}
}

func (ws *wsSession) handle(raw []byte) interface{} {
	var req request
	if err := json.Unmarshal(raw, &req); err != nil {
		return errorResponse{JSONRPC: "2.0", Error: newError(CodeParseError, "Parse error")}
	}

	start := time.Now()
	result, err := ws.call(req.Method, req.Params)
	observability.RecordRPCCall(req.Method, time.Since(start).Seconds(), err)
	if err != nil {
		var rpcErr *solana.RPCError
		if !errors.As(err, &rpcErr) {
			rpcErr = newError(CodeInternalError, "Internal error: %v", err)
		}
		return errorResponse{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}
	return successResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (ws *wsSession) call(method string, raw json.RawMessage) (interface{}, error) {
	p, err := parseParams(raw)
	if err != nil {
		return nil, err
	}
	switch method {
	case "accountSubscribe":
		return ws.accountSubscribe(p)
	case "accountUnsubscribe":
		return ws.accountUnsubscribe(p)
	}
	return nil, newError(CodeMethodNotFound, "Method not found")
}

func (ws *wsSession) accountSubscribe(p params) (interface{}, error) {
	key, err := p.pubkey(0)
	if err != nil {
		return nil, err
	}
	var cfg encodingConfig
	if err := p.config(1, &cfg); err != nil {
		return nil, err
	}
	if err := checkEncoding(cfg.Encoding); err != nil {
		return nil, err
	}

	id, ch := ws.server.ledger.Notifier().Subscribe(key)
	ws.mu.Lock()
	ws.subs[id] = struct{}{}
	ws.mu.Unlock()
	observability.UpdateWSSubscriptions(1)

	ws.wg.Add(1)
	go ws.forward(id, ch)

	ws.logger.WithFields(logrus.Fields{"subscription": id, "account": key.String()}).Debug("account subscribed")
	return id, nil
}

func (ws *wsSession) accountUnsubscribe(p params) (interface{}, error) {
	id, err := p.uint64(0, "subscription id")
	if err != nil {
		return nil, err
	}
	ws.mu.Lock()
	_, owned := ws.subs[id]
	delete(ws.subs, id)
	ws.mu.Unlock()
	if !owned {
		return nil, invalidParams("Invalid subscription id.")
	}
	if ws.server.ledger.Notifier().Unsubscribe(id) {
		observability.UpdateWSSubscriptions(-1)
	}
	return true, nil
}

// forward writes updates for one subscription until its channel closes.
func (ws *wsSession) forward(id uint64, ch <-chan ledger.AccountUpdate) {
	defer ws.wg.Done()
	for update := range ch {
		ws.write(wsNotification{
			JSONRPC: "2.0",
			Method:  "accountNotification",
			Params: wsNotificationBody{
				Subscription: id,
				Result: contextValue{
					Context: rpcContext{Slot: update.Slot},
					Value:   encodeAccount(update.Account),
				},
			},
		})
	}
}

func (ws *wsSession) unsubscribeAll() {
	ws.mu.Lock()
	ids := make([]uint64, 0, len(ws.subs))
	for id := range ws.subs {
		ids = append(ids, id)
	}
	ws.subs = make(map[uint64]struct{})
	ws.mu.Unlock()

	n := ws.server.ledger.Notifier()
	for _, id := range ids {
		if n.Unsubscribe(id) {
			observability.UpdateWSSubscriptions(-1)
		}
	}
}

func (ws *wsSession) pingLoop(done <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			ws.writeMu.Lock()
			err := ws.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
			ws.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (ws *wsSession) write(v interface{}) {
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	ws.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := ws.conn.WriteJSON(v); err != nil {
		ws.logger.WithError(err).Debug("websocket write failed")
	}
}
