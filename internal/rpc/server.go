// Package rpc serves the ledger over JSON-RPC 2.0 (HTTP) and WebSocket
// account subscriptions, in the shape of the chain's public RPC API.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/ledger"
	"solana-token-transfer/internal/observability"
	"solana-token-transfer/internal/runtime"
	"solana-token-transfer/internal/solana"
)

const maxRequestBytes = 1 << 20

// Ledger is the bank surface the RPC server needs.
type Ledger interface {
	Slot() uint64
	LatestBlockhash() (solana.Hash, uint64)
	Rent() runtime.Rent
	Account(ctx context.Context, key solana.PublicKey) (*domain.Account, error)
	AccountsByOwner(ctx context.Context, program solana.PublicKey) ([]*domain.KeyedAccount, error)
	Transaction(ctx context.Context, signature string) (*domain.TransactionRecord, error)
	SignaturesForAddress(ctx context.Context, address, before string, limit int) ([]*domain.TransactionRecord, error)
	InstructionEvents(ctx context.Context, mint string, start, end int64) ([]*domain.InstructionEvent, error)
	Airdrop(ctx context.Context, recipient solana.PublicKey, lamports uint64) (solana.Signature, error)
	ProcessTransaction(ctx context.Context, tx *solana.Transaction) (*ledger.Receipt, error)
	Simulate(ctx context.Context, tx *solana.Transaction, sigVerify bool) (*runtime.Result, error)
	Notifier() *ledger.Notifier
}

var _ Ledger = (*ledger.Bank)(nil)

type handlerFunc func(ctx context.Context, p params) (interface{}, error)

// Server dispatches JSON-RPC requests to the ledger.
type Server struct {
	ledger   Ledger
	methods  map[string]handlerFunc
	upgrader websocket.Upgrader
	started  time.Time
	logger   *logrus.Entry
}

// NewServer creates a server over l.
func NewServer(l Ledger, logger *logrus.Entry) *Server {
	if logger == nil {
		logger = logrus.WithField("component", "rpc")
	}
	s := &Server{
		ledger:  l,
		started: time.Now(),
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.methods = map[string]handlerFunc{
		"getAccountInfo":                    s.getAccountInfo,
		"getBalance":                        s.getBalance,
		"getTokenAccountBalance":            s.getTokenAccountBalance,
		"getTokenInfo":                      s.getTokenInfo,
		"getProgramAccounts":                s.getProgramAccounts,
		"getMinimumBalanceForRentExemption": s.getMinimumBalanceForRentExemption,
		"getLatestBlockhash":                s.getLatestBlockhash,
		"getSlot":                           s.getSlot,
		"getHealth":                         s.getHealth,
		"requestAirdrop":                    s.requestAirdrop,
		"sendTransaction":                   s.sendTransaction,
		"simulateTransaction":               s.simulateTransaction,
		"getTransaction":                    s.getTransaction,
		"getSignaturesForAddress":           s.getSignaturesForAddress,
		"getTokenEvents":                    s.getTokenEvents,
	}
	return s
}

// Handler returns the HTTP handler: JSON-RPC and WebSocket on "/", plus
// /health, /status and /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", s)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", observability.Handler())
	return mux
}

// ServeHTTP handles a JSON-RPC POST or upgrades to a WebSocket subscription session.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.serveWS(w, r)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		writeJSON(w, errorResponse{JSONRPC: "2.0", Error: newError(CodeInvalidRequest, "request too large")})
		return
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var batch []json.RawMessage
		if err := json.Unmarshal(trimmed, &batch); err != nil || len(batch) == 0 {
			writeJSON(w, errorResponse{JSONRPC: "2.0", Error: newError(CodeParseError, "Parse error")})
			return
		}
		out := make([]interface{}, 0, len(batch))
		for _, raw := range batch {
			out = append(out, s.handle(r.Context(), raw))
		}
		writeJSON(w, out)
		return
	}
	writeJSON(w, s.handle(r.Context(), trimmed))
}

// handle runs one request and returns its response object.
func (s *Server) handle(ctx context.Context, raw []byte) interface{} {
	var req request
	if err := json.Unmarshal(raw, &req); err != nil {
		return errorResponse{JSONRPC: "2.0", Error: newError(CodeParseError, "Parse error")}
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return errorResponse{JSONRPC: "2.0", ID: req.ID, Error: newError(CodeInvalidRequest, "Invalid request")}
	}

	start := time.Now()
	result, err := s.call(ctx, req.Method, req.Params)
	observability.RecordRPCCall(req.Method, time.Since(start).Seconds(), err)

	if err != nil {
		var rpcErr *solana.RPCError
		if !errors.As(err, &rpcErr) {
			s.logger.WithError(err).WithField("method", req.Method).Error("rpc call failed")
			rpcErr = newError(CodeInternalError, "Internal error: %v", err)
		}
		return errorResponse{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}
	return successResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (s *Server) call(ctx context.Context, method string, raw json.RawMessage) (interface{}, error) {
	h, ok := s.methods[method]
	if !ok {
		return nil, newError(CodeMethodNotFound, "Method not found")
	}
	p, err := parseParams(raw)
	if err != nil {
		return nil, err
	}
	s.logger.WithField("method", method).Debug("rpc call")
	return h(ctx, p)
}

// StatusResponse is the /status payload.
type StatusResponse struct {
	Status        string `json:"status"`
	Uptime        string `json:"uptime"`
	Slot          uint64 `json:"slot"`
	Blockhash     string `json:"blockhash"`
	Subscriptions int    `json:"subscriptions"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	hash, _ := s.ledger.LatestBlockhash()
	writeJSON(w, StatusResponse{
		Status:        "running",
		Uptime:        time.Since(s.started).Round(time.Second).String(),
		Slot:          s.ledger.Slot(),
		Blockhash:     hash.String(),
		Subscriptions: s.ledger.Notifier().Len(),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
