package rpc

import (
	"encoding/json"
	"fmt"

	"solana-token-transfer/internal/solana"
)

// JSON-RPC 2.0 and ledger-specific error codes.
const (
	CodeParseError       = -32700
	CodeInvalidRequest   = -32600
	CodeMethodNotFound   = -32601
	CodeInvalidParams    = -32602
	CodeInternalError    = -32603
	CodeSimulationFailed = -32002
	CodeSignatureFailure = -32003
)

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// successResponse always carries result, even when it is null.
type successResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result"`
}

type errorResponse struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      json.RawMessage  `json:"id"`
	Error   *solana.RPCError `json:"error"`
}

func newError(code int, format string, args ...interface{}) *solana.RPCError {
	return &solana.RPCError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func invalidParams(format string, args ...interface{}) *solana.RPCError {
	return newError(CodeInvalidParams, "Invalid params: "+format, args...)
}

// withData attaches a JSON payload to an error.
func withData(e *solana.RPCError, data interface{}) *solana.RPCError {
	raw, err := json.Marshal(data)
	if err == nil {
		e.Data = raw
	}
	return e
}

// params is the positional parameter list of a request.
type params []json.RawMessage

func parseParams(raw json.RawMessage) (params, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var p params
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, invalidParams("expected an array")
	}
	return p, nil
}

func (p params) has(i int) bool {
	return i < len(p) && string(p[i]) != "null"
}

func (p params) string(i int, name string) (string, error) {
	if !p.has(i) {
		return "", invalidParams("missing %s", name)
	}
	var s string
	if err := json.Unmarshal(p[i], &s); err != nil {
		return "", invalidParams("%s must be a string", name)
	}
	return s, nil
}

func (p params) pubkey(i int) (solana.PublicKey, error) {
	s, err := p.string(i, "pubkey")
	if err != nil {
		return solana.PublicKey{}, err
	}
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, invalidParams("%v", err)
	}
	return pk, nil
}

func (p params) uint64(i int, name string) (uint64, error) {
	if !p.has(i) {
		return 0, invalidParams("missing %s", name)
	}
	var v uint64
	if err := json.Unmarshal(p[i], &v); err != nil {
		return 0, invalidParams("%s must be an unsigned integer", name)
	}
	return v, nil
}

// config decodes an optional trailing config object into v.
func (p params) config(i int, v interface{}) error {
	if !p.has(i) {
		return nil
	}
	if err := json.Unmarshal(p[i], v); err != nil {
		return invalidParams("invalid config object")
	}
	return nil
}
