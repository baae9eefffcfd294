package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// maxResponseBytes caps a single JSON-RPC response body.
const maxResponseBytes = 64 << 20

// retryPolicy is exponential backoff between attempts: delay, delay*factor, ...
// capped at maxDelay. A 429 Retry-After header overrides the computed wait.
type retryPolicy struct {
	retries  int
	delay    time.Duration
	maxDelay time.Duration
	factor   float64
}

func (p retryPolicy) next(d time.Duration) time.Duration {
	d = time.Duration(float64(d) * p.factor)
	if d > p.maxDelay {
		d = p.maxDelay
	}
	return d
}

// HTTPClient is the RPCClient for the validator's JSON-RPC endpoint.
// Transport failures, 429s, 5xx and undecodable bodies are retried.
// A JSON-RPC error object is returned at once as *RPCError.
type HTTPClient struct {
	endpoint string
	client   *http.Client
	retry    retryPolicy
	log      *logrus.Entry
	ids      atomic.Uint64
}

var _ RPCClient = (*HTTPClient)(nil)

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) { c.client.Timeout = d }
}

// WithMaxRetries sets how many times a failed attempt is repeated. Zero disables retries.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) { c.retry.retries = n }
}

// WithRetryDelay sets the wait before the first retry.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) { c.retry.delay = d }
}

// WithMaxDelay caps the backoff.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) { c.retry.maxDelay = d }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) { c.client = client }
}

// NewHTTPClient returns a client for endpoint with three retries starting at one second.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		retry:    retryPolicy{retries: 3, delay: time.Second, maxDelay: 10 * time.Second, factor: 2},
		log:      logrus.WithField("component", "rpc-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC error object. Data carries method-specific detail,
// such as simulation logs for a failed sendTransaction.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// retryableError marks an attempt failure worth repeating; wait overrides the backoff when set.
type retryableError struct {
	err  error
	wait time.Duration
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// call sends method and decodes the result into result, retrying per c.retry.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: c.ids.Add(1), Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	delay := c.retry.delay
	for attempt := 0; ; attempt++ {
		raw, err := c.post(ctx, body)
		if err == nil {
			if result == nil || len(raw) == 0 {
				return nil
			}
			if err := json.Unmarshal(raw, result); err != nil {
				return fmt.Errorf("decode %s result: %w", method, err)
			}
			return nil
		}

		var retryable *retryableError
		if !errors.As(err, &retryable) {
			return err
		}
		if attempt >= c.retry.retries {
			return fmt.Errorf("%s: giving up after %d attempts: %w", method, attempt+1, retryable.err)
		}

		wait := delay
		if retryable.wait > 0 {
			wait = retryable.wait
		}
		c.log.WithFields(logrus.Fields{
			"method":  method,
			"attempt": attempt + 1,
			"wait":    wait,
		}).WithError(retryable.err).Debug("retrying rpc call")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		delay = c.retry.next(delay)
	}
}

// post performs one HTTP round trip and returns the raw result.
func (c *HTTPClient) post(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &retryableError{err: fmt.Errorf("http request: %w", err)}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &retryableError{err: errors.New("rate limited (429)"), wait: retryAfter(resp.Header)}
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, &retryableError{err: fmt.Errorf("server error %d: %s", resp.StatusCode, bytes.TrimSpace(payload))}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(payload))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(payload, &rpcResp); err != nil {
		return nil, &retryableError{err: fmt.Errorf("decode response: %w", err)}
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

// retryAfter reads a Retry-After header given in seconds.
func retryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// rpcContext wraps results carrying a context slot.
type rpcContext struct {
	Slot int64 `json:"slot"`
}

// GetAccountInfo retrieves account info by public key.
// Returns nil if account not found.
func (c *HTTPClient) GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error) {
	params := []interface{}{
		pubkey,
		map[string]interface{}{
			"encoding": "base64",
		},
	}

	var result getAccountInfoResult
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}

	if result.Value == nil {
		return nil, nil
	}

	return result.Value.toAccountInfo(), nil
}

type getAccountInfoResult struct {
	Context rpcContext           `json:"context"`
	Value   *getAccountInfoValue `json:"value"`
}

type getAccountInfoValue struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"` // [base64_data, encoding]
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
}

func (v *getAccountInfoValue) toAccountInfo() *AccountInfo {
	info := &AccountInfo{
		Lamports:   v.Lamports,
		Owner:      v.Owner,
		Executable: v.Executable,
		RentEpoch:  v.RentEpoch,
	}
	if len(v.Data) >= 1 {
		info.Data = v.Data[0]
	}
	return info
}

// GetBalance returns the lamport balance of an account.
func (c *HTTPClient) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	var result struct {
		Context rpcContext `json:"context"`
		Value   uint64     `json:"value"`
	}
	if err := c.call(ctx, "getBalance", []interface{}{pubkey}, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// GetTokenAccountBalance returns the token amount held by a token account.
func (c *HTTPClient) GetTokenAccountBalance(ctx context.Context, pubkey string) (*TokenAmount, error) {
	var result struct {
		Context rpcContext  `json:"context"`
		Value   TokenAmount `json:"value"`
	}
	if err := c.call(ctx, "getTokenAccountBalance", []interface{}{pubkey}, &result); err != nil {
		return nil, err
	}
	return &result.Value, nil
}

// GetTokenInfo returns the decoded TokenInfo record stored at pubkey.
func (c *HTTPClient) GetTokenInfo(ctx context.Context, pubkey string) (*TokenInfo, error) {
	var result struct {
		Context rpcContext `json:"context"`
		Value   *TokenInfo `json:"value"`
	}
	if err := c.call(ctx, "getTokenInfo", []interface{}{pubkey}, &result); err != nil {
		return nil, err
	}
	return result.Value, nil
}

// GetLatestBlockhash returns a blockhash usable for new transactions.
func (c *HTTPClient) GetLatestBlockhash(ctx context.Context) (*LatestBlockhash, error) {
	var result struct {
		Context rpcContext      `json:"context"`
		Value   LatestBlockhash `json:"value"`
	}
	if err := c.call(ctx, "getLatestBlockhash", nil, &result); err != nil {
		return nil, err
	}
	return &result.Value, nil
}

// GetMinimumBalanceForRentExemption returns the rent-exempt minimum for dataLen bytes.
func (c *HTTPClient) GetMinimumBalanceForRentExemption(ctx context.Context, dataLen int) (uint64, error) {
	var result uint64
	if err := c.call(ctx, "getMinimumBalanceForRentExemption", []interface{}{dataLen}, &result); err != nil {
		return 0, err
	}
	return result, nil
}

// RequestAirdrop credits lamports to an account from the faucet.
func (c *HTTPClient) RequestAirdrop(ctx context.Context, pubkey string, lamports uint64) (string, error) {
	var sig string
	if err := c.call(ctx, "requestAirdrop", []interface{}{pubkey, lamports}, &sig); err != nil {
		return "", err
	}
	return sig, nil
}

// SendTransaction submits a signed transaction and returns its signature.
// A transaction that fails on-chain comes back as an *RPCError carrying the logs.
func (c *HTTPClient) SendTransaction(ctx context.Context, tx *Transaction) (string, error) {
	encoded, err := encodeTransaction(tx)
	if err != nil {
		return "", err
	}
	params := []interface{}{
		encoded,
		map[string]interface{}{"encoding": "base64"},
	}
	var sig string
	if err := c.call(ctx, "sendTransaction", params, &sig); err != nil {
		return "", err
	}
	return sig, nil
}

// SimulateTransaction executes a transaction without committing it.
func (c *HTTPClient) SimulateTransaction(ctx context.Context, tx *Transaction) (*SimulationResult, error) {
	encoded, err := encodeTransaction(tx)
	if err != nil {
		return nil, err
	}
	params := []interface{}{
		encoded,
		map[string]interface{}{"encoding": "base64", "sigVerify": false},
	}

	var result struct {
		Context rpcContext `json:"context"`
		Value   struct {
			Err        interface{}        `json:"err"`
			Logs       []string           `json:"logs"`
			ReturnData *returnDataPayload `json:"returnData"`
		} `json:"value"`
	}
	if err := c.call(ctx, "simulateTransaction", params, &result); err != nil {
		return nil, err
	}

	sim := &SimulationResult{
		Err:  result.Value.Err,
		Logs: result.Value.Logs,
	}
	if result.Value.ReturnData != nil {
		rd, err := result.Value.ReturnData.decode()
		if err != nil {
			return nil, err
		}
		sim.ReturnData = rd
	}
	return sim, nil
}

// returnDataPayload is the wire form of program return data.
type returnDataPayload struct {
	ProgramID string   `json:"programId"`
	Data      []string `json:"data"` // [base64_data, "base64"]
}

func (p *returnDataPayload) decode() (*ReturnData, error) {
	rd := &ReturnData{ProgramID: p.ProgramID}
	if len(p.Data) > 0 {
		raw, err := base64.StdEncoding.DecodeString(p.Data[0])
		if err != nil {
			return nil, fmt.Errorf("decode return data: %w", err)
		}
		rd.Data = raw
	}
	return rd, nil
}

func encodeTransaction(tx *Transaction) (string, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// GetTransaction retrieves a transaction by signature.
// Returns nil if the transaction is unknown.
func (c *HTTPClient) GetTransaction(ctx context.Context, signature string) (*TransactionStatus, error) {
	params := []interface{}{
		signature,
		map[string]interface{}{
			"encoding": "json",
		},
	}

	var result *getTransactionResult
	if err := c.call(ctx, "getTransaction", params, &result); err != nil {
		return nil, err
	}

	if result == nil {
		return nil, nil
	}

	tx := &TransactionStatus{
		Slot:      result.Slot,
		Signature: signature,
	}

	if result.BlockTime != nil {
		tx.BlockTime = *result.BlockTime
	}

	if result.Meta != nil {
		tx.Meta = &TransactionMeta{
			Err:         result.Meta.Err,
			LogMessages: result.Meta.LogMessages,
		}
		if result.Meta.ReturnData != nil {
			rd, err := result.Meta.ReturnData.decode()
			if err != nil {
				return nil, err
			}
			tx.Meta.ReturnData = rd
		}
	}

	if result.Transaction != nil && result.Transaction.Message != nil {
		tx.Message = &TransactionMessage{
			AccountKeys: result.Transaction.Message.AccountKeys,
		}
	}

	return tx, nil
}

// getTransactionResult is the raw RPC response for getTransaction.
type getTransactionResult struct {
	Slot        int64               `json:"slot"`
	BlockTime   *int64              `json:"blockTime"`
	Meta        *getTransactionMeta `json:"meta"`
	Transaction *getTransactionTx   `json:"transaction"`
}

type getTransactionMeta struct {
	Err         interface{}        `json:"err"`
	LogMessages []string           `json:"logMessages"`
	ReturnData  *returnDataPayload `json:"returnData"`
}

type getTransactionTx struct {
	Signatures []string               `json:"signatures"`
	Message    *getTransactionMessage `json:"message"`
}

type getTransactionMessage struct {
	AccountKeys []string `json:"accountKeys"`
}

// GetSignaturesForAddress retrieves signatures for an address with pagination.
func (c *HTTPClient) GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error) {
	config := make(map[string]interface{})
	if opts != nil {
		if opts.Before != "" {
			config["before"] = opts.Before
		}
		if opts.Limit > 0 {
			config["limit"] = opts.Limit
		}
	}

	params := []interface{}{address}
	if len(config) > 0 {
		params = append(params, config)
	}

	var result []getSignaturesResult
	if err := c.call(ctx, "getSignaturesForAddress", params, &result); err != nil {
		return nil, err
	}

	sigs := make([]SignatureInfo, len(result))
	for i, r := range result {
		sigs[i] = SignatureInfo{
			Signature: r.Signature,
			Slot:      r.Slot,
			BlockTime: r.BlockTime,
			Err:       r.Err,
		}
	}

	return sigs, nil
}

// getSignaturesResult is the raw RPC response item for getSignaturesForAddress.
type getSignaturesResult struct {
	Signature string      `json:"signature"`
	Slot      int64       `json:"slot"`
	BlockTime *int64      `json:"blockTime"`
	Err       interface{} `json:"err"`
}

// GetProgramAccounts retrieves every account owned by a program.
func (c *HTTPClient) GetProgramAccounts(ctx context.Context, program string) ([]KeyedAccountInfo, error) {
	params := []interface{}{
		program,
		map[string]interface{}{"encoding": "base64"},
	}

	var result []struct {
		Pubkey  string               `json:"pubkey"`
		Account *getAccountInfoValue `json:"account"`
	}
	if err := c.call(ctx, "getProgramAccounts", params, &result); err != nil {
		return nil, err
	}

	accounts := make([]KeyedAccountInfo, 0, len(result))
	for _, r := range result {
		ka := KeyedAccountInfo{Pubkey: r.Pubkey}
		if r.Account != nil {
			ka.Account = r.Account.toAccountInfo()
		}
		accounts = append(accounts, ka)
	}
	return accounts, nil
}

// GetTokenEvents retrieves token-transfer instructions of a mint within [startMs, endMs].
func (c *HTTPClient) GetTokenEvents(ctx context.Context, mint string, startMs, endMs int64) ([]TokenEvent, error) {
	params := []interface{}{
		mint,
		map[string]interface{}{"startMs": startMs, "endMs": endMs},
	}
	var events []TokenEvent
	if err := c.call(ctx, "getTokenEvents", params, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// GetSlot retrieves the current slot.
func (c *HTTPClient) GetSlot(ctx context.Context) (int64, error) {
	var result int64
	if err := c.call(ctx, "getSlot", nil, &result); err != nil {
		return 0, err
	}
	return result, nil
}

// Compile-time interface check.
var _ RPCClient = (*HTTPClient)(nil)
