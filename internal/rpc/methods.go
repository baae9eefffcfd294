package rpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math"
	"strconv"

	"github.com/mr-tron/base58"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/layout"
	"solana-token-transfer/internal/ledger"
	"solana-token-transfer/internal/programs/tokentransfer"
	"solana-token-transfer/internal/runtime"
	"solana-token-transfer/internal/solana"
)

const (
	defaultSignatureLimit = 1000
	maxSignatureLimit     = 1000
)

type rpcContext struct {
	Slot uint64 `json:"slot"`
}

type contextValue struct {
	Context rpcContext  `json:"context"`
	Value   interface{} `json:"value"`
}

func (s *Server) withContext(v interface{}) contextValue {
	return contextValue{Context: rpcContext{Slot: s.ledger.Slot()}, Value: v}
}

type accountValue struct {
	Lamports   uint64    `json:"lamports"`
	Owner      string    `json:"owner"`
	Data       [2]string `json:"data"`
	Executable bool      `json:"executable"`
	RentEpoch  uint64    `json:"rentEpoch"`
	Space      int       `json:"space"`
}

func encodeAccount(acc *domain.Account) *accountValue {
	if acc == nil {
		return nil
	}
	return &accountValue{
		Lamports:   acc.Lamports,
		Owner:      acc.Owner.String(),
		Data:       [2]string{base64.StdEncoding.EncodeToString(acc.Data), "base64"},
		Executable: acc.Executable,
		RentEpoch:  acc.RentEpoch,
		Space:      len(acc.Data),
	}
}

type encodingConfig struct {
	Encoding string `json:"encoding"`
}

func checkEncoding(enc string) error {
	switch enc {
	case "", "base64":
		return nil
	}
	return invalidParams("unsupported encoding %q", enc)
}

func (s *Server) getAccountInfo(ctx context.Context, p params) (interface{}, error) {
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
	acc, err := s.ledger.Account(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.withContext(encodeAccount(acc)), nil
}

func (s *Server) getBalance(ctx context.Context, p params) (interface{}, error) {
	key, err := p.pubkey(0)
	if err != nil {
		return nil, err
	}
	acc, err := s.ledger.Account(ctx, key)
	if err != nil {
		return nil, err
	}
	var lamports uint64
	if acc != nil {
		lamports = acc.Lamports
	}
	return s.withContext(lamports), nil
}

type tokenAmountValue struct {
	Amount         string  `json:"amount"`
	Decimals       uint8   `json:"decimals"`
	UIAmount       float64 `json:"uiAmount"`
	UIAmountString string  `json:"uiAmountString"`
}

func (s *Server) getTokenAccountBalance(ctx context.Context, p params) (interface{}, error) {
	key, err := p.pubkey(0)
	if err != nil {
		return nil, err
	}
	acc, err := s.ledger.Account(ctx, key)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, invalidParams("could not find account")
	}
	if acc.Owner != solana.TokenProgramID {
		return nil, invalidParams("not a Token account")
	}
	ta, err := layout.DecodeTokenAccount(acc.Data)
	if err != nil {
		return nil, invalidParams("not a Token account")
	}
	mintAcc, err := s.ledger.Account(ctx, ta.Mint)
	if err != nil {
		return nil, err
	}
	if mintAcc == nil {
		return nil, invalidParams("could not find mint")
	}
	mint, err := layout.DecodeMint(mintAcc.Data)
	if err != nil {
		return nil, invalidParams("invalid mint")
	}

	ui := layout.UIAmount(ta.Amount, mint.Decimals)
	return s.withContext(tokenAmountValue{
		Amount:         strconv.FormatUint(ta.Amount, 10),
		Decimals:       mint.Decimals,
		UIAmount:       ui.InexactFloat64(),
		UIAmountString: ui.String(),
	}), nil
}

func (s *Server) getTokenInfo(ctx context.Context, p params) (interface{}, error) {
	key, err := p.pubkey(0)
	if err != nil {
		return nil, err
	}
	acc, err := s.ledger.Account(ctx, key)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return s.withContext(nil), nil
	}
	if acc.Owner != tokentransfer.ProgramID {
		return nil, invalidParams("account is not owned by the token-transfer program")
	}
	info, err := layout.DecodeTokenInfo(acc.Data)
	if err != nil {
		return nil, invalidParams("not a TokenInfo account: %v", err)
	}
	return s.withContext(&solana.TokenInfo{
		Name:      info.Name,
		Symbol:    info.Symbol,
		Decimals:  info.Decimals,
		Mint:      info.Mint.String(),
		Authority: info.Authority.String(),
	}), nil
}

type keyedAccountValue struct {
	Pubkey  string        `json:"pubkey"`
	Account *accountValue `json:"account"`
}

func (s *Server) getProgramAccounts(ctx context.Context, p params) (interface{}, error) {
	program, err := p.pubkey(0)
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
	accounts, err := s.ledger.AccountsByOwner(ctx, program)
	if err != nil {
		return nil, err
	}
	out := make([]keyedAccountValue, 0, len(accounts))
	for _, ka := range accounts {
		out = append(out, keyedAccountValue{Pubkey: ka.Key.String(), Account: encodeAccount(ka.Account)})
	}
	return out, nil
}

func (s *Server) getMinimumBalanceForRentExemption(_ context.Context, p params) (interface{}, error) {
	size, err := p.uint64(0, "data length")
	if err != nil {
		return nil, err
	}
	if size > 10*1024*1024 {
		return nil, invalidParams("data length %d exceeds the maximum account size", size)
	}
	return s.ledger.Rent().MinimumBalance(int(size)), nil
}

func (s *Server) getLatestBlockhash(_ context.Context, _ params) (interface{}, error) {
	hash, lastValid := s.ledger.LatestBlockhash()
	return s.withContext(solana.LatestBlockhash{
		Blockhash:            hash.String(),
		LastValidBlockHeight: lastValid,
	}), nil
}

func (s *Server) getSlot(_ context.Context, _ params) (interface{}, error) {
	return s.ledger.Slot(), nil
}

func (s *Server) getHealth(_ context.Context, _ params) (interface{}, error) {
	return "ok", nil
}

func (s *Server) requestAirdrop(ctx context.Context, p params) (interface{}, error) {
	key, err := p.pubkey(0)
	if err != nil {
		return nil, err
	}
	lamports, err := p.uint64(1, "lamports")
	if err != nil {
		return nil, err
	}
	sig, err := s.ledger.Airdrop(ctx, key, lamports)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidAirdrop) || errors.Is(err, ledger.ErrAirdropLimit) {
			return nil, invalidParams("%v", err)
		}
		return nil, newError(CodeInternalError, "airdrop request failed: %v", err)
	}
	return sig.String(), nil
}

type transactionConfig struct {
	Encoding  string `json:"encoding"`
	SigVerify bool   `json:"sigVerify"`
}

// decodeTransaction reads the wire transaction from params[0].
// Encoding defaults to base58, as on the public API.
func decodeTransaction(p params, encoding string) (*solana.Transaction, error) {
	encoded, err := p.string(0, "transaction")
	if err != nil {
		return nil, err
	}
	var raw []byte
	switch encoding {
	case "", "base58":
		raw, err = base58.Decode(encoded)
	case "base64":
		raw, err = base64.StdEncoding.DecodeString(encoded)
	default:
		return nil, invalidParams("unsupported encoding %q", encoding)
	}
	if err != nil {
		return nil, invalidParams("invalid %s transaction: %v", encoding, err)
	}
	tx, err := solana.TransactionFromBytes(raw)
	if err != nil {
		return nil, invalidParams("failed to deserialize transaction: %v", err)
	}
	return tx, nil
}

type returnDataValue struct {
	ProgramID string    `json:"programId"`
	Data      [2]string `json:"data"`
}

func encodeReturnData(rd *domain.ReturnData) *returnDataValue {
	if rd == nil {
		return nil
	}
	return &returnDataValue{
		ProgramID: rd.ProgramID,
		Data:      [2]string{base64.StdEncoding.EncodeToString(rd.Data), "base64"},
	}
}

type simulationValue struct {
	Err           interface{}      `json:"err"`
	Logs          []string         `json:"logs"`
	Accounts      interface{}      `json:"accounts"`
	UnitsConsumed uint64           `json:"unitsConsumed"`
	ReturnData    *returnDataValue `json:"returnData"`
}

func rejectionError(err error) error {
	if errors.Is(err, runtime.ErrSignatureFailure) {
		return newError(CodeSignatureFailure, "Transaction signature verification failure")
	}
	var te *runtime.TransactionError
	if errors.As(err, &te) {
		return withData(
			newError(CodeSimulationFailed, "Transaction simulation failed: %s", te.Error()),
			simulationValue{Err: runtime.ErrorValue(te), Logs: []string{}},
		)
	}
	return err
}

func (s *Server) sendTransaction(ctx context.Context, p params) (interface{}, error) {
	var cfg transactionConfig
	if err := p.config(1, &cfg); err != nil {
		return nil, err
	}
	tx, err := decodeTransaction(p, cfg.Encoding)
	if err != nil {
		return nil, err
	}

	receipt, err := s.ledger.ProcessTransaction(ctx, tx)
	if err != nil {
		return nil, rejectionError(err)
	}
	if receipt.Err != nil {
		logs := receipt.Logs
		if logs == nil {
			logs = []string{}
		}
		return nil, withData(
			newError(CodeSimulationFailed, "Transaction simulation failed: %s", receipt.Err.Error()),
			simulationValue{
				Err:        runtime.ErrorValue(receipt.Err),
				Logs:       logs,
				ReturnData: encodeReturnData(receipt.ReturnData),
			},
		)
	}
	return receipt.Signature.String(), nil
}

func (s *Server) simulateTransaction(ctx context.Context, p params) (interface{}, error) {
	var cfg transactionConfig
	if err := p.config(1, &cfg); err != nil {
		return nil, err
	}
	tx, err := decodeTransaction(p, cfg.Encoding)
	if err != nil {
		return nil, err
	}

	res, err := s.ledger.Simulate(ctx, tx, cfg.SigVerify)
	if err != nil {
		if errors.Is(err, runtime.ErrSignatureFailure) {
			return nil, rejectionError(err)
		}
		var te *runtime.TransactionError
		if errors.As(err, &te) {
			return s.withContext(simulationValue{Err: runtime.ErrorValue(te), Logs: []string{}}), nil
		}
		return nil, err
	}
	logs := res.Logs
	if logs == nil {
		logs = []string{}
	}
	return s.withContext(simulationValue{
		Err:        runtime.ErrorValue(res.Err),
		Logs:       logs,
		ReturnData: encodeReturnData(res.ReturnData),
	}), nil
}

type transactionValue struct {
	Slot        uint64               `json:"slot"`
	BlockTime   int64                `json:"blockTime"`
	Meta        transactionMetaValue `json:"meta"`
	Transaction struct {
		Signatures []string `json:"signatures"`
		Message    struct {
			AccountKeys []string `json:"accountKeys"`
		} `json:"message"`
	} `json:"transaction"`
}

type transactionMetaValue struct {
	Err         json.RawMessage  `json:"err"`
	Fee         uint64           `json:"fee"`
	LogMessages []string         `json:"logMessages"`
	ReturnData  *returnDataValue `json:"returnData,omitempty"`
}

func (s *Server) getTransaction(ctx context.Context, p params) (interface{}, error) {
	sig, err := p.string(0, "signature")
	if err != nil {
		return nil, err
	}
	if _, err := solana.SignatureFromBase58(sig); err != nil {
		return nil, invalidParams("%v", err)
	}
	rec, err := s.ledger.Transaction(ctx, sig)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	v := transactionValue{Slot: rec.Slot, BlockTime: rec.BlockTime}
	v.Meta.Err = json.RawMessage("null")
	if rec.Err != nil {
		v.Meta.Err = json.RawMessage(*rec.Err)
	}
	v.Meta.LogMessages = rec.Logs
	if v.Meta.LogMessages == nil {
		v.Meta.LogMessages = []string{}
	}
	v.Meta.ReturnData = encodeReturnData(rec.ReturnData)
	v.Transaction.Signatures = []string{rec.Signature}
	v.Transaction.Message.AccountKeys = rec.AccountKeys
	return v, nil
}

type signaturesConfig struct {
	Before string `json:"before"`
	Limit  int    `json:"limit"`
}

type signatureValue struct {
	Signature          string          `json:"signature"`
	Slot               uint64          `json:"slot"`
	BlockTime          int64           `json:"blockTime"`
	Err                json.RawMessage `json:"err"`
	Memo               *string         `json:"memo"`
	ConfirmationStatus string          `json:"confirmationStatus"`
}

func (s *Server) getSignaturesForAddress(ctx context.Context, p params) (interface{}, error) {
	address, err := p.pubkey(0)
	if err != nil {
		return nil, err
	}
	cfg := signaturesConfig{Limit: defaultSignatureLimit}
	if err := p.config(1, &cfg); err != nil {
		return nil, err
	}
	if cfg.Limit <= 0 || cfg.Limit > maxSignatureLimit {
		return nil, invalidParams("limit must be between 1 and %d", maxSignatureLimit)
	}

	recs, err := s.ledger.SignaturesForAddress(ctx, address.String(), cfg.Before, cfg.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]signatureValue, 0, len(recs))
	for _, r := range recs {
		v := signatureValue{
			Signature:          r.Signature,
			Slot:               r.Slot,
			BlockTime:          r.BlockTime,
			Err:                json.RawMessage("null"),
			ConfirmationStatus: "finalized",
		}
		if r.Err != nil {
			v.Err = json.RawMessage(*r.Err)
		}
		out = append(out, v)
	}
	return out, nil
}

type tokenEventsConfig struct {
	StartMs *int64 `json:"startMs"`
	EndMs   *int64 `json:"endMs"`
}

func (s *Server) getTokenEvents(ctx context.Context, p params) (interface{}, error) {
	mint, err := p.pubkey(0)
	if err != nil {
		return nil, err
	}
	var cfg tokenEventsConfig
	if err := p.config(1, &cfg); err != nil {
		return nil, err
	}
	start, end := int64(0), int64(math.MaxInt64)
	if cfg.StartMs != nil {
		start = *cfg.StartMs
	}
	if cfg.EndMs != nil {
		end = *cfg.EndMs
	}
	if start > end {
		return nil, invalidParams("startMs is after endMs")
	}

	events, err := s.ledger.InstructionEvents(ctx, mint.String(), start, end)
	if err != nil {
		return nil, err
	}
	out := make([]solana.TokenEvent, 0, len(events))
	for _, e := range events {
		out = append(out, solana.TokenEvent{
			Signature:   e.Signature,
			Slot:        int64(e.Slot),
			Index:       e.Index,
			Instruction: e.Instruction,
			Amount:      e.Amount,
			Mint:        e.Mint,
			Source:      e.Source,
			Destination: e.Destination,
			Authority:   e.Authority,
			Success:     e.Success,
			Error:       e.Error,
			TimestampMs: e.TimestampMs,
		})
	}
	return out, nil
}
