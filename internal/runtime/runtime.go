package runtime

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/solana"
)

// MaxTransactionAccounts is the account lock limit per transaction.
const MaxTransactionAccounts = 64

// AccountLoader returns the committed state of an account, or nil if it does not exist.
type AccountLoader func(ctx context.Context, key solana.PublicKey) (*domain.Account, error)

// Environment carries block context visible to programs.
type Environment struct {
	Slot          uint64
	UnixTimestamp int64
}

// Result is the outcome of executing one message.
type Result struct {
	// Err is nil when every instruction succeeded.
	Err          error
	Logs         []string
	ReturnData   *domain.ReturnData
	PreBalances  []uint64
	PostBalances []uint64
	// Accounts holds the post-state of every writable account on success.
	Accounts []*domain.KeyedAccount
}

// Runtime executes transaction messages against registered programs.
type Runtime struct {
	registry *Registry
	rent     Rent
	logger   *logrus.Entry
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithRent overrides the rent parameters.
func WithRent(r Rent) Option {
	return func(rt *Runtime) { rt.rent = r }
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Entry) Option {
	return func(rt *Runtime) { rt.logger = l }
}

// New creates a Runtime over registry.
func New(registry *Registry, opts ...Option) *Runtime {
	rt := &Runtime{
		registry: registry,
		rent:     DefaultRent(),
		logger:   logrus.WithField("component", "runtime"),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Rent returns the rent parameters in effect.
func (r *Runtime) Rent() Rent {
	return r.rent
}

// Registry returns the program registry.
func (r *Runtime) Registry() *Registry {
	return r.registry
}

// LockKeys splits message keys into write-locked and read-locked sets.
func LockKeys(msg *solana.Message) (writable, readonly []solana.PublicKey) {
	invoked := invokedPrograms(msg)
	for i, key := range msg.AccountKeys {
		if msg.IsWritable(i) && !invoked[key] {
			writable = append(writable, key)
		} else {
			readonly = append(readonly, key)
		}
	}
	return writable, readonly
}

func invokedPrograms(msg *solana.Message) map[solana.PublicKey]bool {
	invoked := make(map[solana.PublicKey]bool, len(msg.Instructions))
	for _, ix := range msg.Instructions {
		if int(ix.ProgramIDIndex) < len(msg.AccountKeys) {
			invoked[msg.AccountKeys[ix.ProgramIDIndex]] = true
		}
	}
	return invoked
}

// Execute runs every instruction of msg in order against a private copy of the
// loaded accounts. Nothing is written back; on success Result.Accounts lists
// the state to commit. The returned error is reserved for loader failures.
func (r *Runtime) Execute(ctx context.Context, msg *solana.Message, load AccountLoader, env Environment) (*Result, error) {
	if err := msg.Sanitize(); err != nil {
		return &Result{Err: ErrSanitizeFailure}, nil
	}
	if len(msg.AccountKeys) > MaxTransactionAccounts {
		return &Result{Err: ErrTooManyAccountLocks}, nil
	}
	txc := &txContext{
		accounts: make(map[solana.PublicKey]*domain.Account, len(msg.AccountKeys)),
		logs:     &logCollector{},
		env:      env,
	}
	pre := make([]*domain.Account, len(msg.AccountKeys))
	for i, key := range msg.AccountKeys {
		acc, err := load(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("load account %s: %w", key, err)
		}
		if acc == nil {
			acc = &domain.Account{Owner: solana.SystemProgramID}
		}
		pre[i] = acc.Clone()
		txc.accounts[key] = acc.Clone()
	}

	result := &Result{PreBalances: balances(msg.AccountKeys, txc.accounts)}

	if payer := pre[0]; payer.Lamports == 0 {
		result.Err = ErrAccountNotFound
		return result, nil
	}

	invoked := invokedPrograms(msg)
	for key := range invoked {
		if acc := txc.accounts[key]; !acc.Executable {
			result.Err = ErrProgramAccountNotFound
			return result, nil
		}
	}

	writable := make([]bool, len(msg.AccountKeys))
	for i, key := range msg.AccountKeys {
		acc := txc.accounts[key]
		writable[i] = msg.IsWritable(i) && !invoked[key] && !acc.Executable && acc.Owner != solana.SysvarOwnerID
	}

	for i, cix := range msg.Instructions {
		programID := msg.AccountKeys[cix.ProgramIDIndex]
		infos := make([]*AccountInfo, 0, len(cix.Accounts))
		for _, idx := range cix.Accounts {
			key := msg.AccountKeys[idx]
			infos = append(infos, &AccountInfo{
				Key:        key,
				IsSigner:   msg.IsSigner(int(idx)),
				IsWritable: writable[idx],
				account:    txc.accounts[key],
			})
		}

		ic := &InvokeContext{rt: r, txc: txc}
		if err := ic.process(programID, infos, cix.Data); err != nil {
			result.Err = &InstructionError{Index: i, Err: err}
			result.Logs = txc.logs.messages
			result.PostBalances = result.PreBalances
			r.logger.WithFields(logrus.Fields{
				"instruction": i,
				"program":     programID.String(),
			}).WithError(err).Debug("instruction failed")
			return result, nil
		}
	}

	result.Logs = txc.logs.messages
	if err := r.checkRentState(msg, writable, pre, txc.accounts); err != nil {
		result.Err = err
		result.PostBalances = result.PreBalances
		return result, nil
	}

	if len(txc.returnData) > 0 {
		result.ReturnData = &domain.ReturnData{
			ProgramID: txc.returnProgram.String(),
			Data:      txc.returnData,
		}
	}
	result.PostBalances = balances(msg.AccountKeys, txc.accounts)
	for i, key := range msg.AccountKeys {
		if writable[i] {
			result.Accounts = append(result.Accounts, &domain.KeyedAccount{
				Key:     key,
				Account: txc.accounts[key],
				Slot:    env.Slot,
			})
		}
	}
	return result, nil
}

// checkRentState rejects transactions that leave a writable account funded
// but below the rent-exempt minimum, unless it was already in that state with
// the same size and was not topped up.
func (r *Runtime) checkRentState(msg *solana.Message, writable []bool, pre []*domain.Account, post map[solana.PublicKey]*domain.Account) error {
	for i, key := range msg.AccountKeys {
		if !writable[i] {
			continue
		}
		after := post[key]
		if after.Lamports == 0 || r.rent.IsExempt(after.Lamports, len(after.Data)) {
			continue
		}
		before := pre[i]
		wasRentPaying := before.Lamports > 0 && !r.rent.IsExempt(before.Lamports, len(before.Data))
		if wasRentPaying && len(before.Data) == len(after.Data) && after.Lamports <= before.Lamports {
			continue
		}
		return &InsufficientFundsForRentError{AccountIndex: i}
	}
	return nil
}

func balances(keys []solana.PublicKey, accounts map[solana.PublicKey]*domain.Account) []uint64 {
	out := make([]uint64, len(keys))
	for i, key := range keys {
		out[i] = accounts[key].Lamports
	}
	return out
}
