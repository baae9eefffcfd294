// Package programtest runs instructions against the builtin programs in memory.
package programtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/layout"
	"solana-token-transfer/internal/programs"
	"solana-token-transfer/internal/programs/ata"
	"solana-token-transfer/internal/programs/system"
	"solana-token-transfer/internal/programs/token"
	"solana-token-transfer/internal/runtime"
	"solana-token-transfer/internal/solana"
)

// PayerLamports is the starting balance of the harness payer.
const PayerLamports = 100_000_000_000

// Harness is a single-threaded ledger: successful transactions are committed
// to Accounts, failed ones leave it untouched.
type Harness struct {
	t        testing.TB
	Runtime  *runtime.Runtime
	Accounts map[solana.PublicKey]*domain.Account
	Payer    solana.PrivateKey
	slot     uint64
}

// New creates a harness with every builtin deployed, the rent sysvar and a funded payer.
func New(t testing.TB) *Harness {
	t.Helper()
	payer, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	h := &Harness{
		t:        t,
		Runtime:  runtime.New(programs.NewRegistry()),
		Accounts: make(map[solana.PublicKey]*domain.Account),
		Payer:    payer,
	}
	for _, b := range programs.Builtins() {
		h.Accounts[b.ID] = &domain.Account{Lamports: 1, Owner: b.Loader, Executable: true}
	}
	rentData, err := h.Runtime.Rent().MarshalBinary()
	require.NoError(t, err)
	h.Accounts[solana.SysVarRentPubkey] = &domain.Account{
		Lamports: h.Runtime.Rent().MinimumBalance(len(rentData)),
		Owner:    solana.SysvarOwnerID,
		Data:     rentData,
	}
	h.Accounts[payer.PublicKey()] = &domain.Account{Lamports: PayerLamports, Owner: solana.SystemProgramID}
	return h
}

// NewKey returns a fresh keypair.
func (h *Harness) NewKey() solana.PrivateKey {
	h.t.Helper()
	k, err := solana.NewRandomPrivateKey()
	require.NoError(h.t, err)
	return k
}

// Fund credits lamports to a system account, creating it if needed.
func (h *Harness) Fund(key solana.PublicKey, lamports uint64) {
	acc, ok := h.Accounts[key]
	if !ok {
		acc = &domain.Account{Owner: solana.SystemProgramID}
		h.Accounts[key] = acc
	}
	acc.Lamports += lamports
}

// Account returns a copy of the committed account, or nil.
func (h *Harness) Account(key solana.PublicKey) *domain.Account {
	return h.Accounts[key].Clone()
}

// Process signs ixs with the payer and extra signers, executes them and commits on success.
func (h *Harness) Process(ixs []solana.Instruction, signers ...solana.PrivateKey) *runtime.Result {
	h.t.Helper()
	h.slot++
	tx, err := solana.NewTransaction(ixs, solana.Hash{byte(h.slot)}, h.Payer.PublicKey())
	require.NoError(h.t, err)
	require.NoError(h.t, tx.Sign(append([]solana.PrivateKey{h.Payer}, signers...)...))
	require.NoError(h.t, tx.VerifySignatures())

	res, err := h.Runtime.Execute(context.Background(), &tx.Message, func(_ context.Context, key solana.PublicKey) (*domain.Account, error) {
		return h.Accounts[key], nil
	}, runtime.Environment{Slot: h.slot})
	require.NoError(h.t, err)

	if res.Err == nil {
		for _, ka := range res.Accounts {
			if ka.Account.Lamports == 0 {
				delete(h.Accounts, ka.Key)
				continue
			}
			h.Accounts[ka.Key] = ka.Account
		}
	}
	return res
}

// MustProcess is Process that fails the test on a transaction error.
func (h *Harness) MustProcess(ixs []solana.Instruction, signers ...solana.PrivateKey) *runtime.Result {
	h.t.Helper()
	res := h.Process(ixs, signers...)
	require.NoError(h.t, res.Err, "logs: %v", res.Logs)
	return res
}

// CreateMint creates and initializes a mint with the given authority.
func (h *Harness) CreateMint(authority solana.PublicKey, decimals uint8) solana.PublicKey {
	h.t.Helper()
	mint := h.NewKey()
	h.MustProcess([]solana.Instruction{
		system.NewCreateAccountInstruction(h.Payer.PublicKey(), mint.PublicKey(),
			h.Runtime.Rent().MinimumBalance(layout.MintSize), layout.MintSize, solana.TokenProgramID),
		token.NewInitializeMint2Instruction(mint.PublicKey(), authority, nil, decimals),
	}, mint)
	return mint.PublicKey()
}

// CreateTokenAccount creates the associated token account of owner for mint.
func (h *Harness) CreateTokenAccount(owner, mint solana.PublicKey) solana.PublicKey {
	h.t.Helper()
	ix, addr, err := ata.NewCreateInstruction(h.Payer.PublicKey(), owner, mint)
	require.NoError(h.t, err)
	h.MustProcess([]solana.Instruction{ix})
	return addr
}

// Mint decodes committed mint state.
func (h *Harness) Mint(key solana.PublicKey) *domain.Mint {
	h.t.Helper()
	acc := h.Accounts[key]
	require.NotNil(h.t, acc, "mint %s does not exist", key)
	m, err := layout.DecodeMint(acc.Data)
	require.NoError(h.t, err)
	return m
}

// TokenAccount decodes committed token account state.
func (h *Harness) TokenAccount(key solana.PublicKey) *domain.TokenAccount {
	h.t.Helper()
	acc := h.Accounts[key]
	require.NotNil(h.t, acc, "token account %s does not exist", key)
	a, err := layout.DecodeTokenAccount(acc.Data)
	require.NoError(h.t, err)
	return a
}

// Balance returns the token amount held by key.
func (h *Harness) Balance(key solana.PublicKey) uint64 {
	return h.TokenAccount(key).Amount
}
