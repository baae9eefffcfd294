package solana

import "context"

// RPCClient defines the JSON-RPC surface used by tooling.
type RPCClient interface {
	// GetAccountInfo retrieves an account. Returns nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetBalance returns the lamport balance of an account.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetTokenAccountBalance returns the token amount held by a token account.
	GetTokenAccountBalance(ctx context.Context, pubkey string) (*TokenAmount, error)

	// GetTokenInfo returns the decoded TokenInfo record stored at pubkey.
	GetTokenInfo(ctx context.Context, pubkey string) (*TokenInfo, error)

	// GetLatestBlockhash returns a blockhash usable for new transactions.
	GetLatestBlockhash(ctx context.Context) (*LatestBlockhash, error)

	// GetMinimumBalanceForRentExemption returns the rent-exempt minimum for dataLen bytes.
	GetMinimumBalanceForRentExemption(ctx context.Context, dataLen int) (uint64, error)

	// RequestAirdrop credits lamports to an account from the faucet.
	RequestAirdrop(ctx context.Context, pubkey string, lamports uint64) (string, error)

	// SendTransaction submits a signed transaction and returns its signature.
	SendTransaction(ctx context.Context, tx *Transaction) (string, error)

	// SimulateTransaction executes a transaction without committing it.
	SimulateTransaction(ctx context.Context, tx *Transaction) (*SimulationResult, error)

	// GetTransaction retrieves a processed transaction by signature.
	GetTransaction(ctx context.Context, signature string) (*TransactionStatus, error)

	// GetSignaturesForAddress retrieves signatures touching an address, newest first.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetProgramAccounts retrieves every account owned by a program.
	GetProgramAccounts(ctx context.Context, program string) ([]KeyedAccountInfo, error)

	// GetTokenEvents retrieves token-transfer instructions of a mint within [startMs, endMs].
	GetTokenEvents(ctx context.Context, mint string, startMs, endMs int64) ([]TokenEvent, error)

	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (int64, error)
}

// TransactionStatus represents a processed transaction.
type TransactionStatus struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err         interface{}
	LogMessages []string
	ReturnData  *ReturnData
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
}
