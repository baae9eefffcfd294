package solana

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Limit  int    // Maximum number of signatures to return
}

// AccountInfo represents account information as returned over RPC.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// TokenAmount is the result of getTokenAccountBalance.
type TokenAmount struct {
	Amount         string `json:"amount"`
	Decimals       uint8  `json:"decimals"`
	UIAmountString string `json:"uiAmountString"`
}

// LatestBlockhash is the result of getLatestBlockhash.
type LatestBlockhash struct {
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

// ReturnData is the data a program returned from the last instruction.
type ReturnData struct {
	ProgramID string
	Data      []byte
}

// SimulationResult is the result of simulateTransaction.
type SimulationResult struct {
	Err        interface{}
	Logs       []string
	ReturnData *ReturnData
}

// TokenInfo is the decoded token-transfer TokenInfo record returned by getTokenInfo.
type TokenInfo struct {
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	Decimals  uint8  `json:"decimals"`
	Mint      string `json:"mint"`
	Authority string `json:"authority"`
}

// KeyedAccountInfo is one entry of getProgramAccounts.
type KeyedAccountInfo struct {
	Pubkey  string
	Account *AccountInfo
}

// TokenEvent is one executed token-transfer instruction returned by getTokenEvents.
type TokenEvent struct {
	Signature   string `json:"signature"`
	Slot        int64  `json:"slot"`
	Index       int    `json:"index"`
	Instruction string `json:"instruction"`
	Amount      uint64 `json:"amount"`
	Mint        string `json:"mint"`
	Source      string `json:"source,omitempty"`
	Destination string `json:"destination,omitempty"`
	Authority   string `json:"authority,omitempty"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
	TimestampMs int64  `json:"timestampMs"`
}
