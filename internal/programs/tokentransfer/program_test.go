package tokentransfer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-transfer/internal/layout"
	"solana-token-transfer/internal/programs/programtest"
	"solana-token-transfer/internal/programs/system"
	"solana-token-transfer/internal/programs/token"
	"solana-token-transfer/internal/programs/tokentransfer"
	"solana-token-transfer/internal/solana"
)

const authorityFunding = 1_000_000_000

type env struct {
	h         *programtest.Harness
	authority solana.PrivateKey
	tokenInfo solana.PrivateKey
	mint      solana.PrivateKey
}

func setup(t *testing.T) *env {
	t.Helper()
	h := programtest.New(t)
	e := &env{h: h, authority: h.NewKey(), tokenInfo: h.NewKey(), mint: h.NewKey()}
	h.Fund(e.authority.PublicKey(), authorityFunding)

	h.MustProcess([]solana.Instruction{
		tokentransfer.NewInitializeTokenInstruction(e.tokenInfo.PublicKey(), e.mint.PublicKey(), e.authority.PublicKey(), "Test Token", "TEST", 9),
	}, e.tokenInfo, e.mint, e.authority)
	return e
}

func (e *env) mintKey() solana.PublicKey { return e.mint.PublicKey() }

func (e *env) mintTo(t *testing.T, dest solana.PublicKey, amount uint64) {
	t.Helper()
	e.h.MustProcess([]solana.Instruction{
		tokentransfer.NewMintTokenInstruction(e.mintKey(), dest, e.authority.PublicKey(), amount),
	}, e.authority)
}

func (e *env) balance(t *testing.T, account solana.PublicKey) uint64 {
	t.Helper()
	res := e.h.MustProcess([]solana.Instruction{tokentransfer.NewGetBalanceInstruction(account)})
	require.NotNil(t, res.ReturnData)
	assert.Equal(t, tokentransfer.ProgramID.String(), res.ReturnData.ProgramID)
	amount, err := tokentransfer.DecodeBalance(res.ReturnData.Data)
	require.NoError(t, err)
	return amount
}

func hasAnchorError(logs []string) bool {
	for _, l := range logs {
		if strings.Contains(l, "AnchorError") {
			return true
		}
	}
	return false
}

func TestInitializeToken(t *testing.T) {
	h := programtest.New(t)
	authority, info, mint := h.NewKey(), h.NewKey(), h.NewKey()
	h.Fund(authority.PublicKey(), authorityFunding)

	res := h.MustProcess([]solana.Instruction{
		tokentransfer.NewInitializeTokenInstruction(info.PublicKey(), mint.PublicKey(), authority.PublicKey(), "Test Token", "TEST", 9),
	}, info, mint, authority)

	assert.Contains(t, res.Logs, "Program log: Instruction: InitializeToken")
	assert.Contains(t, res.Logs, "Program log: Initializing token with name: Test Token, symbol: TEST")
	assert.Contains(t, res.Logs, "Program log: Token initialized successfully")

	infoAcc := h.Account(info.PublicKey())
	require.NotNil(t, infoAcc)
	assert.Equal(t, tokentransfer.ProgramID, infoAcc.Owner)
	assert.Len(t, infoAcc.Data, layout.TokenInfoSpace)

	ti, err := layout.DecodeTokenInfo(infoAcc.Data)
	require.NoError(t, err)
	assert.Equal(t, "Test Token", ti.Name)
	assert.Equal(t, "TEST", ti.Symbol)
	assert.Equal(t, uint8(9), ti.Decimals)
	assert.Equal(t, mint.PublicKey(), ti.Mint)
	assert.Equal(t, authority.PublicKey(), ti.Authority)

	m := h.Mint(mint.PublicKey())
	require.NotNil(t, m.MintAuthority)
	assert.Equal(t, authority.PublicKey(), *m.MintAuthority)
	assert.Equal(t, uint8(9), m.Decimals)
	assert.Zero(t, m.Supply)
	assert.Nil(t, m.FreezeAuthority)

	rent := h.Runtime.Rent()
	want := uint64(authorityFunding) - rent.MinimumBalance(layout.TokenInfoSpace) - rent.MinimumBalance(layout.MintSize)
	assert.Equal(t, want, h.Account(authority.PublicKey()).Lamports)
}

func TestInitializeToken_Twice(t *testing.T) {
	e := setup(t)
	before := e.h.Account(e.tokenInfo.PublicKey())

	res := e.h.Process([]solana.Instruction{
		tokentransfer.NewInitializeTokenInstruction(e.tokenInfo.PublicKey(), e.mintKey(), e.authority.PublicKey(), "Other", "OTH", 2),
	}, e.tokenInfo, e.mint, e.authority)
	assert.ErrorIs(t, res.Err, system.ErrAccountAlreadyInUse)
	assert.EqualError(t, res.Err, "Error processing Instruction 0: custom program error: 0x0")

	assert.Equal(t, before, e.h.Account(e.tokenInfo.PublicKey()))
	assert.Equal(t, uint8(9), e.h.Mint(e.mintKey()).Decimals)
}

func TestInitializeToken_TextTooLong(t *testing.T) {
	h := programtest.New(t)
	authority, info, mint := h.NewKey(), h.NewKey(), h.NewKey()
	h.Fund(authority.PublicKey(), authorityFunding)

	res := h.Process([]solana.Instruction{
		tokentransfer.NewInitializeTokenInstruction(info.PublicKey(), mint.PublicKey(), authority.PublicKey(),
			strings.Repeat("n", 40), strings.Repeat("s", 20), 6),
	}, info, mint, authority)
	assert.ErrorIs(t, res.Err, tokentransfer.ErrAccountDidNotSerialize)
	assert.Contains(t, res.Logs, "Program log: AnchorError caused by account: token_info. Error Code: AccountDidNotSerialize. Error Number: 3004. Error Message: Failed to serialize the account.")
	assert.Nil(t, h.Account(info.PublicKey()))
	assert.Nil(t, h.Account(mint.PublicKey()))
	assert.Equal(t, uint64(authorityFunding), h.Account(authority.PublicKey()).Lamports)
}

func TestInitializeToken_InvalidUTF8(t *testing.T) {
	h := programtest.New(t)
	authority, info, mint := h.NewKey(), h.NewKey(), h.NewKey()
	h.Fund(authority.PublicKey(), authorityFunding)

	for _, tc := range []struct{ name, symbol string }{
		{"\xff\xfe", "TEST"},
		{"Test Token", "T\xc3"},
	} {
		res := h.Process([]solana.Instruction{
			tokentransfer.NewInitializeTokenInstruction(info.PublicKey(), mint.PublicKey(), authority.PublicKey(), tc.name, tc.symbol, 6),
		}, info, mint, authority)
		assert.ErrorIs(t, res.Err, tokentransfer.ErrInstructionDidNotDeserialize)
		assert.Nil(t, h.Account(info.PublicKey()))
		assert.Nil(t, h.Account(mint.PublicKey()))
	}
	assert.Equal(t, uint64(authorityFunding), h.Account(authority.PublicKey()).Lamports)
}

func TestInitializeToken_Validation(t *testing.T) {
	h := programtest.New(t)
	authority, info, mint := h.NewKey(), h.NewKey(), h.NewKey()
	h.Fund(authority.PublicKey(), authorityFunding)

	t.Run("token info not signer", func(t *testing.T) {
		ix := tokentransfer.NewInitializeTokenInstruction(info.PublicKey(), mint.PublicKey(), authority.PublicKey(), "A", "B", 0)
		ix.Accounts[0].IsSigner = false
		res := h.Process([]solana.Instruction{ix}, mint, authority)
		assert.ErrorIs(t, res.Err, tokentransfer.ErrAccountNotSigner)
		assert.Contains(t, res.Logs, "Program log: AnchorError caused by account: token_info. Error Code: AccountNotSigner. Error Number: 3010. Error Message: The given account did not sign.")
	})

	t.Run("wrong token program", func(t *testing.T) {
		ix := tokentransfer.NewInitializeTokenInstruction(info.PublicKey(), mint.PublicKey(), authority.PublicKey(), "A", "B", 0)
		ix.Accounts[4].PublicKey = solana.AssociatedTokenProgramID
		res := h.Process([]solana.Instruction{ix}, info, mint, authority)
		assert.ErrorIs(t, res.Err, tokentransfer.ErrInvalidProgramID)
	})

	t.Run("wrong sysvar", func(t *testing.T) {
		ix := tokentransfer.NewInitializeTokenInstruction(info.PublicKey(), mint.PublicKey(), authority.PublicKey(), "A", "B", 0)
		ix.Accounts[5].PublicKey = h.NewKey().PublicKey()
		res := h.Process([]solana.Instruction{ix}, info, mint, authority)
		assert.ErrorIs(t, res.Err, tokentransfer.ErrAccountSysvarMismatch)
	})

	t.Run("payer as token info", func(t *testing.T) {
		ix := tokentransfer.NewInitializeTokenInstruction(authority.PublicKey(), mint.PublicKey(), authority.PublicKey(), "A", "B", 0)
		res := h.Process([]solana.Instruction{ix}, mint, authority)
		assert.ErrorIs(t, res.Err, tokentransfer.ErrTryingToInitPayerAsProgramAccount)
	})

	assert.Nil(t, h.Account(info.PublicKey()))
	assert.Nil(t, h.Account(mint.PublicKey()))
}

func TestMintAndGetBalance(t *testing.T) {
	e := setup(t)
	holder := e.h.NewKey().PublicKey()
	account := e.h.CreateTokenAccount(holder, e.mintKey())

	assert.Zero(t, e.balance(t, account))

	res := e.h.MustProcess([]solana.Instruction{
		tokentransfer.NewMintTokenInstruction(e.mintKey(), account, e.authority.PublicKey(), 1_000),
	}, e.authority)
	assert.Contains(t, res.Logs, "Program log: Minting 1000 tokens")
	assert.Contains(t, res.Logs, "Program log: Tokens minted successfully")

	assert.Equal(t, uint64(1_000), e.balance(t, account))
	assert.Equal(t, uint64(1_000), e.h.Mint(e.mintKey()).Supply)

	res = e.h.MustProcess([]solana.Instruction{tokentransfer.NewGetBalanceInstruction(account)})
	assert.Contains(t, res.Logs, "Program log: The balance of the account is: 1000")
	assert.Contains(t, res.Logs, "Program return: "+tokentransfer.ProgramID.String()+" 6AMAAAAAAAA=")
}

func TestMintToken_WrongAuthority(t *testing.T) {
	e := setup(t)
	impostor := e.h.NewKey()
	account := e.h.CreateTokenAccount(impostor.PublicKey(), e.mintKey())

	res := e.h.Process([]solana.Instruction{
		tokentransfer.NewMintTokenInstruction(e.mintKey(), account, impostor.PublicKey(), 5),
	}, impostor)
	assert.ErrorIs(t, res.Err, token.ErrOwnerMismatch)
	assert.EqualError(t, res.Err, "Error processing Instruction 0: custom program error: 0x4")
	assert.False(t, hasAnchorError(res.Logs))
	assert.Zero(t, e.h.Balance(account))
}

func TestMintToken_Validation(t *testing.T) {
	e := setup(t)
	account := e.h.CreateTokenAccount(e.authority.PublicKey(), e.mintKey())
	stranger := e.h.NewKey().PublicKey()

	tests := []struct {
		name    string
		modify  func(ix *solana.Instruction)
		wantErr tokentransfer.ErrorCode
		wantLog string
	}{
		{
			name:    "authority not signer",
			modify:  func(ix *solana.Instruction) { ix.Accounts[2].IsSigner = false },
			wantErr: tokentransfer.ErrAccountNotSigner,
			wantLog: "Program log: AnchorError caused by account: authority. Error Code: AccountNotSigner. Error Number: 3010. Error Message: The given account did not sign.",
		},
		{
			name:    "mint not writable",
			modify:  func(ix *solana.Instruction) { ix.Accounts[0].IsWritable = false },
			wantErr: tokentransfer.ErrConstraintMut,
			wantLog: "Program log: AnchorError caused by account: mint. Error Code: ConstraintMut. Error Number: 2000. Error Message: A mut constraint was violated.",
		},
		{
			name:    "token account owned by another program",
			modify:  func(ix *solana.Instruction) { ix.Accounts[1].PublicKey = e.tokenInfo.PublicKey() },
			wantErr: tokentransfer.ErrAccountOwnedByWrongProgram,
		},
		{
			name:    "token account does not exist",
			modify:  func(ix *solana.Instruction) { ix.Accounts[1].PublicKey = stranger },
			wantErr: tokentransfer.ErrAccountNotInitialized,
		},
		{
			name:    "mint is a token account",
			modify:  func(ix *solana.Instruction) { ix.Accounts[0].PublicKey = account },
			wantErr: tokentransfer.ErrAccountDidNotDeserialize,
		},
		{
			name:    "wrong token program",
			modify:  func(ix *solana.Instruction) { ix.Accounts[3].PublicKey = solana.SystemProgramID },
			wantErr: tokentransfer.ErrInvalidProgramID,
		},
		{
			name:    "missing accounts",
			modify:  func(ix *solana.Instruction) { ix.Accounts = ix.Accounts[:2] },
			wantErr: tokentransfer.ErrAccountNotEnoughKeys,
			wantLog: "Program log: AnchorError occurred. Error Code: AccountNotEnoughKeys. Error Number: 3005. Error Message: Not enough account keys given to the instruction.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := tokentransfer.NewMintTokenInstruction(e.mintKey(), account, e.authority.PublicKey(), 10)
			tt.modify(&ix)
			res := e.h.Process([]solana.Instruction{ix}, e.authority)
			assert.ErrorIs(t, res.Err, tt.wantErr)
			if tt.wantLog != "" {
				assert.Contains(t, res.Logs, tt.wantLog)
			}
			assert.Zero(t, e.h.Balance(account))
			assert.Zero(t, e.h.Mint(e.mintKey()).Supply)
		})
	}
}

func TestTransferToken(t *testing.T) {
	e := setup(t)
	alice, bob := e.h.NewKey(), e.h.NewKey()
	aliceAcc := e.h.CreateTokenAccount(alice.PublicKey(), e.mintKey())
	bobAcc := e.h.CreateTokenAccount(bob.PublicKey(), e.mintKey())
	e.mintTo(t, aliceAcc, 500)

	res := e.h.MustProcess([]solana.Instruction{
		tokentransfer.NewTransferTokenInstruction(aliceAcc, bobAcc, alice.PublicKey(), 200),
	}, alice)
	assert.Contains(t, res.Logs, "Program log: Transferring 200 tokens")
	assert.Contains(t, res.Logs, "Program log: Tokens transferred successfully")
	assert.Equal(t, uint64(300), e.balance(t, aliceAcc))
	assert.Equal(t, uint64(200), e.balance(t, bobAcc))
	assert.Equal(t, uint64(500), e.h.Mint(e.mintKey()).Supply)
}

func TestTransferToken_InsufficientFunds(t *testing.T) {
	e := setup(t)
	alice, bob := e.h.NewKey(), e.h.NewKey()
	aliceAcc := e.h.CreateTokenAccount(alice.PublicKey(), e.mintKey())
	bobAcc := e.h.CreateTokenAccount(bob.PublicKey(), e.mintKey())
	e.mintTo(t, aliceAcc, 100)

	res := e.h.Process([]solana.Instruction{
		tokentransfer.NewTransferTokenInstruction(aliceAcc, bobAcc, alice.PublicKey(), 101),
	}, alice)
	assert.ErrorIs(t, res.Err, token.ErrInsufficientFunds)
	assert.Contains(t, res.Logs, "Program log: Error: insufficient funds")
	assert.NotContains(t, res.Logs, "Program log: Tokens transferred successfully")
	assert.Equal(t, uint64(100), e.h.Balance(aliceAcc))
	assert.Zero(t, e.h.Balance(bobAcc))
}

func TestTransferToken_NotOwner(t *testing.T) {
	e := setup(t)
	alice, bob := e.h.NewKey(), e.h.NewKey()
	aliceAcc := e.h.CreateTokenAccount(alice.PublicKey(), e.mintKey())
	bobAcc := e.h.CreateTokenAccount(bob.PublicKey(), e.mintKey())
	e.mintTo(t, aliceAcc, 100)

	res := e.h.Process([]solana.Instruction{
		tokentransfer.NewTransferTokenInstruction(aliceAcc, bobAcc, bob.PublicKey(), 50),
	}, bob)
	assert.ErrorIs(t, res.Err, token.ErrOwnerMismatch)
	assert.Equal(t, uint64(100), e.h.Balance(aliceAcc))
}

func TestTransferToken_DestinationNotWritable(t *testing.T) {
	e := setup(t)
	alice, bob := e.h.NewKey(), e.h.NewKey()
	aliceAcc := e.h.CreateTokenAccount(alice.PublicKey(), e.mintKey())
	bobAcc := e.h.CreateTokenAccount(bob.PublicKey(), e.mintKey())

	ix := tokentransfer.NewTransferTokenInstruction(aliceAcc, bobAcc, alice.PublicKey(), 0)
	ix.Accounts[1].IsWritable = false
	res := e.h.Process([]solana.Instruction{ix}, alice)
	assert.ErrorIs(t, res.Err, tokentransfer.ErrConstraintMut)
	assert.Contains(t, res.Logs, "Program log: AnchorError caused by account: to. Error Code: ConstraintMut. Error Number: 2000. Error Message: A mut constraint was violated.")
}

func TestBurnToken(t *testing.T) {
	e := setup(t)
	holder := e.h.NewKey()
	account := e.h.CreateTokenAccount(holder.PublicKey(), e.mintKey())
	e.mintTo(t, account, 500)

	res := e.h.MustProcess([]solana.Instruction{
		tokentransfer.NewBurnTokenInstruction(e.mintKey(), account, holder.PublicKey(), 120),
	}, holder)
	assert.Contains(t, res.Logs, "Program log: Burning 120 tokens")
	assert.Contains(t, res.Logs, "Program log: Tokens burned successfully")
	assert.Equal(t, uint64(380), e.balance(t, account))
	assert.Equal(t, uint64(380), e.h.Mint(e.mintKey()).Supply)

	res = e.h.Process([]solana.Instruction{
		tokentransfer.NewBurnTokenInstruction(e.mintKey(), account, holder.PublicKey(), 381),
	}, holder)
	assert.ErrorIs(t, res.Err, token.ErrInsufficientFunds)
	assert.Equal(t, uint64(380), e.h.Balance(account))
	assert.Equal(t, uint64(380), e.h.Mint(e.mintKey()).Supply)
}

func TestGetBalance_Validation(t *testing.T) {
	e := setup(t)
	account := e.h.CreateTokenAccount(e.authority.PublicKey(), e.mintKey())

	ix := tokentransfer.NewGetBalanceInstruction(account)
	ix.Accounts[0].IsWritable = false
	res := e.h.Process([]solana.Instruction{ix})
	assert.ErrorIs(t, res.Err, tokentransfer.ErrConstraintMut)
	assert.Nil(t, res.ReturnData)

	res = e.h.Process([]solana.Instruction{tokentransfer.NewGetBalanceInstruction(e.mintKey())})
	assert.ErrorIs(t, res.Err, tokentransfer.ErrAccountDidNotDeserialize)
}

func TestUnknownInstruction(t *testing.T) {
	h := programtest.New(t)

	res := h.Process([]solana.Instruction{solana.NewInstruction(tokentransfer.ProgramID, nil, []byte{1, 2, 3})})
	assert.ErrorIs(t, res.Err, tokentransfer.ErrInstructionMissing)
	assert.Contains(t, res.Logs, "Program log: AnchorError occurred. Error Code: InstructionMissing. Error Number: 100. Error Message: 8 byte instruction identifier not provided.")

	res = h.Process([]solana.Instruction{solana.NewInstruction(tokentransfer.ProgramID, nil, make([]byte, 8))})
	assert.ErrorIs(t, res.Err, tokentransfer.ErrInstructionFallbackNotFound)
}

func TestDecodeInstruction(t *testing.T) {
	a, b, c := solana.PublicKey{1}, solana.PublicKey{2}, solana.PublicKey{3}

	ix, err := tokentransfer.DecodeInstruction(tokentransfer.NewInitializeTokenInstruction(a, b, c, "Name", "SYM", 4).Data)
	require.NoError(t, err)
	assert.Equal(t, tokentransfer.InstructionInitializeToken, ix.Name)
	assert.Equal(t, &tokentransfer.InitializeTokenArgs{Name: "Name", Symbol: "SYM", Decimals: 4}, ix.Initialize)

	for _, tc := range []struct {
		name string
		ix   solana.Instruction
	}{
		{tokentransfer.InstructionMintToken, tokentransfer.NewMintTokenInstruction(a, b, c, 77)},
		{tokentransfer.InstructionTransferToken, tokentransfer.NewTransferTokenInstruction(a, b, c, 77)},
		{tokentransfer.InstructionBurnToken, tokentransfer.NewBurnTokenInstruction(a, b, c, 77)},
	} {
		ix, err := tokentransfer.DecodeInstruction(tc.ix.Data)
		require.NoError(t, err)
		assert.Equal(t, tc.name, ix.Name)
		assert.Equal(t, uint64(77), ix.Amount)
		assert.Len(t, tc.ix.Data, 16)
	}

	ix, err = tokentransfer.DecodeInstruction(tokentransfer.NewGetBalanceInstruction(a).Data)
	require.NoError(t, err)
	assert.Equal(t, tokentransfer.InstructionGetBalance, ix.Name)

	truncated := tokentransfer.NewMintTokenInstruction(a, b, c, 1).Data[:12]
	_, err = tokentransfer.DecodeInstruction(truncated)
	assert.ErrorIs(t, err, tokentransfer.ErrInstructionDidNotDeserialize)
}

func TestDecodeBalance(t *testing.T) {
	v, err := tokentransfer.DecodeBalance([]byte{0xe8, 0x03, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), v)

	_, err = tokentransfer.DecodeBalance([]byte{1})
	assert.Error(t, err)
}
