package system_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-transfer/internal/programs/programtest"
	"solana-token-transfer/internal/programs/system"
	"solana-token-transfer/internal/runtime"
	"solana-token-transfer/internal/solana"
)

func TestCreateAccount(t *testing.T) {
	h := programtest.New(t)
	owner := solana.TokenProgramID
	newAcc := h.NewKey()
	lamports := h.Runtime.Rent().MinimumBalance(100)

	h.MustProcess([]solana.Instruction{
		system.NewCreateAccountInstruction(h.Payer.PublicKey(), newAcc.PublicKey(), lamports, 100, owner),
	}, newAcc)

	acc := h.Account(newAcc.PublicKey())
	require.NotNil(t, acc)
	assert.Equal(t, lamports, acc.Lamports)
	assert.Equal(t, owner, acc.Owner)
	assert.Len(t, acc.Data, 100)
	assert.Equal(t, uint64(programtest.PayerLamports)-lamports, h.Account(h.Payer.PublicKey()).Lamports)
}

func TestCreateAccount_AlreadyInUse(t *testing.T) {
	h := programtest.New(t)
	existing := h.NewKey()
	h.Fund(existing.PublicKey(), 1_000_000_000)

	res := h.Process([]solana.Instruction{
		system.NewCreateAccountInstruction(h.Payer.PublicKey(), existing.PublicKey(), 1_000_000, 0, solana.TokenProgramID),
	}, existing)

	assert.ErrorIs(t, res.Err, system.ErrAccountAlreadyInUse)
	assert.Contains(t, res.Logs, "Program log: Create Account: account "+existing.PublicKey().String()+" already in use")
	assert.Equal(t, uint64(programtest.PayerLamports), h.Account(h.Payer.PublicKey()).Lamports)
}

func TestTransfer(t *testing.T) {
	h := programtest.New(t)
	to := h.NewKey().PublicKey()

	h.MustProcess([]solana.Instruction{system.NewTransferInstruction(h.Payer.PublicKey(), to, 5_000_000)})
	assert.Equal(t, uint64(5_000_000), h.Account(to).Lamports)
	assert.Equal(t, solana.SystemProgramID, h.Account(to).Owner)
}

func TestTransfer_Errors(t *testing.T) {
	h := programtest.New(t)
	poor := h.NewKey()
	h.Fund(poor.PublicKey(), 1_000_000)
	to := h.NewKey().PublicKey()

	res := h.Process([]solana.Instruction{system.NewTransferInstruction(poor.PublicKey(), to, 2_000_000)}, poor)
	assert.ErrorIs(t, res.Err, system.ErrResultWithNegativeLamports)
	assert.Equal(t, "Error processing Instruction 0: custom program error: 0x1", res.Err.Error())

	unsigned := system.NewTransferInstruction(poor.PublicKey(), to, 1)
	unsigned.Accounts[0].IsSigner = false
	res = h.Process([]solana.Instruction{unsigned})
	assert.ErrorIs(t, res.Err, runtime.ErrMissingRequiredSignature)

	assert.Equal(t, uint64(1_000_000), h.Account(poor.PublicKey()).Lamports)
	assert.Nil(t, h.Account(to))
}

func TestDecodeInstruction(t *testing.T) {
	owner := solana.TokenProgramID
	from, to := solana.PublicKey{1}, solana.PublicKey{2}

	decoded, err := system.DecodeInstruction(system.NewCreateAccountInstruction(from, to, 42, 165, owner).Data)
	require.NoError(t, err)
	assert.Equal(t, &system.CreateAccount{Lamports: 42, Space: 165, Owner: owner}, decoded)

	ix := system.NewTransferInstruction(from, to, 7)
	assert.Equal(t, []byte{2, 0, 0, 0, 7, 0, 0, 0, 0, 0, 0, 0}, ix.Data)
	decoded, err = system.DecodeInstruction(ix.Data)
	require.NoError(t, err)
	assert.Equal(t, &system.Transfer{Lamports: 7}, decoded)

	_, err = system.DecodeInstruction([]byte{9, 0, 0, 0})
	assert.Error(t, err)
	_, err = system.DecodeInstruction([]byte{0, 0})
	assert.Error(t, err)
}
