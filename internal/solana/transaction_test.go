package solana

import (
	"errors"
	"path/filepath"
	"testing"
)

func mustKey(t *testing.T) PrivateKey {
	t.Helper()
	k, err := NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("NewRandomPrivateKey: %v", err)
	}
	return k
}

func TestNewMessage_KeyOrdering(t *testing.T) {
	payer, signer, roSigner := mustKey(t), mustKey(t), mustKey(t)
	writable, readonly := mustKey(t).PublicKey(), mustKey(t).PublicKey()
	program := mustKey(t).PublicKey()

	ix := NewInstruction(program, AccountMetaSlice{
		Meta(readonly),
		Meta(writable).WRITE(),
		Meta(roSigner.PublicKey()).SIGNER(),
		Meta(signer.PublicKey()).WRITE().SIGNER(),
		Meta(payer.PublicKey()),
	}, []byte{1})

	msg, err := NewMessage(payer.PublicKey(), []Instruction{ix}, Hash{})
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}

	want := []PublicKey{payer.PublicKey(), signer.PublicKey(), roSigner.PublicKey(), writable, readonly, program}
	if len(msg.AccountKeys) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(msg.AccountKeys))
	}
	for i, k := range want {
		if msg.AccountKeys[i] != k {
			t.Errorf("key %d: expected %s, got %s", i, k, msg.AccountKeys[i])
		}
	}
	if msg.Header != (MessageHeader{NumRequiredSignatures: 3, NumReadonlySignedAccounts: 1, NumReadonlyUnsignedAccounts: 2}) {
		t.Errorf("unexpected header: %+v", msg.Header)
	}
	if !msg.IsWritable(0) || msg.IsWritable(2) || !msg.IsWritable(3) || msg.IsWritable(4) {
		t.Error("writable flags do not follow the header")
	}

	decompiled := msg.Instruction(0)
	if decompiled.ProgramID != program || len(decompiled.Accounts) != 5 {
		t.Fatalf("unexpected instruction: %+v", decompiled)
	}
	if !decompiled.Accounts[3].IsSigner || !decompiled.Accounts[3].IsWritable {
		t.Error("signer meta lost its flags")
	}
	if err := msg.Sanitize(); err != nil {
		t.Errorf("Sanitize: %v", err)
	}
}

func TestNewMessage_NoInstructions(t *testing.T) {
	if _, err := NewMessage(mustKey(t).PublicKey(), nil, Hash{}); !errors.Is(err, ErrNoInstructions) {
		t.Errorf("expected ErrNoInstructions, got %v", err)
	}
}

func TestTransaction_SignAndVerify(t *testing.T) {
	payer, other := mustKey(t), mustKey(t)
	ix := NewInstruction(SystemProgramID, AccountMetaSlice{
		Meta(payer.PublicKey()).WRITE().SIGNER(),
		Meta(other.PublicKey()).WRITE().SIGNER(),
	}, []byte{2, 0, 0, 0})

	tx, err := NewTransaction([]Instruction{ix}, Hash{3}, payer.PublicKey())
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}
	if err := tx.Sign(payer); err == nil {
		t.Fatal("expected missing signer error")
	}
	if err := tx.Sign(payer, other); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := tx.VerifySignatures(); err != nil {
		t.Fatalf("VerifySignatures: %v", err)
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	decoded, err := TransactionFromBytes(raw)
	if err != nil {
		t.Fatalf("TransactionFromBytes: %v", err)
	}
	if decoded.Signature() != tx.Signature() || decoded.Message.RecentBlockhash != (Hash{3}) {
		t.Error("decoded transaction differs")
	}
	if err := decoded.VerifySignatures(); err != nil {
		t.Errorf("decoded VerifySignatures: %v", err)
	}

	decoded.Message.Instructions[0].Data[0] = 9
	if err := decoded.VerifySignatures(); err == nil {
		t.Error("expected tampered message to fail verification")
	}

	if _, err := TransactionFromBytes(append(raw, 0)); err == nil {
		t.Error("expected trailing bytes to be rejected")
	}
}

func TestMessage_SanitizeRejectsBadIndexes(t *testing.T) {
	payer := mustKey(t)
	tx, err := NewTransaction([]Instruction{
		NewInstruction(SystemProgramID, AccountMetaSlice{Meta(payer.PublicKey()).WRITE().SIGNER()}, nil),
	}, Hash{}, payer.PublicKey())
	if err != nil {
		t.Fatal(err)
	}

	tx.Message.Instructions[0].Accounts[0] = 200
	if err := tx.Message.Sanitize(); err == nil {
		t.Error("expected out-of-range account index to fail")
	}

	tx.Message.Instructions[0].Accounts[0] = 0
	tx.Message.Instructions[0].ProgramIDIndex = 0
	if err := tx.Message.Sanitize(); err == nil {
		t.Error("expected fee payer as program to fail")
	}
}

func TestFindProgramAddress(t *testing.T) {
	program := mustKey(t).PublicKey()
	seeds := [][]byte{[]byte("token-info"), program[:]}

	addr, bump, err := FindProgramAddress(seeds, program)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	if IsOnCurve(addr[:]) {
		t.Error("program address must be off curve")
	}

	again, err := CreateProgramAddress(append(seeds, []byte{bump}), program)
	if err != nil {
		t.Fatalf("CreateProgramAddress: %v", err)
	}
	if again != addr {
		t.Errorf("expected %s, got %s", addr, again)
	}

	if _, _, err := FindProgramAddress([][]byte{make([]byte, MaxSeedLength+1)}, program); !errors.Is(err, ErrMaxSeedLengthExceeded) {
		t.Errorf("expected ErrMaxSeedLengthExceeded, got %v", err)
	}
	if !IsOnCurve(mustKey(t).PublicKey().Bytes()) {
		t.Error("ed25519 public keys are on the curve")
	}
}

func TestKeypairFile(t *testing.T) {
	key := mustKey(t)
	path := filepath.Join(t.TempDir(), "keys", "id.json")

	if err := SavePrivateKeyToFile(key, path); err != nil {
		t.Fatalf("SavePrivateKeyToFile: %v", err)
	}
	loaded, err := LoadPrivateKeyFromFile(path)
	if err != nil {
		t.Fatalf("LoadPrivateKeyFromFile: %v", err)
	}
	if loaded.PublicKey() != key.PublicKey() {
		t.Error("loaded keypair has a different public key")
	}

	fromString, err := PrivateKeyFromBase58(key.String())
	if err != nil {
		t.Fatalf("PrivateKeyFromBase58: %v", err)
	}
	if fromString.PublicKey() != key.PublicKey() {
		t.Error("base58 keypair round trip changed the key")
	}
}
