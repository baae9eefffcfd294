package layout

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"

	"solana-token-transfer/internal/domain"
)

// TokenAccountSize is the packed size of a token account.
const TokenAccountSize = 165

// EncodeTokenAccount packs a token account into its 165-byte layout:
// mint | owner | amount u64 | delegate COption<Pubkey> | state u8 |
// is_native COption<u64> | delegated_amount u64 | close_authority COption<Pubkey>.
func EncodeTokenAccount(a *domain.TokenAccount) ([]byte, error) {
	var buf bytes.Buffer
	enc := bin.NewBorshEncoder(&buf)

	if err := enc.WriteBytes(a.Mint[:], false); err != nil {
		return nil, fmt.Errorf("encode mint: %w", err)
	}
	if err := enc.WriteBytes(a.Owner[:], false); err != nil {
		return nil, fmt.Errorf("encode owner: %w", err)
	}
	if err := enc.WriteUint64(a.Amount, bin.LE); err != nil {
		return nil, fmt.Errorf("encode amount: %w", err)
	}
	if err := writeOptionalKey(enc, a.Delegate); err != nil {
		return nil, fmt.Errorf("encode delegate: %w", err)
	}
	if err := enc.WriteUint8(uint8(a.State)); err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	if err := writeOptionalUint64(enc, a.IsNative); err != nil {
		return nil, fmt.Errorf("encode is_native: %w", err)
	}
	if err := enc.WriteUint64(a.DelegatedAmount, bin.LE); err != nil {
		return nil, fmt.Errorf("encode delegated amount: %w", err)
	}
	if err := writeOptionalKey(enc, a.CloseAuthority); err != nil {
		return nil, fmt.Errorf("encode close authority: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeTokenAccount unpacks token account state. Uninitialized accounts return ErrUninitialized.
func DecodeTokenAccount(data []byte) (*domain.TokenAccount, error) {
	a, err := decodeTokenAccountUnchecked(data)
	if err != nil {
		return nil, err
	}
	if a.State == domain.AccountStateUninitialized {
		return nil, ErrUninitialized
	}
	return a, nil
}

// IsTokenAccountInitialized reports whether data holds an initialized token account.
func IsTokenAccountInitialized(data []byte) bool {
	a, err := decodeTokenAccountUnchecked(data)
	return err == nil && a.State != domain.AccountStateUninitialized
}

func decodeTokenAccountUnchecked(data []byte) (*domain.TokenAccount, error) {
	if len(data) != TokenAccountSize {
		return nil, fmt.Errorf("%w: token account is %d bytes, want %d", ErrInvalidLength, len(data), TokenAccountSize)
	}
	dec := bin.NewBorshDecoder(data)

	var a domain.TokenAccount
	var err error
	if a.Mint, err = readKey(dec); err != nil {
		return nil, fmt.Errorf("decode mint: %w", err)
	}
	if a.Owner, err = readKey(dec); err != nil {
		return nil, fmt.Errorf("decode owner: %w", err)
	}
	if a.Amount, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, fmt.Errorf("decode amount: %w", err)
	}
	if a.Delegate, err = readOptionalKey(dec); err != nil {
		return nil, fmt.Errorf("decode delegate: %w", err)
	}
	state, err := dec.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if state > uint8(domain.AccountStateFrozen) {
		return nil, fmt.Errorf("decode state: invalid value %d", state)
	}
	a.State = domain.AccountState(state)
	if a.IsNative, err = readOptionalUint64(dec); err != nil {
		return nil, fmt.Errorf("decode is_native: %w", err)
	}
	if a.DelegatedAmount, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, fmt.Errorf("decode delegated amount: %w", err)
	}
	if a.CloseAuthority, err = readOptionalKey(dec); err != nil {
		return nil, fmt.Errorf("decode close authority: %w", err)
	}
	return &a, nil
}
