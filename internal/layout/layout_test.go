package layout

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/solana"
)

func testKey(b byte) solana.PublicKey {
	var pk solana.PublicKey
	for i := range pk {
		pk[i] = b
	}
	return pk
}

func TestDiscriminators(t *testing.T) {
	sum := sha256.Sum256([]byte("global:initialize_token"))
	got := InstructionDiscriminator("initialize_token")
	if !bytes.Equal(got[:], sum[:8]) {
		t.Errorf("InstructionDiscriminator() = %x, want %x", got, sum[:8])
	}

	sum = sha256.Sum256([]byte("account:TokenInfo"))
	if !bytes.Equal(TokenInfoDiscriminator[:], sum[:8]) {
		t.Errorf("TokenInfoDiscriminator = %x, want %x", TokenInfoDiscriminator, sum[:8])
	}
}

func TestMint_Layout(t *testing.T) {
	authority := testKey(7)
	m := &domain.Mint{
		MintAuthority: &authority,
		Supply:        1_000_000,
		Decimals:      9,
		IsInitialized: true,
	}

	data, err := EncodeMint(m)
	require.NoError(t, err)
	require.Len(t, data, MintSize)

	// COption tag, key, supply, decimals, is_initialized, freeze tag.
	assert.Equal(t, []byte{1, 0, 0, 0}, data[0:4])
	assert.Equal(t, authority[:], data[4:36])
	assert.Equal(t, []byte{0x40, 0x42, 0x0f, 0, 0, 0, 0, 0}, data[36:44])
	assert.Equal(t, byte(9), data[44])
	assert.Equal(t, byte(1), data[45])
	assert.Equal(t, []byte{0, 0, 0, 0}, data[46:50])

	decoded, err := DecodeMint(data)
	require.NoError(t, err)
	assert.Equal(t, m, decoded)
}

func TestDecodeMint_Errors(t *testing.T) {
	_, err := DecodeMint(make([]byte, MintSize))
	assert.ErrorIs(t, err, ErrUninitialized)
	assert.False(t, IsMintInitialized(make([]byte, MintSize)))

	_, err = DecodeMint(make([]byte, 10))
	assert.ErrorIs(t, err, ErrInvalidLength)

	bad := make([]byte, MintSize)
	bad[0] = 2
	_, err = DecodeMint(bad)
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestTokenAccount_Layout(t *testing.T) {
	native := uint64(2039280)
	closeAuth := testKey(9)
	a := &domain.TokenAccount{
		Mint:           testKey(1),
		Owner:          testKey(2),
		Amount:         500,
		State:          domain.AccountStateInitialized,
		IsNative:       &native,
		CloseAuthority: &closeAuth,
	}

	data, err := EncodeTokenAccount(a)
	require.NoError(t, err)
	require.Len(t, data, TokenAccountSize)

	assert.Equal(t, a.Mint[:], data[0:32])
	assert.Equal(t, a.Owner[:], data[32:64])
	assert.Equal(t, byte(0xf4), data[64])
	assert.Equal(t, byte(1), data[108], "state")
	assert.Equal(t, byte(1), data[109], "is_native tag")

	decoded, err := DecodeTokenAccount(data)
	require.NoError(t, err)
	assert.Equal(t, a, decoded)
	assert.False(t, decoded.IsFrozen())
}

func TestDecodeTokenAccount_Errors(t *testing.T) {
	_, err := DecodeTokenAccount(make([]byte, TokenAccountSize))
	assert.ErrorIs(t, err, ErrUninitialized)
	assert.False(t, IsTokenAccountInitialized(make([]byte, TokenAccountSize)))

	_, err = DecodeTokenAccount(make([]byte, MintSize))
	assert.ErrorIs(t, err, ErrInvalidLength)

	bad := make([]byte, TokenAccountSize)
	bad[108] = 3
	_, err = DecodeTokenAccount(bad)
	assert.Error(t, err)
}

func TestTokenInfo_RoundTripPadded(t *testing.T) {
	info := &domain.TokenInfo{
		Name:      "Test Token",
		Symbol:    "TEST",
		Decimals:  6,
		Mint:      testKey(3),
		Authority: testKey(4),
	}

	data, err := EncodeTokenInfo(info, TokenInfoSpace)
	require.NoError(t, err)
	require.Len(t, data, 137)
	assert.Equal(t, TokenInfoDiscriminator[:], data[:8])

	decoded, err := DecodeTokenInfo(data)
	require.NoError(t, err)
	assert.Equal(t, info, decoded)
}

func TestEncodeTokenInfo_TextBudget(t *testing.T) {
	tests := []struct {
		name    string
		tName   string
		symbol  string
		wantErr bool
	}{
		{name: "empty strings", tName: "", symbol: ""},
		{name: "exactly at budget", tName: strings.Repeat("n", 50), symbol: "SYMBOL"},
		{name: "one byte over", tName: strings.Repeat("n", 51), symbol: "SYMBOL", wantErr: true},
		{name: "32 byte name and symbol", tName: strings.Repeat("n", 32), symbol: strings.Repeat("s", 32), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := &domain.TokenInfo{Name: tt.tName, Symbol: tt.symbol}
			_, err := EncodeTokenInfo(info, TokenInfoSpace)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrDataTooLarge))
				return
			}
			assert.NoError(t, err)
		})
	}
	assert.Equal(t, 56, MaxTokenInfoTextLength)
}

func TestDecodeTokenInfo_WrongDiscriminator(t *testing.T) {
	data := make([]byte, TokenInfoSpace)
	_, err := DecodeTokenInfo(data)
	assert.ErrorIs(t, err, ErrDiscriminatorMismatch)

	_, err = DecodeTokenInfo([]byte{1, 2})
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestDecodeTokenInfo_InvalidUTF8(t *testing.T) {
	data, err := EncodeTokenInfo(&domain.TokenInfo{Name: "ab", Symbol: "OK"}, TokenInfoSpace)
	require.NoError(t, err)

	// name bytes follow the discriminator and the u32 length
	data[DiscriminatorLength+4] = 0xff
	data[DiscriminatorLength+5] = 0xfe

	_, err = DecodeTokenInfo(data)
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestUIAmount(t *testing.T) {
	assert.Equal(t, "1.5", UIAmountString(1500, 3))
	assert.Equal(t, "0", UIAmountString(0, 9))
	assert.Equal(t, "42", UIAmountString(42, 0))
	assert.Equal(t, "18446744073709.551615", UIAmountString(^uint64(0), 6))
}

func TestParseUIAmount(t *testing.T) {
	tests := []struct {
		in       string
		decimals uint8
		want     uint64
		wantErr  bool
	}{
		{in: "1.5", decimals: 3, want: 1500},
		{in: "100", decimals: 0, want: 100},
		{in: "0.000000001", decimals: 9, want: 1},
		{in: "0.0000000001", decimals: 9, wantErr: true},
		{in: "-1", decimals: 2, wantErr: true},
		{in: "abc", decimals: 2, wantErr: true},
		{in: "18446744073709551616", decimals: 0, wantErr: true},
		{in: "18446744073709551615", decimals: 0, want: ^uint64(0)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUIAmount(tt.in, tt.decimals)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
