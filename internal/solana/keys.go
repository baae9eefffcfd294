package solana

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mr-tron/base58"
)

// SignatureLength is the size of an ed25519 signature.
const SignatureLength = 64

// Signature is an ed25519 transaction signature.
type Signature [SignatureLength]byte

// SignatureFromBase58 decodes a base58 signature.
func SignatureFromBase58(s string) (Signature, error) {
	var sig Signature
	decoded, err := base58.Decode(s)
	if err != nil {
		return sig, fmt.Errorf("decode signature: %w", err)
	}
	if len(decoded) != SignatureLength {
		return sig, fmt.Errorf("invalid signature length: got %d, want %d", len(decoded), SignatureLength)
	}
	copy(sig[:], decoded)
	return sig, nil
}

// String returns the base58 encoding.
func (s Signature) String() string {
	return base58.Encode(s[:])
}

// IsZero reports whether the signature is unset.
func (s Signature) IsZero() bool {
	return s == Signature{}
}

// Verify checks the signature against a public key and message.
func (s Signature) Verify(pk PublicKey, message []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(pk[:]), message, s[:])
}

// PrivateKey is a 64-byte ed25519 keypair (seed followed by public key).
type PrivateKey ed25519.PrivateKey

// NewRandomPrivateKey generates a fresh keypair.
func NewRandomPrivateKey() (PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return PrivateKey(priv), nil
}

// PrivateKeyFromBase58 decodes a base58 keypair.
func PrivateKeyFromBase58(s string) (PrivateKey, error) {
	decoded, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(decoded) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key length: %d", len(decoded))
	}
	return PrivateKey(decoded), nil
}

// PrivateKeyFromSeed derives a keypair from a 32-byte seed.
func PrivateKeyFromSeed(seed []byte) (PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid seed length: %d", len(seed))
	}
	return PrivateKey(ed25519.NewKeyFromSeed(seed)), nil
}

// PublicKey returns the address of the keypair.
func (k PrivateKey) PublicKey() PublicKey {
	var pk PublicKey
	copy(pk[:], ed25519.PrivateKey(k).Public().(ed25519.PublicKey))
	return pk
}

// Sign signs a message.
func (k PrivateKey) Sign(message []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(ed25519.PrivateKey(k), message))
	return sig
}

// String returns the base58 encoding of the full keypair.
func (k PrivateKey) String() string {
	return base58.Encode(k)
}

// LoadPrivateKeyFromFile reads a keypair stored as a JSON byte array,
// the format written by solana-keygen.
func LoadPrivateKeyFromFile(path string) (PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair file: %w", err)
	}
	var raw []byte
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return nil, fmt.Errorf("parse keypair file %s: %w", path, err)
	}
	for _, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("parse keypair file %s: byte out of range", path)
		}
		raw = append(raw, byte(v))
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keypair file %s: invalid length %d", path, len(raw))
	}
	return PrivateKey(raw), nil
}

// SavePrivateKeyToFile writes a keypair as a JSON byte array with 0600 permissions.
func SavePrivateKeyToFile(k PrivateKey, path string) error {
	ints := make([]int, len(k))
	for i, b := range k {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	if err != nil {
		return fmt.Errorf("encode keypair: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create keypair dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write keypair file: %w", err)
	}
	return nil
}
