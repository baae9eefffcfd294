package idhash

import (
	"testing"

	"solana-token-transfer/internal/solana"
)

func TestComputeGenesisHash(t *testing.T) {
	h1 := ComputeGenesisHash("local")
	h2 := ComputeGenesisHash("local")
	if h1 != h2 {
		t.Errorf("same seed produced different hashes: %s vs %s", h1, h2)
	}
	if h1.IsZero() {
		t.Error("genesis hash is zero")
	}
	if ComputeGenesisHash("other") == h1 {
		t.Error("different seeds produced the same hash")
	}
}

func TestComputeBlockhash(t *testing.T) {
	genesis := ComputeGenesisHash("local")

	tests := []struct {
		name  string
		prev  solana.Hash
		slot  uint64
		other solana.Hash
	}{
		{"next slot differs", genesis, 1, ComputeBlockhash(genesis, 2)},
		{"prev hash differs", genesis, 1, ComputeBlockhash(solana.Hash{1}, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeBlockhash(tt.prev, tt.slot)
			if got != ComputeBlockhash(tt.prev, tt.slot) {
				t.Error("hash is not deterministic")
			}
			if got == tt.other {
				t.Errorf("expected distinct hashes, both %s", got)
			}
		})
	}
}

func TestComputeAirdropNonce(t *testing.T) {
	recipient := solana.PublicKey{7}

	a := ComputeAirdropNonce(recipient, 1_000_000_000, 1)
	if a != ComputeAirdropNonce(recipient, 1_000_000_000, 1) {
		t.Error("nonce is not deterministic")
	}
	if a == ComputeAirdropNonce(recipient, 1_000_000_000, 2) {
		t.Error("different nonces produced the same address")
	}
	if a == ComputeAirdropNonce(recipient, 2_000_000_000, 1) {
		t.Error("different amounts produced the same address")
	}
}
