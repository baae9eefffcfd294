package idhash

import (
	"crypto/sha256"
	"encoding/binary"

	"solana-token-transfer/internal/solana"
)

// ComputeGenesisHash computes the blockhash of slot 0 from a cluster seed.
// Formula: SHA256("genesis"|seed)
func ComputeGenesisHash(seed string) solana.Hash {
	return solana.Hash(sha256.Sum256([]byte("genesis|" + seed)))
}

// ComputeBlockhash computes a deterministic blockhash for slot chained to the
// previous slot's blockhash.
// Formula: SHA256(prev_hash|slot_le_u64)
func ComputeBlockhash(prev solana.Hash, slot uint64) solana.Hash {
	var buf [40]byte
	copy(buf[:32], prev[:])
	binary.LittleEndian.PutUint64(buf[32:], slot)
	return solana.Hash(sha256.Sum256(buf[:]))
}

// ComputeAirdropNonce computes an address that makes repeated airdrops of the
// same amount to the same recipient distinct transactions.
// Formula: SHA256(recipient|lamports_le_u64|nonce_le_u64)
func ComputeAirdropNonce(recipient solana.PublicKey, lamports, nonce uint64) solana.PublicKey {
	var buf [48]byte
	copy(buf[:32], recipient[:])
	binary.LittleEndian.PutUint64(buf[32:40], lamports)
	binary.LittleEndian.PutUint64(buf[40:], nonce)
	return solana.PublicKey(sha256.Sum256(buf[:]))
}
