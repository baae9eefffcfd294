package layout

import "crypto/sha256"

// DiscriminatorLength is the size of account and instruction discriminators.
const DiscriminatorLength = 8

// AccountDiscriminator returns sha256("account:<Name>")[:8].
func AccountDiscriminator(name string) [DiscriminatorLength]byte {
	return sighash("account", name)
}

// InstructionDiscriminator returns sha256("global:<snake_name>")[:8].
func InstructionDiscriminator(name string) [DiscriminatorLength]byte {
	return sighash("global", name)
}

func sighash(namespace, name string) [DiscriminatorLength]byte {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var out [DiscriminatorLength]byte
	copy(out[:], sum[:DiscriminatorLength])
	return out
}
