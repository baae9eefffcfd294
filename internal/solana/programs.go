package solana

// Well-known program and sysvar addresses.
var (
	SystemProgramID               = MustPublicKeyFromBase58("11111111111111111111111111111111")
	TokenProgramID                = MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgramID      = MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	SysVarRentPubkey              = MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")
	NativeLoaderID                = MustPublicKeyFromBase58("NativeLoader1111111111111111111111111111111")
	BPFLoaderUpgradeableProgramID = MustPublicKeyFromBase58("BPFLoaderUpgradeab1e11111111111111111111111")
	SysvarOwnerID                 = MustPublicKeyFromBase58("Sysvar1111111111111111111111111111111111111")
)
