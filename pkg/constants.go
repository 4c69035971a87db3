package pkg

import (
	"github.com/gagliardetto/solana-go"
)

// On-chain program IDs of the tracked AMM families.
var (
	RAYDIUM_AMM_PROGRAM_ID  = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	RAYDIUM_AMM_AUTHORITY   = solana.MustPublicKeyFromBase58("5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1")
	RAYDIUM_CPMM_PROGRAM_ID = solana.MustPublicKeyFromBase58("CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C")
	RAYDIUM_CPMM_AUTHORITY  = solana.MustPublicKeyFromBase58("GpMZbSM2GgvTKHJirzeGfMFoaZ8UR2X7F4v8vHTvxFbL")
	RAYDIUM_CLMM_PROGRAM_ID = solana.MustPublicKeyFromBase58("CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK")
	PUMP_FUN_PROGRAM_ID     = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwdFi")
)

// Anchor discriminators of the CPMM swap entrypoints.
var (
	SwapBaseInputDiscriminator  = []byte{143, 190, 90, 218, 196, 30, 51, 222}
	SwapBaseOutputDiscriminator = []byte{55, 217, 98, 86, 163, 74, 180, 173}
)

const (
	// Raydium AMM V4 swap instruction tag.
	RaydiumAmmSwapInstruction uint8 = 9

	// Leading discriminator byte of the bonding-curve buy/sell entrypoints.
	PumpBuyInstruction  uint8 = 0x66
	PumpSellInstruction uint8 = 0x33
)

// TrackedProgram reports whether programID belongs to one of the AMM
// programs this engine watches, and which dialect it is.
func TrackedProgram(programID string) (Protocol, bool) {
	switch programID {
	case RAYDIUM_AMM_PROGRAM_ID.String():
		return ProtocolRaydiumAmmV4, true
	case RAYDIUM_CPMM_PROGRAM_ID.String():
		return ProtocolRaydiumCpmm, true
	case RAYDIUM_CLMM_PROGRAM_ID.String():
		return ProtocolRaydiumClmm, true
	case PUMP_FUN_PROGRAM_ID.String():
		return ProtocolPumpFun, true
	}
	return "", false
}
