package pkg

import (
	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
)

// Protocol represents the string name of an AMM protocol
type Protocol string

const (
	ProtocolRaydiumAmmV4 Protocol = "raydium_amm_v4"
	ProtocolRaydiumCpmm  Protocol = "raydium_cpmm"
	ProtocolRaydiumClmm  Protocol = "raydium_clmm"
	ProtocolPumpFun      Protocol = "pump_fun"
)

// SwapBuilder assembles the mirror swap instructions for one protocol dialect.
// The account-meta order produced by a builder is exactly what the on-chain
// program expects; callers must not reorder the result.
type SwapBuilder interface {
	Protocol() Protocol
	BuildSwapInstructions(
		trade *Trade,
		user solana.PublicKey,
		userInAccount solana.PublicKey,
		userOutAccount solana.PublicKey,
		amountIn math.Int,
		limit math.Int,
	) ([]solana.Instruction, error)
}
