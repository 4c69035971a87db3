package pkg

import (
	"github.com/gagliardetto/solana-go"
)

// Direction of a swap relative to the native token: a Buy spends wrapped
// native for a token, a Sell does the reverse.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// TokenRef identifies one side of a swap. Decimals is authoritative for all
// amount scaling.
type TokenRef struct {
	Mint     solana.PublicKey `json:"mint"`
	Symbol   string           `json:"symbol,omitempty"`
	Decimals uint8            `json:"decimals"`
}

// Trade is a normalized swap reconstructed from one leader instruction plus
// the transaction's balance snapshots. Amounts are raw on-chain units taken
// from balance deltas, not from the instruction's declared limits.
//
// AccountKeys preserves the transaction's on-chain account ordering. The
// bonding-curve builder reads its accounts from it, and the AMM V4 builder
// falls back to it when the registry has no metadata for the pool. The CPMM
// builder takes its core accounts from the registry only and fails for a
// pool the registry lacks.
type Trade struct {
	Signature    string           `json:"signature"`
	LeaderWallet solana.PublicKey `json:"leader_wallet"`
	Protocol     Protocol         `json:"protocol"`
	Direction    Direction        `json:"direction"`
	TokenIn      TokenRef         `json:"token_in"`
	TokenOut     TokenRef         `json:"token_out"`
	AmountIn     uint64           `json:"amount_in"`
	AmountOut    uint64           `json:"amount_out"`
	Price        float64          `json:"price"`
	PoolID       solana.PublicKey `json:"pool_id"`
	Timestamp    int64            `json:"timestamp"`
	GasFee       uint64           `json:"gas_fee"`
	ProgramID    solana.PublicKey `json:"program_id"`
	AccountKeys  []string         `json:"account_keys"`
}

// ExecutedTrade records one mirror submission attempt. MirrorSignature is set
// only on success; Error carries the skip or failure reason otherwise.
type ExecutedTrade struct {
	SourceSignature string    `json:"source_signature"`
	MirrorSignature string    `json:"mirror_signature,omitempty"`
	Direction       Direction `json:"direction"`
	AmountIn        uint64    `json:"amount_in"`
	AmountOut       uint64    `json:"amount_out"`
	Success         bool      `json:"success"`
	Error           string    `json:"error,omitempty"`
	Timestamp       int64     `json:"timestamp"`
}
