package sol

import "github.com/gagliardetto/solana-go"

// WSOL is the wrapped native SOL mint.
var WSOL = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

// LamportsPerSol is the scale of the native token.
const LamportsPerSol = 1_000_000_000
