package executor

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// ChainClient is the slice of the chain RPC surface the executor needs.
// *sol.Client satisfies it; tests substitute a stub.
type ChainClient interface {
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	GetUserTokenBalance(ctx context.Context, user solana.PublicKey, mint solana.PublicKey) (solana.PublicKey, uint64, error)
	SelectOrCreateSPLTokenAccount(ctx context.Context, privateKey solana.PrivateKey, mint solana.PublicKey) (solana.PublicKey, error)
	CoverWsol(ctx context.Context, privateKey solana.PrivateKey, amount int64) error
	SignTransaction(ctx context.Context, signers []solana.PrivateKey, instrs ...solana.Instruction) (*solana.Transaction, error)
	SendAndConfirmTx(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	SendTxWithJito(ctx context.Context, jitoTipAmount uint64, signers []solana.PrivateKey, tx *solana.Transaction) (string, error)
	HasJito() bool
}
