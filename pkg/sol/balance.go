package sol

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// GetUserTokenBalance returns the user's first token account for the mint and
// the balance summed across all of the user's token accounts for that mint.
func (t *Client) GetUserTokenBalance(ctx context.Context, userAddr solana.PublicKey, tokenMint solana.PublicKey) (solana.PublicKey, uint64, error) {
	acc, err := t.GetTokenAccountsByOwner(ctx, userAddr,
		&rpc.GetTokenAccountsConfig{Mint: tokenMint.ToPointer()},
		&rpc.GetTokenAccountsOpts{
			Encoding: "jsonParsed",
		},
	)
	if err != nil {
		return solana.PublicKey{}, 0, err
	}
	if len(acc.Value) == 0 {
		return solana.PublicKey{}, 0, errors.New("no token account found")
	}

	var total uint64
	for _, v := range acc.Value {
		tokenAccount, err := t.GetTokenAccountBalance(ctx, v.Pubkey, rpc.CommitmentConfirmed)
		if err != nil {
			return solana.PublicKey{}, 0, fmt.Errorf("failed to get token account balance: %v", err)
		}
		tokenAmt, err := strconv.ParseUint(tokenAccount.Value.Amount, 10, 64)
		if err != nil {
			return solana.PublicKey{}, 0, fmt.Errorf("failed to parse token amount: %w", err)
		}
		total += tokenAmt
	}

	return acc.Value[0].Pubkey, total, nil
}
