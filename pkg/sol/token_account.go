package sol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/rpc"
)

// SelectOrCreateSPLTokenAccount returns an existing token account of the
// user for the mint, or creates the associated token account when none
// exists. Safe to call repeatedly.
func (t *Client) SelectOrCreateSPLTokenAccount(ctx context.Context, privateKey solana.PrivateKey, tokenMint solana.PublicKey) (solana.PublicKey, error) {
	user := privateKey.PublicKey()
	acc, err := t.GetTokenAccountsByOwner(ctx, user,
		&rpc.GetTokenAccountsConfig{Mint: tokenMint.ToPointer()},
		&rpc.GetTokenAccountsOpts{
			Encoding: "jsonParsed",
		},
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("query token accounts: %w", err)
	}
	if len(acc.Value) > 0 {
		return acc.Value[0].Pubkey, nil
	}

	// The ATA address is deterministic; only its creation hits the chain.
	ataAddress, _, err := solana.FindAssociatedTokenAddress(user, tokenMint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive ata: %w", err)
	}
	createAtaInst, err := associatedtokenaccount.NewCreateInstruction(
		user,
		user,
		tokenMint,
	).ValidateAndBuild()
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("build create-ata instruction: %w", err)
	}

	tx, err := t.SignTransaction(ctx, []solana.PrivateKey{privateKey}, createAtaInst)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("sign create-ata transaction: %w", err)
	}
	if _, err := t.SendAndConfirmTx(ctx, tx); err != nil {
		return solana.PublicKey{}, fmt.Errorf("send create-ata transaction: %w", err)
	}
	return ataAddress, nil
}
