package sol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// CoverWsol wraps `amount` lamports into the user's WSOL associated token
// account, creating the account first when it does not exist. The transfer
// and the sync-native instruction go out in one transaction.
func (t *Client) CoverWsol(ctx context.Context, privateKey solana.PrivateKey, amount int64) error {
	signers := []solana.PrivateKey{privateKey}
	user := privateKey.PublicKey()
	allInstrs := make([]solana.Instruction, 0)

	acc, err := t.GetTokenAccountsByOwner(ctx, user,
		&rpc.GetTokenAccountsConfig{Mint: WSOL.ToPointer()},
		&rpc.GetTokenAccountsOpts{
			Encoding: "jsonParsed",
		},
	)
	if err != nil {
		return fmt.Errorf("query wsol accounts: %w", err)
	}
	if len(acc.Value) == 0 {
		createAtaInst, err := associatedtokenaccount.NewCreateInstruction(
			user,
			user,
			WSOL,
		).ValidateAndBuild()
		if err != nil {
			return fmt.Errorf("build create-ata instruction: %w", err)
		}
		allInstrs = append(allInstrs, createAtaInst)
	}

	wsolAccount, _, err := solana.FindAssociatedTokenAddress(user, WSOL)
	if err != nil {
		return fmt.Errorf("derive wsol ata: %w", err)
	}

	transferInst, err := system.NewTransferInstruction(
		uint64(amount),
		user,
		wsolAccount,
	).ValidateAndBuild()
	if err != nil {
		return fmt.Errorf("build transfer instruction: %w", err)
	}
	allInstrs = append(allInstrs, transferInst)

	// SyncNative updates the token amount to match the lamports just sent
	syncNativeInst, err := token.NewSyncNativeInstruction(
		wsolAccount,
	).ValidateAndBuild()
	if err != nil {
		return fmt.Errorf("build sync-native instruction: %w", err)
	}
	allInstrs = append(allInstrs, syncNativeInst)

	tx, err := t.SignTransaction(ctx, signers, allInstrs...)
	if err != nil {
		return fmt.Errorf("sign wrap transaction: %w", err)
	}
	if _, err := t.SendAndConfirmTx(ctx, tx); err != nil {
		return fmt.Errorf("send wrap transaction: %w", err)
	}
	return nil
}

// CloseWsol unwraps the user's WSOL account back into lamports.
func (t *Client) CloseWsol(ctx context.Context, privateKey solana.PrivateKey) error {
	signers := []solana.PrivateKey{privateKey}
	user := privateKey.PublicKey()

	wsolAccount, _, err := solana.FindAssociatedTokenAddress(user, WSOL)
	if err != nil {
		return fmt.Errorf("derive wsol ata: %w", err)
	}
	closeInst, err := token.NewCloseAccountInstruction(
		wsolAccount,
		user,
		user,
		[]solana.PublicKey{},
	).ValidateAndBuild()
	if err != nil {
		return fmt.Errorf("build close-account instruction: %w", err)
	}
	tx, err := t.SignTransaction(ctx, signers, closeInst)
	if err != nil {
		return fmt.Errorf("sign close transaction: %w", err)
	}
	if _, err := t.SendAndConfirmTx(ctx, tx); err != nil {
		return fmt.Errorf("send close transaction: %w", err)
	}
	return nil
}
