package sol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

func (c *Client) SendTx(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	// Send transaction with optimized options
	sig, err := c.SendTransactionWithOpts(
		ctx, tx,
		rpc.TransactionOpts{
			SkipPreflight:       true,
			PreflightCommitment: rpc.CommitmentProcessed,
		},
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	return sig, nil
}

// SendAndConfirmTx submits the transaction and polls until it reaches
// confirmed commitment. A single submission attempt; polling stops after
// the deadline and reports the transaction as unconfirmed.
func (c *Client) SendAndConfirmTx(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.SendTx(ctx, tx)
	if err != nil {
		return solana.Signature{}, err
	}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return sig, ctx.Err()
		case <-time.After(2 * time.Second):
		}

		res, err := c.GetSignatureStatuses(ctx, sig)
		if err != nil || len(res.Value) == 0 || res.Value[0] == nil {
			continue
		}
		status := res.Value[0]
		if status.Err != nil {
			return sig, fmt.Errorf("transaction failed on chain: %v", status.Err)
		}
		switch status.ConfirmationStatus {
		case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
			return sig, nil
		}
	}
	return sig, errors.New("transaction not confirmed before deadline")
}

// HasJito reports whether a Jito block-engine endpoint was configured.
func (c *Client) HasJito() bool {
	return c.jitoClient != nil
}

func (c *Client) SendTxWithJito(ctx context.Context, jitoTipAmount uint64, signers []solana.PrivateKey, mainTx *solana.Transaction) (string, error) {

	res, err := c.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("failed to get blockhash: %w", err)
	}

	tipTx, err := createTipTransaction(signers[0], jitoTipAmount, res.Value.Blockhash, c.jitoClient.tipAccount.String())
	if err != nil {
		return "", fmt.Errorf("failed to create tip transaction: %w", err)
	}

	encodedMain, err := encodeTransaction(mainTx)
	if err != nil {
		return "", fmt.Errorf("failed to encode main transaction: %w", err)
	}
	encodedTip, err := encodeTransaction(tipTx)
	if err != nil {
		return "", fmt.Errorf("failed to encode tip transaction: %w", err)
	}
	bundleRequest := [][]string{{encodedMain, encodedTip}}

	bundleIdRaw, err := c.jitoClient.rpcClient.SendBundle(bundleRequest)
	if err != nil {
		return "", fmt.Errorf("failed to send bundle: %w", err)
	}
	var bundleId string
	if err := json.Unmarshal(bundleIdRaw, &bundleId); err != nil {
		return "", fmt.Errorf("failed to unmarshal bundle ID: %w", err)
	}

	log.Printf("Bundle sent successfully. Bundle ID: %s", bundleId)
	c.jitoClient.CheckBundleStatus(bundleId)

	return bundleId, nil
}
