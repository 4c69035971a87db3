package sol

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	jitorpc "github.com/jito-labs/jito-go-rpc"
)

// JitoClient wraps a block-engine endpoint and the tip account picked at
// startup. Bundle submission rides next to the plain RPC path; a failed
// bundle is reported to the caller, never fatal.
type JitoClient struct {
	rpcClient  *jitorpc.JitoJsonRpcClient
	tipAccount solana.PublicKey
}

// Jito endpoint refer to: https://docs.jito.wtf/lowlatencytxnsend/
func NewJitoClient(ctx context.Context, endpoint string) (*JitoClient, error) {
	rpcClient := jitorpc.NewJitoJsonRpcClient(endpoint, "")
	tipAccount, err := rpcClient.GetRandomTipAccount()
	if err != nil {
		return nil, fmt.Errorf("failed to get random tip account: %w", err)
	}
	tipAccountPublicKey, err := solana.PublicKeyFromBase58(tipAccount.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tip account %q: %w", tipAccount.Address, err)
	}
	return &JitoClient{
		rpcClient:  rpcClient,
		tipAccount: tipAccountPublicKey,
	}, nil
}

func createTipTransaction(privateKey solana.PrivateKey, amount uint64, recentBlockhash solana.Hash, tipAddress string) (*solana.Transaction, error) {
	tipAccount, err := solana.PublicKeyFromBase58(tipAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tip account: %w", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(
				amount,
				privateKey.PublicKey(),
				tipAccount,
			).Build(),
		},
		recentBlockhash,
		solana.TransactionPayer(privateKey.PublicKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tip transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if privateKey.PublicKey().Equals(key) {
			return &privateKey
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign tip transaction: %w", err)
	}

	return tx, nil
}

func encodeTransaction(tx *solana.Transaction) (string, error) {
	serializedTx, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(serializedTx), nil
}

// CheckBundleStatus polls the bundle a few times and logs how far it got.
// Best-effort observability only; it does not change the submission result.
// SendTxWithJito runs this poll before it returns the bundle id.
func (c *JitoClient) CheckBundleStatus(bundleId string) {
	maxAttempts := 5
	pollInterval := 5 * time.Second

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		time.Sleep(pollInterval)

		statusResponse, err := c.rpcClient.GetBundleStatuses([]string{bundleId})
		if err != nil {
			log.Printf("Attempt %d: Failed to get bundle status: %v", attempt, err)
			continue
		}

		if len(statusResponse.Value) == 0 {
			log.Printf("Attempt %d: No bundle status available", attempt)
			continue
		}

		bundleStatus := statusResponse.Value[0]
		log.Printf("Attempt %d: Bundle status: %s", attempt, bundleStatus.ConfirmationStatus)

		switch bundleStatus.ConfirmationStatus {
		case "processed", "confirmed":
			// keep polling until finalized or attempts run out
		case "finalized":
			log.Printf("Bundle finalized in slot %d", bundleStatus.Slot)
			if bundleStatus.Err.Ok == nil {
				for _, txID := range bundleStatus.Transactions {
					log.Printf("Bundle transaction: https://solscan.io/tx/%s", txID)
				}
			} else {
				log.Printf("Bundle execution failed with error: %v", bundleStatus.Err.Ok)
			}
			return
		default:
			log.Printf("Unexpected bundle status %q, check the bundle manually", bundleStatus.ConfirmationStatus)
			return
		}
	}

	log.Printf("Maximum polling attempts reached. Final status unknown.")
}
