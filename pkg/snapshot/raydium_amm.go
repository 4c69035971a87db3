// Package snapshot pulls live pool accounts from the chain and flattens them
// into the registry's snapshot records.
package snapshot

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/solana-zh/solmirror/pkg"
	"github.com/solana-zh/solmirror/pkg/registry"
)

// ammPoolSpan is the serialized size of a Raydium AMM V4 pool account.
const ammPoolSpan = 752

// Fixed field offsets inside the V4 pool account.
const (
	ammBaseVaultOffset    = 336
	ammQuoteVaultOffset   = 368
	ammBaseMintOffset     = 400
	ammQuoteMintOffset    = 432
	ammOpenOrdersOffset   = 496
	ammMarketIdOffset     = 528
	ammMarketProgOffset   = 560
	ammTargetOrdersOffset = 592
)

// ammPoolLayout carries the slice of the V4 pool account state the snapshot
// needs.
type ammPoolLayout struct {
	BaseVault       solana.PublicKey
	QuoteVault      solana.PublicKey
	BaseMint        solana.PublicKey
	QuoteMint       solana.PublicKey
	OpenOrders      solana.PublicKey
	MarketId        solana.PublicKey
	MarketProgramId solana.PublicKey
	TargetOrders    solana.PublicKey
}

func (l *ammPoolLayout) Decode(data []byte) error {
	if len(data) < ammPoolSpan {
		return fmt.Errorf("data too short: expected %d bytes, got %d", ammPoolSpan, len(data))
	}
	l.BaseVault = solana.PublicKeyFromBytes(data[ammBaseVaultOffset : ammBaseVaultOffset+32])
	l.QuoteVault = solana.PublicKeyFromBytes(data[ammQuoteVaultOffset : ammQuoteVaultOffset+32])
	l.BaseMint = solana.PublicKeyFromBytes(data[ammBaseMintOffset : ammBaseMintOffset+32])
	l.QuoteMint = solana.PublicKeyFromBytes(data[ammQuoteMintOffset : ammQuoteMintOffset+32])
	l.OpenOrders = solana.PublicKeyFromBytes(data[ammOpenOrdersOffset : ammOpenOrdersOffset+32])
	l.MarketId = solana.PublicKeyFromBytes(data[ammMarketIdOffset : ammMarketIdOffset+32])
	l.MarketProgramId = solana.PublicKeyFromBytes(data[ammMarketProgOffset : ammMarketProgOffset+32])
	l.TargetOrders = solana.PublicKeyFromBytes(data[ammTargetOrdersOffset : ammTargetOrdersOffset+32])
	return nil
}

// marketStateLayoutV3 is the serum market account behind a V4 pool.
type marketStateLayoutV3 struct {
	AccountFlag        [5]byte
	Padding            [8]byte
	OwnAddress         solana.PublicKey
	VaultSignerNonce   uint64
	BaseMint           solana.PublicKey
	QuoteMint          solana.PublicKey
	BaseVault          solana.PublicKey
	BaseDepositsTotal  uint64
	BaseFeesAccrued    uint64
	QuoteVault         solana.PublicKey
	QuoteDepositsTotal uint64
	QuoteFeesAccrued   uint64
	QuoteDustThreshold uint64
	RequestQueue       solana.PublicKey
	EventQueue         solana.PublicKey
	Bids               solana.PublicKey
	Asks               solana.PublicKey
}

func (l *marketStateLayoutV3) Decode(data []byte) error {
	return bin.UnmarshalBorsh(l, data)
}

// FetchRaydiumAmm scans the V4 program for pools of the pair and resolves
// the serum-side accounts each one references.
func (f *Fetcher) FetchRaydiumAmm(ctx context.Context, baseMint, quoteMint string) ([]registry.PoolMetadata, error) {
	basePk, err := solana.PublicKeyFromBase58(baseMint)
	if err != nil {
		return nil, fmt.Errorf("invalid base mint address: %w", err)
	}
	quotePk, err := solana.PublicKeyFromBase58(quoteMint)
	if err != nil {
		return nil, fmt.Errorf("invalid quote mint address: %w", err)
	}

	accounts, err := f.SolClient.GetProgramAccountsWithOpts(ctx, pkg.RAYDIUM_AMM_PROGRAM_ID, &rpc.GetProgramAccountsOpts{
		Filters: []rpc.RPCFilter{
			{DataSize: ammPoolSpan},
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: ammBaseMintOffset, Bytes: basePk.Bytes()}},
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: ammQuoteMintOffset, Bytes: quotePk.Bytes()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pools with base token %s: %w", baseMint, err)
	}

	res := make([]registry.PoolMetadata, 0, len(accounts))
	for _, v := range accounts {
		layout := &ammPoolLayout{}
		if err := layout.Decode(v.Account.Data.GetBinary()); err != nil {
			continue
		}
		meta, err := f.resolveAmmPool(ctx, v.Pubkey, layout)
		if err != nil {
			return nil, fmt.Errorf("failed to process AMM pool %s: %w", v.Pubkey.String(), err)
		}
		res = append(res, *meta)
	}
	return res, nil
}

func (f *Fetcher) resolveAmmPool(ctx context.Context, poolID solana.PublicKey, layout *ammPoolLayout) (*registry.PoolMetadata, error) {
	marketAccount, err := f.SolClient.GetAccountInfoWithOpts(ctx, layout.MarketId)
	if err != nil {
		return nil, fmt.Errorf("failed to get market account: %w", err)
	}

	var market marketStateLayoutV3
	if err := market.Decode(marketAccount.Value.Data.GetBinary()); err != nil {
		return nil, fmt.Errorf("failed to decode market layout: %w", err)
	}

	authority, _, err := solana.FindProgramAddress([][]byte{[]byte("amm authority")}, pkg.RAYDIUM_AMM_PROGRAM_ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find program address: %w", err)
	}

	vaultSigner, _, err := getAssociatedAuthority(marketAccount.Value.Owner, market.OwnAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to get associated authority: %w", err)
	}

	return &registry.PoolMetadata{
		PoolID:    poolID.String(),
		ProgramID: pkg.RAYDIUM_AMM_PROGRAM_ID.String(),
		MintA:     layout.BaseMint.String(),
		MintB:     layout.QuoteMint.String(),
		VaultA:    layout.BaseVault.String(),
		VaultB:    layout.QuoteVault.String(),
		Authority: authority.String(),
		AdditionalAccounts: []string{
			layout.OpenOrders.String(),
			layout.TargetOrders.String(),
			layout.MarketProgramId.String(),
			layout.MarketId.String(),
			market.Bids.String(),
			market.Asks.String(),
			market.EventQueue.String(),
			market.BaseVault.String(),
			market.QuoteVault.String(),
			vaultSigner.String(),
		},
	}, nil
}

func getAssociatedAuthority(programID solana.PublicKey, marketID solana.PublicKey) (solana.PublicKey, uint8, error) {
	seeds := [][]byte{marketID.Bytes()}
	var nonce uint8 = 0

	for nonce < 100 {
		seedsWithNonce := append(seeds, int8ToBuf(nonce))
		seedsWithNonce = append(seedsWithNonce, make([]byte, 7))

		publicKey, err := solana.CreateProgramAddress(seedsWithNonce, programID)
		if err != nil {
			nonce++
			continue
		}

		return publicKey, nonce, nil
	}

	return solana.PublicKey{}, 0, errors.New("unable to find a viable program address nonce")
}

func int8ToBuf(value uint8) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, value)
	return buf.Bytes()
}
