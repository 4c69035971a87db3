package snapshot

import (
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/solana-zh/solmirror/pkg"
	"github.com/solana-zh/solmirror/pkg/registry"
)

// AUTH_SEED derives the CPMM vault-and-lp authority PDA.
const AUTH_SEED = "vault_and_lp_mint_auth_seed"

const cpmmPoolSpan = 637

// Fixed field offsets inside the CPMM pool-state account (8-byte anchor
// discriminator, then pubkeys in declaration order).
const (
	cpmmToken0MintOffset = 8 + 32*5
	cpmmToken1MintOffset = 8 + 32*6
)

// cpmmPoolLayout is the head of the CPMM pool-state account; trailing fee
// counters are not needed here.
type cpmmPoolLayout struct {
	AmmConfig      solana.PublicKey
	PoolCreator    solana.PublicKey
	Token0Vault    solana.PublicKey
	Token1Vault    solana.PublicKey
	LpMint         solana.PublicKey
	Token0Mint     solana.PublicKey
	Token1Mint     solana.PublicKey
	Token0Program  solana.PublicKey
	Token1Program  solana.PublicKey
	ObservationKey solana.PublicKey
}

func (p *cpmmPoolLayout) Decode(data []byte) error {
	if len(data) > 8 {
		data = data[8:]
	}
	dec := bin.NewBinDecoder(data)
	return dec.Decode(p)
}

// FetchRaydiumCpmm scans the CPMM program for pool states of the pair.
func (f *Fetcher) FetchRaydiumCpmm(ctx context.Context, baseMint, quoteMint string) ([]registry.PoolMetadata, error) {
	basePk, err := solana.PublicKeyFromBase58(baseMint)
	if err != nil {
		return nil, fmt.Errorf("invalid base mint address: %w", err)
	}
	quotePk, err := solana.PublicKeyFromBase58(quoteMint)
	if err != nil {
		return nil, fmt.Errorf("invalid quote mint address: %w", err)
	}

	accounts, err := f.SolClient.GetProgramAccountsWithOpts(ctx, pkg.RAYDIUM_CPMM_PROGRAM_ID, &rpc.GetProgramAccountsOpts{
		Filters: []rpc.RPCFilter{
			{DataSize: cpmmPoolSpan},
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: cpmmToken0MintOffset, Bytes: basePk.Bytes()}},
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: cpmmToken1MintOffset, Bytes: quotePk.Bytes()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get pools: %w", err)
	}

	authority, _, err := solana.FindProgramAddress([][]byte{[]byte(AUTH_SEED)}, pkg.RAYDIUM_CPMM_PROGRAM_ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find authority PDA: %w", err)
	}

	res := make([]registry.PoolMetadata, 0, len(accounts))
	for _, v := range accounts {
		layout := &cpmmPoolLayout{}
		if err := layout.Decode(v.Account.Data.GetBinary()); err != nil {
			continue
		}
		res = append(res, registry.PoolMetadata{
			PoolID:    v.Pubkey.String(),
			ProgramID: pkg.RAYDIUM_CPMM_PROGRAM_ID.String(),
			MintA:     layout.Token0Mint.String(),
			MintB:     layout.Token1Mint.String(),
			VaultA:    layout.Token0Vault.String(),
			VaultB:    layout.Token1Vault.String(),
			Authority: authority.String(),
			AdditionalAccounts: []string{
				layout.AmmConfig.String(),
				layout.ObservationKey.String(),
			},
		})
	}
	return res, nil
}
