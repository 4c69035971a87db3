// Package swap builds the per-protocol mirror swap instructions. Account
// meta order in each builder matches the on-chain program exactly; any
// reordering is rejected by the program.
package swap

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"cosmossdk.io/math"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/solana-zh/solmirror/pkg"
	"github.com/solana-zh/solmirror/pkg/registry"
)

// AmmV4Builder assembles Raydium AMM V4 swap-base-in instructions.
type AmmV4Builder struct {
	Registry *registry.Registry
}

func NewAmmV4Builder(reg *registry.Registry) *AmmV4Builder {
	return &AmmV4Builder{Registry: reg}
}

func (b *AmmV4Builder) Protocol() pkg.Protocol {
	return pkg.ProtocolRaydiumAmmV4
}

// ammV4Accounts is the pool-side account set of a V4 swap, either from the
// registry snapshot or recovered from the leader transaction's key order.
type ammV4Accounts struct {
	ammID        solana.PublicKey
	authority    solana.PublicKey
	openOrders   solana.PublicKey
	targetOrders solana.PublicKey
	poolCoin     solana.PublicKey
	poolPc       solana.PublicKey
	serumProgram solana.PublicKey
	serumMarket  solana.PublicKey
	serumBids    solana.PublicKey
	serumAsks    solana.PublicKey
	serumEvents  solana.PublicKey
	serumCoin    solana.PublicKey
	serumPc      solana.PublicKey
	vaultSigner  solana.PublicKey
}

func (b *AmmV4Builder) resolveAccounts(trade *pkg.Trade) (*ammV4Accounts, error) {
	if meta, ok := b.Registry.AmmByPool(trade.PoolID.String()); ok && len(meta.AdditionalAccounts) >= 10 {
		keys := append([]string{meta.PoolID, meta.Authority, meta.VaultA, meta.VaultB}, meta.AdditionalAccounts...)
		pks := make([]solana.PublicKey, len(keys))
		for i, k := range keys {
			pk, err := solana.PublicKeyFromBase58(k)
			if err != nil {
				return nil, fmt.Errorf("bad snapshot account %q for pool %s: %w", k, meta.PoolID, err)
			}
			pks[i] = pk
		}
		return &ammV4Accounts{
			ammID: pks[0], authority: pks[1], poolCoin: pks[2], poolPc: pks[3],
			openOrders: pks[4], targetOrders: pks[5],
			serumProgram: pks[6], serumMarket: pks[7], serumBids: pks[8], serumAsks: pks[9],
			serumEvents: pks[10], serumCoin: pks[11], serumPc: pks[12], vaultSigner: pks[13],
		}, nil
	}

	// No snapshot: the leader transaction's key list mirrors the swap's
	// instruction account order after the fee payer, so lift the pool-side
	// accounts from there.
	if len(trade.AccountKeys) < 15 {
		return nil, fmt.Errorf("pool %s not in snapshot and leader transaction carries only %d keys",
			trade.PoolID.String(), len(trade.AccountKeys))
	}
	pks := make([]solana.PublicKey, 15)
	for i := 1; i < 15; i++ {
		pk, err := solana.PublicKeyFromBase58(trade.AccountKeys[i])
		if err != nil {
			return nil, fmt.Errorf("bad leader account key %q: %w", trade.AccountKeys[i], err)
		}
		pks[i] = pk
	}
	return &ammV4Accounts{
		ammID: pks[1], authority: pks[2], openOrders: pks[3], targetOrders: pks[4],
		poolCoin: pks[5], poolPc: pks[6],
		serumProgram: pks[7], serumMarket: pks[8], serumBids: pks[9], serumAsks: pks[10],
		serumEvents: pks[11], serumCoin: pks[12], serumPc: pks[13], vaultSigner: pks[14],
	}, nil
}

func (b *AmmV4Builder) BuildSwapInstructions(
	trade *pkg.Trade,
	user solana.PublicKey,
	userInAccount solana.PublicKey,
	userOutAccount solana.PublicKey,
	amountIn math.Int,
	limit math.Int,
) ([]solana.Instruction, error) {
	accounts, err := b.resolveAccounts(trade)
	if err != nil {
		return nil, err
	}

	inst := AmmV4SwapInstruction{
		programID:        trade.ProgramID,
		InAmount:         amountIn.Uint64(),
		MinimumOutAmount: limit.Uint64(),
		AccountMetaSlice: make(solana.AccountMetaSlice, 19),
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}

	inst.AccountMetaSlice[0] = solana.NewAccountMeta(user, true, true)
	inst.AccountMetaSlice[1] = solana.NewAccountMeta(userInAccount, true, false)
	inst.AccountMetaSlice[2] = solana.NewAccountMeta(userOutAccount, true, false)
	inst.AccountMetaSlice[3] = solana.NewAccountMeta(accounts.ammID, true, false)
	inst.AccountMetaSlice[4] = solana.NewAccountMeta(accounts.authority, false, false)
	inst.AccountMetaSlice[5] = solana.NewAccountMeta(accounts.openOrders, true, false)
	inst.AccountMetaSlice[6] = solana.NewAccountMeta(accounts.targetOrders, true, false)
	inst.AccountMetaSlice[7] = solana.NewAccountMeta(accounts.poolCoin, true, false)
	inst.AccountMetaSlice[8] = solana.NewAccountMeta(accounts.poolPc, true, false)
	inst.AccountMetaSlice[9] = solana.NewAccountMeta(accounts.serumProgram, false, false)
	inst.AccountMetaSlice[10] = solana.NewAccountMeta(accounts.serumMarket, true, false)
	inst.AccountMetaSlice[11] = solana.NewAccountMeta(accounts.serumBids, true, false)
	inst.AccountMetaSlice[12] = solana.NewAccountMeta(accounts.serumAsks, true, false)
	inst.AccountMetaSlice[13] = solana.NewAccountMeta(accounts.serumEvents, true, false)
	inst.AccountMetaSlice[14] = solana.NewAccountMeta(accounts.serumCoin, true, false)
	inst.AccountMetaSlice[15] = solana.NewAccountMeta(accounts.serumPc, true, false)
	inst.AccountMetaSlice[16] = solana.NewAccountMeta(accounts.vaultSigner, false, false)
	inst.AccountMetaSlice[17] = solana.NewAccountMeta(solana.TokenProgramID, false, false)
	inst.AccountMetaSlice[18] = solana.NewAccountMeta(solana.SysVarRentPubkey, false, false)

	return []solana.Instruction{&inst}, nil
}

// AmmV4SwapInstruction is the swap-base-in instruction: tag byte 9 followed
// by the little-endian amount and minimum-out.
type AmmV4SwapInstruction struct {
	bin.BaseVariant
	InAmount                uint64
	MinimumOutAmount        uint64
	programID               solana.PublicKey
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func (inst *AmmV4SwapInstruction) ProgramID() solana.PublicKey {
	if inst.programID.IsZero() {
		return pkg.RAYDIUM_AMM_PROGRAM_ID
	}
	return inst.programID
}

func (inst *AmmV4SwapInstruction) Accounts() (out []*solana.AccountMeta) {
	return inst.AccountMetaSlice
}

func (inst *AmmV4SwapInstruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(inst); err != nil {
		return nil, fmt.Errorf("unable to encode instruction: %w", err)
	}
	return buf.Bytes(), nil
}

func (inst *AmmV4SwapInstruction) MarshalWithEncoder(encoder *bin.Encoder) (err error) {
	// Swap instruction is number 9
	err = encoder.WriteUint8(pkg.RaydiumAmmSwapInstruction)
	if err != nil {
		return err
	}
	err = encoder.WriteUint64(inst.InAmount, binary.LittleEndian)
	if err != nil {
		return err
	}
	err = encoder.WriteUint64(inst.MinimumOutAmount, binary.LittleEndian)
	if err != nil {
		return err
	}
	return nil
}
