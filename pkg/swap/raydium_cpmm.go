package swap

import (
	"encoding/binary"
	"fmt"

	"cosmossdk.io/math"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/solana-zh/solmirror/pkg"
	"github.com/solana-zh/solmirror/pkg/registry"
	"github.com/solana-zh/solmirror/pkg/sol"
)

// cpmmCoreAccounts is the number of fixed slots in a swap_base_input call.
// After them, every key of the leader transaction's account list that is not
// already present, not a well-known program, sysvar or the WSOL mint, and not
// the leader wallet is appended read-only in the observed order; the leader
// instruction's own account list is not consulted.
const cpmmCoreAccounts = 13

// CpmmBuilder assembles Raydium CPMM swap_base_input instructions.
type CpmmBuilder struct {
	Registry *registry.Registry
}

func NewCpmmBuilder(reg *registry.Registry) *CpmmBuilder {
	return &CpmmBuilder{Registry: reg}
}

func (b *CpmmBuilder) Protocol() pkg.Protocol {
	return pkg.ProtocolRaydiumCpmm
}

func (b *CpmmBuilder) BuildSwapInstructions(
	trade *pkg.Trade,
	user solana.PublicKey,
	userInAccount solana.PublicKey,
	userOutAccount solana.PublicKey,
	amountIn math.Int,
	limit math.Int,
) ([]solana.Instruction, error) {
	meta, ok := b.Registry.CpmmByPool(trade.PoolID.String())
	if !ok {
		return nil, fmt.Errorf("cpmm pool %s not in snapshot", trade.PoolID.String())
	}
	if len(meta.AdditionalAccounts) < 2 {
		return nil, fmt.Errorf("cpmm pool %s snapshot misses amm_config/observation accounts", meta.PoolID)
	}

	ammConfig, err := solana.PublicKeyFromBase58(meta.AdditionalAccounts[0])
	if err != nil {
		return nil, fmt.Errorf("bad amm_config for pool %s: %w", meta.PoolID, err)
	}
	observation, err := solana.PublicKeyFromBase58(meta.AdditionalAccounts[1])
	if err != nil {
		return nil, fmt.Errorf("bad observation_state for pool %s: %w", meta.PoolID, err)
	}

	// Orient vaults and mints by the traded input mint.
	inputVault, err := solana.PublicKeyFromBase58(meta.VaultA)
	if err != nil {
		return nil, fmt.Errorf("bad vault_a for pool %s: %w", meta.PoolID, err)
	}
	outputVault, err := solana.PublicKeyFromBase58(meta.VaultB)
	if err != nil {
		return nil, fmt.Errorf("bad vault_b for pool %s: %w", meta.PoolID, err)
	}
	if trade.TokenIn.Mint.String() != meta.MintA {
		inputVault, outputVault = outputVault, inputVault
	}

	authority := pkg.RAYDIUM_CPMM_AUTHORITY
	if meta.Authority != "" {
		authority, err = solana.PublicKeyFromBase58(meta.Authority)
		if err != nil {
			return nil, fmt.Errorf("bad authority for pool %s: %w", meta.PoolID, err)
		}
	}

	inst := CpmmSwapInstruction{
		programID:        trade.ProgramID,
		InAmount:         amountIn.Uint64(),
		MinimumOutAmount: limit.Uint64(),
		AccountMetaSlice: make(solana.AccountMetaSlice, 0, cpmmCoreAccounts),
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}

	inst.AccountMetaSlice = append(inst.AccountMetaSlice,
		solana.NewAccountMeta(user, true, true),                    // payer
		solana.NewAccountMeta(userInAccount, true, false),          // input_token_account
		solana.NewAccountMeta(userOutAccount, true, false),         // output_token_account
		solana.NewAccountMeta(trade.PoolID, true, false),           // pool_state
		solana.NewAccountMeta(authority, false, false),             // authority
		solana.NewAccountMeta(ammConfig, false, false),             // amm_config
		solana.NewAccountMeta(observation, false, false),           // observation_state
		solana.NewAccountMeta(inputVault, true, false),             // input_vault
		solana.NewAccountMeta(outputVault, true, false),            // output_vault
		solana.NewAccountMeta(solana.TokenProgramID, false, false), // input_token_program
		solana.NewAccountMeta(solana.TokenProgramID, false, false), // output_token_program
		solana.NewAccountMeta(trade.TokenIn.Mint, false, false),    // input_token_mint
		solana.NewAccountMeta(trade.TokenOut.Mint, false, false),   // output_token_mint
	)

	// Any further accounts the leader's transaction referenced ride along
	// read-only in the observed order.
	seen := make(map[string]struct{}, len(inst.AccountMetaSlice))
	for _, m := range inst.AccountMetaSlice {
		seen[m.PublicKey.String()] = struct{}{}
	}
	for _, k := range trade.AccountKeys {
		if _, dup := seen[k]; dup {
			continue
		}
		if isWellKnownAccount(k) || k == trade.LeaderWallet.String() {
			continue
		}
		pk, err := solana.PublicKeyFromBase58(k)
		if err != nil {
			continue
		}
		seen[k] = struct{}{}
		inst.AccountMetaSlice = append(inst.AccountMetaSlice, solana.NewAccountMeta(pk, false, false))
	}

	return []solana.Instruction{&inst}, nil
}

var wellKnownAccounts = map[string]struct{}{
	solana.SystemProgramID.String():                    {},
	solana.TokenProgramID.String():                     {},
	solana.Token2022ProgramID.String():                 {},
	solana.SPLAssociatedTokenAccountProgramID.String(): {},
	solana.SysVarRentPubkey.String():                   {},
	solana.ComputeBudget.String():                      {},
	sol.WSOL.String():                                  {},
	pkg.RAYDIUM_AMM_PROGRAM_ID.String():                {},
	pkg.RAYDIUM_CPMM_PROGRAM_ID.String():               {},
	pkg.RAYDIUM_CLMM_PROGRAM_ID.String():               {},
	pkg.PUMP_FUN_PROGRAM_ID.String():                   {},
}

func isWellKnownAccount(key string) bool {
	_, ok := wellKnownAccounts[key]
	return ok
}

// CpmmSwapInstruction re-encodes the swap_base_input call: the 8-byte anchor
// discriminator followed by the little-endian amount_in and
// minimum_amount_out.
type CpmmSwapInstruction struct {
	bin.BaseVariant
	InAmount                uint64
	MinimumOutAmount        uint64
	programID               solana.PublicKey
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func (inst *CpmmSwapInstruction) ProgramID() solana.PublicKey {
	if inst.programID.IsZero() {
		return pkg.RAYDIUM_CPMM_PROGRAM_ID
	}
	return inst.programID
}

func (inst *CpmmSwapInstruction) Accounts() (out []*solana.AccountMeta) {
	return inst.AccountMetaSlice
}

func (inst *CpmmSwapInstruction) Data() ([]byte, error) {
	data := make([]byte, 24)
	copy(data[0:8], pkg.SwapBaseInputDiscriminator)
	binary.LittleEndian.PutUint64(data[8:16], inst.InAmount)
	binary.LittleEndian.PutUint64(data[16:24], inst.MinimumOutAmount)
	return data, nil
}
