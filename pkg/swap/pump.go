package swap

import (
	"encoding/binary"
	"fmt"

	"cosmossdk.io/math"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/solana-zh/solmirror/pkg"
	"github.com/solana-zh/solmirror/pkg/registry"
)

// Slots inside the leader's key list the bonding-curve layout pins down.
const (
	pumpFeeRecipientIndex   = 1
	pumpMintIndex           = 2
	pumpBondingCurveIndex   = 3
	pumpAssocCurveIndex     = 4
	pumpEventAuthorityIndex = 10
)

// PumpBuilder assembles bonding-curve buy/sell instructions.
type PumpBuilder struct {
	Registry *registry.Registry
}

func NewPumpBuilder(reg *registry.Registry) *PumpBuilder {
	return &PumpBuilder{Registry: reg}
}

func (b *PumpBuilder) Protocol() pkg.Protocol {
	return pkg.ProtocolPumpFun
}

func (b *PumpBuilder) BuildSwapInstructions(
	trade *pkg.Trade,
	user solana.PublicKey,
	userInAccount solana.PublicKey,
	userOutAccount solana.PublicKey,
	amountIn math.Int,
	limit math.Int,
) ([]solana.Instruction, error) {
	if len(trade.AccountKeys) <= pumpEventAuthorityIndex {
		return nil, fmt.Errorf("bonding-curve trade carries only %d account keys", len(trade.AccountKeys))
	}

	feeRecipient, err := solana.PublicKeyFromBase58(trade.AccountKeys[pumpFeeRecipientIndex])
	if err != nil {
		return nil, fmt.Errorf("bad fee recipient: %w", err)
	}
	mint, err := solana.PublicKeyFromBase58(trade.AccountKeys[pumpMintIndex])
	if err != nil {
		return nil, fmt.Errorf("bad mint: %w", err)
	}
	bondingCurve, err := solana.PublicKeyFromBase58(trade.AccountKeys[pumpBondingCurveIndex])
	if err != nil {
		return nil, fmt.Errorf("bad bonding curve: %w", err)
	}
	assocCurve, err := solana.PublicKeyFromBase58(trade.AccountKeys[pumpAssocCurveIndex])
	if err != nil {
		return nil, fmt.Errorf("bad associated bonding curve: %w", err)
	}
	eventAuthority, err := solana.PublicKeyFromBase58(trade.AccountKeys[pumpEventAuthorityIndex])
	if err != nil {
		return nil, fmt.Errorf("bad event authority: %w", err)
	}

	// The curve holds the token side; the native side moves as lamports, so
	// only one user token account participates.
	instructionType := pkg.PumpBuyInstruction
	userTokenAccount := userOutAccount
	if trade.Direction == pkg.DirectionSell {
		instructionType = pkg.PumpSellInstruction
		userTokenAccount = userInAccount
	}

	programID := trade.ProgramID
	if programID.IsZero() {
		programID = pkg.PUMP_FUN_PROGRAM_ID
	}

	inst := PumpSwapInstruction{
		programID:       programID,
		InstructionType: instructionType,
		Amount:          amountIn.Uint64(),
		Limit:           limit.Uint64(),
		AccountMetaSlice: solana.AccountMetaSlice{
			solana.NewAccountMeta(user, true, true),
			solana.NewAccountMeta(feeRecipient, true, false),
			solana.NewAccountMeta(mint, false, false),
			solana.NewAccountMeta(bondingCurve, true, false),
			solana.NewAccountMeta(assocCurve, true, false),
			solana.NewAccountMeta(userTokenAccount, true, false),
			solana.NewAccountMeta(user, true, true),
			solana.NewAccountMeta(solana.SystemProgramID, false, false),
			solana.NewAccountMeta(solana.TokenProgramID, false, false),
			solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
			solana.NewAccountMeta(eventAuthority, false, false),
			solana.NewAccountMeta(programID, false, false),
		},
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}

	return []solana.Instruction{&inst}, nil
}

// PumpSwapInstruction is the bonding-curve call: one tag byte, the token
// amount, and the native-cost limit, all little-endian.
type PumpSwapInstruction struct {
	bin.BaseVariant
	InstructionType         uint8
	Amount                  uint64
	Limit                   uint64
	programID               solana.PublicKey
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func (inst *PumpSwapInstruction) ProgramID() solana.PublicKey {
	return inst.programID
}

func (inst *PumpSwapInstruction) Accounts() (out []*solana.AccountMeta) {
	return inst.AccountMetaSlice
}

func (inst *PumpSwapInstruction) Data() ([]byte, error) {
	data := make([]byte, 17)
	data[0] = inst.InstructionType
	binary.LittleEndian.PutUint64(data[1:9], inst.Amount)
	binary.LittleEndian.PutUint64(data[9:17], inst.Limit)
	return data, nil
}
