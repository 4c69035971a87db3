package snapshot

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/solana-zh/solmirror/pkg"
	"github.com/solana-zh/solmirror/pkg/registry"
)

// BondingCurveSeed derives the per-mint curve account.
const BondingCurveSeed = "bonding-curve"

// BuildPumpEntries derives the bonding-curve account set for each launchpad
// mint. The curve and its token vault are PDAs, so no chain scan is needed.
func BuildPumpEntries(mints []string) ([]registry.PoolMetadata, error) {
	res := make([]registry.PoolMetadata, 0, len(mints))
	for _, mint := range mints {
		mintPk, err := solana.PublicKeyFromBase58(mint)
		if err != nil {
			return nil, fmt.Errorf("invalid mint address %q: %w", mint, err)
		}

		curve, _, err := solana.FindProgramAddress(
			[][]byte{[]byte(BondingCurveSeed), mintPk.Bytes()},
			pkg.PUMP_FUN_PROGRAM_ID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to derive bonding curve for %s: %w", mint, err)
		}
		assocCurve, _, err := solana.FindAssociatedTokenAddress(curve, mintPk)
		if err != nil {
			return nil, fmt.Errorf("failed to derive curve token account for %s: %w", mint, err)
		}

		res = append(res, registry.PoolMetadata{
			PoolID:             curve.String(),
			ProgramID:          pkg.PUMP_FUN_PROGRAM_ID.String(),
			MintA:              mint,
			AdditionalAccounts: []string{assocCurve.String()},
		})
	}
	return res, nil
}
