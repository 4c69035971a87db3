package executor

import (
	"context"
	"fmt"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/solana-zh/solmirror/pkg"
	"github.com/solana-zh/solmirror/pkg/sol"
)

// feeReserveLamports stays unwrapped so the follower can still pay network
// fees after provisioning WSOL.
const feeReserveLamports = 5_000_000

// tradePlan is the gate's output: the exact swap arguments and the follower
// token accounts the builder will reference.
type tradePlan struct {
	amountIn       math.Int
	limit          math.Int
	userInAccount  solana.PublicKey
	userOutAccount solana.PublicKey
}

// gate applies the pre-trade checks in order: enablement, size clamp,
// sell-side balance, wrapped-native provisioning, token account existence.
// A non-nil ExecutedTrade means the trade was skipped with that record.
func (e *Executor) gate(ctx context.Context, trade *pkg.Trade) (*tradePlan, *pkg.ExecutedTrade) {
	if !e.cfg.Enabled {
		return nil, skipped(trade, "execution disabled")
	}

	leaderNative := trade.AmountIn
	if trade.Direction == pkg.DirectionSell {
		leaderNative = trade.AmountOut
	}

	native := leaderNative
	switch {
	case e.cfg.MinTradeLamports == e.cfg.MaxTradeLamports && e.cfg.MinTradeLamports > 0:
		// forced size
		native = e.cfg.MinTradeLamports
	case native < e.cfg.MinTradeLamports:
		return nil, skipped(trade, fmt.Sprintf("risk rejected: trade size %d below minimum %d lamports",
			native, e.cfg.MinTradeLamports))
	case e.cfg.MaxTradeLamports > 0 && native > e.cfg.MaxTradeLamports:
		return nil, skipped(trade, fmt.Sprintf("risk rejected: trade size %d above maximum %d lamports",
			native, e.cfg.MaxTradeLamports))
	}

	plan := &tradePlan{}
	isPump := trade.Protocol == pkg.ProtocolPumpFun

	if trade.Direction == pkg.DirectionBuy {
		expectedOut := scaleByNative(trade.AmountOut, native, leaderNative)
		if isPump {
			// bonding-curve buys name the token amount and cap the native
			// cost
			plan.amountIn = expectedOut
			plan.limit = applySlippageUp(math.NewIntFromUint64(native), e.cfg.SlippageTolerance)
		} else {
			plan.amountIn = math.NewIntFromUint64(native)
			plan.limit = applySlippageDown(expectedOut, e.cfg.SlippageTolerance)
		}
	} else {
		tokenAmount := scaleByNative(trade.AmountIn, native, leaderNative)
		plan.amountIn = tokenAmount
		plan.limit = applySlippageDown(math.NewIntFromUint64(native), e.cfg.SlippageTolerance)

		_, balance, err := e.client.GetUserTokenBalance(ctx, e.wallet.PublicKey(), trade.TokenIn.Mint)
		if err != nil && err.Error() != "no token account found" {
			return nil, skipped(trade, fmt.Sprintf("risk rejected: token balance query: %v", err))
		}
		if balance < tokenAmount.Uint64() {
			return nil, skipped(trade, fmt.Sprintf("risk rejected: token balance %d below required %d",
				balance, tokenAmount.Uint64()))
		}
	}

	// Bonding-curve trades move native lamports directly; only the two-sided
	// pools spend from the WSOL token account.
	if !isPump && trade.TokenIn.Mint.Equals(sol.WSOL) {
		if rec := e.provisionWsol(ctx, trade, native); rec != nil {
			return nil, rec
		}
	}

	var err error
	if isPump {
		tokenMint := trade.TokenIn.Mint
		if trade.Direction == pkg.DirectionBuy {
			tokenMint = trade.TokenOut.Mint
		}
		ata, err := e.client.SelectOrCreateSPLTokenAccount(ctx, e.wallet, tokenMint)
		if err != nil {
			return nil, skipped(trade, fmt.Sprintf("token account setup: %v", err))
		}
		plan.userInAccount, plan.userOutAccount = ata, ata
		return plan, nil
	}

	plan.userInAccount, err = e.client.SelectOrCreateSPLTokenAccount(ctx, e.wallet, trade.TokenIn.Mint)
	if err != nil {
		return nil, skipped(trade, fmt.Sprintf("input token account setup: %v", err))
	}
	plan.userOutAccount, err = e.client.SelectOrCreateSPLTokenAccount(ctx, e.wallet, trade.TokenOut.Mint)
	if err != nil {
		return nil, skipped(trade, fmt.Sprintf("output token account setup: %v", err))
	}
	return plan, nil
}

// provisionWsol tops the follower's WSOL account up to the required size,
// wrapping the shortfall from the base account.
func (e *Executor) provisionWsol(ctx context.Context, trade *pkg.Trade, required uint64) *pkg.ExecutedTrade {
	_, balance, err := e.client.GetUserTokenBalance(ctx, e.wallet.PublicKey(), sol.WSOL)
	if err != nil && err.Error() != "no token account found" {
		return skipped(trade, fmt.Sprintf("wsol balance query: %v", err))
	}
	if balance >= required {
		return nil
	}
	shortfall := required - balance

	base, err := e.client.GetBalance(ctx, e.wallet.PublicKey(), rpc.CommitmentConfirmed)
	if err != nil {
		return skipped(trade, fmt.Sprintf("base balance query: %v", err))
	}
	if base.Value < shortfall+feeReserveLamports {
		return skipped(trade, fmt.Sprintf("wrap native failed: base balance %d below shortfall %d plus fee reserve",
			base.Value, shortfall))
	}
	if err := e.client.CoverWsol(ctx, e.wallet, int64(shortfall)); err != nil {
		return skipped(trade, fmt.Sprintf("wrap native failed: %v", err))
	}
	return nil
}
