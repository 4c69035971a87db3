// Package executor mirrors leader trades from the follower wallet: risk
// gating, wrapped-native provisioning, instruction assembly, one submission
// attempt.
package executor

import (
	"context"
	"fmt"
	"time"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/solana-zh/solmirror/pkg"
	"github.com/solana-zh/solmirror/pkg/registry"
	"github.com/solana-zh/solmirror/pkg/sol"
	"github.com/solana-zh/solmirror/pkg/swap"
	"go.uber.org/zap"
)

// Config carries the trading policy, with the size bounds already converted
// to lamports.
type Config struct {
	Enabled           bool
	MinTradeLamports  uint64
	MaxTradeLamports  uint64
	SlippageTolerance float64
	JitoTipLamports   uint64
}

// Executor is a cheap-to-share handle: all fields are read-only after New
// and the submission client synchronizes internally, so one value serves
// every spawned mirror task.
type Executor struct {
	client   ChainClient
	wallet   solana.PrivateKey
	cfg      Config
	builders map[pkg.Protocol]pkg.SwapBuilder
	log      *zap.Logger
}

func New(client ChainClient, wallet solana.PrivateKey, cfg Config, reg *registry.Registry, log *zap.Logger) *Executor {
	return &Executor{
		client: client,
		wallet: wallet,
		cfg:    cfg,
		builders: map[pkg.Protocol]pkg.SwapBuilder{
			pkg.ProtocolRaydiumAmmV4: swap.NewAmmV4Builder(reg),
			pkg.ProtocolRaydiumCpmm:  swap.NewCpmmBuilder(reg),
			pkg.ProtocolPumpFun:      swap.NewPumpBuilder(reg),
		},
		log: log,
	}
}

// ExecuteTrade runs the full mirror pipeline for one leader trade and always
// returns a record of the attempt. It never retries a submission.
func (e *Executor) ExecuteTrade(ctx context.Context, trade *pkg.Trade) *pkg.ExecutedTrade {
	plan, skip := e.gate(ctx, trade)
	if skip != nil {
		e.log.Warn("mirror skipped",
			zap.String("source", trade.Signature),
			zap.String("reason", skip.Error))
		return skip
	}

	builder, ok := e.builders[trade.Protocol]
	if !ok {
		return e.failed(trade, plan, fmt.Sprintf("unsupported protocol: %s", trade.Protocol))
	}

	instrs, err := builder.BuildSwapInstructions(trade, e.wallet.PublicKey(),
		plan.userInAccount, plan.userOutAccount, plan.amountIn, plan.limit)
	if err != nil {
		return e.failed(trade, plan, fmt.Sprintf("build instructions: %v", err))
	}

	signers := []solana.PrivateKey{e.wallet}
	tx, err := e.client.SignTransaction(ctx, signers, instrs...)
	if err != nil {
		return e.failed(trade, plan, fmt.Sprintf("sign transaction: %v", err))
	}

	var mirrorSig string
	if e.client.HasJito() {
		mirrorSig, err = e.client.SendTxWithJito(ctx, e.cfg.JitoTipLamports, signers, tx)
	} else {
		var sig solana.Signature
		sig, err = e.client.SendAndConfirmTx(ctx, tx)
		mirrorSig = sig.String()
	}
	if err != nil {
		return e.failed(trade, plan, fmt.Sprintf("submit: %v", err))
	}

	e.log.Info("mirror confirmed",
		zap.String("source", trade.Signature),
		zap.String("mirror", mirrorSig),
		zap.String("direction", string(trade.Direction)),
		zap.Uint64("amount_in", plan.amountIn.Uint64()))

	return &pkg.ExecutedTrade{
		SourceSignature: trade.Signature,
		MirrorSignature: mirrorSig,
		Direction:       trade.Direction,
		AmountIn:        plan.amountIn.Uint64(),
		AmountOut:       plan.limit.Uint64(),
		Success:         true,
		Timestamp:       time.Now().Unix(),
	}
}

func (e *Executor) failed(trade *pkg.Trade, plan *tradePlan, reason string) *pkg.ExecutedTrade {
	e.log.Error("mirror failed",
		zap.String("source", trade.Signature),
		zap.String("reason", reason))
	rec := &pkg.ExecutedTrade{
		SourceSignature: trade.Signature,
		Direction:       trade.Direction,
		Success:         false,
		Error:           reason,
		Timestamp:       time.Now().Unix(),
	}
	if plan != nil {
		rec.AmountIn = plan.amountIn.Uint64()
	}
	return rec
}

func skipped(trade *pkg.Trade, reason string) *pkg.ExecutedTrade {
	return &pkg.ExecutedTrade{
		SourceSignature: trade.Signature,
		Direction:       trade.Direction,
		AmountIn:        trade.AmountIn,
		AmountOut:       trade.AmountOut,
		Success:         false,
		Error:           reason,
		Timestamp:       time.Now().Unix(),
	}
}

// scaleByNative rescales one leg of the leader's fill to the follower's
// native trade size.
func scaleByNative(leaderAmount, followerNative, leaderNative uint64) math.Int {
	if leaderNative == 0 {
		return math.ZeroInt()
	}
	return math.NewIntFromUint64(leaderAmount).
		Mul(math.NewIntFromUint64(followerNative)).
		Quo(math.NewIntFromUint64(leaderNative))
}

func applySlippageDown(amount math.Int, tolerance float64) math.Int {
	bps := int64(tolerance * 10000)
	if bps < 0 {
		bps = 0
	}
	if bps > 10000 {
		bps = 10000
	}
	return amount.Mul(math.NewInt(10000 - bps)).Quo(math.NewInt(10000))
}

func applySlippageUp(amount math.Int, tolerance float64) math.Int {
	bps := int64(tolerance * 10000)
	if bps < 0 {
		bps = 0
	}
	return amount.Mul(math.NewInt(10000 + bps)).Quo(math.NewInt(10000))
}

var _ ChainClient = (*sol.Client)(nil)
