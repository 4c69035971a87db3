package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/solana-zh/solmirror/pkg/config"
	"github.com/solana-zh/solmirror/pkg/executor"
	"github.com/solana-zh/solmirror/pkg/journal"
	"github.com/solana-zh/solmirror/pkg/monitor"
	"github.com/solana-zh/solmirror/pkg/parser"
	"github.com/solana-zh/solmirror/pkg/registry"
	"github.com/solana-zh/solmirror/pkg/sol"
	"go.uber.org/zap"
)

var (
	configPath = flag.String("config", "config.json", "path to the JSON config file")
	poolsDir   = flag.String("pools", ".", "directory holding the pool snapshot files")

	// requests per second against the chain RPC endpoint
	rpcRateLimit = 20

	jitoTipLamports = uint64(1_000_000)
)

func main() {
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("config load failed", zap.Error(err))
	}
	wallet := cfg.FollowerKey()
	log.Info("follower wallet loaded", zap.String("pubkey", wallet.PublicKey().String()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	solClient, err := sol.NewClient(ctx, cfg.RpcURL, cfg.JitoURL, rpcRateLimit)
	if err != nil {
		log.Fatal("chain client setup failed", zap.Error(err))
	}

	// The follower must hold enough wrapped SOL before mirroring starts.
	_, wsolBalance, err := solClient.GetUserTokenBalance(ctx, wallet.PublicKey(), sol.WSOL)
	if err != nil && err.Error() != "no token account found" {
		log.Fatal("wsol balance check failed", zap.Error(err))
	}
	if floor := config.Lamports(cfg.MinWsolBalance); wsolBalance < floor {
		log.Error("follower wsol balance below floor, top it up before starting",
			zap.Uint64("balance", wsolBalance),
			zap.Uint64("floor", floor))
		os.Exit(1)
	}
	log.Info("follower wsol balance ok", zap.Uint64("balance", wsolBalance))

	reg := registry.Load(*poolsDir)
	amm, cpmm, curve := reg.Size()
	log.Info("pool snapshots loaded",
		zap.Int("raydium_amm", amm),
		zap.Int("raydium_cpmm", cpmm),
		zap.Int("bonding_curve", curve))

	jnl, err := journal.Open(cfg.JournalPath, log)
	if err != nil {
		log.Fatal("journal open failed", zap.Error(err))
	}
	defer jnl.Close()

	exec := executor.New(solClient, wallet, executor.Config{
		Enabled:           cfg.Trading.Enabled,
		MinTradeLamports:  config.Lamports(cfg.Trading.MinTradeAmount),
		MaxTradeLamports:  config.Lamports(cfg.Trading.MaxTradeAmount),
		SlippageTolerance: cfg.Trading.SlippageTolerance,
		JitoTipLamports:   jitoTipLamports,
	}, reg, log)

	p := parser.New(reg, cfg.LeaderWallets)
	mon := monitor.New(cfg.StreamEndpoint, cfg.StreamAuthToken, cfg.LeaderWallets, p, jnl, exec, log)

	if err := mon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("monitor stopped", zap.Error(err))
	}
	log.Info("shutdown complete")
}
