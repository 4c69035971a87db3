// fetchpools refreshes the pool snapshot files the engine's registry loads:
// it scans the chain for AMM V4 and CPMM pools pairing each given mint with
// wrapped SOL, derives the bonding-curve accounts per mint, and writes the
// three JSON files.
package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"github.com/solana-zh/solmirror/pkg/config"
	"github.com/solana-zh/solmirror/pkg/registry"
	"github.com/solana-zh/solmirror/pkg/snapshot"
	"github.com/solana-zh/solmirror/pkg/sol"
)

var (
	configPath = flag.String("config", "config.json", "path to the JSON config file")
	outDir     = flag.String("out", ".", "directory to write the snapshot files into")
	mintList   = flag.String("mints", "", "comma-separated token mints to index against wrapped SOL")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	mints := splitMints(*mintList)
	if len(mints) == 0 {
		log.Fatal("no mints given; pass -mints mint1,mint2,...")
	}

	ctx := context.Background()
	solClient, err := sol.NewClient(ctx, cfg.RpcURL, "", 10)
	if err != nil {
		log.Fatalf("failed to create chain client: %v", err)
	}
	fetcher := snapshot.NewFetcher(solClient)

	var ammPools, cpmmPools []registry.PoolMetadata
	for _, mint := range mints {
		amm, err := fetcher.FetchRaydiumAmm(ctx, mint, sol.WSOL.String())
		if err != nil {
			log.Printf("amm scan failed for %s: %v", mint, err)
		} else {
			ammPools = append(ammPools, amm...)
		}

		cpmm, err := fetcher.FetchRaydiumCpmm(ctx, mint, sol.WSOL.String())
		if err != nil {
			log.Printf("cpmm scan failed for %s: %v", mint, err)
		} else {
			cpmmPools = append(cpmmPools, cpmm...)
		}
	}

	pumpPools, err := snapshot.BuildPumpEntries(mints)
	if err != nil {
		log.Fatalf("failed to derive bonding-curve entries: %v", err)
	}

	if err := snapshot.WriteSnapshots(*outDir, ammPools, cpmmPools, pumpPools); err != nil {
		log.Fatalf("failed to write snapshots: %v", err)
	}
	log.Printf("wrote %d amm, %d cpmm, %d bonding-curve pools to %s",
		len(ammPools), len(cpmmPools), len(pumpPools), *outDir)
}

func splitMints(list string) []string {
	var mints []string
	for _, m := range strings.Split(list, ",") {
		m = strings.TrimSpace(m)
		if m != "" {
			mints = append(mints, m)
		}
	}
	return mints
}
