package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/solana-zh/solmirror/pkg/registry"
	"github.com/solana-zh/solmirror/pkg/sol"
)

// Fetcher pulls pool accounts through the rate-limited chain client.
type Fetcher struct {
	SolClient *sol.Client
}

func NewFetcher(solClient *sol.Client) *Fetcher {
	return &Fetcher{SolClient: solClient}
}

// WriteSnapshots stores the three registry snapshot files in dir.
func WriteSnapshots(dir string, amm, cpmm, pump []registry.PoolMetadata) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	files := []struct {
		name  string
		pools []registry.PoolMetadata
	}{
		{registry.AmmSnapshotFile, amm},
		{registry.CpmmSnapshotFile, cpmm},
		{registry.PumpSnapshotFile, pump},
	}
	for _, f := range files {
		if f.pools == nil {
			f.pools = []registry.PoolMetadata{}
		}
		data, err := json.MarshalIndent(f.pools, "", "  ")
		if err != nil {
			return fmt.Errorf("encode %s: %w", f.name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, f.name), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	return nil
}
