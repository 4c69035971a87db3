// Package registry holds the in-memory pool metadata index loaded from the
// JSON snapshot files written by the fetchpools tool.
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/solana-zh/solmirror/pkg"
)

// Snapshot file names, relative to the snapshot directory.
const (
	AmmSnapshotFile  = "raydium_amm_pools.json"
	CpmmSnapshotFile = "raydium_cpmm_pools.json"
	PumpSnapshotFile = "pump_pools.json"
)

// PoolMetadata describes one pool. Immutable after load.
//
// AdditionalAccounts carries the protocol-specific tail in a fixed order:
// for AMM V4 pools it is [open_orders, target_orders, serum_program,
// serum_market, serum_bids, serum_asks, serum_event_queue, serum_coin_vault,
// serum_pc_vault, serum_vault_signer]; for CPMM pools it is
// [amm_config, observation_state]; bonding-curve entries carry
// [assoc_bonding_curve].
type PoolMetadata struct {
	PoolID             string   `json:"pool_id"`
	ProgramID          string   `json:"program_id,omitempty"`
	MintA              string   `json:"mint_a"`
	MintB              string   `json:"mint_b,omitempty"`
	VaultA             string   `json:"vault_a,omitempty"`
	VaultB             string   `json:"vault_b,omitempty"`
	Authority          string   `json:"authority,omitempty"`
	AdditionalAccounts []string `json:"additional_accounts,omitempty"`

	Protocol pkg.Protocol `json:"-"`
}

// Registry indexes pool metadata per protocol family. Read-only after Load;
// safe for concurrent use without locking.
type Registry struct {
	ammByPool   map[string]PoolMetadata
	cpmmByPool  map[string]PoolMetadata
	curveByMint map[string]PoolMetadata
}

// Load reads the three snapshot files from dir. A missing or malformed file
// yields an empty index for that family; downstream code falls back to the
// hard-coded program IDs.
func Load(dir string) *Registry {
	r := &Registry{
		ammByPool:   make(map[string]PoolMetadata),
		cpmmByPool:  make(map[string]PoolMetadata),
		curveByMint: make(map[string]PoolMetadata),
	}
	for _, p := range loadFile(filepath.Join(dir, AmmSnapshotFile), pkg.ProtocolRaydiumAmmV4) {
		r.ammByPool[p.PoolID] = p
	}
	for _, p := range loadFile(filepath.Join(dir, CpmmSnapshotFile), pkg.ProtocolRaydiumCpmm) {
		r.cpmmByPool[p.PoolID] = p
	}
	for _, p := range loadFile(filepath.Join(dir, PumpSnapshotFile), pkg.ProtocolPumpFun) {
		r.curveByMint[p.MintA] = p
	}
	return r
}

func loadFile(path string, protocol pkg.Protocol) []PoolMetadata {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var pools []PoolMetadata
	if err := json.Unmarshal(data, &pools); err != nil {
		return nil
	}
	for i := range pools {
		pools[i].Protocol = protocol
	}
	return pools
}

// AmmByPool looks up an AMM V4 pool by its pool account.
func (r *Registry) AmmByPool(poolID string) (PoolMetadata, bool) {
	p, ok := r.ammByPool[poolID]
	return p, ok
}

// CpmmByPool looks up a CPMM pool by its pool-state account.
func (r *Registry) CpmmByPool(poolID string) (PoolMetadata, bool) {
	p, ok := r.cpmmByPool[poolID]
	return p, ok
}

// CurveByMint looks up a bonding-curve entry by token mint.
func (r *Registry) CurveByMint(mint string) (PoolMetadata, bool) {
	p, ok := r.curveByMint[mint]
	return p, ok
}

// Size returns the number of pools loaded per family.
func (r *Registry) Size() (amm, cpmm, curve int) {
	return len(r.ammByPool), len(r.cpmmByPool), len(r.curveByMint)
}
