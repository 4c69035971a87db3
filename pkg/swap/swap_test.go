package swap

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/solana-zh/solmirror/pkg"
	"github.com/solana-zh/solmirror/pkg/registry"
	"github.com/solana-zh/solmirror/pkg/sol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testUser    = solana.MustPublicKeyFromBase58("CuwxHwz42cNivJqWGBk6HcVvfGq47868Mo6zi4u6z9vC")
	testUserIn  = solana.MustPublicKeyFromBase58("GS4CU59F31iL7aR2Q8zVS8DRrcRnXX1yjQ66TqNVQnaR")
	testUserOut = solana.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	testPool    = solana.MustPublicKeyFromBase58("58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2")
	usdc        = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	filler      = solana.MustPublicKeyFromBase58("5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1")
)

func emptyRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	return registry.Load(filepath.Join(t.TempDir(), "absent"))
}

func buyTrade(protocol pkg.Protocol, keys []string) *pkg.Trade {
	return &pkg.Trade{
		Signature:    "sig",
		LeaderWallet: testUser,
		Protocol:     protocol,
		Direction:    pkg.DirectionBuy,
		TokenIn:      pkg.TokenRef{Mint: sol.WSOL, Decimals: 9},
		TokenOut:     pkg.TokenRef{Mint: usdc, Decimals: 6},
		AmountIn:     1_000_000_000,
		AmountOut:    25_000_000,
		Price:        0.04,
		PoolID:       testPool,
		AccountKeys:  keys,
	}
}

func fillerKeys(n int) []string {
	keys := make([]string, n)
	keys[0] = testUser.String()
	keys[1] = testPool.String()
	for i := 2; i < n; i++ {
		keys[i] = filler.String()
	}
	return keys
}

func TestAmmV4InstructionShape(t *testing.T) {
	b := NewAmmV4Builder(emptyRegistry(t))
	trade := buyTrade(pkg.ProtocolRaydiumAmmV4, fillerKeys(17))
	trade.ProgramID = pkg.RAYDIUM_AMM_PROGRAM_ID

	instrs, err := b.BuildSwapInstructions(trade, testUser, testUserIn, testUserOut,
		math.NewInt(1_000_000_000), math.NewInt(24_000_000))
	require.NoError(t, err)
	require.Len(t, instrs, 1)

	metas := instrs[0].Accounts()
	require.Len(t, metas, 19)
	assert.True(t, metas[0].IsSigner)
	assert.True(t, metas[0].IsWritable)
	assert.Equal(t, testUser, metas[0].PublicKey)
	assert.Equal(t, testUserIn, metas[1].PublicKey)
	assert.Equal(t, testUserOut, metas[2].PublicKey)
	assert.Equal(t, solana.TokenProgramID, metas[17].PublicKey)
	assert.Equal(t, solana.SysVarRentPubkey, metas[18].PublicKey)
	for i := 1; i < len(metas); i++ {
		assert.False(t, metas[i].IsSigner, "meta %d must not sign", i)
	}

	data, err := instrs[0].Data()
	require.NoError(t, err)
	require.Len(t, data, 17)
	assert.Equal(t, pkg.RaydiumAmmSwapInstruction, data[0])
	assert.Equal(t, uint64(1_000_000_000), binary.LittleEndian.Uint64(data[1:9]))
	assert.Equal(t, uint64(24_000_000), binary.LittleEndian.Uint64(data[9:17]))
}

func TestAmmV4RegistryAccountsPreferred(t *testing.T) {
	dir := t.TempDir()
	snapshot := `[{"pool_id":"` + testPool.String() + `",
		"mint_a":"` + sol.WSOL.String() + `","mint_b":"` + usdc.String() + `",
		"vault_a":"` + testUserIn.String() + `","vault_b":"` + testUserOut.String() + `",
		"authority":"` + filler.String() + `",
		"additional_accounts":["` + filler.String() + `","` + filler.String() + `","` + filler.String() + `","` + filler.String() + `","` + filler.String() + `","` + filler.String() + `","` + filler.String() + `","` + filler.String() + `","` + filler.String() + `","` + filler.String() + `"]}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, registry.AmmSnapshotFile), []byte(snapshot), 0o644))

	b := NewAmmV4Builder(registry.Load(dir))
	// only two account keys: the fallback path would fail, the registry
	// path must not need them
	trade := buyTrade(pkg.ProtocolRaydiumAmmV4, fillerKeys(2))

	instrs, err := b.BuildSwapInstructions(trade, testUser, testUserIn, testUserOut,
		math.NewInt(10), math.NewInt(1))
	require.NoError(t, err)
	metas := instrs[0].Accounts()
	require.Len(t, metas, 19)
	assert.Equal(t, testPool, metas[3].PublicKey)
	assert.Equal(t, testUserIn, metas[7].PublicKey)  // pool coin vault
	assert.Equal(t, testUserOut, metas[8].PublicKey) // pool pc vault
}

func TestAmmV4MissingPoolAccountsFails(t *testing.T) {
	b := NewAmmV4Builder(emptyRegistry(t))
	trade := buyTrade(pkg.ProtocolRaydiumAmmV4, fillerKeys(3))
	_, err := b.BuildSwapInstructions(trade, testUser, testUserIn, testUserOut, math.NewInt(1), math.NewInt(1))
	assert.Error(t, err)
}

func TestCpmmInstructionShape(t *testing.T) {
	dir := t.TempDir()
	snapshot := `[{"pool_id":"` + testPool.String() + `",
		"mint_a":"` + sol.WSOL.String() + `","mint_b":"` + usdc.String() + `",
		"vault_a":"` + testUserIn.String() + `","vault_b":"` + testUserOut.String() + `",
		"additional_accounts":["` + filler.String() + `","` + filler.String() + `"]}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, registry.CpmmSnapshotFile), []byte(snapshot), 0o644))

	b := NewCpmmBuilder(registry.Load(dir))
	trade := buyTrade(pkg.ProtocolRaydiumCpmm, fillerKeys(4))
	trade.ProgramID = pkg.RAYDIUM_CPMM_PROGRAM_ID

	instrs, err := b.BuildSwapInstructions(trade, testUser, testUserIn, testUserOut,
		math.NewInt(2_000_000_000), math.NewInt(100))
	require.NoError(t, err)
	metas := instrs[0].Accounts()
	require.GreaterOrEqual(t, len(metas), 13)

	assert.Equal(t, testUser, metas[0].PublicKey) // payer
	assert.True(t, metas[0].IsSigner)
	assert.Equal(t, testUserIn, metas[1].PublicKey)
	assert.Equal(t, testUserOut, metas[2].PublicKey)
	assert.Equal(t, testPool, metas[3].PublicKey)
	assert.Equal(t, pkg.RAYDIUM_CPMM_AUTHORITY, metas[4].PublicKey)
	assert.False(t, metas[4].IsWritable)
	assert.False(t, metas[5].IsWritable) // amm_config
	assert.False(t, metas[6].IsWritable) // observation_state
	assert.True(t, metas[7].IsWritable)  // input_vault
	assert.True(t, metas[8].IsWritable)  // output_vault
	assert.Equal(t, solana.TokenProgramID, metas[9].PublicKey)
	assert.Equal(t, solana.TokenProgramID, metas[10].PublicKey)
	assert.Equal(t, sol.WSOL, metas[11].PublicKey)
	assert.Equal(t, usdc, metas[12].PublicKey)
	for i := 1; i < len(metas); i++ {
		assert.False(t, metas[i].IsSigner, "meta %d must not sign", i)
	}

	// wsol is the input mint, so vault_a stays the input vault
	assert.Equal(t, testUserIn, metas[7].PublicKey)

	data, err := instrs[0].Data()
	require.NoError(t, err)
	require.Len(t, data, 24)
	assert.Equal(t, pkg.SwapBaseInputDiscriminator, data[0:8])
	assert.Equal(t, uint64(2_000_000_000), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint64(100), binary.LittleEndian.Uint64(data[16:24]))
}

func TestCpmmWithoutSnapshotFails(t *testing.T) {
	b := NewCpmmBuilder(emptyRegistry(t))
	trade := buyTrade(pkg.ProtocolRaydiumCpmm, fillerKeys(4))
	_, err := b.BuildSwapInstructions(trade, testUser, testUserIn, testUserOut, math.NewInt(1), math.NewInt(1))
	assert.Error(t, err)
}

func TestPumpInstructionShape(t *testing.T) {
	b := NewPumpBuilder(emptyRegistry(t))

	keys := fillerKeys(12)
	keys[2] = usdc.String()     // mint slot
	keys[3] = testPool.String() // bonding curve slot
	trade := buyTrade(pkg.ProtocolPumpFun, keys)
	trade.Direction = pkg.DirectionSell
	trade.TokenIn = pkg.TokenRef{Mint: usdc, Decimals: 6}
	trade.TokenOut = pkg.TokenRef{Mint: sol.WSOL, Decimals: 9}
	trade.ProgramID = pkg.PUMP_FUN_PROGRAM_ID

	instrs, err := b.BuildSwapInstructions(trade, testUser, testUserIn, testUserOut,
		math.NewInt(1_000_000_000), math.NewInt(0))
	require.NoError(t, err)
	metas := instrs[0].Accounts()
	require.Len(t, metas, 12)

	assert.Equal(t, testUser, metas[0].PublicKey)
	assert.True(t, metas[0].IsSigner)
	assert.Equal(t, usdc, metas[2].PublicKey)
	assert.Equal(t, testPool, metas[3].PublicKey)
	assert.Equal(t, testUserIn, metas[5].PublicKey) // sell spends the token account
	assert.Equal(t, testUser, metas[6].PublicKey)   // duplicated signer slot
	assert.Equal(t, solana.SystemProgramID, metas[7].PublicKey)
	assert.Equal(t, solana.TokenProgramID, metas[8].PublicKey)
	assert.Equal(t, pkg.PUMP_FUN_PROGRAM_ID, metas[11].PublicKey)

	data, err := instrs[0].Data()
	require.NoError(t, err)
	require.Len(t, data, 17)
	assert.Equal(t, pkg.PumpSellInstruction, data[0])
	assert.Equal(t, uint64(1_000_000_000), binary.LittleEndian.Uint64(data[1:9]))
}

func TestSwapArgumentRoundTrip(t *testing.T) {
	cases := []struct{ amount, limit uint64 }{
		{0, 0},
		{1, 1},
		{1_000_000_000, 123_456_789},
		{^uint64(0), ^uint64(0) - 1},
	}
	for _, tc := range cases {
		inst := &AmmV4SwapInstruction{InAmount: tc.amount, MinimumOutAmount: tc.limit}
		data, err := inst.Data()
		require.NoError(t, err)
		assert.Equal(t, tc.amount, binary.LittleEndian.Uint64(data[1:9]))
		assert.Equal(t, tc.limit, binary.LittleEndian.Uint64(data[9:17]))

		pump := &PumpSwapInstruction{InstructionType: pkg.PumpBuyInstruction, Amount: tc.amount, Limit: tc.limit}
		pdata, err := pump.Data()
		require.NoError(t, err)
		assert.Equal(t, tc.amount, binary.LittleEndian.Uint64(pdata[1:9]))
		assert.Equal(t, tc.limit, binary.LittleEndian.Uint64(pdata[9:17]))
	}
}
