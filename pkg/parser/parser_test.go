package parser

import (
	"encoding/binary"
	"math"
	"path/filepath"
	"testing"

	"github.com/solana-zh/solmirror/pkg"
	"github.com/solana-zh/solmirror/pkg/registry"
	"github.com/solana-zh/solmirror/pkg/sol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	leaderWallet = "CuwxHwz42cNivJqWGBk6HcVvfGq47868Mo6zi4u6z9vC"
	usdcMint     = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	bonkMint     = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	ammPool      = "58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2"
	serumAcct    = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
	feeRecipient = "CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM"
	eventAuth    = "Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1"
	tokenAcctA   = "GS4CU59F31iL7aR2Q8zVS8DRrcRnXX1yjQ66TqNVQnaR"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	return New(registry.Load(filepath.Join(t.TempDir(), "absent")), []string{leaderWallet})
}

func ammV4SwapData(amountIn, minOut uint64) []byte {
	data := make([]byte, 17)
	data[0] = pkg.RaydiumAmmSwapInstruction
	binary.LittleEndian.PutUint64(data[1:9], amountIn)
	binary.LittleEndian.PutUint64(data[9:17], minOut)
	return data
}

func pumpSwapData(tag byte, amount, limit uint64) []byte {
	data := make([]byte, 17)
	data[0] = tag
	binary.LittleEndian.PutUint64(data[1:9], amount)
	binary.LittleEndian.PutUint64(data[9:17], limit)
	return data
}

func assertPriceConsistent(t *testing.T, trade *pkg.Trade) {
	t.Helper()
	inScaled := float64(trade.AmountIn) / math.Pow10(int(trade.TokenIn.Decimals))
	outScaled := float64(trade.AmountOut) / math.Pow10(int(trade.TokenOut.Decimals))
	want := inScaled / outScaled
	if trade.Direction == pkg.DirectionSell {
		want = outScaled / inScaled
	}
	assert.InEpsilon(t, want, trade.Price, 1e-9)
}

func TestAmmV4Buy(t *testing.T) {
	p := newTestParser(t)

	keys := []string{leaderWallet, ammPool, serumAcct, tokenAcctA}
	pre := []uint64{2_000_000_000, 0, 0, 0}
	post := []uint64{999_995_000, 0, 0, 0}
	preTok := []TokenBalance{{AccountIndex: 3, Mint: usdcMint, Owner: leaderWallet, Amount: 0, Decimals: 6}}
	postTok := []TokenBalance{{AccountIndex: 3, Mint: usdcMint, Owner: leaderWallet, Amount: 25_000_000, Decimals: 6}}

	trade, err := p.ParseInstruction("sig1", pkg.RAYDIUM_AMM_PROGRAM_ID.String(), keys,
		ammV4SwapData(1_000_000_000, 0), pre, post, preTok, postTok, nil)
	require.NoError(t, err)
	require.NotNil(t, trade)

	assert.Equal(t, pkg.DirectionBuy, trade.Direction)
	assert.Equal(t, sol.WSOL, trade.TokenIn.Mint)
	// realized amount from the balance delta, not the declared limit
	assert.Equal(t, uint64(1_000_005_000), trade.AmountIn)
	assert.Equal(t, uint64(25_000_000), trade.AmountOut)
	assert.Equal(t, ammPool, trade.PoolID.String())
	assert.Equal(t, leaderWallet, trade.LeaderWallet.String())
	assert.InEpsilon(t, 1.000005/25.0, trade.Price, 1e-9)
	assertPriceConsistent(t, trade)
	assert.GreaterOrEqual(t, trade.GasFee, uint64(BaseNetworkFee))
	assert.Positive(t, trade.AmountIn)
	assert.Positive(t, trade.AmountOut)
}

func TestAmmV4NotASwap(t *testing.T) {
	p := newTestParser(t)
	trade, err := p.ParseInstruction("sig", pkg.RAYDIUM_AMM_PROGRAM_ID.String(),
		[]string{leaderWallet, ammPool}, []byte{1, 2, 3}, nil, nil, nil, nil, nil)
	assert.NoError(t, err)
	assert.Nil(t, trade)
}

func TestAmmV4MalformedSwap(t *testing.T) {
	p := newTestParser(t)
	_, err := p.ParseInstruction("sig", pkg.RAYDIUM_AMM_PROGRAM_ID.String(),
		[]string{leaderWallet, ammPool}, []byte{9, 1, 2}, nil, nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestUntrackedProgramIgnored(t *testing.T) {
	p := newTestParser(t)
	trade, err := p.ParseInstruction("sig", serumAcct,
		[]string{leaderWallet, ammPool}, ammV4SwapData(1, 1), nil, nil, nil, nil, nil)
	assert.NoError(t, err)
	assert.Nil(t, trade)
}

func TestPumpSell(t *testing.T) {
	p := newTestParser(t)

	keys := []string{
		pkg.PUMP_FUN_PROGRAM_ID.String(), feeRecipient, bonkMint, serumAcct, tokenAcctA,
		ammPool, leaderWallet, "11111111111111111111111111111111",
		"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", "SysvarRent111111111111111111111111111111111",
		eventAuth, pkg.PUMP_FUN_PROGRAM_ID.String(),
	}
	pre := make([]uint64, len(keys))
	post := make([]uint64, len(keys))
	pre[6] = 10_000_000
	post[6] = 510_000_000
	preTok := []TokenBalance{{AccountIndex: 5, Mint: bonkMint, Owner: leaderWallet, Amount: 1_000_000_000, Decimals: 6}}
	postTok := []TokenBalance{{AccountIndex: 5, Mint: bonkMint, Owner: leaderWallet, Amount: 0, Decimals: 6}}

	trade, err := p.ParseInstruction("sig2", pkg.PUMP_FUN_PROGRAM_ID.String(), keys,
		pumpSwapData(pkg.PumpSellInstruction, 1_000_000_000, 500_000_000), pre, post, preTok, postTok, nil)
	require.NoError(t, err)
	require.NotNil(t, trade)

	assert.Equal(t, pkg.DirectionSell, trade.Direction)
	assert.Equal(t, uint64(1_000_000_000), trade.AmountIn)
	assert.Equal(t, uint64(500_000_000), trade.AmountOut)
	assert.Equal(t, bonkMint, trade.TokenIn.Mint.String())
	assert.Equal(t, sol.WSOL, trade.TokenOut.Mint)
	assert.Equal(t, serumAcct, trade.PoolID.String())
	assertPriceConsistent(t, trade)
}

func TestCpmmBaseInputBuy(t *testing.T) {
	p := newTestParser(t)

	data := make([]byte, 24)
	copy(data[0:8], pkg.SwapBaseInputDiscriminator)

	keys := []string{leaderWallet, ammPool, serumAcct, tokenAcctA,
		"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", usdcMint, sol.WSOL.String(), feeRecipient}
	pre := make([]uint64, len(keys))
	post := make([]uint64, len(keys))
	preTok := []TokenBalance{
		{AccountIndex: 3, Mint: sol.WSOL.String(), Owner: leaderWallet, Amount: 5_000_000_000, Decimals: 9},
		{AccountIndex: 7, Mint: usdcMint, Owner: leaderWallet, Amount: 0, Decimals: 6},
	}
	postTok := []TokenBalance{
		{AccountIndex: 3, Mint: sol.WSOL.String(), Owner: leaderWallet, Amount: 3_000_000_000, Decimals: 9},
		{AccountIndex: 7, Mint: usdcMint, Owner: leaderWallet, Amount: 123_456_789, Decimals: 6},
	}

	trade, err := p.ParseInstruction("sig3", pkg.RAYDIUM_CPMM_PROGRAM_ID.String(), keys,
		data, pre, post, preTok, postTok, nil)
	require.NoError(t, err)
	require.NotNil(t, trade)

	assert.Equal(t, pkg.DirectionBuy, trade.Direction)
	assert.Equal(t, uint64(2_000_000_000), trade.AmountIn)
	assert.Equal(t, uint64(123_456_789), trade.AmountOut)
	// the pool is the first non-program key after the payer
	assert.Equal(t, ammPool, trade.PoolID.String())
	assert.Equal(t, leaderWallet, trade.LeaderWallet.String())
	assertPriceConsistent(t, trade)
}

func TestCpmmUnknownDiscriminatorIsNotASwap(t *testing.T) {
	p := newTestParser(t)
	data := make([]byte, 24)
	trade, err := p.ParseInstruction("sig", pkg.RAYDIUM_CPMM_PROGRAM_ID.String(),
		[]string{leaderWallet, ammPool}, data, nil, nil, nil, nil, nil)
	assert.NoError(t, err)
	assert.Nil(t, trade)
}

func TestTieBreakPrefersWsolOnInputSide(t *testing.T) {
	in, out, err := analyzeUserDeltas(leaderWallet, []string{leaderWallet},
		[]uint64{0}, []uint64{0},
		[]TokenBalance{
			{AccountIndex: 2, Mint: usdcMint, Owner: leaderWallet, Amount: 500, Decimals: 6},
			{AccountIndex: 3, Mint: sol.WSOL.String(), Owner: leaderWallet, Amount: 500, Decimals: 9},
			{AccountIndex: 4, Mint: bonkMint, Owner: leaderWallet, Amount: 0, Decimals: 6},
		},
		[]TokenBalance{
			{AccountIndex: 2, Mint: usdcMint, Owner: leaderWallet, Amount: 0, Decimals: 6},
			{AccountIndex: 3, Mint: sol.WSOL.String(), Owner: leaderWallet, Amount: 0, Decimals: 9},
			{AccountIndex: 4, Mint: bonkMint, Owner: leaderWallet, Amount: 700, Decimals: 6},
		})
	require.NoError(t, err)
	assert.Equal(t, sol.WSOL.String(), in.mint)
	assert.Equal(t, uint64(500), in.amount)
	assert.Equal(t, bonkMint, out.mint)
}

func TestTieBreakByAccountIndex(t *testing.T) {
	in, _, err := analyzeUserDeltas(leaderWallet, []string{leaderWallet},
		[]uint64{0}, []uint64{0},
		[]TokenBalance{
			{AccountIndex: 5, Mint: usdcMint, Owner: leaderWallet, Amount: 500, Decimals: 6},
			{AccountIndex: 2, Mint: bonkMint, Owner: leaderWallet, Amount: 500, Decimals: 6},
			{AccountIndex: 3, Mint: sol.WSOL.String(), Owner: leaderWallet, Amount: 0, Decimals: 9},
		},
		[]TokenBalance{
			{AccountIndex: 5, Mint: usdcMint, Owner: leaderWallet, Amount: 0, Decimals: 6},
			{AccountIndex: 2, Mint: bonkMint, Owner: leaderWallet, Amount: 0, Decimals: 6},
			{AccountIndex: 3, Mint: sol.WSOL.String(), Owner: leaderWallet, Amount: 600, Decimals: 9},
		})
	require.NoError(t, err)
	assert.Equal(t, bonkMint, in.mint)
}

func TestOtherOwnersBalancesIgnored(t *testing.T) {
	_, _, err := analyzeUserDeltas(leaderWallet, []string{leaderWallet},
		[]uint64{0}, []uint64{0},
		[]TokenBalance{{AccountIndex: 2, Mint: usdcMint, Owner: feeRecipient, Amount: 900, Decimals: 6}},
		[]TokenBalance{{AccountIndex: 2, Mint: usdcMint, Owner: feeRecipient, Amount: 100, Decimals: 6}})
	assert.Error(t, err)
}

func TestGasFeeIncludesTipAccounts(t *testing.T) {
	keys := []string{leaderWallet, "tipAccount1111", ammPool}
	fee := calculateGasFee(keys, []uint64{100_000, 50, 0}, []uint64{90_000, 2_050, 0}, 0)
	assert.Equal(t, uint64(10_000+2_000), fee)
}

func TestGasFeeFloor(t *testing.T) {
	fee := calculateGasFee([]string{leaderWallet}, []uint64{100}, []uint64{100}, 0)
	assert.Equal(t, uint64(BaseNetworkFee), fee)
}
