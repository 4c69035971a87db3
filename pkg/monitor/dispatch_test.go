package monitor

import (
	"context"
	"encoding/binary"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	yellowstone "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/solana-zh/solmirror/pkg"
	"github.com/solana-zh/solmirror/pkg/parser"
	"github.com/solana-zh/solmirror/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const leaderWallet = "CuwxHwz42cNivJqWGBk6HcVvfGq47868Mo6zi4u6z9vC"

type countingJournal struct {
	mu         sync.Mutex
	trades     []*pkg.Trade
	executions []*pkg.ExecutedTrade
}

func (c *countingJournal) RecordTrade(t *pkg.Trade) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trades = append(c.trades, t)
}

func (c *countingJournal) RecordExecution(e *pkg.ExecutedTrade) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.executions = append(c.executions, e)
}

type countingExecutor struct {
	mu    sync.Mutex
	calls []*pkg.Trade
}

func (c *countingExecutor) ExecuteTrade(ctx context.Context, trade *pkg.Trade) *pkg.ExecutedTrade {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, trade)
	return &pkg.ExecutedTrade{SourceSignature: trade.Signature, Success: true, Timestamp: time.Now().Unix()}
}

func newTestMonitor(t *testing.T, leaders []string) (*Monitor, *countingJournal, *countingExecutor) {
	t.Helper()
	reg := registry.Load(filepath.Join(t.TempDir(), "absent"))
	j := &countingJournal{}
	e := &countingExecutor{}
	m := New("localhost:10000", "", leaders, parser.New(reg, leaders), j, e, zap.NewNop())
	return m, j, e
}

// ammBuyUpdate fabricates a confirmed AMM V4 buy by the leader, matching the
// shape the stream delivers.
func ammBuyUpdate(t *testing.T, signature []byte) *yellowstone.SubscribeUpdateTransaction {
	t.Helper()

	keys := [][]byte{
		solana.MustPublicKeyFromBase58(leaderWallet).Bytes(),
		solana.MustPublicKeyFromBase58("58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2").Bytes(),
		pkg.RAYDIUM_AMM_PROGRAM_ID.Bytes(),
		solana.MustPublicKeyFromBase58("GS4CU59F31iL7aR2Q8zVS8DRrcRnXX1yjQ66TqNVQnaR").Bytes(),
	}

	data := make([]byte, 17)
	data[0] = pkg.RaydiumAmmSwapInstruction
	binary.LittleEndian.PutUint64(data[1:9], 1_000_000_000)

	return &yellowstone.SubscribeUpdateTransaction{
		Transaction: &yellowstone.SubscribeUpdateTransactionInfo{
			Signature: signature,
			Transaction: &yellowstone.Transaction{
				Message: &yellowstone.Message{
					AccountKeys: keys,
					Instructions: []*yellowstone.CompiledInstruction{
						{ProgramIdIndex: 2, Data: data},
					},
				},
			},
			Meta: &yellowstone.TransactionStatusMeta{
				Fee:          5000,
				PreBalances:  []uint64{2_000_000_000, 0, 0, 0},
				PostBalances: []uint64{999_995_000, 0, 0, 0},
				PreTokenBalances: []*yellowstone.TokenBalance{{
					AccountIndex: 3,
					Mint:         "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
					Owner:        leaderWallet,
					UiTokenAmount: &yellowstone.UiTokenAmount{
						Amount: "0", Decimals: 6, UiAmountString: "0",
					},
				}},
				PostTokenBalances: []*yellowstone.TokenBalance{{
					AccountIndex: 3,
					Mint:         "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
					Owner:        leaderWallet,
					UiTokenAmount: &yellowstone.UiTokenAmount{
						Amount: "25000000", Decimals: 6, UiAmountString: "25",
					},
				}},
			},
		},
	}
}

func TestDedupDeliveredTwice(t *testing.T) {
	m, j, e := newTestMonitor(t, []string{leaderWallet})
	sig := make([]byte, 64)
	sig[0] = 1

	update := ammBuyUpdate(t, sig)
	m.processTransaction(context.Background(), update)
	m.processTransaction(context.Background(), update)
	m.wg.Wait()

	assert.Len(t, j.trades, 1, "exactly one trade observed")
	assert.Len(t, e.calls, 1, "exactly one execution attempt")
	assert.Len(t, j.executions, 1)
}

func TestDistinctSignaturesBothProcessed(t *testing.T) {
	m, j, e := newTestMonitor(t, []string{leaderWallet})

	sigA := make([]byte, 64)
	sigA[0] = 1
	sigB := make([]byte, 64)
	sigB[0] = 2

	m.processTransaction(context.Background(), ammBuyUpdate(t, sigA))
	m.processTransaction(context.Background(), ammBuyUpdate(t, sigB))
	m.wg.Wait()

	assert.Len(t, j.trades, 2)
	assert.Len(t, e.calls, 2)
}

func TestNonLeaderTradeJournaledButNotMirrored(t *testing.T) {
	// the tracked leader is someone else; the observed wallet still gets
	// journaled
	m, j, e := newTestMonitor(t, []string{"GS4CU59F31iL7aR2Q8zVS8DRrcRnXX1yjQ66TqNVQnaR"})
	sig := make([]byte, 64)
	sig[0] = 3

	m.processTransaction(context.Background(), ammBuyUpdate(t, sig))
	m.wg.Wait()

	require.Len(t, j.trades, 1)
	assert.Empty(t, e.calls)
	assert.Empty(t, j.executions)
}

func TestUntrackedProgramInstructionSkipped(t *testing.T) {
	m, j, e := newTestMonitor(t, []string{leaderWallet})
	sig := make([]byte, 64)
	sig[0] = 4

	update := ammBuyUpdate(t, sig)
	// point the instruction at a non-AMM program
	update.Transaction.Transaction.Message.Instructions[0].ProgramIdIndex = 3
	m.processTransaction(context.Background(), update)
	m.wg.Wait()

	assert.Empty(t, j.trades)
	assert.Empty(t, e.calls)
}

func TestProgramIndexOutOfRangeSkipped(t *testing.T) {
	m, j, _ := newTestMonitor(t, []string{leaderWallet})
	sig := make([]byte, 64)
	sig[0] = 5

	update := ammBuyUpdate(t, sig)
	update.Transaction.Transaction.Message.Instructions[0].ProgramIdIndex = 99
	m.processTransaction(context.Background(), update)
	m.wg.Wait()

	assert.Empty(t, j.trades)
}

func TestMalformedSwapKeepsDedupMark(t *testing.T) {
	m, j, e := newTestMonitor(t, []string{leaderWallet})
	sig := make([]byte, 64)
	sig[0] = 6

	update := ammBuyUpdate(t, sig)
	update.Transaction.Transaction.Message.Instructions[0].Data = []byte{pkg.RaydiumAmmSwapInstruction, 1}
	m.processTransaction(context.Background(), update)

	// the fixed update would decode fine now, but the dedup mark from the
	// failed attempt must hold
	fixed := ammBuyUpdate(t, sig)
	m.processTransaction(context.Background(), fixed)
	m.wg.Wait()

	assert.Empty(t, j.trades)
	assert.Empty(t, e.calls)
}
