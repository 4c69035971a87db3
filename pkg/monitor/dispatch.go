package monitor

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/mr-tron/base58"
	yellowstone "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/solana-zh/solmirror/pkg"
	"github.com/solana-zh/solmirror/pkg/parser"
	"github.com/solana-zh/solmirror/utils"
	"go.uber.org/zap"
)

// processTransaction walks the transaction's instruction list and hands each
// tracked-program instruction to the decoder at most once. It runs inline on
// the subscriber goroutine; only the mirror execution is spawned off.
func (m *Monitor) processTransaction(ctx context.Context, tu *yellowstone.SubscribeUpdateTransaction) {
	info := tu.GetTransaction()
	if info == nil || info.Transaction == nil || info.Meta == nil {
		return
	}
	msg := info.Transaction.Message
	if msg == nil {
		return
	}

	signature := base58.Encode(info.Signature)
	accountKeys := make([]string, len(msg.AccountKeys))
	for i, k := range msg.AccountKeys {
		accountKeys[i] = base58.Encode(k)
	}

	preTok := projectTokenBalances(info.Meta.PreTokenBalances)
	postTok := projectTokenBalances(info.Meta.PostTokenBalances)

	for index, instruction := range msg.Instructions {
		if int(instruction.ProgramIdIndex) >= len(accountKeys) {
			continue
		}
		programID := accountKeys[instruction.ProgramIdIndex]
		if _, tracked := pkg.TrackedProgram(programID); !tracked {
			continue
		}
		if !m.markSeen(signature, index) {
			m.log.Debug("duplicate instruction skipped",
				zap.String("signature", signature), zap.Int("index", index))
			continue
		}

		trade, err := m.parser.ParseInstruction(
			signature,
			programID,
			accountKeys,
			instruction.Data,
			info.Meta.PreBalances,
			info.Meta.PostBalances,
			preTok,
			postTok,
			info.Meta.LogMessages,
		)
		if err != nil {
			// best-effort: the dedup mark stays, the instruction is dropped
			m.log.Warn("decode failed",
				zap.String("signature", signature),
				zap.Int("index", index),
				zap.Error(err))
			continue
		}
		if trade == nil {
			continue
		}

		m.journal.RecordTrade(trade)
		m.reportTrade(trade)

		if !m.isLeader(trade.LeaderWallet.String()) {
			m.log.Debug("trade is not from a leader wallet, not mirrored",
				zap.String("wallet", trade.LeaderWallet.String()))
			continue
		}

		mirrored := trade
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			exec := m.executor.ExecuteTrade(ctx, mirrored)
			m.journal.RecordExecution(exec)
		}()
	}
}

// markSeen records the (signature, instruction index) pair; false means it
// was already processed. The lock is never held across I/O.
func (m *Monitor) markSeen(signature string, index int) bool {
	key := signature + ":" + strconv.Itoa(index)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[key]; ok {
		return false
	}
	m.seen[key] = struct{}{}
	return true
}

func (m *Monitor) isLeader(wallet string) bool {
	for _, l := range m.leaders {
		if l == wallet {
			return true
		}
	}
	return false
}

func projectTokenBalances(balances []*yellowstone.TokenBalance) []parser.TokenBalance {
	out := make([]parser.TokenBalance, 0, len(balances))
	for _, b := range balances {
		if b == nil {
			continue
		}
		var amount uint64
		var decimals uint8
		if ui := b.GetUiTokenAmount(); ui != nil {
			amount, _ = strconv.ParseUint(ui.Amount, 10, 64)
			decimals = uint8(ui.Decimals)
		}
		out = append(out, parser.TokenBalance{
			AccountIndex: int(b.AccountIndex),
			Mint:         b.Mint,
			Owner:        b.Owner,
			Amount:       amount,
			Decimals:     decimals,
		})
	}
	return out
}

func (m *Monitor) reportTrade(trade *pkg.Trade) {
	m.log.Info("leader trade observed",
		zap.String("signature", trade.Signature),
		zap.String("protocol", string(trade.Protocol)),
		zap.String("direction", string(trade.Direction)),
		zap.String("wallet", utils.ShortAddress(trade.LeaderWallet.String())),
		zap.String("pool", utils.ShortAddress(trade.PoolID.String())),
		zap.Float64("price", trade.Price),
		zap.Uint64("gas_fee", trade.GasFee))

	line := fmt.Sprintf("%s %s %s -> %s %s (%.8f SOL/token)",
		utils.ShortAddress(trade.Signature),
		utils.FormatTokenAmount(trade.AmountIn, trade.TokenIn.Decimals),
		utils.TokenLabel(trade.TokenIn.Symbol, trade.TokenIn.Mint.String()),
		utils.FormatTokenAmount(trade.AmountOut, trade.TokenOut.Decimals),
		utils.TokenLabel(trade.TokenOut.Symbol, trade.TokenOut.Mint.String()),
		trade.Price)
	if trade.Direction == pkg.DirectionBuy {
		color.Green("BUY  %s", line)
	} else {
		color.Red("SELL %s", line)
	}
}
