package parser

import (
	"fmt"
	"strings"

	"github.com/solana-zh/solmirror/pkg/sol"
)

// BaseNetworkFee is the flat per-signature network fee in lamports.
const BaseNetworkFee = 5000

// sideDelta is one side of a swap as observed in balance changes.
type sideDelta struct {
	mint         string
	amount       uint64
	decimals     uint8
	accountIndex int
}

// analyzeUserDeltas reconstructs the two sides of a swap from the user's
// balance changes. The instruction's declared amounts are limits, not
// realized values, so balance deltas are authoritative.
//
// The mint with the largest negative delta over the user's token accounts is
// the input side, the largest positive delta the output side. Ties prefer the
// wrapped-native mint on the negative side, then the lower account index.
// A side with no token-account movement falls back to the user's native
// lamport delta, but only when the user holds no wrapped-native token account
// at all.
func analyzeUserDeltas(
	user string,
	accountKeys []string,
	preBalances []uint64,
	postBalances []uint64,
	preTok []TokenBalance,
	postTok []TokenBalance,
) (in, out *sideDelta, err error) {
	type row struct {
		mint     string
		owner    string
		decimals uint8
		pre      uint64
		post     uint64
	}
	rows := make(map[int]*row)
	for _, b := range preTok {
		rows[b.AccountIndex] = &row{mint: b.Mint, owner: b.Owner, decimals: b.Decimals, pre: b.Amount}
	}
	for _, b := range postTok {
		r, ok := rows[b.AccountIndex]
		if !ok {
			r = &row{mint: b.Mint, owner: b.Owner, decimals: b.Decimals}
			rows[b.AccountIndex] = r
		}
		r.post = b.Amount
	}

	wsol := sol.WSOL.String()
	hasWsolAccount := false
	for _, r := range rows {
		if r.owner == user && r.mint == wsol {
			hasWsolAccount = true
			break
		}
	}

	for idx, r := range rows {
		if r.owner != user || r.pre == r.post {
			continue
		}
		if r.pre > r.post {
			d := &sideDelta{mint: r.mint, amount: r.pre - r.post, decimals: r.decimals, accountIndex: idx}
			if betterNegative(d, in, wsol) {
				in = d
			}
		} else {
			d := &sideDelta{mint: r.mint, amount: r.post - r.pre, decimals: r.decimals, accountIndex: idx}
			if betterPositive(d, out) {
				out = d
			}
		}
	}

	// Native lamport fallback for a side the token balances did not cover.
	userIndex := -1
	for i, k := range accountKeys {
		if k == user {
			userIndex = i
			break
		}
	}
	if !hasWsolAccount && userIndex >= 0 && userIndex < len(preBalances) && userIndex < len(postBalances) {
		pre, post := preBalances[userIndex], postBalances[userIndex]
		if in == nil && pre > post {
			in = &sideDelta{mint: wsol, amount: pre - post, decimals: 9, accountIndex: userIndex}
		}
		if out == nil && post > pre {
			out = &sideDelta{mint: wsol, amount: post - pre, decimals: 9, accountIndex: userIndex}
		}
	}

	if in == nil || out == nil || in.amount == 0 || out.amount == 0 {
		return nil, nil, fmt.Errorf("no usable balance change for wallet %s", user)
	}
	return in, out, nil
}

func betterNegative(d, best *sideDelta, wsol string) bool {
	if best == nil {
		return true
	}
	if d.amount != best.amount {
		return d.amount > best.amount
	}
	if (d.mint == wsol) != (best.mint == wsol) {
		return d.mint == wsol
	}
	return d.accountIndex < best.accountIndex
}

func betterPositive(d, best *sideDelta) bool {
	if best == nil {
		return true
	}
	if d.amount != best.amount {
		return d.amount > best.amount
	}
	return d.accountIndex < best.accountIndex
}

// calculatePrice expresses the fill as native units per token unit, scaled
// by each side's decimals.
func calculatePrice(in, out *sideDelta, buy bool) float64 {
	inScaled := float64(in.amount) / pow10(in.decimals)
	outScaled := float64(out.amount) / pow10(out.decimals)
	if buy {
		if outScaled == 0 {
			return 0
		}
		return inScaled / outScaled
	}
	if inScaled == 0 {
		return 0
	}
	return outScaled / inScaled
}

func pow10(decimals uint8) float64 {
	v := 1.0
	for i := uint8(0); i < decimals; i++ {
		v *= 10
	}
	return v
}

// calculateGasFee sums the user account's lamport spend with any tip paid to
// a relay account (key carrying a "0slot" or "tip" marker). Never below the
// base network fee.
func calculateGasFee(accountKeys []string, preBalances, postBalances []uint64, userIndex int) uint64 {
	var fee uint64
	if userIndex >= 0 && userIndex < len(preBalances) && userIndex < len(postBalances) &&
		preBalances[userIndex] > postBalances[userIndex] {
		fee = preBalances[userIndex] - postBalances[userIndex]
	}
	for i, key := range accountKeys {
		if !strings.Contains(key, "0slot") && !strings.Contains(key, "tip") {
			continue
		}
		if i < len(preBalances) && i < len(postBalances) && postBalances[i] > preBalances[i] {
			fee += postBalances[i] - preBalances[i]
		}
	}
	if fee < BaseNetworkFee {
		fee = BaseNetworkFee
	}
	return fee
}

// knownSymbol returns a display symbol for the handful of mints worth
// labelling; everything else stays anonymous.
func knownSymbol(mint string) string {
	switch mint {
	case sol.WSOL.String():
		return "SOL"
	case "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v":
		return "USDC"
	case "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB":
		return "USDT"
	}
	return ""
}
