// Package parser turns one raw instruction plus the transaction's balance
// snapshots into a normalized Trade, or reports "not a swap".
package parser

import (
	"github.com/solana-zh/solmirror/pkg"
	"github.com/solana-zh/solmirror/pkg/registry"
)

// TokenBalance is the protocol-agnostic projection of one pre/post token
// balance row from the stream. Amount is the raw integer amount.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	Amount       uint64
	Decimals     uint8
}

// Parser decodes swap instructions for the tracked AMM dialects. The
// configured leader-wallet set is passed in at construction and used to
// identify the signer inside CPMM instructions; it is never hard-coded.
type Parser struct {
	reg     *registry.Registry
	leaders map[string]struct{}
}

func New(reg *registry.Registry, leaderWallets []string) *Parser {
	leaders := make(map[string]struct{}, len(leaderWallets))
	for _, w := range leaderWallets {
		leaders[w] = struct{}{}
	}
	return &Parser{reg: reg, leaders: leaders}
}

// ParseInstruction decodes a single instruction. It returns (nil, nil) when
// the instruction belongs to a tracked program but is not a swap, and an
// error only when a swap discriminator was matched but mandatory fields are
// malformed.
func (p *Parser) ParseInstruction(
	signature string,
	programID string,
	accountKeys []string,
	data []byte,
	preBalances []uint64,
	postBalances []uint64,
	preTokenBalances []TokenBalance,
	postTokenBalances []TokenBalance,
	logMessages []string,
) (*pkg.Trade, error) {
	protocol, ok := pkg.TrackedProgram(programID)
	if !ok {
		return nil, nil
	}

	switch protocol {
	case pkg.ProtocolRaydiumAmmV4, pkg.ProtocolRaydiumClmm:
		// CLMM swaps share the dispatch path; the discriminator check below
		// rejects anything that is not a V4-style swap.
		return p.parseRaydiumAmmV4(protocol, signature, accountKeys, data, preBalances, postBalances, preTokenBalances, postTokenBalances)
	case pkg.ProtocolRaydiumCpmm:
		return p.parseRaydiumCpmm(signature, accountKeys, data, preBalances, postBalances, preTokenBalances, postTokenBalances)
	case pkg.ProtocolPumpFun:
		return p.parsePumpTrade(signature, accountKeys, data, preBalances, postBalances, preTokenBalances, postTokenBalances, logMessages)
	}
	return nil, nil
}

func (p *Parser) isLeader(wallet string) bool {
	_, ok := p.leaders[wallet]
	return ok
}
