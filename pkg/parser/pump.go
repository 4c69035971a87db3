package parser

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/solana-zh/solmirror/pkg"
)

// Bonding-curve buy/sell instruction account layout:
//
//	0: Program
//	1: Fee Recipient
//	2: Mint
//	3: Bonding Curve
//	4: Associated Bonding Curve
//	5: User Token Account
//	6: User (signer)
//	7: System Program
//	8: Token Program
//	9: Rent
//	10: Event Authority
//	11: Program
const pumpTokenDecimals = 6

func (p *Parser) parsePumpTrade(
	signature string,
	accountKeys []string,
	data []byte,
	preBalances []uint64,
	postBalances []uint64,
	preTok []TokenBalance,
	postTok []TokenBalance,
	logs []string,
) (*pkg.Trade, error) {
	if len(data) == 0 {
		return nil, nil
	}
	switch data[0] {
	case pkg.PumpBuyInstruction, pkg.PumpSellInstruction:
	default:
		return nil, nil
	}
	if len(data) < 17 {
		return nil, fmt.Errorf("bonding-curve swap data too short: %d bytes", len(data))
	}
	// amount and max native cost are slippage limits, not realized values.
	_ = binary.LittleEndian.Uint64(data[1:9])
	_ = binary.LittleEndian.Uint64(data[9:17])

	if len(accountKeys) < 7 {
		return nil, fmt.Errorf("bonding-curve swap with %d account keys", len(accountKeys))
	}
	mint := accountKeys[2]
	bondingCurve := accountKeys[3]
	user := accountKeys[6]

	programID := pkg.PUMP_FUN_PROGRAM_ID.String()
	if meta, ok := p.reg.CurveByMint(mint); ok && meta.ProgramID != "" {
		programID = meta.ProgramID
	}

	in, out, err := analyzeUserDeltas(user, accountKeys, preBalances, postBalances, preTok, postTok)
	if err != nil {
		return nil, fmt.Errorf("bonding-curve swap: %w", err)
	}
	// Launchpad tokens carry six decimals; the native fallback rows already
	// say nine for SOL.
	if in.mint == mint && in.decimals == 0 {
		in.decimals = pumpTokenDecimals
	}
	if out.mint == mint && out.decimals == 0 {
		out.decimals = pumpTokenDecimals
	}

	trade, err := buildTrade(pkg.ProtocolPumpFun, signature, user, bondingCurve, programID, accountKeys, preBalances, postBalances, in, out)
	if err != nil {
		return nil, err
	}
	if sym := tokenSymbolFromLogs(logs); sym != "" {
		if trade.TokenIn.Mint.String() == mint {
			trade.TokenIn.Symbol = sym
		} else if trade.TokenOut.Mint.String() == mint {
			trade.TokenOut.Symbol = sym
		}
	}
	return trade, nil
}

// tokenSymbolFromLogs scans program logs for a "symbol:" marker.
func tokenSymbolFromLogs(logs []string) string {
	for _, line := range logs {
		idx := strings.Index(line, "symbol:")
		if idx < 0 {
			idx = strings.Index(line, "Symbol:")
		}
		if idx < 0 {
			continue
		}
		rest := strings.TrimSpace(line[idx+len("symbol:"):])
		if end := strings.IndexByte(rest, ' '); end > 0 {
			rest = rest[:end]
		}
		if rest != "" {
			return rest
		}
	}
	return ""
}
