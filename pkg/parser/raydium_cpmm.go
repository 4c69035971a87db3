package parser

import (
	"bytes"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/solana-zh/solmirror/pkg"
	"github.com/solana-zh/solmirror/pkg/sol"
)

func (p *Parser) parseRaydiumCpmm(
	signature string,
	accountKeys []string,
	data []byte,
	preBalances []uint64,
	postBalances []uint64,
	preTok []TokenBalance,
	postTok []TokenBalance,
) (*pkg.Trade, error) {
	if len(data) < 8 {
		return nil, nil
	}
	disc := data[0:8]
	if !bytes.Equal(disc, pkg.SwapBaseInputDiscriminator) && !bytes.Equal(disc, pkg.SwapBaseOutputDiscriminator) {
		return nil, nil
	}

	user := p.findUserWallet(accountKeys)
	if user == "" {
		return nil, fmt.Errorf("cpmm swap: no user wallet among %d account keys", len(accountKeys))
	}

	poolID := findCpmmPoolAccount(accountKeys, user)
	programID := pkg.RAYDIUM_CPMM_PROGRAM_ID.String()
	if meta, ok := p.reg.CpmmByPool(poolID); ok && meta.ProgramID != "" {
		programID = meta.ProgramID
	}

	in, out, err := analyzeUserDeltas(user, accountKeys, preBalances, postBalances, preTok, postTok)
	if err != nil {
		return nil, fmt.Errorf("cpmm swap: %w", err)
	}

	return buildTrade(pkg.ProtocolRaydiumCpmm, signature, user, poolID, programID, accountKeys, preBalances, postBalances, in, out)
}

// findUserWallet picks the signer the trade belongs to: a configured leader
// when present, otherwise the first key that is not a program account.
func (p *Parser) findUserWallet(accountKeys []string) string {
	for _, k := range accountKeys {
		if p.isLeader(k) {
			return k
		}
	}
	for _, k := range accountKeys {
		if !isProgramAccount(k) {
			return k
		}
	}
	return ""
}

// findCpmmPoolAccount scans keys 1..5 for the pool state: the first entry
// that is neither a program account, the user, nor the wrapped-native mint.
func findCpmmPoolAccount(accountKeys []string, user string) string {
	limit := len(accountKeys)
	if limit > 6 {
		limit = 6
	}
	for i := 1; i < limit; i++ {
		k := accountKeys[i]
		if isProgramAccount(k) || k == user || k == sol.WSOL.String() {
			continue
		}
		return k
	}
	if len(accountKeys) > 1 {
		return accountKeys[1]
	}
	return ""
}

var programAccounts = map[string]struct{}{
	solana.SystemProgramID.String():                    {},
	solana.TokenProgramID.String():                     {},
	solana.Token2022ProgramID.String():                 {},
	solana.SPLAssociatedTokenAccountProgramID.String(): {},
	solana.SysVarRentPubkey.String():                   {},
	solana.ComputeBudget.String():                      {},
	pkg.RAYDIUM_AMM_PROGRAM_ID.String():                {},
	pkg.RAYDIUM_CPMM_PROGRAM_ID.String():               {},
	pkg.RAYDIUM_CLMM_PROGRAM_ID.String():               {},
	pkg.PUMP_FUN_PROGRAM_ID.String():                   {},
}

func isProgramAccount(key string) bool {
	_, ok := programAccounts[key]
	return ok
}
