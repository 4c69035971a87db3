package parser

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/solana-zh/solmirror/pkg"
	"github.com/solana-zh/solmirror/pkg/sol"
)

// Raydium AMM V4 swap instruction account layout:
//
//	0: Token Program
//	1: AMM ID
//	2: AMM Authority
//	3: AMM Open Orders
//	4: AMM Target Orders
//	5: Pool Coin Token Account
//	6: Pool PC Token Account
//	7: Serum Program ID
//	8: Serum Market
//	9: Serum Bids
//	10: Serum Asks
//	11: Serum Event Queue
//	12: Serum Coin Vault Account
//	13: Serum PC Vault Account
//	14: Serum Vault Signer
//	15: User Source Token Account
//	16: User Destination Token Account
//	17: User Owner
//
// At the transaction level the fee payer (the user) leads the key list and
// the AMM pool follows it.
func (p *Parser) parseRaydiumAmmV4(
	protocol pkg.Protocol,
	signature string,
	accountKeys []string,
	data []byte,
	preBalances []uint64,
	postBalances []uint64,
	preTok []TokenBalance,
	postTok []TokenBalance,
) (*pkg.Trade, error) {
	if len(data) == 0 || data[0] != pkg.RaydiumAmmSwapInstruction {
		return nil, nil
	}
	if len(data) < 17 {
		return nil, fmt.Errorf("amm v4 swap data too short: %d bytes", len(data))
	}
	// Declared limits; the realized amounts come from balance deltas below.
	_ = binary.LittleEndian.Uint64(data[1:9])
	_ = binary.LittleEndian.Uint64(data[9:17])

	if len(accountKeys) < 2 {
		return nil, fmt.Errorf("amm v4 swap with %d account keys", len(accountKeys))
	}
	user := accountKeys[0]
	poolID := accountKeys[1]

	programID := pkg.RAYDIUM_AMM_PROGRAM_ID.String()
	if protocol == pkg.ProtocolRaydiumClmm {
		programID = pkg.RAYDIUM_CLMM_PROGRAM_ID.String()
	}
	if meta, ok := p.reg.AmmByPool(poolID); ok && meta.ProgramID != "" {
		programID = meta.ProgramID
	}

	in, out, err := analyzeUserDeltas(user, accountKeys, preBalances, postBalances, preTok, postTok)
	if err != nil {
		return nil, fmt.Errorf("amm v4 swap: %w", err)
	}

	return buildTrade(protocol, signature, user, poolID, programID, accountKeys, preBalances, postBalances, in, out)
}

// buildTrade assembles the normalized record shared by all three dialects.
func buildTrade(
	protocol pkg.Protocol,
	signature string,
	user string,
	poolID string,
	programID string,
	accountKeys []string,
	preBalances []uint64,
	postBalances []uint64,
	in, out *sideDelta,
) (*pkg.Trade, error) {
	userPk, err := solana.PublicKeyFromBase58(user)
	if err != nil {
		return nil, fmt.Errorf("bad user wallet %q: %w", user, err)
	}
	poolPk, err := solana.PublicKeyFromBase58(poolID)
	if err != nil {
		return nil, fmt.Errorf("bad pool account %q: %w", poolID, err)
	}
	programPk, err := solana.PublicKeyFromBase58(programID)
	if err != nil {
		return nil, fmt.Errorf("bad program id %q: %w", programID, err)
	}
	inPk, err := solana.PublicKeyFromBase58(in.mint)
	if err != nil {
		return nil, fmt.Errorf("bad input mint %q: %w", in.mint, err)
	}
	outPk, err := solana.PublicKeyFromBase58(out.mint)
	if err != nil {
		return nil, fmt.Errorf("bad output mint %q: %w", out.mint, err)
	}

	direction := pkg.DirectionSell
	if in.mint == sol.WSOL.String() {
		direction = pkg.DirectionBuy
	}

	userIndex := -1
	for i, k := range accountKeys {
		if k == user {
			userIndex = i
			break
		}
	}

	return &pkg.Trade{
		Signature:    signature,
		LeaderWallet: userPk,
		Protocol:     protocol,
		Direction:    direction,
		TokenIn: pkg.TokenRef{
			Mint:     inPk,
			Symbol:   knownSymbol(in.mint),
			Decimals: in.decimals,
		},
		TokenOut: pkg.TokenRef{
			Mint:     outPk,
			Symbol:   knownSymbol(out.mint),
			Decimals: out.decimals,
		},
		AmountIn:    in.amount,
		AmountOut:   out.amount,
		Price:       calculatePrice(in, out, direction == pkg.DirectionBuy),
		PoolID:      poolPk,
		Timestamp:   time.Now().Unix(),
		GasFee:      calculateGasFee(accountKeys, preBalances, postBalances, userIndex),
		ProgramID:   programPk,
		AccountKeys: accountKeys,
	}, nil
}
