package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/verdictlabs/oraclebot/internal/domain"
)

// reportArgs is the fixed ABI layout of a settlement report:
// (uint256 marketId, uint8 outcome, uint16 confidenceBps, string responseId).
var reportArgs = mustReportArgs()

func mustReportArgs() abi.Arguments {
	uint256T, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	uint8T, err := abi.NewType("uint8", "", nil)
	if err != nil {
		panic(err)
	}
	uint16T, err := abi.NewType("uint16", "", nil)
	if err != nil {
		panic(err)
	}
	stringT, err := abi.NewType("string", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{
		{Name: "marketId", Type: uint256T},
		{Name: "outcome", Type: uint8T},
		{Name: "confidenceBps", Type: uint16T},
		{Name: "responseId", Type: stringT},
	}
}

// EncodeReport packs a settlement report into the canonical byte layout
// consumed by the contract's onReport entrypoint.
func EncodeReport(r domain.SettlementReport) ([]byte, error) {
	data, err := reportArgs.Pack(
		new(big.Int).SetUint64(r.MarketID),
		r.OutcomeCode,
		r.ConfidenceBps,
		r.ResponseID,
	)
	if err != nil {
		return nil, fmt.Errorf("ledger: encode report: %w", err)
	}
	return data, nil
}

// DecodeReport is the inverse of EncodeReport.
func DecodeReport(data []byte) (domain.SettlementReport, error) {
	out, err := reportArgs.Unpack(data)
	if err != nil {
		return domain.SettlementReport{}, fmt.Errorf("ledger: decode report: %w", err)
	}
	return domain.SettlementReport{
		MarketID:      out[0].(*big.Int).Uint64(),
		OutcomeCode:   out[1].(uint8),
		ConfidenceBps: out[2].(uint16),
		ResponseID:    out[3].(string),
	}, nil
}
