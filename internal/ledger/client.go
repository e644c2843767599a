// Package ledger talks to the on-chain market contract over JSON-RPC.
package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/verdictlabs/oraclebot/internal/domain"
)

const marketABI = `[
	{"name":"nextMarketId","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
	{"name":"getMarket","type":"function","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[
		{"name":"question","type":"string"},
		{"name":"createdAt","type":"uint64"},
		{"name":"closesAt","type":"uint64"},
		{"name":"status","type":"uint8"},
		{"name":"outcome","type":"uint8"},
		{"name":"confidenceBps","type":"uint16"}
	]},
	{"name":"newMarket","type":"function","inputs":[{"name":"question","type":"string"},{"name":"duration","type":"uint256"}],"outputs":[{"type":"uint256"}]},
	{"name":"requestSettlement","type":"function","inputs":[{"name":"id","type":"uint256"}],"outputs":[]},
	{"name":"onReport","type":"function","inputs":[{"name":"metadata","type":"bytes"},{"name":"report","type":"bytes"}],"outputs":[]},
	{"name":"submitReport","type":"function","inputs":[{"name":"id","type":"uint256"},{"name":"outcome","type":"uint8"},{"name":"confidence","type":"uint16"},{"name":"responseId","type":"string"}],"outputs":[]},
	{"name":"settleMarketManually","type":"function","inputs":[{"name":"id","type":"uint256"},{"name":"outcome","type":"uint8"}],"outputs":[]}
]`

const txGasLimit = 500000

// Client implements domain.Ledger against an Ethereum-compatible RPC node.
type Client struct {
	eth      *ethclient.Client
	contract common.Address
	parsed   abi.ABI
	key      *ecdsa.PrivateKey
	from     common.Address
	chainID  *big.Int
	logger   *slog.Logger
}

// Dial connects to the RPC endpoint and prepares the signing account.
func Dial(ctx context.Context, rpcURL, contractAddr string, key *ecdsa.PrivateKey, logger *slog.Logger) (*Client, error) {
	if rpcURL == "" || contractAddr == "" {
		return nil, errors.New("ledger: rpc url and contract address are required")
	}
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("ledger: dial rpc: %w", err)
	}
	parsed, err := abi.JSON(strings.NewReader(marketABI))
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("ledger: parse abi: %w", err)
	}
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("ledger: chain id: %w", err)
	}
	return &Client{
		eth:      eth,
		contract: common.HexToAddress(contractAddr),
		parsed:   parsed,
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		chainID:  chainID,
		logger:   logger.With(slog.String("component", "ledger")),
	}, nil
}

// Compile-time interface check.
var _ domain.Ledger = (*Client)(nil)

// Close releases the RPC connection.
func (c *Client) Close() error {
	c.eth.Close()
	return nil
}

func (c *Client) NextMarketID(ctx context.Context) (uint64, error) {
	res, err := c.call(ctx, "nextMarketId")
	if err != nil {
		return 0, err
	}
	out, err := c.parsed.Unpack("nextMarketId", res)
	if err != nil {
		return 0, fmt.Errorf("ledger: unpack nextMarketId: %w", err)
	}
	return out[0].(*big.Int).Uint64(), nil
}

func (c *Client) GetMarket(ctx context.Context, id uint64) (domain.Market, error) {
	res, err := c.call(ctx, "getMarket", new(big.Int).SetUint64(id))
	if err != nil {
		return domain.Market{}, err
	}
	out, err := c.parsed.Unpack("getMarket", res)
	if err != nil {
		return domain.Market{}, fmt.Errorf("ledger: unpack getMarket: %w", err)
	}
	return domain.Market{
		ID:            id,
		Question:      out[0].(string),
		OpenAt:        time.Unix(int64(out[1].(uint64)), 0).UTC(),
		CloseAt:       time.Unix(int64(out[2].(uint64)), 0).UTC(),
		Status:        domain.MarketStatus(out[3].(uint8)),
		Outcome:       domain.Outcome(out[4].(uint8)),
		ConfidenceBps: out[5].(uint16),
	}, nil
}

func (c *Client) PendingNonce(ctx context.Context) (uint64, error) {
	nonce, err := c.eth.PendingNonceAt(ctx, c.from)
	if err != nil {
		return 0, fmt.Errorf("ledger: pending nonce: %w", err)
	}
	return nonce, nil
}

func (c *Client) CreateMarket(ctx context.Context, question string, duration time.Duration, nonce uint64) (string, error) {
	data, err := c.parsed.Pack("newMarket", question, big.NewInt(int64(duration.Seconds())))
	if err != nil {
		return "", fmt.Errorf("ledger: pack newMarket: %w", err)
	}
	return c.transactWithNonce(ctx, data, nonce)
}

func (c *Client) RequestSettlement(ctx context.Context, id uint64) (string, error) {
	data, err := c.parsed.Pack("requestSettlement", new(big.Int).SetUint64(id))
	if err != nil {
		return "", fmt.Errorf("ledger: pack requestSettlement: %w", err)
	}
	return c.transact(ctx, data)
}

func (c *Client) OnReport(ctx context.Context, metadata, report []byte) (string, error) {
	data, err := c.parsed.Pack("onReport", metadata, report)
	if err != nil {
		return "", fmt.Errorf("ledger: pack onReport: %w", err)
	}
	return c.transact(ctx, data)
}

func (c *Client) SubmitReport(ctx context.Context, id uint64, outcomeCode uint8, confidenceBps uint16, responseID string) (string, error) {
	data, err := c.parsed.Pack("submitReport", new(big.Int).SetUint64(id), outcomeCode, confidenceBps, responseID)
	if err != nil {
		return "", fmt.Errorf("ledger: pack submitReport: %w", err)
	}
	return c.transact(ctx, data)
}

func (c *Client) SettleManually(ctx context.Context, id uint64, outcomeCode uint8) (string, error) {
	data, err := c.parsed.Pack("settleMarketManually", new(big.Int).SetUint64(id), outcomeCode)
	if err != nil {
		return "", fmt.Errorf("ledger: pack settleMarketManually: %w", err)
	}
	return c.transact(ctx, data)
}

func (c *Client) call(ctx context.Context, method string, args ...any) ([]byte, error) {
	data, err := c.parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &c.contract, Data: data}
	res, err := c.eth.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: call %s: %w", method, err)
	}
	return res, nil
}

// transact submits with the account's current pending nonce.
func (c *Client) transact(ctx context.Context, data []byte) (string, error) {
	nonce, err := c.PendingNonce(ctx)
	if err != nil {
		return "", err
	}
	return c.transactWithNonce(ctx, data, nonce)
}

func (c *Client) transactWithNonce(ctx context.Context, data []byte, nonce uint64) (string, error) {
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("ledger: gas price: %w", err)
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      txGasLimit,
		To:       &c.contract,
		Value:    big.NewInt(0),
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), c.key)
	if err != nil {
		return "", fmt.Errorf("ledger: sign tx: %w", err)
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		if isNonceConflict(err) {
			return "", fmt.Errorf("ledger: send tx with nonce %d: %w", nonce, domain.ErrNonceConflict)
		}
		return "", fmt.Errorf("ledger: send tx: %w", err)
	}
	hash := signed.Hash().Hex()
	c.logger.InfoContext(ctx, "transaction sent",
		slog.String("tx_hash", hash),
		slog.Uint64("nonce", nonce),
	)
	return hash, nil
}

// isNonceConflict classifies the node error strings that indicate the chosen
// nonce raced with another in-flight transaction from the same account.
func isNonceConflict(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"nonce too low",
		"nonce too high",
		"already known",
		"replacement transaction underpriced",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
