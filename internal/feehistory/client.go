// Package feehistory fetches eth_feeHistory windows from a JSON-RPC node.
package feehistory

import (
	"context"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"

	"feesuggest/internal/feesuggest"
	"feesuggest/internal/units"
	"feesuggest/internal/util"
)

// Caller is the slice of *rpc.Client the fetcher needs.
type Caller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

type Config struct {
	RequestTimeout time.Duration
	RetryMax       int
	RetryBackoff   time.Duration
	RetryCap       time.Duration
}

type Client struct {
	caller Caller
	cfg    Config
	logger *slog.Logger
}

func New(caller Caller, cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{caller: caller, cfg: cfg, logger: logger}
}

type rpcFeeHistory struct {
	OldestBlock   *hexutil.Big     `json:"oldestBlock"`
	BaseFeePerGas []*hexutil.Big   `json:"baseFeePerGas"`
	GasUsedRatio  []float64        `json:"gasUsedRatio"`
	Reward        [][]*hexutil.Big `json:"reward"`
}

// FeeHistory requests blockCount blocks ending at newest. The node appends
// the pending block's base fee, so the window always ends with one.
func (c *Client) FeeHistory(ctx context.Context, blockCount uint64, newest string, percentiles []float64) (*feesuggest.FeeHistoryWindow, error) {
	if blockCount == 0 {
		return nil, errors.Wrap(feesuggest.ErrInvalidInput, "block count must be positive")
	}
	tag, err := EncodeBlockTag(newest)
	if err != nil {
		return nil, err
	}
	if percentiles == nil {
		percentiles = []float64{}
	}

	var raw rpcFeeHistory
	backoff := util.Backoff{Max: c.cfg.RetryMax, Initial: c.cfg.RetryBackoff, Cap: c.cfg.RetryCap}
	err = util.Retry(ctx, backoff, func(attempt int) error {
		if attempt > 0 {
			c.logger.Debug("fee history retry", "attempt", attempt, "blocks", blockCount, "newest", tag)
		}
		ctxTimeout, cancel := withTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
		raw = rpcFeeHistory{}
		err := c.caller.CallContext(ctxTimeout, &raw, "eth_feeHistory", hexutil.Uint64(blockCount), tag, percentiles)
		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) {
			// the node answered; asking again will not change its mind
			return util.Permanent(err)
		}
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "eth_feeHistory %d blocks at %s", blockCount, tag)
	}
	return decode(&raw)
}

// EncodeBlockTag normalises a newest-block argument: a named tag, a decimal
// or 0x-prefixed block number. Empty means latest.
func EncodeBlockTag(tag string) (string, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return rpc.LatestBlockNumber.String(), nil
	}
	if n, err := strconv.ParseUint(tag, 10, 64); err == nil {
		return hexutil.EncodeUint64(n), nil
	}
	var bn rpc.BlockNumber
	if err := bn.UnmarshalJSON([]byte(strconv.Quote(tag))); err != nil {
		return "", errors.Wrapf(feesuggest.ErrInvalidInput, "block tag %q: %v", tag, err)
	}
	return bn.String(), nil
}

func decode(raw *rpcFeeHistory) (*feesuggest.FeeHistoryWindow, error) {
	if len(raw.BaseFeePerGas) == 0 {
		return nil, errors.Wrap(feesuggest.ErrMissingData, "node returned no baseFeePerGas")
	}
	w := &feesuggest.FeeHistoryWindow{
		GasUsedRatio:  raw.GasUsedRatio,
		BaseFeePerGas: make([]string, len(raw.BaseFeePerGas)),
	}
	if raw.OldestBlock != nil {
		w.OldestBlock = raw.OldestBlock.ToInt().Uint64()
	}
	for i, fee := range raw.BaseFeePerGas {
		wei, err := units.WeiFromBig((*big.Int)(fee))
		if err != nil {
			return nil, errors.Wrapf(feesuggest.ErrInvalidInput, "baseFeePerGas[%d]: %v", i, err)
		}
		w.BaseFeePerGas[i] = wei
	}
	if len(raw.Reward) > 0 {
		w.Reward = make([][]string, len(raw.Reward))
		for i, row := range raw.Reward {
			w.Reward[i] = make([]string, len(row))
			for j, r := range row {
				wei, err := units.WeiFromBig((*big.Int)(r))
				if err != nil {
					return nil, errors.Wrapf(feesuggest.ErrInvalidInput, "reward[%d][%d]: %v", i, j, err)
				}
				w.Reward[i][j] = wei
			}
		}
	}
	return w, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
