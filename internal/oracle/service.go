// Package oracle fetches fee-history windows and turns them into fee
// suggestions.
package oracle

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"feesuggest/internal/feesuggest"
	"feesuggest/internal/units"
)

// Fetcher supplies fee-history windows; *feehistory.Client implements it.
type Fetcher interface {
	FeeHistory(ctx context.Context, blockCount uint64, newest string, percentiles []float64) (*feesuggest.FeeHistoryWindow, error)
}

const (
	opSuggestFees    = "suggest_fees"
	opMaxBaseFee     = "max_base_fee"
	opMaxPriorityFee = "max_priority_fee"
)

type Service struct {
	fetcher Fetcher
	params  feesuggest.Params
	newest  string
	logger  *slog.Logger
	metrics *metrics
}

// NewService validates params and registers the service metrics on reg,
// which may be nil.
func NewService(fetcher Fetcher, params feesuggest.Params, newest string, logger *slog.Logger, reg prometheus.Registerer) (*Service, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if newest == "" {
		newest = "latest"
	}
	m, err := newMetrics(reg)
	if err != nil {
		return nil, errors.Wrap(err, "register metrics")
	}
	return &Service{fetcher: fetcher, params: params, newest: newest, logger: logger, metrics: m}, nil
}

// SuggestFees fetches both windows concurrently and merges both estimates.
// An empty newest uses the configured default.
func (s *Service) SuggestFees(ctx context.Context, newest string) (*feesuggest.Suggestions, error) {
	newest = s.newestOr(newest)
	var baseWindow, priorityWindow *feesuggest.FeeHistoryWindow
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := s.fetchBaseFeeWindow(gctx, newest)
		baseWindow = w
		return err
	})
	g.Go(func() error {
		w, err := s.fetchPriorityWindow(gctx, newest)
		priorityWindow = w
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.fail(opSuggestFees, newest, err)
	}

	res, err := feesuggest.SuggestFees(baseWindow, priorityWindow, s.params)
	if err != nil {
		return nil, s.fail(opSuggestFees, newest, err)
	}
	s.observe(opSuggestFees, res.BaseFeeSuggestion, res.CurrentBaseFee)
	s.logger.Info("fees suggested",
		"newest", newest,
		"base_fee", res.BaseFeeSuggestion,
		"trend", res.BaseFeeTrend,
		"urgent", res.MaxPriorityFeeSuggestions[feesuggest.TierUrgent])
	return res, nil
}

func (s *Service) SuggestMaxBaseFee(ctx context.Context, newest string) (*feesuggest.MaxFeeSuggestions, error) {
	newest = s.newestOr(newest)
	w, err := s.fetchBaseFeeWindow(ctx, newest)
	if err != nil {
		return nil, s.fail(opMaxBaseFee, newest, err)
	}
	res, err := feesuggest.SuggestMaxBaseFee(w, s.params)
	if err != nil {
		return nil, s.fail(opMaxBaseFee, newest, err)
	}
	s.observe(opMaxBaseFee, res.BaseFeeSuggestion, res.CurrentBaseFee)
	s.logger.Info("base fee suggested", "newest", newest, "base_fee", res.BaseFeeSuggestion, "trend", res.BaseFeeTrend)
	return res, nil
}

func (s *Service) SuggestMaxPriorityFee(ctx context.Context, newest string) (*feesuggest.MaxPriorityFeeSuggestions, error) {
	newest = s.newestOr(newest)
	w, err := s.fetchPriorityWindow(ctx, newest)
	if err != nil {
		return nil, s.fail(opMaxPriorityFee, newest, err)
	}
	res, err := feesuggest.SuggestMaxPriorityFee(w, s.params)
	if err != nil {
		return nil, s.fail(opMaxPriorityFee, newest, err)
	}
	s.metrics.requests.WithLabelValues(opMaxPriorityFee, "ok").Inc()
	s.logger.Info("priority fee suggested", "newest", newest, "tiers", res.MaxPriorityFeeSuggestions)
	return res, nil
}

func (s *Service) fetchBaseFeeWindow(ctx context.Context, newest string) (*feesuggest.FeeHistoryWindow, error) {
	start := time.Now()
	w, err := s.fetcher.FeeHistory(ctx, uint64(s.params.MaxHistoryBlocks), newest, nil)
	s.metrics.fetchDuration.WithLabelValues("base_fee").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, errors.Wrap(err, "fetch base fee window")
	}
	s.logger.Debug("base fee window fetched", "oldest", w.OldestBlock, "blocks", w.Blocks())
	return w, nil
}

// fetchPriorityWindow drops the node's trailing pending base fee; the
// priority estimator works on mined blocks only.
func (s *Service) fetchPriorityWindow(ctx context.Context, newest string) (*feesuggest.FeeHistoryWindow, error) {
	start := time.Now()
	w, err := s.fetcher.FeeHistory(ctx, uint64(s.params.PriorityBlocks), newest, s.params.RewardPercentiles)
	s.metrics.fetchDuration.WithLabelValues("priority_fee").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, errors.Wrap(err, "fetch priority fee window")
	}
	s.logger.Debug("priority fee window fetched", "oldest", w.OldestBlock, "blocks", w.Blocks())
	return w.WithoutPending(), nil
}

func (s *Service) newestOr(newest string) string {
	if newest == "" {
		return s.newest
	}
	return newest
}

func (s *Service) observe(op, suggestion, current string) {
	s.metrics.requests.WithLabelValues(op, "ok").Inc()
	if gwei, err := units.WeiToGwei(suggestion); err == nil {
		s.metrics.baseFeeGwei.Set(gwei)
	}
	if gwei, err := units.WeiToGwei(current); err == nil {
		s.metrics.currentBaseGwei.Set(gwei)
	}
}

func (s *Service) fail(op, newest string, err error) error {
	s.metrics.requests.WithLabelValues(op, "error").Inc()
	s.logger.Error("fee suggestion failed", "op", op, "newest", newest, "error", err)
	return err
}
