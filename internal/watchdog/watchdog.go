// Package watchdog re-verifies the chain on a fixed interval and reports when
// its integrity changes.
package watchdog

import (
	"context"
	"sync"
	"time"

	"github.com/jmerrifield20/chainledger/internal/chain"
	"go.uber.org/zap"
)

// Config holds watchdog configuration.
type Config struct {
	Interval time.Duration
	Timeout  time.Duration // per audit; defaults to Interval minus one second
}

// Auditor produces a verification report for the current chain.
type Auditor interface {
	Audit(ctx context.Context) (chain.Result, error)
}

// MetricsRecordFunc is an optional callback for recording audit results.
type MetricsRecordFunc func(valid bool)

// Watchdog runs periodic chain audits.
type Watchdog struct {
	auditor   Auditor
	cfg       Config
	onMetrics MetricsRecordFunc
	logger    *zap.Logger

	mu        sync.Mutex
	audited   bool
	lastValid bool
}

// New creates a new Watchdog.
func New(auditor Auditor, cfg Config, logger *zap.Logger) *Watchdog {
	if cfg.Interval == 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = cfg.Interval - time.Second
		if cfg.Timeout <= 0 {
			cfg.Timeout = cfg.Interval
		}
	}
	return &Watchdog{auditor: auditor, cfg: cfg, logger: logger}
}

// SetMetricsRecord configures the metrics recording callback.
func (w *Watchdog) SetMetricsRecord(fn MetricsRecordFunc) {
	w.onMetrics = fn
}

// Start runs the audit loop until ctx is cancelled.
func (w *Watchdog) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			auditCtx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
			_, _ = w.Check(auditCtx)
			cancel()
		case <-ctx.Done():
			return
		}
	}
}

// Check audits the chain once. It logs every transition between a valid and
// an invalid chain; a chain that stays broken is only logged at debug level.
func (w *Watchdog) Check(ctx context.Context) (chain.Result, error) {
	res, err := w.auditor.Audit(ctx)
	if err != nil {
		w.logger.Error("watchdog: audit", zap.Error(err))
		return chain.Result{}, err
	}

	if w.onMetrics != nil {
		w.onMetrics(res.Valid)
	}

	w.mu.Lock()
	first := !w.audited
	wasValid := w.lastValid
	w.audited = true
	w.lastValid = res.Valid
	w.mu.Unlock()

	switch {
	case !res.Valid && (first || wasValid):
		w.logger.Warn("watchdog: chain integrity broken",
			zap.Int("total_blocks", res.TotalBlocks),
			zap.Strings("errors", res.Errors),
		)
	case res.Valid && !first && !wasValid:
		w.logger.Info("watchdog: chain integrity restored",
			zap.Int("total_blocks", res.TotalBlocks),
		)
	case !res.Valid:
		w.logger.Debug("watchdog: chain still broken", zap.Int("errors", len(res.Errors)))
	}
	return res, nil
}
