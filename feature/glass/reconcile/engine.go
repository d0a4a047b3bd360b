package reconcile

import (
	"context"
	"time"

	"glass-tracker/core/lock"
	sweep "glass-tracker/core/reconcile"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Resolution actors written by the engine.
const (
	ResolvedByRecompute = "system-recompute"
	ResolvedByRematch   = "system-rematch"
)

// Engine runs the reconciliation chain against one database.
type Engine struct {
	db        *gorm.DB
	locker    lock.Locker
	logger    *zap.Logger
	cfg       sweep.Config
	coalescer *sweep.Coalescer[RematchResult]
	now       func() time.Time
}

// NewEngine wires an engine. A nil locker falls back to an in-process one.
func NewEngine(db *gorm.DB, locker lock.Locker, logger *zap.Logger, cfg sweep.Config) *Engine {
	if locker == nil {
		locker = lock.NewLocal(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		db:        db,
		locker:    locker,
		logger:    logger,
		cfg:       cfg.Normalized(),
		coalescer: sweep.NewCoalescer[RematchResult](),
		now:       time.Now,
	}
}

// Config returns the normalized sweep configuration.
func (e *Engine) Config() sweep.Config {
	return e.cfg
}

// SettleReport counts the follow-up work triggered by a change.
type SettleReport struct {
	Recomputed      int `json:"recomputed"`
	RecomputeFailed int `json:"recompute_failed"`
	Refreshed       int `json:"refreshed"`
	RefreshFailed   int `json:"refresh_failed"`
}

func (s *SettleReport) add(o SettleReport) {
	s.Recomputed += o.Recomputed
	s.RecomputeFailed += o.RecomputeFailed
	s.Refreshed += o.Refreshed
	s.RefreshFailed += o.RefreshFailed
}

// settle recomputes every affected order and refreshes the missing-order ledger for
// every affected raw string. Failures are logged per key and counted.
func (e *Engine) settle(ctx context.Context, orders, raws []string) SettleReport {
	var report SettleReport

	if len(orders) > 0 {
		r := e.RecomputeMany(ctx, orders)
		report.Recomputed = r.Processed
		report.RecomputeFailed = len(r.Failed) + r.Skipped
	}
	if len(raws) > 0 {
		r := sweep.ForEachKey(ctx, raws, e.cfg.Workers, func(ctx context.Context, raw string) error {
			return e.RefreshMissing(ctx, raw)
		})
		for _, key := range r.FailedKeys() {
			e.logger.Warn("Failed to refresh missing-order validation", zap.String("raw", key), zap.Error(r.Failed[key]))
		}
		report.Refreshed = r.Processed
		report.RefreshFailed = len(r.Failed) + r.Skipped
	}
	return report
}

// withLock runs fn while holding key.
func (e *Engine) withLock(ctx context.Context, key string, fn func() error) error {
	unlock, err := e.locker.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

func orderLockKey(orderNumber string) string { return "order:" + orderNumber }

func missingLockKey(raw string) string { return "missing:" + raw }
