package integrity

import (
	"context"
	"errors"
	"time"

	"glass-tracker/core/storage"
	"glass-tracker/feature/glass/models"
	"glass-tracker/feature/glass/reconcile"
	"glass-tracker/feature/integrity/checks"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrArchiveDisabled is returned when a report is archived without storage configured.
var ErrArchiveDisabled = errors.New("report archive is not configured")

// Service handles integrity checks.
type Service struct {
	engine  *reconcile.Engine
	db      *gorm.DB
	archive *storage.Archive
	logger  *zap.Logger
}

// NewService creates a new integrity service. archive may be nil.
func NewService(engine *reconcile.Engine, db *gorm.DB, archive *storage.Archive, logger *zap.Logger) *Service {
	return &Service{
		engine:  engine,
		db:      db,
		archive: archive,
		logger:  logger,
	}
}

// Report combines every check.
type Report struct {
	GeneratedAt time.Time               `json:"generated_at"`
	Healthy     bool                    `json:"healthy"`
	Fixed       bool                    `json:"fixed"`
	Schema      *checks.SchemaReport    `json:"schema,omitempty"`
	Drift       *reconcile.DriftReport  `json:"drift,omitempty"`
	Duplicates  *checks.DuplicateReport `json:"duplicates,omitempty"`
	Dashboard   *reconcile.Dashboard    `json:"dashboard,omitempty"`
	Errors      map[string]string       `json:"errors,omitempty"`
	Archived    string                  `json:"archived,omitempty"`
}

// CheckSchema compares the live tables with the model columns.
func (s *Service) CheckSchema() (*checks.SchemaReport, error) {
	return checks.CheckSchema(s.db, models.ExpectedColumns)
}

// CheckDrift audits stored order counters against matched items.
func (s *Service) CheckDrift(ctx context.Context, fix bool) (*reconcile.DriftReport, error) {
	report, err := s.engine.AuditDrift(ctx, fix)
	return &report, err
}

// CheckDuplicates looks for duplicate line items in every batch.
func (s *Service) CheckDuplicates(ctx context.Context, fix bool) (*checks.DuplicateReport, error) {
	return checks.CheckDuplicates(ctx, s.engine, fix)
}

// RunAll runs every check. A failing check is recorded in Errors and the others
// still run.
func (s *Service) RunAll(ctx context.Context, fix bool) *Report {
	report := &Report{GeneratedAt: time.Now().UTC(), Fixed: fix, Errors: map[string]string{}}

	if schema, err := s.CheckSchema(); err != nil {
		report.Errors["schema"] = err.Error()
	} else {
		report.Schema = schema
	}

	// Duplicates first: removing them changes the sums the drift audit compares.
	if dups, err := s.CheckDuplicates(ctx, fix); err != nil {
		report.Errors["duplicates"] = err.Error()
	} else {
		report.Duplicates = dups
	}

	if drift, err := s.CheckDrift(ctx, fix); err != nil {
		report.Errors["drift"] = err.Error()
	} else {
		report.Drift = drift
	}

	if d, err := s.engine.Dashboard(ctx); err != nil {
		report.Errors["dashboard"] = err.Error()
	} else {
		report.Dashboard = &d
	}

	report.Healthy = len(report.Errors) == 0 &&
		report.Schema != nil && report.Schema.Matched &&
		report.Duplicates != nil && (report.Duplicates.Duplicates == 0 || fix) &&
		report.Drift != nil && ((len(report.Drift.Drifted) == 0 && report.Drift.Orphaned == 0) || fix)

	s.logger.Info("Integrity checks completed",
		zap.Bool("healthy", report.Healthy),
		zap.Bool("fix", fix),
		zap.Int("errors", len(report.Errors)),
	)
	return report
}

// Archive uploads a report to object storage and returns the object name.
func (s *Service) Archive(ctx context.Context, kind string, report any) (string, error) {
	if s.archive == nil {
		return "", ErrArchiveDisabled
	}
	if err := s.archive.EnsureBucket(ctx); err != nil {
		return "", err
	}
	return s.archive.Put(ctx, kind, report)
}
