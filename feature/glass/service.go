package glass

import (
	"context"
	"io"

	"glass-tracker/feature/glass/reconcile"

	"go.uber.org/zap"
)

// Service handles glass reconciliation operations.
type Service struct {
	engine *reconcile.Engine
	logger *zap.Logger
}

// NewService creates a new glass service.
func NewService(engine *reconcile.Engine, logger *zap.Logger) *Service {
	return &Service{
		engine: engine,
		logger: logger,
	}
}

// Engine returns the underlying reconciliation engine.
func (s *Service) Engine() *reconcile.Engine {
	return s.engine
}

// ExportWorklist writes the validations matching filter as an XLSX workbook.
func (s *Service) ExportWorklist(ctx context.Context, f reconcile.WorklistFilter, w io.Writer) (int, error) {
	if f.Limit <= 0 {
		f.Limit = exportLimit
	}
	rows, _, err := s.engine.Worklist(ctx, f)
	if err != nil {
		return 0, err
	}
	if err := WriteWorklist(w, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}
