package integrity

import (
	"errors"

	"glass-tracker/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrity checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the integrity routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/integrity")
	group.Get("/", h.HandleIntegrityCheck)
	group.Get("/schema", h.HandleSchemaCheck)
	group.Get("/drift", h.HandleDriftCheck)
	group.Get("/duplicates", h.HandleDuplicateCheck)
}

// HandleIntegrityCheck triggers all integrity checks.
// @Summary Run All Integrity Checks
// @Description Runs the schema, duplicate and drift checks. This operation may take a long time.
// @Tags integrity
// @Accept json
// @Produce json
// @Param fix query boolean false "Repair duplicates and drifted counters"
// @Param archive query boolean false "Archive the report to object storage"
// @Success 200 {object} Report "Combined Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity [get]
func (h *Handler) HandleIntegrityCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := c.Query("fix") == "true"
	l.Info("Triggering all integrity checks", zap.Bool("fix", fix))

	report := h.service.RunAll(c.Context(), fix)

	if c.Query("archive") == "true" {
		name, err := h.service.Archive(c.Context(), "full", report)
		switch {
		case errors.Is(err, ErrArchiveDisabled):
			report.Errors["archive"] = err.Error()
		case err != nil:
			l.Error("Report archive failed", zap.Error(err))
			report.Errors["archive"] = err.Error()
		default:
			report.Archived = name
		}
	}

	return c.JSON(report)
}

// HandleSchemaCheck checks the database schema.
// @Summary Check Schema
// @Description Checks that every table carries the columns the models expect.
// @Tags integrity
// @Produce json
// @Success 200 {object} checks.SchemaReport "Schema Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/schema [get]
func (h *Handler) HandleSchemaCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.CheckSchema()
	if err != nil {
		l.Error("Schema check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if !report.Matched {
		l.Warn("Schema drift detected", zap.Strings("errors", report.Errors))
	}
	return c.JSON(report)
}

// HandleDriftCheck audits and optionally repairs order counters.
// @Summary Check Counter Drift
// @Description Compares stored order counters with the sums of matched items. Optionally recomputes drifted orders.
// @Tags integrity
// @Produce json
// @Param fix query boolean false "Recompute drifted orders"
// @Success 200 {object} reconcile.DriftReport "Drift Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/drift [get]
func (h *Handler) HandleDriftCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := c.Query("fix") == "true"

	report, err := h.service.CheckDrift(c.Context(), fix)
	if err != nil {
		l.Error("Drift audit failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":  err.Error(),
			"report": report,
		})
	}

	if len(report.Drifted) > 0 {
		l.Warn("Counter drift detected", zap.Int("orders", len(report.Drifted)), zap.Bool("fix", fix))
	}
	return c.JSON(report)
}

// HandleDuplicateCheck counts and optionally removes duplicate line items.
// @Summary Check Duplicates
// @Tags integrity
// @Produce json
// @Param fix query boolean false "Delete duplicates"
// @Success 200 {object} checks.DuplicateReport "Duplicate Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/duplicates [get]
func (h *Handler) HandleDuplicateCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := c.Query("fix") == "true"

	report, err := h.service.CheckDuplicates(c.Context(), fix)
	if err != nil {
		l.Error("Duplicate check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":  err.Error(),
			"report": report,
		})
	}
	return c.JSON(report)
}
