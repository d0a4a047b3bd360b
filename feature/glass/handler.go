package glass

import (
	"errors"
	"net/url"
	"strings"

	"glass-tracker/core/lock"
	"glass-tracker/core/logger"
	"glass-tracker/core/utils"
	"glass-tracker/feature/glass/models"
	"glass-tracker/feature/glass/reconcile"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for glass reconciliation.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the glass routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/glass")

	group.Post("/orders", h.HandleUpsertOrder)
	group.Get("/orders/:orderNumber", h.HandleGetOrder)
	group.Delete("/orders/:orderNumber", h.HandleDeleteOrder)
	group.Post("/orders/:orderNumber/recompute", h.HandleRecompute)

	group.Post("/glass-orders", h.HandleIngestGlassOrders)
	group.Delete("/glass-orders/:id", h.HandleDeleteGlassOrders)
	group.Post("/deliveries", h.HandleIngestDeliveries)
	group.Delete("/deliveries/:id", h.HandleDeleteDeliveries)
	group.Post("/deliveries/:id/dedup", h.HandleDedupDeliveries)

	group.Get("/validations", h.HandleWorklist)
	group.Get("/validations/dashboard", h.HandleDashboard)
	group.Post("/validations/:id/resolve", h.HandleResolve)

	group.Get("/items/conflicts", h.HandleConflicts)
	group.Post("/items/:kind/:id/assign", h.HandleAssign)
	group.Get("/explain/:raw", h.HandleExplain)

	group.Post("/rematch", h.HandleRematch)
	group.Get("/worklist.xlsx", h.HandleExportWorklist)
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	var ambiguity *reconcile.AmbiguityError
	switch {
	case errors.Is(err, reconcile.ErrOrderNotFound),
		errors.Is(err, reconcile.ErrItemNotFound),
		errors.Is(err, reconcile.ErrBatchNotFound),
		errors.Is(err, reconcile.ErrValidationNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, reconcile.ErrInvalidFact):
		return fiber.StatusBadRequest
	case errors.Is(err, reconcile.ErrConcurrentUpdate), errors.As(err, &ambiguity):
		return fiber.StatusConflict
	case errors.Is(err, lock.ErrNotObtained):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func (h *Handler) fail(c *fiber.Ctx, msg string, err error) error {
	l := logger.WithRayID(h.service.logger, c)
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		l.Error(msg, zap.Error(err))
	} else {
		l.Warn(msg, zap.Error(err), zap.Int("status", status))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// pathParam decodes a route parameter. Order numbers may contain spaces
// ("54222 a") and arrive percent-encoded; an undecodable value is returned as is.
func pathParam(c *fiber.Ctx, name string) string {
	raw := c.Params(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func idParam(c *fiber.Ctx) (uint, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

// UpsertOrderRequest registers an order.
type UpsertOrderRequest struct {
	OrderNumber string `json:"order_number"`
}

// HandleUpsertOrder registers or restores an order.
// @Summary Register Order
// @Description Creates (or restores) a production order and re-drives unmatched glass items sharing its base.
// @Tags glass
// @Accept json
// @Produce json
// @Param request body UpsertOrderRequest true "Order"
// @Success 200 {object} models.Order "Order"
// @Success 201 {object} models.Order "Order created"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /glass/orders [post]
func (h *Handler) HandleUpsertOrder(c *fiber.Ctx) error {
	var req UpsertOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	order, created, err := h.service.engine.UpsertOrder(c.Context(), req.OrderNumber)
	if err != nil {
		return h.fail(c, "Order upsert failed", err)
	}
	if created {
		return c.Status(fiber.StatusCreated).JSON(order)
	}
	return c.JSON(order)
}

// HandleGetOrder returns an order with its open validations.
// @Summary Get Order
// @Description Returns the glass counters, status and open validations of an order.
// @Tags glass
// @Produce json
// @Param orderNumber path string true "Order number"
// @Success 200 {object} reconcile.OrderView "Order"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /glass/orders/{orderNumber} [get]
func (h *Handler) HandleGetOrder(c *fiber.Ctx) error {
	view, err := h.service.engine.GetOrder(c.Context(), pathParam(c, "orderNumber"))
	if err != nil {
		return h.fail(c, "Order lookup failed", err)
	}
	return c.JSON(view)
}

// HandleDeleteOrder soft-deletes an order.
// @Summary Delete Order
// @Description Soft-deletes an order; its items go back through the matcher.
// @Tags glass
// @Produce json
// @Param orderNumber path string true "Order number"
// @Success 200 {object} reconcile.RematchResult "Rematch Result"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /glass/orders/{orderNumber} [delete]
func (h *Handler) HandleDeleteOrder(c *fiber.Ctx) error {
	res, err := h.service.engine.DeleteOrder(c.Context(), pathParam(c, "orderNumber"))
	if err != nil {
		return h.fail(c, "Order delete failed", err)
	}
	return c.JSON(res)
}

// HandleRecompute recomputes one order.
// @Summary Recompute Order
// @Description Rederives ordered/delivered counters and status from matched items.
// @Tags glass
// @Produce json
// @Param orderNumber path string true "Order number"
// @Success 200 {object} reconcile.RecomputeResult "Recompute Result"
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /glass/orders/{orderNumber}/recompute [post]
func (h *Handler) HandleRecompute(c *fiber.Ctx) error {
	res, err := h.service.engine.Recompute(c.Context(), pathParam(c, "orderNumber"))
	if err != nil {
		return h.fail(c, "Recompute failed", err)
	}
	if !res.Found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": reconcile.ErrOrderNotFound.Error()})
	}
	return c.JSON(res)
}

// HandleIngestGlassOrders imports a supplier glass order.
// @Summary Import Glass Order
// @Description Stores a glass-order batch (found by source_ref), removes duplicate lines and matches the rest.
// @Tags glass
// @Accept json
// @Produce json
// @Param request body reconcile.GlassOrderBatchInput true "Batch"
// @Success 200 {object} reconcile.IngestResult "Ingest Result"
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /glass/glass-orders [post]
func (h *Handler) HandleIngestGlassOrders(c *fiber.Ctx) error {
	var in reconcile.GlassOrderBatchInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	res, err := h.service.engine.IngestGlassOrderBatch(c.Context(), in)
	if err != nil {
		return h.fail(c, "Glass order import failed", err)
	}
	return c.JSON(res)
}

// HandleDeleteGlassOrders deletes a glass-order batch.
// @Summary Delete Glass Order
// @Tags glass
// @Produce json
// @Param id path int true "Batch ID"
// @Success 200 {object} reconcile.DeleteResult "Delete Result"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /glass/glass-orders/{id} [delete]
func (h *Handler) HandleDeleteGlassOrders(c *fiber.Ctx) error {
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid batch id")
	}
	res, err := h.service.engine.DeleteGlassOrderBatch(c.Context(), id)
	if err != nil {
		return h.fail(c, "Glass order delete failed", err)
	}
	return c.JSON(res)
}

// HandleIngestDeliveries imports a delivery.
// @Summary Import Delivery
// @Description Stores a delivery batch (found by source_ref), removes duplicate lines and matches the rest.
// @Tags glass
// @Accept json
// @Produce json
// @Param request body reconcile.DeliveryBatchInput true "Batch"
// @Success 200 {object} reconcile.IngestResult "Ingest Result"
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /glass/deliveries [post]
func (h *Handler) HandleIngestDeliveries(c *fiber.Ctx) error {
	var in reconcile.DeliveryBatchInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	res, err := h.service.engine.IngestDeliveryBatch(c.Context(), in)
	if err != nil {
		return h.fail(c, "Delivery import failed", err)
	}
	return c.JSON(res)
}

// HandleDeleteDeliveries deletes a delivery batch.
// @Summary Delete Delivery
// @Tags glass
// @Produce json
// @Param id path int true "Batch ID"
// @Success 200 {object} reconcile.DeleteResult "Delete Result"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /glass/deliveries/{id} [delete]
func (h *Handler) HandleDeleteDeliveries(c *fiber.Ctx) error {
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid batch id")
	}
	res, err := h.service.engine.DeleteDeliveryBatch(c.Context(), id)
	if err != nil {
		return h.fail(c, "Delivery delete failed", err)
	}
	return c.JSON(res)
}

// HandleDedupDeliveries removes duplicate lines from one delivery.
// @Summary Deduplicate Delivery
// @Description Removes duplicate delivery lines, keeping the earliest. Optionally reports only.
// @Tags glass
// @Produce json
// @Param id path int true "Batch ID"
// @Param dry_run query boolean false "Report without deleting"
// @Success 200 {object} reconcile.DedupResult "Dedup Result"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /glass/deliveries/{id}/dedup [post]
func (h *Handler) HandleDedupDeliveries(c *fiber.Ctx) error {
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid batch id")
	}
	dryRun := c.Query("dry_run") == "true"

	res, err := h.service.engine.DedupBatch(c.Context(), models.KindDeliveryItem, id, dryRun)
	if err != nil {
		return h.fail(c, "Delivery dedup failed", err)
	}
	return c.JSON(res)
}

func worklistFilter(c *fiber.Ctx) reconcile.WorklistFilter {
	return reconcile.WorklistFilter{
		Type:        models.ValidationType(c.Query("type")),
		Severity:    models.Severity(c.Query("severity")),
		OrderNumber: c.Query("order"),
		Resolved:    utils.ParseBoolPtr(c.Query("resolved")),
		Limit:       c.QueryInt("limit"),
		Offset:      c.QueryInt("offset"),
	}
}

// HandleWorklist lists validations.
// @Summary Validation Worklist
// @Description Lists validations, newest first. Defaults to unresolved ones.
// @Tags glass
// @Produce json
// @Param type query string false "Validation type"
// @Param severity query string false "Severity"
// @Param order query string false "Order number"
// @Param resolved query boolean false "Resolved state (default false)"
// @Param limit query int false "Page size (default 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} map[string]interface{} "Worklist"
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /glass/validations [get]
func (h *Handler) HandleWorklist(c *fiber.Ctx) error {
	f := worklistFilter(c)
	if f.Type != "" && !f.Type.Valid() {
		return badRequest(c, "unknown validation type")
	}

	rows, total, err := h.service.engine.Worklist(c.Context(), f)
	if err != nil {
		return h.fail(c, "Worklist failed", err)
	}
	return c.JSON(fiber.Map{
		"total":       total,
		"validations": rows,
	})
}

// HandleDashboard returns triage counters.
// @Summary Validation Dashboard
// @Tags glass
// @Produce json
// @Success 200 {object} reconcile.Dashboard "Dashboard"
// @Router /glass/validations/dashboard [get]
func (h *Handler) HandleDashboard(c *fiber.Ctx) error {
	d, err := h.service.engine.Dashboard(c.Context())
	if err != nil {
		return h.fail(c, "Dashboard failed", err)
	}
	return c.JSON(d)
}

// ResolveRequest closes a validation.
type ResolveRequest struct {
	ResolvedBy string `json:"resolved_by"`
	Note       string `json:"note"`
}

// HandleResolve resolves a validation on behalf of an operator.
// @Summary Resolve Validation
// @Tags glass
// @Accept json
// @Produce json
// @Param id path int true "Validation ID"
// @Param request body ResolveRequest true "Resolution"
// @Success 200 {object} models.GlassOrderValidation "Validation"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /glass/validations/{id}/resolve [post]
func (h *Handler) HandleResolve(c *fiber.Ctx) error {
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid validation id")
	}
	var req ResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	v, err := h.service.engine.Resolve(c.Context(), id, strings.TrimSpace(req.ResolvedBy), req.Note)
	if err != nil {
		return h.fail(c, "Resolve failed", err)
	}
	return c.JSON(v)
}

// HandleConflicts lists items waiting for a decision.
// @Summary List Conflicts
// @Description Lists conflict items of both kinds, or another match status via ?status=.
// @Tags glass
// @Produce json
// @Param status query string false "Match status (default conflict)"
// @Param limit query int false "Page size per kind (default 100)"
// @Success 200 {array} reconcile.ItemView "Items"
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /glass/items/conflicts [get]
func (h *Handler) HandleConflicts(c *fiber.Ctx) error {
	status := models.MatchStatus(c.Query("status", string(models.MatchConflict)))
	items, err := h.service.engine.ListItems(c.Context(), status, c.QueryInt("limit"))
	if err != nil {
		return h.fail(c, "Item listing failed", err)
	}
	return c.JSON(items)
}

// AssignRequest attributes an item to an order.
type AssignRequest struct {
	OrderNumber string `json:"order_number"`
	Actor       string `json:"actor"`
}

// HandleAssign attributes a line item to an order manually.
// @Summary Assign Item
// @Description Marks a conflict or unmatched item as matched to an existing order and recomputes.
// @Tags glass
// @Accept json
// @Produce json
// @Param kind path string true "Item kind (order|delivery)"
// @Param id path int true "Item ID"
// @Param request body AssignRequest true "Assignment"
// @Success 200 {object} reconcile.SettleReport "Settle Report"
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 409 {object} map[string]string "Conflict"
// @Router /glass/items/{kind}/{id}/assign [post]
func (h *Handler) HandleAssign(c *fiber.Ctx) error {
	kind := models.ItemKind(c.Params("kind"))
	if !kind.Valid() {
		return badRequest(c, "unknown item kind")
	}
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid item id")
	}
	var req AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := h.service.engine.AssignItem(c.Context(), kind, id, strings.TrimSpace(req.OrderNumber), strings.TrimSpace(req.Actor))
	if err != nil {
		return h.fail(c, "Assign failed", err)
	}
	return c.JSON(res)
}

// HandleExplain shows what the matcher would decide for a raw order number.
// @Summary Explain Match
// @Tags glass
// @Produce json
// @Param raw path string true "Raw order number"
// @Success 200 {object} reconcile.Decision "Decision"
// @Router /glass/explain/{raw} [get]
func (h *Handler) HandleExplain(c *fiber.Ctx) error {
	d, err := h.service.engine.Explain(c.Context(), pathParam(c, "raw"))
	if err != nil {
		return h.fail(c, "Explain failed", err)
	}
	resp := fiber.Map{"decision": d}
	if d.Err != nil {
		resp["detail"] = d.Err.Error()
	}
	return c.JSON(resp)
}

// HandleRematch runs the rematch sweep.
// @Summary Run Rematch
// @Description Re-drives every pending or unmatched item and open missing-order validation. Concurrent calls share one run.
// @Tags glass
// @Produce json
// @Success 200 {object} reconcile.RematchResult "Rematch Result"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /glass/rematch [post]
func (h *Handler) HandleRematch(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Triggering rematch sweep")

	res, err := h.service.engine.Rematch(c.Context())
	if err != nil {
		return h.fail(c, "Rematch failed", err)
	}
	return c.JSON(res)
}

// HandleExportWorklist downloads the worklist as XLSX.
// @Summary Export Worklist
// @Tags glass
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param type query string false "Validation type"
// @Param severity query string false "Severity"
// @Param resolved query boolean false "Resolved state (default false)"
// @Success 200 {file} file "Workbook"
// @Router /glass/worklist.xlsx [get]
func (h *Handler) HandleExportWorklist(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="worklist.xlsx"`)

	n, err := h.service.ExportWorklist(c.Context(), worklistFilter(c), c.Response().BodyWriter())
	if err != nil {
		c.Response().Header.Del(fiber.HeaderContentDisposition)
		c.Response().ResetBody()
		return h.fail(c, "Worklist export failed", err)
	}
	logger.WithRayID(h.service.logger, c).Info("Worklist exported", zap.Int("rows", n))
	return nil
}
