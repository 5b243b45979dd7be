package ugc

import (
	"errors"

	"waypoint-sync/core/logger"
	"waypoint-sync/core/reconcile"
	ugcsync "waypoint-sync/feature/ugc/sync"
	"waypoint-sync/feature/waypoint"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for sync runs.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the sync routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/sync")
	group.Get("/status", h.HandleStatus)
	group.Get("/reports", h.HandleListReports)
	group.Post("/run", h.HandleRun)
	group.Post("/reconcile/:kind", h.HandleReconcile)
	group.Post("/stop", h.HandleStop)
	group.Post("/resume", h.HandleResume)
}

// HandleStatus returns the running state and the last run reports.
func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	return c.JSON(h.service.Status())
}

// HandleRun starts a sync in the background.
// The optional "kind" query parameter restricts the run to one asset kind
// and skips the recommended phase.
func (h *Handler) HandleRun(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var opts ugcsync.Options
	if raw := c.Query("kind"); raw != "" {
		kind, err := waypoint.ParseAssetKind(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		opts.Kinds = []waypoint.AssetKind{kind}
		opts.SkipRecommended = true
	}

	if err := h.service.TriggerSync(opts); err != nil {
		return h.triggerError(c, l, err)
	}
	l.Info("Sync triggered", zap.Any("kinds", opts.Kinds))
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "started"})
}

// HandleReconcile starts a reconciliation of one kind in the background.
// It is a dry run unless "apply=true" is given.
func (h *Handler) HandleReconcile(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	kind, err := waypoint.ParseAssetKind(c.Params("kind"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	apply := c.QueryBool("apply", false)
	opts := reconcile.ReconcileOptions{DryRun: !apply, Confirmed: apply}

	if err := h.service.TriggerReconcile(kind, opts); err != nil {
		return h.triggerError(c, l, err)
	}
	l.Info("Reconciliation triggered", zap.String("kind", kind.String()), zap.Bool("apply", apply))
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":  "started",
		"kind":    kind.String(),
		"dry_run": !apply,
	})
}

// HandleStop pauses scheduled runs. A run already in progress finishes.
func (h *Handler) HandleStop(c *fiber.Ctx) error {
	changed, err := h.service.StopSchedule()
	if err != nil {
		return h.scheduleError(c, err)
	}
	if changed {
		logger.WithRayID(h.service.logger, c).Info("Schedule stopped")
	}
	return c.JSON(fiber.Map{"status": "stopped", "changed": changed})
}

// HandleResume resumes scheduled runs after a stop.
func (h *Handler) HandleResume(c *fiber.Ctx) error {
	changed, err := h.service.ResumeSchedule()
	if err != nil {
		return h.scheduleError(c, err)
	}
	if changed {
		logger.WithRayID(h.service.logger, c).Info("Schedule resumed")
	}
	return c.JSON(fiber.Map{"status": "scheduled", "changed": changed})
}

func (h *Handler) scheduleError(c *fiber.Ctx, err error) error {
	if errors.Is(err, ErrNoSchedule) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

// HandleListReports lists archived run reports.
func (h *Handler) HandleListReports(c *fiber.Ctx) error {
	archive := h.service.Archive()
	if archive == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "report archive is disabled"})
	}
	keys, err := archive.List(c.Context())
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Failed to list reports", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"reports": keys})
}

func (h *Handler) triggerError(c *fiber.Ctx, l *zap.Logger, err error) error {
	if errors.Is(err, ErrRunInProgress) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	l.Error("Failed to trigger run", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
