package admin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/surojitgharami/alumni-portal/internal/http/middleware"
	"github.com/surojitgharami/alumni-portal/internal/modules/events"
	"github.com/surojitgharami/alumni-portal/internal/modules/jobs"
	"github.com/surojitgharami/alumni-portal/internal/modules/lifecycle"
	"github.com/surojitgharami/alumni-portal/internal/modules/reconciliation"
	"github.com/surojitgharami/alumni-portal/internal/modules/roster"
	"github.com/surojitgharami/alumni-portal/internal/shared/apperr"
)

type Handlers struct {
	Promoter  *lifecycle.Promoter
	Reconcile *reconciliation.Service
	Roster    *roster.Service
	Events    *events.Service
	Jobs      *jobs.Service
}

func NewHandlers(p *lifecycle.Promoter, rec *reconciliation.Service, ros *roster.Service, ev *events.Service, jb *jobs.Service) *Handlers {
	return &Handlers{Promoter: p, Reconcile: rec, Roster: ros, Events: ev, Jobs: jb}
}

// POST /admin/cron/upgrade-students
// Manual trigger for the nightly promotion; safe to call repeatedly.
func (h *Handlers) UpgradeStudents(c *gin.Context) {
	n, err := h.Promoter.Run(c.Request.Context())
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"upgraded_count": n})
}

// GET /admin/payments/reconcile
func (h *Handlers) ReconcilePayments(c *gin.Context) {
	res, err := h.Reconcile.Reconcile(c.Request.Context())
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /admin/payments/dashboard
func (h *Handlers) PaymentsDashboard(c *gin.Context) {
	d, err := h.Reconcile.Dashboard(c.Request.Context())
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, d)
}

// POST /admin/payments/webhook-retry/:id
func (h *Handlers) RetryWebhook(c *gin.Context) {
	err := h.Reconcile.RetryOne(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, reconciliation.ErrEventNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Webhook event not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// POST /admin/roster/import
// multipart upload, field name "file".
func (h *Handlers) ImportRoster(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		middleware.Fail(c, apperr.InvalidErr("A CSV file upload is required.", nil))
		return
	}
	f, err := fh.Open()
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	defer f.Close()

	res, err := h.Roster.ImportCSV(c.Request.Context(), f, fh.Filename)
	if err != nil {
		middleware.Fail(c, apperr.InvalidErr("Roster import failed: "+err.Error(), nil))
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /admin/events/:id/approve
func (h *Handlers) ApproveEvent(c *gin.Context) {
	if err := h.Events.Approve(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, events.ErrNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Event not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// POST /admin/jobs/:id/approve
func (h *Handlers) ApproveJob(c *gin.Context) {
	if err := h.Jobs.Approve(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Job not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
