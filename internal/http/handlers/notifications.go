package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/surojitgharami/alumni-portal/internal/http/middleware"
	"github.com/surojitgharami/alumni-portal/internal/modules/notifications"
	"github.com/surojitgharami/alumni-portal/internal/shared/apperr"
)

type NotificationHandlers struct {
	svc *notifications.Service
}

func NewNotificationHandlers(svc *notifications.Service) *NotificationHandlers {
	return &NotificationHandlers{svc: svc}
}

// GET /notifications?unread=1
func (h *NotificationHandlers) List(c *gin.Context) {
	unreadOnly := c.Query("unread") == "1" || c.Query("unread") == "true"
	list, err := h.svc.ListByUser(c.Request.Context(), middleware.GetUserID(c), unreadOnly)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

// POST /notifications/:id/read
func (h *NotificationHandlers) MarkRead(c *gin.Context) {
	err := h.svc.MarkRead(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Notification not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
