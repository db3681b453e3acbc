package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/surojitgharami/alumni-portal/internal/http/middleware"
	"github.com/surojitgharami/alumni-portal/internal/modules/donations"
	"github.com/surojitgharami/alumni-portal/internal/shared/apperr"
)

type DonationHandlers struct {
	repo *donations.Repo
}

func NewDonationHandlers(repo *donations.Repo) *DonationHandlers {
	return &DonationHandlers{repo: repo}
}

// GET /donations/my
func (h *DonationHandlers) My(c *gin.Context) {
	list, err := h.repo.ListByUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"donations": list})
}

// GET /admin/donations?page=1&page_size=20
func (h *DonationHandlers) AdminList(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	res, err := h.repo.ListAll(c.Request.Context(), page, pageSize)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, res)
}
