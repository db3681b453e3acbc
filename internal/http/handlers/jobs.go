package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/surojitgharami/alumni-portal/internal/http/middleware"
	"github.com/surojitgharami/alumni-portal/internal/http/validation"
	"github.com/surojitgharami/alumni-portal/internal/modules/jobs"
	"github.com/surojitgharami/alumni-portal/internal/shared/apperr"
)

type JobHandlers struct {
	svc *jobs.Service
}

func NewJobHandlers(svc *jobs.Service) *JobHandlers {
	return &JobHandlers{svc: svc}
}

// GET /jobs — approved postings only.
func (h *JobHandlers) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), true)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": list})
}

type jobCreateInput struct {
	Title           string  `json:"title" binding:"required,max=255"`
	Company         string  `json:"company" binding:"required,max=128"`
	Description     string  `json:"description" binding:"required"`
	Location        string  `json:"location" binding:"required,max=255"`
	JobType         string  `json:"job_type" binding:"omitempty,oneof=full-time part-time internship contract"`
	SalaryRange     *string `json:"salary_range"`
	ApplicationLink *string `json:"application_link" binding:"omitempty,url"`
}

// POST /jobs — posting, invisible until approved.
func (h *JobHandlers) Create(c *gin.Context) {
	var in jobCreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid request.", validation.FromBindError(err, &in)))
		return
	}

	job, err := h.svc.Create(c.Request.Context(), jobs.CreateInput{
		Title:           in.Title,
		Company:         in.Company,
		Description:     in.Description,
		Location:        in.Location,
		JobType:         in.JobType,
		SalaryRange:     in.SalaryRange,
		ApplicationLink: in.ApplicationLink,
		CreatedBy:       middleware.GetUserID(c),
	})
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusCreated, job)
}
