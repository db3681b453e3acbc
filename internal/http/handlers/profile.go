package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/surojitgharami/alumni-portal/internal/http/middleware"
	"github.com/surojitgharami/alumni-portal/internal/http/validation"
	"github.com/surojitgharami/alumni-portal/internal/modules/users"
	"github.com/surojitgharami/alumni-portal/internal/shared/apperr"
)

type ProfileHandlers struct {
	repo *users.Repo
}

func NewProfileHandlers(repo *users.Repo) *ProfileHandlers {
	return &ProfileHandlers{repo: repo}
}

type profileView struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	Department         string     `json:"department"`
	Phone              string     `json:"phone,omitempty"`
	DOB                *time.Time `json:"dob,omitempty"`
	RegistrationNumber string     `json:"registration_number"`
	PassoutYear        int        `json:"passout_year"`
	Role               string     `json:"role"`
	MembershipStatus   string     `json:"membership_status"`
	JoinedAt           time.Time  `json:"joined_at"`
}

func toProfileView(u users.User) profileView {
	return profileView{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		Department:         u.Department,
		Phone:              u.Phone,
		DOB:                u.DOB,
		RegistrationNumber: u.RegistrationNumber,
		PassoutYear:        u.PassoutYear,
		Role:               u.Role,
		MembershipStatus:   u.MembershipStatus,
		JoinedAt:           u.JoinedAt,
	}
}

// GET /profile/me
func (h *ProfileHandlers) Me(c *gin.Context) {
	u, err := h.repo.GetByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Profile not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, toProfileView(u))
}

type profileUpdateInput struct {
	Name       *string `json:"name" binding:"omitempty,min=2,max=128"`
	Department *string `json:"department" binding:"omitempty,max=64"`
	Phone      *string `json:"phone" binding:"omitempty,max=20"`
	DOB        *string `json:"dob"` // YYYY-MM-DD
}

// PUT /profile/me
// Registration number, passout year and role are immutable here.
func (h *ProfileHandlers) Update(c *gin.Context) {
	var in profileUpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid request.", validation.FromBindError(err, &in)))
		return
	}

	fields := map[string]any{}
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.Department != nil {
		fields["department"] = *in.Department
	}
	if in.Phone != nil {
		fields["phone"] = *in.Phone
	}
	if in.DOB != nil {
		t, err := time.Parse("2006-01-02", *in.DOB)
		if err != nil {
			middleware.Fail(c, apperr.InvalidErr("Invalid request.", validation.FieldErrors{"dob": "Use YYYY-MM-DD."}))
			return
		}
		fields["dob"] = t
	}
	if len(fields) == 0 {
		middleware.Fail(c, apperr.InvalidErr("Nothing to update.", nil))
		return
	}

	u, err := h.repo.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), fields)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, toProfileView(u))
}
