package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/surojitgharami/alumni-portal/internal/auth"
	"github.com/surojitgharami/alumni-portal/internal/http/middleware"
	"github.com/surojitgharami/alumni-portal/internal/http/validation"
	"github.com/surojitgharami/alumni-portal/internal/shared/apperr"
)

type AuthHandlers struct {
	svc *auth.Service
}

func NewAuthHandlers(svc *auth.Service) *AuthHandlers {
	return &AuthHandlers{svc: svc}
}

type verifyRegistrationInput struct {
	RegistrationNumber string `json:"registration_number" binding:"required"`
	Department         string `json:"department" binding:"required"`
	PassoutYear        int    `json:"passout_year" binding:"required"`
}

// POST /auth/verify-registration
func (h *AuthHandlers) VerifyRegistration(c *gin.Context) {
	var in verifyRegistrationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid request.", validation.FromBindError(err, &in)))
		return
	}

	rec, err := h.svc.VerifyRegistration(c.Request.Context(), in.RegistrationNumber, in.Department, in.PassoutYear)
	if err != nil {
		if errors.Is(err, auth.ErrRosterNoMatch) {
			middleware.Fail(c, apperr.NotFoundErr("Registration details not found in student records."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"verified": true, "name": rec.Name})
}

type signupInput struct {
	Name               string `json:"name" binding:"required,min=2,max=128"`
	Email              string `json:"email" binding:"required,email"`
	Password           string `json:"password" binding:"required,min=8"`
	RegistrationNumber string `json:"registration_number" binding:"required"`
	Department         string `json:"department" binding:"required"`
	PassoutYear        int    `json:"passout_year" binding:"required"`
	Phone              string `json:"phone"`
	DOB                string `json:"dob"` // YYYY-MM-DD, optional
}

// POST /auth/signup
func (h *AuthHandlers) Signup(c *gin.Context) {
	var in signupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid request.", validation.FromBindError(err, &in)))
		return
	}

	var dob *time.Time
	if in.DOB != "" {
		t, err := time.Parse("2006-01-02", in.DOB)
		if err != nil {
			middleware.Fail(c, apperr.InvalidErr("Invalid request.", validation.FieldErrors{"dob": "Use YYYY-MM-DD."}))
			return
		}
		dob = &t
	}

	u, err := h.svc.Signup(c.Request.Context(), auth.SignupInput{
		Name:               in.Name,
		Email:              in.Email,
		Password:           in.Password,
		RegistrationNumber: in.RegistrationNumber,
		Department:         in.Department,
		PassoutYear:        in.PassoutYear,
		Phone:              in.Phone,
		DOB:                dob,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrRosterNoMatch):
			middleware.Fail(c, apperr.NotFoundErr("Registration details not found in student records."))
		case errors.Is(err, auth.ErrFuturePassout):
			middleware.Fail(c, apperr.InvalidErr("Passout year is too far in the future.", nil))
		case errors.Is(err, auth.ErrAlreadyRegistered):
			middleware.Fail(c, apperr.ConflictErr("An account already exists for this email or registration number."))
		default:
			middleware.Fail(c, apperr.Wrap(err))
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":    u.ID,
		"email": u.Email,
		"role":  u.Role,
	})
}

type loginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// POST /auth/login
func (h *AuthHandlers) Login(c *gin.Context) {
	var in loginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid request.", validation.FromBindError(err, &in)))
		return
	}

	pair, err := h.svc.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			middleware.Fail(c, apperr.UnauthorizedErr("Invalid email or password."))
		case errors.Is(err, auth.ErrAccountLocked):
			middleware.Fail(c, apperr.ForbiddenErr("Account temporarily locked. Try again later."))
		default:
			middleware.Fail(c, apperr.Wrap(err))
		}
		return
	}

	c.JSON(http.StatusOK, pair)
}

type refreshInput struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// POST /auth/refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var in refreshInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid request.", validation.FromBindError(err, &in)))
		return
	}

	pair, err := h.svc.Refresh(c.Request.Context(), in.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRefresh) {
			middleware.Fail(c, apperr.UnauthorizedErr("Invalid or expired refresh token."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusOK, pair)
}

// POST /auth/logout
func (h *AuthHandlers) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), middleware.GetUserID(c)); err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
