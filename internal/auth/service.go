package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/surojitgharami/alumni-portal/internal/config"
	"github.com/surojitgharami/alumni-portal/internal/modules/roster"
	"github.com/surojitgharami/alumni-portal/internal/modules/users"
)

var (
	ErrRosterNoMatch      = errors.New("registration details not found in student records")
	ErrFuturePassout      = errors.New("passout year too far in the future")
	ErrAlreadyRegistered  = errors.New("account already exists for this email or registration number")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrInvalidRefresh     = errors.New("invalid or expired refresh token")
)

const (
	maxLoginFailures = 5
	lockoutDuration  = 10 * time.Minute
)

// AdminUserID is the synthetic subject used by the env-bootstrapped admin
// login. No users row exists for it.
const AdminUserID = "admin"

type Service struct {
	db     *gorm.DB
	repo   *users.Repo
	roster *roster.Service
	cfg    config.Config
	logger *slog.Logger
	now    func() time.Time
}

func NewService(db *gorm.DB, rosterSvc *roster.Service, cfg config.Config) *Service {
	return &Service{
		db:     db,
		repo:   users.NewRepo(db),
		roster: rosterSvc,
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
	}
}

func (s *Service) SetLogger(logger *slog.Logger) { s.logger = logger }

// SetClock overrides the time source, for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// VerifyRegistration checks the roster without creating anything, so the
// signup form can gate early.
func (s *Service) VerifyRegistration(ctx context.Context, regNo, department string, passoutYear int) (roster.StudentRecord, error) {
	rec, err := s.roster.Lookup(ctx, regNo, department, passoutYear)
	if err != nil {
		if errors.Is(err, roster.ErrNoMatch) {
			return roster.StudentRecord{}, ErrRosterNoMatch
		}
		return roster.StudentRecord{}, err
	}
	return rec, nil
}

type SignupInput struct {
	Name               string
	Email              string
	Password           string
	RegistrationNumber string
	Department         string
	PassoutYear        int
	Phone              string
	DOB                *time.Time
}

// Signup registers a new account. The registration must match an active
// student-master row, and the role is decided once, here: a passout year in
// the past means the account starts life as alumni with the promotion
// sentinel already set, so the nightly promoter never touches it.
func (s *Service) Signup(ctx context.Context, in SignupInput) (users.User, error) {
	currentYear := s.now().Year()
	if in.PassoutYear > currentYear+1 {
		return users.User{}, ErrFuturePassout
	}

	if _, err := s.roster.Lookup(ctx, in.RegistrationNumber, in.Department, in.PassoutYear); err != nil {
		if errors.Is(err, roster.ErrNoMatch) {
			return users.User{}, ErrRosterNoMatch
		}
		return users.User{}, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return users.User{}, err
	}

	now := s.now()
	u := users.User{
		ID:                 uuid.NewString(),
		Name:               in.Name,
		DOB:                in.DOB,
		Department:         in.Department,
		Phone:              in.Phone,
		Email:              in.Email,
		RegistrationNumber: in.RegistrationNumber,
		PassoutYear:        in.PassoutYear,
		PasswordHash:       hash,
		Role:               users.RoleStudent,
		MembershipStatus:   users.MembershipUnpaid,
		JoinedAt:           now,
		UpdatedAt:          now,
	}
	if in.PassoutYear <= currentYear {
		u.Role = users.RoleAlumni
		u.UpgradedToAlumniAt = &now
	}

	if err := s.repo.Create(ctx, &u); err != nil {
		if users.IsDup(err) {
			return users.User{}, ErrAlreadyRegistered
		}
		return users.User{}, err
	}

	s.logger.InfoContext(ctx, "user signed up",
		"user_id", u.ID, "role", u.Role, "passout_year", u.PassoutYear)
	return u, nil
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Login authenticates by email and password and issues a token pair. Five
// consecutive failures lock the account for ten minutes. The configured admin
// email bypasses the users table entirely.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, error) {
	if s.cfg.Admin.PasswordHash != "" && email == s.cfg.Admin.Email {
		if bcrypt.CompareHashAndPassword([]byte(s.cfg.Admin.PasswordHash), []byte(password)) != nil {
			return TokenPair{}, ErrInvalidCredentials
		}
		return s.issuePair(ctx, AdminUserID, users.RoleAdmin, "Administrator")
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}

	now := s.now()
	if u.LockedUntil != nil && u.LockedUntil.After(now) {
		return TokenPair{}, ErrAccountLocked
	}

	if !CheckPassword(u.PasswordHash, password) {
		if err := s.recordFailure(ctx, u, now); err != nil {
			s.logger.ErrorContext(ctx, "failed login bookkeeping", "user_id", u.ID, "err", err)
		}
		return TokenPair{}, ErrInvalidCredentials
	}

	if u.FailedLoginAttempts > 0 || u.LockedUntil != nil {
		if err := s.db.WithContext(ctx).Model(&users.User{}).Where("id = ?", u.ID).
			Updates(map[string]any{"failed_login_attempts": 0, "locked_until": nil}).Error; err != nil {
			s.logger.ErrorContext(ctx, "failed to reset login counters", "user_id", u.ID, "err", err)
		}
	}

	return s.issuePair(ctx, u.ID, u.Role, u.Name)
}

func (s *Service) recordFailure(ctx context.Context, u users.User, now time.Time) error {
	updates := map[string]any{"failed_login_attempts": gorm.Expr("failed_login_attempts + 1")}
	if u.FailedLoginAttempts+1 >= maxLoginFailures {
		until := now.Add(lockoutDuration)
		updates["locked_until"] = until
		updates["failed_login_attempts"] = 0
		s.logger.WarnContext(ctx, "account locked after repeated login failures",
			"user_id", u.ID, "until", until)
	}
	return s.db.WithContext(ctx).Model(&users.User{}).Where("id = ?", u.ID).Updates(updates).Error
}

// Refresh rotates a refresh token: the presented token is consumed and a new
// pair is issued. A token that is unknown, expired, or already consumed fails.
func (s *Service) Refresh(ctx context.Context, rawToken string) (TokenPair, error) {
	hash := hashToken(rawToken)

	var rt RefreshToken
	if err := s.db.WithContext(ctx).First(&rt, "token_hash = ?", hash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TokenPair{}, ErrInvalidRefresh
		}
		return TokenPair{}, err
	}

	if err := s.db.WithContext(ctx).Delete(&RefreshToken{}, "id = ?", rt.ID).Error; err != nil {
		return TokenPair{}, err
	}
	if rt.ExpiresAt.Before(s.now()) {
		return TokenPair{}, ErrInvalidRefresh
	}

	if rt.UserID == AdminUserID {
		return s.issuePair(ctx, AdminUserID, users.RoleAdmin, "Administrator")
	}

	u, err := s.repo.GetByID(ctx, rt.UserID)
	if err != nil {
		return TokenPair{}, ErrInvalidRefresh
	}
	return s.issuePair(ctx, u.ID, u.Role, u.Name)
}

// Logout revokes all refresh tokens for the user.
func (s *Service) Logout(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Delete(&RefreshToken{}, "user_id = ?", userID).Error
}

func (s *Service) issuePair(ctx context.Context, userID, role, name string) (TokenPair, error) {
	access, err := IssueAccess(s.cfg.JWT.Secret, userID, role, name, s.cfg.JWT.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}

	raw, err := newOpaqueToken()
	if err != nil {
		return TokenPair{}, err
	}
	rt := RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: hashToken(raw),
		ExpiresAt: s.now().Add(s.cfg.JWT.RefreshTTL),
		CreatedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&rt).Error; err != nil {
		return TokenPair{}, err
	}
	if err := s.pruneRefreshTokens(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "refresh token prune failed", "user_id", userID, "err", err)
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: raw,
		TokenType:    "bearer",
		ExpiresIn:    int(s.cfg.JWT.AccessTTL.Seconds()),
	}, nil
}

// pruneRefreshTokens keeps at most MaxRefreshPerUser live tokens per user,
// dropping the oldest first.
func (s *Service) pruneRefreshTokens(ctx context.Context, userID string) error {
	max := s.cfg.JWT.MaxRefreshPerUser
	if max <= 0 {
		return nil
	}
	var ids []string
	if err := s.db.WithContext(ctx).Model(&RefreshToken{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(max).
		Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Delete(&RefreshToken{}, "id IN ?", ids).Error
}

func newOpaqueToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
