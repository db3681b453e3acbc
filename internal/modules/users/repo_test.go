package users

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testRepo(t *testing.T) *Repo {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRepo(db)
}

func seedUser(t *testing.T, r *Repo) User {
	t.Helper()
	u := User{
		ID:                 uuid.NewString(),
		Name:               "Asha Varma",
		Department:         "CSE",
		Email:              "asha@example.edu",
		RegistrationNumber: "REG-001",
		PassoutYear:        2024,
		PasswordHash:       []byte("x"),
		Role:               RoleStudent,
		MembershipStatus:   MembershipUnpaid,
		JoinedAt:           time.Now(),
		UpdatedAt:          time.Now(),
	}
	if err := r.Create(context.Background(), &u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestUpdateProfileStripsImmutableFields(t *testing.T) {
	r := testRepo(t)
	u := seedUser(t, r)

	// A handler bug (or a crafted request) sneaking protected fields into the
	// update map must not change them.
	got, err := r.UpdateProfile(context.Background(), u.ID, map[string]any{
		"name":                "Asha V.",
		"phone":               "9999999999",
		"registration_number": "REG-FAKE",
		"passout_year":        1999,
		"role":                RoleAdmin,
		"membership_status":   MembershipActive,
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	if got.Name != "Asha V." || got.Phone != "9999999999" {
		t.Errorf("mutable fields not applied: %+v", got)
	}
	if got.RegistrationNumber != "REG-001" {
		t.Errorf("registration number changed to %q", got.RegistrationNumber)
	}
	if got.PassoutYear != 2024 {
		t.Errorf("passout year changed to %d", got.PassoutYear)
	}
	if got.Role != RoleStudent {
		t.Errorf("role changed to %q", got.Role)
	}
	if got.MembershipStatus != MembershipUnpaid {
		t.Errorf("membership status changed to %q", got.MembershipStatus)
	}
}

func TestCreateDuplicateDetection(t *testing.T) {
	r := testRepo(t)
	u := seedUser(t, r)

	dup := u
	dup.ID = uuid.NewString()
	dup.RegistrationNumber = "REG-002"
	// same email
	err := r.Create(context.Background(), &dup)
	if err == nil {
		t.Fatal("expected duplicate email to fail")
	}
	if !IsDup(err) {
		t.Errorf("IsDup(%v) = false, want true", err)
	}
}
