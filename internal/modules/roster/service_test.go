package roster

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/surojitgharami/alumni-portal/internal/storage"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&StudentRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewService(db, storage.NewLocal(t.TempDir(), "/uploads")), db
}

const sampleCSV = `registration_number,name,department,passout_year,status
REG-001,Asha Varma,CSE,2024,active
REG-002,Vikram Rao,ECE,2025,
REG-003,Meena Pillai,CSE,2023,inactive
,Missing Reg,CSE,2024,active
REG-005,Bad Year,CSE,soon,active
`

func TestImportCSV(t *testing.T) {
	svc, db := newTestService(t)

	res, err := svc.ImportCSV(context.Background(), strings.NewReader(sampleCSV), "roster.csv")
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if res.Imported != 3 {
		t.Errorf("imported = %d, want 3", res.Imported)
	}
	if res.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", res.Skipped)
	}
	if res.ArchiveURL == "" {
		t.Error("archive URL empty")
	}

	// Omitted status defaults to active.
	var rec StudentRecord
	if err := db.First(&rec, "registration_number = ?", "REG-002").Error; err != nil {
		t.Fatal(err)
	}
	if rec.Status != RecordActive {
		t.Errorf("REG-002 status = %q, want active", rec.Status)
	}
}

func TestImportCSVUpsertsOnReimport(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	if _, err := svc.ImportCSV(ctx, strings.NewReader(sampleCSV), "roster.csv"); err != nil {
		t.Fatal(err)
	}

	updated := `registration_number,name,department,passout_year,status
REG-001,Asha Varma,CSE,2024,inactive
REG-010,New Student,ME,2026,active
`
	res, err := svc.ImportCSV(ctx, strings.NewReader(updated), "roster-v2.csv")
	if err != nil {
		t.Fatalf("reimport: %v", err)
	}
	if res.Imported != 2 {
		t.Errorf("imported = %d, want 2", res.Imported)
	}

	var n int64
	if err := db.Model(&StudentRecord{}).Where("registration_number = ?", "REG-001").Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("REG-001 rows = %d, want 1 (upsert)", n)
	}

	var rec StudentRecord
	if err := db.First(&rec, "registration_number = ?", "REG-001").Error; err != nil {
		t.Fatal(err)
	}
	if rec.Status != RecordInactive {
		t.Errorf("REG-001 status = %q, want inactive after reimport", rec.Status)
	}
}

func TestImportCSVRejectsMissingColumns(t *testing.T) {
	svc, _ := newTestService(t)

	bad := "registration_number,name\nREG-001,Asha\n"
	if _, err := svc.ImportCSV(context.Background(), strings.NewReader(bad), "bad.csv"); err == nil {
		t.Fatal("expected error for missing columns")
	}
}

func TestLookup(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.ImportCSV(ctx, strings.NewReader(sampleCSV), "roster.csv"); err != nil {
		t.Fatal(err)
	}

	rec, err := svc.Lookup(ctx, "REG-001", "CSE", 2024)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if rec.Name != "Asha Varma" {
		t.Errorf("name = %q", rec.Name)
	}

	// All three fields must match, and the row must be active.
	for _, tc := range []struct {
		name string
		reg  string
		dept string
		year int
	}{
		{"wrong department", "REG-001", "ECE", 2024},
		{"wrong year", "REG-001", "CSE", 2025},
		{"inactive record", "REG-003", "CSE", 2023},
		{"unknown reg no", "REG-999", "CSE", 2024},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Lookup(ctx, tc.reg, tc.dept, tc.year); !errors.Is(err, ErrNoMatch) {
				t.Errorf("got %v, want ErrNoMatch", err)
			}
		})
	}
}
