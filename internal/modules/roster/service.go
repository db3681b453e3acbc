package roster

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/surojitgharami/alumni-portal/internal/storage"
)

var ErrNoMatch = errors.New("no matching roster record")

type Service struct {
	db     *gorm.DB
	store  storage.Storage
	logger *slog.Logger
}

func NewService(db *gorm.DB, store storage.Storage) *Service {
	return &Service{db: db, store: store, logger: slog.Default()}
}

func (s *Service) SetLogger(logger *slog.Logger) { s.logger = logger }

// Lookup returns the active roster record matching all three identity fields,
// or ErrNoMatch.
func (s *Service) Lookup(ctx context.Context, regNo, department string, passoutYear int) (StudentRecord, error) {
	var rec StudentRecord
	err := s.db.WithContext(ctx).
		Where("registration_number = ? AND department = ? AND passout_year = ? AND status = ?",
			regNo, department, passoutYear, RecordActive).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return StudentRecord{}, ErrNoMatch
	}
	return rec, err
}

type ImportResult struct {
	Imported   int
	Skipped    int
	ArchiveURL string
}

// ImportCSV loads roster rows from an admin-uploaded CSV and upserts them on
// registration number. The raw file is archived to storage first so every
// import stays auditable. Expected header:
// registration_number,name,department,passout_year[,status]
func (s *Service) ImportCSV(ctx context.Context, r io.Reader, filename string) (ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ImportResult{}, err
	}

	var archiveURL string
	if s.store != nil {
		put, err := s.store.Put(ctx, bytes.NewReader(data), storage.PutInput{
			Filename:    filename,
			ContentType: "text/csv",
			Size:        int64(len(data)),
		})
		if err != nil {
			return ImportResult{}, fmt.Errorf("roster archive failed: %w", err)
		}
		archiveURL = put.URL
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return ImportResult{}, fmt.Errorf("roster csv: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.TrimSpace(strings.ToLower(h))] = i
	}
	for _, required := range []string{"registration_number", "name", "department", "passout_year"} {
		if _, ok := col[required]; !ok {
			return ImportResult{}, fmt.Errorf("roster csv: missing column %q", required)
		}
	}

	res := ImportResult{ArchiveURL: archiveURL}
	now := time.Now()

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("roster csv: %w", err)
		}

		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		regNo := get("registration_number")
		name := get("name")
		dept := get("department")
		year, yearErr := strconv.Atoi(get("passout_year"))
		if regNo == "" || name == "" || dept == "" || yearErr != nil {
			res.Skipped++
			continue
		}

		status := get("status")
		if status == "" {
			status = RecordActive
		}

		rec := StudentRecord{
			ID:                 uuid.NewString(),
			RegistrationNumber: regNo,
			Name:               name,
			Department:         dept,
			PassoutYear:        year,
			Status:             status,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "registration_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "department", "passout_year", "status", "updated_at"}),
		}).Create(&rec).Error
		if err != nil {
			return res, err
		}
		res.Imported++
	}

	s.logger.InfoContext(ctx, "roster import finished",
		"file", filename, "imported", res.Imported, "skipped", res.Skipped)
	return res, nil
}
