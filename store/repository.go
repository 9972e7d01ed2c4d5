package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/viktsys/tradepnl/models"
)

var ErrNotFound = errors.New("not found")

// Repository stores analysis records. Records are written once, keyed by
// their analysis id.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SaveAnalysis inserts the record and its summaries in one transaction.
// Saving an id that already exists fails.
func (r *Repository) SaveAnalysis(ctx context.Context, record *models.AnalysisRecord) error {
	for i := range record.Summaries {
		record.Summaries[i].RecordID = record.ID
		record.Summaries[i].Position = i
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(record).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save analysis %s: %w", record.ID, err)
	}
	return nil
}

// GetAnalysis loads a record with its summaries in submission order.
func (r *Repository) GetAnalysis(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	var record models.AnalysisRecord
	err := r.db.WithContext(ctx).
		Preload("Summaries", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("analysis %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis %s: %w", id, err)
	}
	return &record, nil
}

// ListAnalyses returns the newest records first, without summaries.
func (r *Repository) ListAnalyses(ctx context.Context, limit int) ([]models.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []models.AnalysisRecord
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	return records, nil
}
