package database

import (
	"fmt"

	"gorm.io/gorm"
)

// OptimizeIndexes creates the postgres-specific indexes used by the analysis
// listing and the per-date lookups on summaries.
func OptimizeIndexes(db *gorm.DB) error {
	// Newest analyses first on the listing page
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_analyses_strategy_created
		ON analyses (strategy_name, created_at DESC)
	`).Error; err != nil {
		return fmt.Errorf("failed to create analyses strategy index: %w", err)
	}

	// Summaries of one analysis ranked by net P&L
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_file_summaries_record_net
		ON file_summaries (record_id, net_pnl_pct DESC)
	`).Error; err != nil {
		return fmt.Errorf("failed to create file summaries net P&L index: %w", err)
	}

	// Janitor scans for expired uploads
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_uploads_uploaded_at_brin
		ON uploads USING BRIN (uploaded_at)
	`).Error; err != nil {
		return fmt.Errorf("failed to create uploads BRIN index: %w", err)
	}

	return nil
}
