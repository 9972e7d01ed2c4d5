package models

import (
	"time"
)

// DatePnL is one trading day of a file summary ranking.
type DatePnL struct {
	Date string  `json:"date"`
	PnL  float64 `json:"pnl"`
}

// FileSummary holds the aggregated profit/loss figures of a single trade-log file
// for the dates selected in an analysis.
type FileSummary struct {
	ID             uint               `gorm:"primaryKey" json:"-"`
	RecordID       string             `gorm:"size:64;index:idx_summary_record_position" json:"-"`
	Position       int                `gorm:"index:idx_summary_record_position" json:"-"`
	AnalysisID     string             `gorm:"size:80" json:"analysisId"`
	FileName       string             `gorm:"size:255" json:"fileName"`
	DateColumn     string             `gorm:"size:255" json:"dateColumn"`
	TotalProfitPct float64            `json:"totalProfitPct"`
	TotalLossPct   float64            `json:"totalLossPct"`
	NetPnLPct      float64            `gorm:"column:net_pnl_pct" json:"netPnLPct"`
	WinRate        float64            `json:"winRate"`
	TotalTrades    int                `json:"totalTrades"`
	WinningTrades  int                `json:"winningTrades"`
	ByDate         map[string]float64 `gorm:"serializer:json" json:"byDate"`
	SortedByDate   []DatePnL          `gorm:"serializer:json" json:"sortedByDate"`
	Skipped        map[string]int     `gorm:"serializer:json" json:"skipped,omitempty"`
	Error          string             `gorm:"size:512" json:"error,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
}

// AnalysisRecord is one analysis run: the date selection and a summary per file.
// Records are written once and never updated.
type AnalysisRecord struct {
	ID            string        `gorm:"primaryKey;size:64" json:"analysisId"`
	StrategyName  string        `gorm:"size:255" json:"strategyName"`
	DateColumn    string        `gorm:"size:255" json:"dateColumn"`
	SelectedDates []string      `gorm:"serializer:json" json:"selectedDates"`
	Summaries     []FileSummary `gorm:"foreignKey:RecordID;references:ID;constraint:OnDelete:CASCADE" json:"summaries,omitempty"`
	CreatedAt     time.Time     `gorm:"index:idx_analyses_created_at" json:"createdAt"`
}

func (AnalysisRecord) TableName() string {
	return "analyses"
}

// Upload is a trade-log file kept on disk until it is analyzed or pruned.
type Upload struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"size:255" json:"name"`
	ContentType string    `gorm:"size:128" json:"type"`
	Size        int64     `json:"size"`
	Path        string    `gorm:"size:1024" json:"-"`
	Headers     []string  `gorm:"serializer:json" json:"headers"`
	UploadedAt  time.Time `gorm:"index:idx_uploads_uploaded_at" json:"uploadedAt"`
}
