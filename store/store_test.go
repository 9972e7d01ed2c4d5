package store

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/viktsys/tradepnl/config"
	"github.com/viktsys/tradepnl/database"
	"github.com/viktsys/tradepnl/models"
)

const tradeCSV = "Trade #,Type,Date/Time,Net P&L %\n" +
	"1,Entry long,2024-01-05 09:30,\n" +
	"1,Exit long,2024-01-05 15:00,2.5%\n"

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func sampleRecord(id string, createdAt time.Time) *models.AnalysisRecord {
	return &models.AnalysisRecord{
		ID:            id,
		StrategyName:  "breakout",
		DateColumn:    "Date/Time",
		SelectedDates: []string{"05-01-2024"},
		CreatedAt:     createdAt,
		Summaries: []models.FileSummary{
			{
				AnalysisID:     id + "_1",
				FileName:       "a.csv",
				DateColumn:     "Date/Time",
				TotalProfitPct: 2.5,
				NetPnLPct:      2.5,
				WinRate:        100,
				TotalTrades:    1,
				WinningTrades:  1,
				ByDate:         map[string]float64{"05-01-2024": 2.5},
				SortedByDate:   []models.DatePnL{{Date: "05-01-2024", PnL: 2.5}},
				Skipped:        map[string]int{"not_exit": 1},
				CreatedAt:      createdAt,
			},
			{
				AnalysisID:   id + "_2",
				FileName:     "b.txt",
				ByDate:       map[string]float64{},
				SortedByDate: []models.DatePnL{},
				Error:        "unsupported file format",
				CreatedAt:    createdAt,
			},
		},
	}
}

func TestRepositorySaveAndGet(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	created := time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SaveAnalysis(ctx, sampleRecord("analysis_1704441600000", created)))

	got, err := repo.GetAnalysis(ctx, "analysis_1704441600000")
	require.NoError(t, err)

	assert.Equal(t, "breakout", got.StrategyName)
	assert.Equal(t, []string{"05-01-2024"}, got.SelectedDates)
	assert.True(t, got.CreatedAt.Equal(created))
	require.Len(t, got.Summaries, 2)

	first := got.Summaries[0]
	assert.Equal(t, "analysis_1704441600000_1", first.AnalysisID)
	assert.Equal(t, 2.5, first.NetPnLPct)
	assert.Equal(t, map[string]float64{"05-01-2024": 2.5}, first.ByDate)
	assert.Equal(t, []models.DatePnL{{Date: "05-01-2024", PnL: 2.5}}, first.SortedByDate)
	assert.Equal(t, 1, first.Skipped["not_exit"])

	second := got.Summaries[1]
	assert.Equal(t, "b.txt", second.FileName)
	assert.Equal(t, "unsupported file format", second.Error)
	assert.Empty(t, second.ByDate)
}

func TestRepositoryWriteOnce(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.SaveAnalysis(ctx, sampleRecord("analysis_1", now)))
	assert.Error(t, repo.SaveAnalysis(ctx, sampleRecord("analysis_1", now)))
}

func TestRepositoryNotFound(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	_, err := repo.GetAnalysis(context.Background(), "analysis_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryListNewestFirst(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"analysis_a", "analysis_b", "analysis_c"} {
		require.NoError(t, repo.SaveAnalysis(ctx, sampleRecord(id, base.Add(time.Duration(i)*time.Hour))))
	}

	records, err := repo.ListAnalyses(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "analysis_c", records[0].ID)
	assert.Equal(t, "analysis_b", records[1].ID)
	assert.Empty(t, records[0].Summaries)
}

func newTestUploads(t *testing.T) *Uploads {
	t.Helper()
	uploads, err := NewUploads(setupTestDB(t), filepath.Join(t.TempDir(), "uploads"), zap.NewNop())
	require.NoError(t, err)
	return uploads
}

func TestUploadsSaveAndOpen(t *testing.T) {
	uploads := newTestUploads(t)
	ctx := context.Background()

	upload, err := uploads.Save(ctx, "../breakout.csv", "text/csv", bytes.NewBufferString(tradeCSV))
	require.NoError(t, err)

	assert.Len(t, upload.ID, 36)
	assert.Equal(t, "breakout.csv", upload.Name)
	assert.Equal(t, int64(len(tradeCSV)), upload.Size)
	assert.Equal(t, []string{"Trade #", "Type", "Date/Time", "Net P&L %"}, upload.Headers)
	assert.Equal(t, ".csv", filepath.Ext(upload.Path))

	got, err := uploads.Get(ctx, upload.ID)
	require.NoError(t, err)
	assert.Equal(t, upload.Headers, got.Headers)

	files, err := uploads.Files(ctx, []string{upload.ID})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "breakout.csv", files[0].Name)

	rc, err := files[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, tradeCSV, string(data))
}

func TestUploadsRejectsUnsupported(t *testing.T) {
	uploads := newTestUploads(t)

	_, err := uploads.Save(context.Background(), "notes.txt", "text/plain", bytes.NewBufferString("hello"))
	assert.Error(t, err)

	list, err := uploads.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUploadsRejectsUnreadable(t *testing.T) {
	uploads := newTestUploads(t)

	_, err := uploads.Save(context.Background(), "broken.xlsx", "", bytes.NewBufferString("not a workbook"))
	assert.Error(t, err)

	entries, err := os.ReadDir(uploads.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadsDelete(t *testing.T) {
	uploads := newTestUploads(t)
	ctx := context.Background()

	upload, err := uploads.Save(ctx, "a.csv", "text/csv", bytes.NewBufferString(tradeCSV))
	require.NoError(t, err)

	require.NoError(t, uploads.Delete(ctx, upload.ID))

	_, err = os.Stat(upload.Path)
	assert.True(t, os.IsNotExist(err))

	_, err = uploads.Get(ctx, upload.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, uploads.Delete(ctx, upload.ID), ErrNotFound)
}

func TestUploadsFilesUnknownID(t *testing.T) {
	uploads := newTestUploads(t)

	_, err := uploads.Files(context.Background(), []string{"missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUploadsPrune(t *testing.T) {
	uploads := newTestUploads(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	uploads.now = func() time.Time { return now.Add(-72 * time.Hour) }
	old, err := uploads.Save(ctx, "old.csv", "text/csv", bytes.NewBufferString(tradeCSV))
	require.NoError(t, err)

	uploads.now = func() time.Time { return now.Add(-time.Hour) }
	fresh, err := uploads.Save(ctx, "fresh.csv", "text/csv", bytes.NewBufferString(tradeCSV))
	require.NoError(t, err)

	uploads.now = func() time.Time { return now }
	removed, err := uploads.Prune(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	list, err := uploads.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, fresh.ID, list[0].ID)

	_, err = os.Stat(old.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestJanitorRegisterAndRun(t *testing.T) {
	uploads := newTestUploads(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	uploads.now = func() time.Time { return now.Add(-48 * time.Hour) }
	_, err := uploads.Save(ctx, "old.csv", "text/csv", bytes.NewBufferString(tradeCSV))
	require.NoError(t, err)
	uploads.now = func() time.Time { return now }

	janitor := NewJanitor(uploads, 24*time.Hour, zap.NewNop())
	require.NoError(t, janitor.Register("@daily"))
	assert.Len(t, janitor.Cron.Entries(), 1)
	assert.Error(t, janitor.Register("not a schedule"))

	janitor.RunNow()

	list, err := uploads.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	janitor.Start()
	janitor.Stop()
}
