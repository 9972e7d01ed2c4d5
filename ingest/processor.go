package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/viktsys/tradepnl/analysis"
	"github.com/viktsys/tradepnl/metrics"
	"github.com/viktsys/tradepnl/models"
)

// DefaultFileWorkers bounds how many files are decoded at once.
const DefaultFileWorkers = 8

var ErrNoFiles = errors.New("no files selected for analysis")

// SkipBadLine counts CSV records the decoder could not read.
const SkipBadLine analysis.SkipReason = "bad_line"

// File is one trade log to analyze.
type File struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// LocalFile reads a trade log from disk.
func LocalFile(path string) File {
	return File{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// FilesInDirectory lists the CSV and XLSX files of dir in name order.
func FilesInDirectory(dir string) ([]File, error) {
	var paths []string
	for _, pattern := range []string{"*.csv", "*.xlsx"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to find trade files: %w", err)
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no CSV or XLSX files found in directory: %s", dir)
	}
	sort.Strings(paths)

	files := make([]File, len(paths))
	for i, p := range paths {
		files[i] = LocalFile(p)
	}
	return files, nil
}

// Request describes one analysis run.
type Request struct {
	StrategyName string
	// DateColumn is the column the user picked. It is required and recorded;
	// each file still resolves its own date column from its headers.
	DateColumn string
	Selection  analysis.DateSelection
	Files      []File
}

// AnalysisSaver persists finished analyses.
type AnalysisSaver interface {
	SaveAnalysis(ctx context.Context, record *models.AnalysisRecord) error
}

type Processor struct {
	saver       AnalysisSaver
	logger      *zap.Logger
	metrics     *metrics.Metrics
	fileWorkers int
	now         func() time.Time
}

// runStats counts the work of one Run.
type runStats struct {
	rows  int64
	files int64
}

// NewProcessor builds a processor. A nil saver skips persistence.
func NewProcessor(saver AnalysisSaver, logger *zap.Logger, fileWorkers int) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fileWorkers < 1 {
		fileWorkers = DefaultFileWorkers
	}
	return &Processor{
		saver:       saver,
		logger:      logger,
		fileWorkers: fileWorkers,
		now:         time.Now,
	}
}

func (p *Processor) WithMetrics(m *metrics.Metrics) *Processor {
	p.metrics = m
	return p
}

// Run analyzes every file of req concurrently and saves the resulting record.
// A file that cannot be read gets a zeroed summary with Error set; it never
// fails the run. If saving fails the record is returned along with the error.
func (p *Processor) Run(ctx context.Context, req Request) (*models.AnalysisRecord, error) {
	startTime := p.now()

	dates, err := analysis.Preconditions(req.DateColumn, req.Selection)
	if err != nil {
		return nil, err
	}
	if len(req.Files) == 0 {
		return nil, ErrNoFiles
	}

	analysisID := fmt.Sprintf("analysis_%d", startTime.UnixMilli())
	createdAt := startTime.UTC()
	selected := analysis.NewDateSet(dates)

	p.logger.Info("Starting analysis",
		zap.String("analysis_id", analysisID),
		zap.String("strategy", req.StrategyName),
		zap.Int("files", len(req.Files)),
		zap.Int("dates", len(dates)),
		zap.Int("file_workers", p.fileWorkers))

	stats := &runStats{}
	summaries := make([]models.FileSummary, len(req.Files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.fileWorkers)

	for i, file := range req.Files {
		i, file := i, file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			summary := p.processFile(file, selected, stats)
			summary.AnalysisID = fmt.Sprintf("%s_%d", analysisID, i+1)
			summary.Position = i
			summary.CreatedAt = createdAt
			summaries[i] = summary
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis %s abandoned: %w", analysisID, err)
	}

	record := &models.AnalysisRecord{
		ID:            analysisID,
		StrategyName:  req.StrategyName,
		DateColumn:    req.DateColumn,
		SelectedDates: dates,
		Summaries:     summaries,
		CreatedAt:     createdAt,
	}

	duration := time.Since(startTime)
	p.metrics.ObserveAnalysis(duration)
	p.logger.Info("Analysis completed",
		zap.String("analysis_id", analysisID),
		zap.Duration("took", duration),
		zap.Int64("processed_files", atomic.LoadInt64(&stats.files)),
		zap.Int64("processed_rows", atomic.LoadInt64(&stats.rows)))

	if p.saver != nil {
		if err := p.saver.SaveAnalysis(ctx, record); err != nil {
			return record, fmt.Errorf("failed to save analysis %s: %w", analysisID, err)
		}
	}
	return record, nil
}

// ProcessFile decodes and aggregates a single file.
func (p *Processor) ProcessFile(file File, selected analysis.DateSet) models.FileSummary {
	return p.processFile(file, selected, nil)
}

func (p *Processor) processFile(file File, selected analysis.DateSet, stats *runStats) models.FileSummary {
	fileStart := time.Now()
	log := p.logger.With(zap.String("file", file.Name))

	format, err := FormatOf(file.Name)
	if err != nil {
		log.Warn("Skipping file with unsupported format")
		p.metrics.ObserveFile("unknown", "unsupported")
		return failedSummary(file.Name, err)
	}

	table, err := p.decode(file, format)
	if err != nil {
		log.Warn("Failed to decode file", zap.Error(err))
		p.metrics.ObserveFile(string(format), "decode_error")
		return failedSummary(file.Name, err)
	}

	schema := analysis.ResolveSchema(table.Headers, format == FormatXLSX)
	if schema.DateColumn < 0 {
		log.Warn("No date column found", zap.Strings("headers", table.Headers))
		p.metrics.ObserveFile(string(format), "no_date_column")
		return failedSummary(file.Name, errors.New("no date column found"))
	}

	acc := analysis.Aggregate(table.Rows, schema, selected)
	if table.BadLines > 0 {
		acc.Skipped[SkipBadLine] += table.BadLines
	}
	summary := analysis.BuildSummary(file.Name, acc)
	summary.DateColumn = schema.DateColumnName()

	if stats != nil {
		atomic.AddInt64(&stats.files, 1)
		atomic.AddInt64(&stats.rows, int64(len(table.Rows)))
	}
	p.metrics.ObserveFile(string(format), "ok")
	p.metrics.ObserveSkipped(summary.Skipped)

	log.Info("Processed file",
		zap.String("date_column", summary.DateColumn),
		zap.Int("rows", len(table.Rows)),
		zap.Int("trades", summary.TotalTrades),
		zap.Any("skipped", summary.Skipped),
		zap.Duration("took", time.Since(fileStart)))
	return summary
}

func (p *Processor) decode(file File, format Format) (*Table, error) {
	if file.Open == nil {
		return nil, fmt.Errorf("file %s is no longer available", file.Name)
	}
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer rc.Close()

	switch format {
	case FormatCSV:
		return DecodeCSV(rc)
	default:
		return DecodeXLSX(rc)
	}
}

func failedSummary(name string, err error) models.FileSummary {
	summary := analysis.EmptySummary(name)
	summary.Error = err.Error()
	return summary
}
