package store

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Janitor prunes expired uploads on a cron schedule.
type Janitor struct {
	Cron      *cron.Cron
	uploads   *Uploads
	retention time.Duration
	logger    *zap.Logger
}

func NewJanitor(uploads *Uploads, retention time.Duration, logger *zap.Logger) *Janitor {
	return &Janitor{
		Cron:      cron.New(),
		uploads:   uploads,
		retention: retention,
		logger:    logger,
	}
}

// Register schedules the prune task, e.g. "@daily" or "30 3 * * *".
func (j *Janitor) Register(schedule string) error {
	if _, err := j.Cron.AddFunc(schedule, j.RunNow); err != nil {
		return fmt.Errorf("register prune task: %w", err)
	}
	return nil
}

func (j *Janitor) Start() {
	j.Cron.Start()
	j.logger.Info("Upload janitor started", zap.Duration("retention", j.retention))
}

// Stop stops the scheduler and waits for a running prune to finish.
func (j *Janitor) Stop() {
	<-j.Cron.Stop().Done()
	j.logger.Info("Upload janitor stopped")
}

// RunNow prunes once.
func (j *Janitor) RunNow() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	removed, err := j.uploads.Prune(ctx, j.retention)
	if err != nil {
		j.logger.Error("Failed to prune uploads", zap.Error(err))
		return
	}
	j.logger.Info("Pruned uploads", zap.Int("removed", removed))
}
