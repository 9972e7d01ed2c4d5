package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/viktsys/tradepnl/ingest"
	"github.com/viktsys/tradepnl/models"
)

// Uploads keeps uploaded trade logs on disk, indexed in the database, until
// they are deleted or pruned.
type Uploads struct {
	db     *gorm.DB
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

func NewUploads(db *gorm.DB, dir string, logger *zap.Logger) (*Uploads, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploads{db: db, dir: dir, logger: logger, now: time.Now}, nil
}

// Save stores r under a new id and reads the file's headers.
func (u *Uploads) Save(ctx context.Context, name, contentType string, r io.Reader) (*models.Upload, error) {
	name = filepath.Base(name)
	if _, err := ingest.FormatOf(name); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	path := filepath.Join(u.dir, id+strings.ToLower(filepath.Ext(name)))

	size, err := writeFile(path, r)
	if err != nil {
		return nil, err
	}

	headers, err := readHeaders(name, path)
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to read headers of %s: %w", name, err)
	}

	upload := &models.Upload{
		ID:          id,
		Name:        name,
		ContentType: contentType,
		Size:        size,
		Path:        path,
		Headers:     headers,
		UploadedAt:  u.now().UTC(),
	}
	if err := u.db.WithContext(ctx).Create(upload).Error; err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to record upload %s: %w", name, err)
	}

	u.logger.Info("Stored upload",
		zap.String("upload_id", id),
		zap.String("file", name),
		zap.Int64("size", size),
		zap.Int("headers", len(headers)))
	return upload, nil
}

func writeFile(path string, r io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create upload file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("failed to write upload file: %w", err)
	}
	return n, nil
}

func readHeaders(name, path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ingest.ReadHeaders(name, f)
}

func (u *Uploads) Get(ctx context.Context, id string) (*models.Upload, error) {
	var upload models.Upload
	err := u.db.WithContext(ctx).First(&upload, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("upload %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load upload %s: %w", id, err)
	}
	return &upload, nil
}

// List returns all uploads, newest first.
func (u *Uploads) List(ctx context.Context) ([]models.Upload, error) {
	uploads := []models.Upload{}
	if err := u.db.WithContext(ctx).Order("uploaded_at DESC").Find(&uploads).Error; err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	return uploads, nil
}

// Delete removes the upload and its file.
func (u *Uploads) Delete(ctx context.Context, id string) error {
	upload, err := u.Get(ctx, id)
	if err != nil {
		return err
	}
	return u.remove(ctx, *upload)
}

func (u *Uploads) remove(ctx context.Context, upload models.Upload) error {
	if err := u.db.WithContext(ctx).Delete(&models.Upload{}, "id = ?", upload.ID).Error; err != nil {
		return fmt.Errorf("failed to delete upload %s: %w", upload.ID, err)
	}
	if err := os.Remove(upload.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete upload file %s: %w", upload.ID, err)
	}
	return nil
}

// Files resolves upload ids to analyzable files, keeping the given order.
func (u *Uploads) Files(ctx context.Context, ids []string) ([]ingest.File, error) {
	files := make([]ingest.File, 0, len(ids))
	for _, id := range ids {
		upload, err := u.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		path := upload.Path
		files = append(files, ingest.File{
			Name: upload.Name,
			Open: func() (io.ReadCloser, error) { return os.Open(path) },
		})
	}
	return files, nil
}

// Prune deletes uploads older than maxAge and returns how many were removed.
func (u *Uploads) Prune(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := u.now().UTC().Add(-maxAge)

	var expired []models.Upload
	if err := u.db.WithContext(ctx).Where("uploaded_at < ?", cutoff).Find(&expired).Error; err != nil {
		return 0, fmt.Errorf("failed to find expired uploads: %w", err)
	}

	removed := 0
	for _, upload := range expired {
		if err := u.remove(ctx, upload); err != nil {
			u.logger.Warn("Failed to prune upload", zap.String("upload_id", upload.ID), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}
