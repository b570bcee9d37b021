package service

import (
	"errors"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/storage"
)

// Upload categories map to top level directories in blob storage.
const (
	UploadSubmissions = "submissions"
	UploadStudents    = "students"
)

var defaultUploadExtensions = []string{".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx", ".txt", ".jpg", ".jpeg", ".png"}

type blobStore interface {
	SaveStream(name string, r io.Reader, limit int64) (int64, error)
	Delete(name string) error
}

// UploadConfig bounds accepted uploads.
type UploadConfig struct {
	MaxFileSize       int64
	AllowedExtensions []string
}

// UploadService stores user supplied documents in blob storage.
type UploadService struct {
	store   blobStore
	cfg     UploadConfig
	allowed map[string]struct{}
	logger  *zap.Logger
	now     func() time.Time
}

// NewUploadService constructs the service.
func NewUploadService(store blobStore, cfg UploadConfig, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = defaultUploadExtensions
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}
	return &UploadService{store: store, cfg: cfg, allowed: allowed, logger: logger, now: time.Now}
}

// Store saves r under category/YYYY/MM/<uuid><ext> and returns the relative
// path. The original filename only contributes its extension.
func (s *UploadService) Store(category, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := s.allowed[ext]; !ok {
		return "", appErrors.Clone(appErrors.ErrUnsupportedMedia, "file type "+ext+" is not accepted")
	}
	now := s.now().UTC()
	name := path.Join(category, now.Format("2006"), now.Format("01"), uuid.NewString()+ext)
	size, err := s.store.SaveStream(name, r, s.cfg.MaxFileSize)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return "", appErrors.ErrFileTooLarge
		}
		return "", appErrors.Internal(err, "failed to store upload")
	}
	s.logger.Debug("upload stored", zap.String("path", name), zap.Int64("bytes", size))
	return name, nil
}

// Remove deletes a previously stored upload, logging failures.
func (s *UploadService) Remove(name string) {
	if name == "" {
		return
	}
	if err := s.store.Delete(name); err != nil {
		s.logger.Warn("failed to remove upload", zap.String("path", name), zap.Error(err))
	}
}
