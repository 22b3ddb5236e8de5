package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/uselessvevo/fuse-sheets/internal/pkg/errors"
)

// LocalStorage keeps uploaded source files and generated template files
// on the local filesystem, one directory per upload id.
type LocalStorage struct {
	basePath string
	maxSize  int64
	logger   *slog.Logger
}

// LocalStorageConfig for local storage
type LocalStorageConfig struct {
	BasePath string
	// MaxFileSize caps uploads in bytes, 0 means unlimited.
	MaxFileSize int64
}

// FileMetadata describes a stored upload
type FileMetadata struct {
	ID           string
	OriginalName string
	StoredPath   string
	Size         int64
	Hash         string
	ContentType  string
	CreatedAt    time.Time
}

// NewLocalStorage creates the storage root if needed
func NewLocalStorage(cfg *LocalStorageConfig, logger *slog.Logger) (*LocalStorage, error) {
	if err := os.MkdirAll(cfg.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &LocalStorage{
		basePath: cfg.BasePath,
		maxSize:  cfg.MaxFileSize,
		logger:   logger,
	}, nil
}

// SaveUpload stores an uploaded source file and returns its metadata
func (s *LocalStorage) SaveUpload(ctx context.Context, uploadID string, filename string, reader io.Reader) (*FileMetadata, error) {
	uploadDir := filepath.Join(s.basePath, "uploads", uploadID)
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	safeName := filepath.Base(filename)
	destPath := filepath.Join(uploadDir, safeName)

	destFile, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer destFile.Close()

	// Hash while copying, one pass over the stream.
	hash := sha256.New()
	multiWriter := io.MultiWriter(destFile, hash)

	src := reader
	if s.maxSize > 0 {
		src = io.LimitReader(reader, s.maxSize+1)
	}

	size, err := io.Copy(multiWriter, src)
	if err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("failed to copy file: %w", err)
	}
	if s.maxSize > 0 && size > s.maxSize {
		os.Remove(destPath)
		return nil, apperrors.FileTooLarge(s.maxSize)
	}

	fileHash := hex.EncodeToString(hash.Sum(nil))

	metadata := &FileMetadata{
		ID:           uploadID,
		OriginalName: filename,
		StoredPath:   destPath,
		Size:         size,
		Hash:         fileHash,
		ContentType:  contentTypeFor(filename),
		CreatedAt:    time.Now(),
	}

	s.logger.Info("upload stored",
		slog.String("upload_id", uploadID),
		slog.String("filename", filename),
		slog.Int64("size", size),
		slog.String("hash", fileHash))

	return metadata, nil
}

// GetUpload opens a stored upload for reading
func (s *LocalStorage) GetUpload(ctx context.Context, uploadID string, filename string) (io.ReadCloser, error) {
	filePath := s.UploadPath(uploadID, filename)

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NotFound(fmt.Sprintf("upload not found: %s", uploadID))
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// UploadPath returns the on-disk path of a stored upload. Ingestion
// workers read the file here by path.
func (s *LocalStorage) UploadPath(uploadID string, filename string) string {
	return filepath.Join(s.basePath, "uploads", uploadID, filepath.Base(filename))
}

// SaveTemplate stores a generated template workbook under its schema name
func (s *LocalStorage) SaveTemplate(ctx context.Context, schemaName string, filename string, data []byte) (string, error) {
	templateDir := filepath.Join(s.basePath, "templates", schemaName)
	if err := os.MkdirAll(templateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create template directory: %w", err)
	}

	filePath := filepath.Join(templateDir, filepath.Base(filename))
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write template file: %w", err)
	}

	s.logger.Info("template saved",
		slog.String("schema", schemaName),
		slog.String("filename", filename),
		slog.Int("size", len(data)))

	return filePath, nil
}

// GetTemplate reads a stored template workbook
func (s *LocalStorage) GetTemplate(ctx context.Context, schemaName string, filename string) ([]byte, error) {
	filePath := filepath.Join(s.basePath, "templates", schemaName, filepath.Base(filename))

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NotFound(fmt.Sprintf("template not found: %s/%s", schemaName, filename))
		}
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}
	return data, nil
}

// DeleteUpload removes every file associated with an upload
func (s *LocalStorage) DeleteUpload(ctx context.Context, uploadID string) error {
	uploadDir := filepath.Join(s.basePath, "uploads", uploadID)
	if err := os.RemoveAll(uploadDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete upload directory: %w", err)
	}

	s.logger.Info("upload deleted",
		slog.String("upload_id", uploadID))
	return nil
}

// CleanupOldUploads removes uploads older than the given duration
func (s *LocalStorage) CleanupOldUploads(ctx context.Context, olderThan time.Duration) error {
	cutoffTime := time.Now().Add(-olderThan)

	uploadsDir := filepath.Join(s.basePath, "uploads")
	entries, err := os.ReadDir(uploadsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read uploads directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dirPath := filepath.Join(uploadsDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			s.logger.Warn("failed to get file info",
				slog.String("path", dirPath),
				slog.Any("error", err))
			continue
		}

		if info.ModTime().Before(cutoffTime) {
			if err := os.RemoveAll(dirPath); err != nil {
				s.logger.Warn("failed to remove directory",
					slog.String("path", dirPath),
					slog.Any("error", err))
			} else {
				s.logger.Debug("removed old upload",
					slog.String("path", dirPath),
					slog.Time("mod_time", info.ModTime()))
			}
		}
	}

	return nil
}

// contentTypeFor returns the content type for a source file extension
func contentTypeFor(filename string) string {
	switch filepath.Ext(filename) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
