package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/report"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/storage"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/workbook"
)

type FileService interface {
	// Punch file uploads
	ReadPunchFile(file io.Reader, filename string) ([]byte, error)

	// Report workbooks
	SaveWorkbook(ctx context.Context, reportID string, createdAt time.Time, data []byte) (string, error)
	OpenWorkbook(ctx context.Context, path string) (io.ReadCloser, error)

	// Generic operations
	DeleteFile(ctx context.Context, path string) error
}

// DefaultPunchUpload accepts the clock exports the punch parser understands.
var DefaultPunchUpload = storage.UploadOptions{
	ContentType: "application/octet-stream",
	MaxSize:     20 << 20,
	AllowedExts: []string{".xlsx", ".xlsm", ".xls", ".csv", ".txt"},
}

type fileServiceImpl struct {
	storage storage.FileStorage
	upload  storage.UploadOptions
}

func NewFileService(storage storage.FileStorage, upload storage.UploadOptions) FileService {
	if upload.MaxSize <= 0 {
		upload.MaxSize = DefaultPunchUpload.MaxSize
	}
	if len(upload.AllowedExts) == 0 {
		upload.AllowedExts = DefaultPunchUpload.AllowedExts
	}
	if upload.ContentType == "" {
		upload.ContentType = DefaultPunchUpload.ContentType
	}
	return &fileServiceImpl{
		storage: storage,
		upload:  upload,
	}
}

// ReadPunchFile validates the extension and reads at most MaxSize bytes.
func (s *fileServiceImpl) ReadPunchFile(file io.Reader, filename string) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	isValid := false
	for _, allowed := range s.upload.AllowedExts {
		if ext == allowed {
			isValid = true
			break
		}
	}
	if !isValid {
		return nil, report.ErrUnsupportedFile
	}

	data, err := io.ReadAll(io.LimitReader(file, s.upload.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.upload.MaxSize {
		return nil, report.ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, report.ErrNoEvents
	}
	return data, nil
}

// SaveWorkbook stores a rendered report under reports/{yyyy-mm}/{id}.xlsx.
func (s *fileServiceImpl) SaveWorkbook(ctx context.Context, reportID string, createdAt time.Time, data []byte) (string, error) {
	p := path.Join("reports", createdAt.Format("2006-01"), reportID+".xlsx")

	uploadedPath, err := s.storage.Upload(ctx, bytes.NewReader(data), p, workbook.ContentType)
	if err != nil {
		return "", fmt.Errorf("failed to save report workbook: %w", err)
	}
	return uploadedPath, nil
}

func (s *fileServiceImpl) OpenWorkbook(ctx context.Context, p string) (io.ReadCloser, error) {
	if p == "" {
		return nil, report.ErrReportFileMissing
	}
	rc, err := s.storage.Download(ctx, p)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return nil, report.ErrReportFileMissing
		}
		return nil, fmt.Errorf("failed to open report workbook: %w", err)
	}
	return rc, nil
}

// DeleteFile deletes a file
func (s *fileServiceImpl) DeleteFile(ctx context.Context, p string) error {
	return s.storage.Delete(ctx, p)
}
