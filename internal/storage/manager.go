// Package storage drops uploaded logger data files into the dataset
// directory, where subsequent reads pick them up.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/tms-reader/backend/internal/models"
)

// Store defines the interface for dataset file storage.
type Store interface {
	SaveDataFile(name string, r io.Reader) (*models.FileInfo, error)
}

// LocalStore implements Store on the local filesystem. File names must
// match the vendor naming pattern; anything else is rejected before any
// bytes are written.
type LocalStore struct {
	dataDir     string
	filePattern *regexp.Regexp
}

// NewLocalStore creates a LocalStore writing into dataDir.
func NewLocalStore(dataDir string, filePattern *regexp.Regexp) (*LocalStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &LocalStore{
		dataDir:     dataDir,
		filePattern: filePattern,
	}, nil
}

// SaveDataFile writes an uploaded data file into the dataset directory.
// The file is staged under a temporary name and renamed into place so a
// concurrent read never sees a half-written file.
func (s *LocalStore) SaveDataFile(name string, r io.Reader) (*models.FileInfo, error) {
	base := filepath.Base(name)
	m := s.filePattern.FindStringSubmatch(base)
	if m == nil {
		return nil, fmt.Errorf("file name %q does not match the logger data pattern", base)
	}
	loggerID, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("file name %q has invalid logger id: %w", base, err)
	}

	tmpPath := filepath.Join(s.dataDir, ".upload_"+uuid.New().String())
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}

	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("writing file: %w", err)
	}

	finalPath := filepath.Join(s.dataDir, base)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("placing file: %w", err)
	}

	return &models.FileInfo{
		Name:     base,
		LoggerID: loggerID,
		Size:     size,
		SavedAt:  time.Now(),
	}, nil
}
