package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/tms-reader/backend/internal/manifest"
	"github.com/tms-reader/backend/internal/reader"
	"github.com/tms-reader/backend/internal/session"
	"github.com/tms-reader/backend/internal/storage"
)

// Handler handles API requests.
type Handler struct {
	dataDir  string
	format   reader.Format
	store    storage.Store
	sessions *session.Manager

	manifestMu sync.RWMutex
	manifest   *manifest.Manifest
}

// NewHandler creates a new API handler.
func NewHandler(dataDir string, format reader.Format, store storage.Store, sessions *session.Manager) *Handler {
	return &Handler{
		dataDir:  dataDir,
		format:   format,
		store:    store,
		sessions: sessions,
	}
}

// LoadDefaultManifest loads the expected-loggers manifest if it exists.
func (h *Handler) LoadDefaultManifest(manifestPath string) error {
	if manifestPath == "" {
		return nil
	}
	if _, err := os.Stat(manifestPath); os.IsNotExist(err) {
		return nil // No default manifest
	}

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return fmt.Errorf("failed to parse manifest: %w", err)
	}

	h.manifestMu.Lock()
	h.manifest = m
	h.manifestMu.Unlock()
	return nil
}

// HandleHealth returns server health status.
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// newReader scans the dataset directory. A missing or invalid directory is
// a deployment problem, not a client error.
func (h *Handler) newReader() (*reader.DataReader, *APIError) {
	rd, err := reader.New(h.dataDir, h.format)
	if err != nil {
		if errors.Is(err, reader.ErrBadDataDir) {
			return nil, NewInternalError("dataset directory unavailable", err)
		}
		return nil, NewInternalError("failed to scan dataset", err)
	}
	return rd, nil
}

// HandleDatasetInfo reports the discovered files and loggers.
func (h *Handler) HandleDatasetInfo(c echo.Context) error {
	rd, apiErr := h.newReader()
	if apiErr != nil {
		return RespondWithError(c, apiErr)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"dataDir":   rd.DataDir(),
		"fileCount": rd.FileCount(),
		"loggers":   rd.Loggers(),
	})
}

// HandleCheckMissing returns the expected logger IDs with no data file.
func (h *Handler) HandleCheckMissing(c echo.Context) error {
	var req struct {
		Expected []int64 `json:"expected"`
	}
	if err := c.Bind(&req); err != nil {
		return RespondWithError(c, NewBadRequestError("invalid JSON body", err))
	}

	rd, apiErr := h.newReader()
	if apiErr != nil {
		return RespondWithError(c, apiErr)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"missing": rd.CheckMissing(req.Expected),
	})
}

// HandleGetManifest returns the current expected-loggers manifest.
func (h *Handler) HandleGetManifest(c echo.Context) error {
	h.manifestMu.RLock()
	m := h.manifest
	h.manifestMu.RUnlock()

	if m == nil {
		return RespondWithError(c, NewNotFoundError("manifest", "default"))
	}
	return c.JSON(http.StatusOK, m)
}

// HandleUploadManifest replaces the manifest from a YAML request body.
func (h *Handler) HandleUploadManifest(c echo.Context) error {
	m, err := manifest.FromReader(c.Request().Body)
	if err != nil {
		return RespondWithError(c, NewBadRequestError("invalid manifest YAML", err))
	}

	h.manifestMu.Lock()
	h.manifest = m
	h.manifestMu.Unlock()

	return c.JSON(http.StatusCreated, m)
}

// HandleCheckManifest checks the dataset against the manifest, per site.
func (h *Handler) HandleCheckManifest(c echo.Context) error {
	h.manifestMu.RLock()
	m := h.manifest
	h.manifestMu.RUnlock()

	if m == nil {
		return RespondWithError(c, NewNotFoundError("manifest", "default"))
	}

	rd, apiErr := h.newReader()
	if apiErr != nil {
		return RespondWithError(c, apiErr)
	}

	type siteResult struct {
		Name    string  `json:"name"`
		Missing []int64 `json:"missing"`
	}

	sites := make([]siteResult, 0, len(m.Sites))
	for _, site := range m.Sites {
		sites = append(sites, siteResult{
			Name:    site.Name,
			Missing: rd.CheckMissing(site.Loggers),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"sites":   sites,
		"missing": rd.CheckMissing(m.AllLoggers()),
	})
}

// HandleUploadFile accepts a multipart data file and drops it into the
// dataset directory. The name must match the vendor naming pattern.
func (h *Handler) HandleUploadFile(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return RespondWithError(c, NewBadRequestError("missing file field", err))
	}

	src, err := fileHeader.Open()
	if err != nil {
		return RespondWithError(c, NewInternalError("failed to open upload", err))
	}
	defer src.Close()

	info, err := h.store.SaveDataFile(fileHeader.Filename, src)
	if err != nil {
		return RespondWithError(c, NewBadRequestError("upload rejected", err))
	}

	fmt.Printf("[API] Stored data file %s (%d bytes, logger %d)\n", info.Name, info.Size, info.LoggerID)
	return c.JSON(http.StatusCreated, info)
}
