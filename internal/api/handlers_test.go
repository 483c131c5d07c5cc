package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tms-reader/backend/internal/reader"
	"github.com/tms-reader/backend/internal/session"
	"github.com/tms-reader/backend/internal/storage"
)

func newTestHandler(t *testing.T) (*Handler, string) {
	t.Helper()
	dataDir := t.TempDir()
	format := reader.DefaultFormat()

	fileStore, err := storage.NewLocalStore(dataDir, format.FilePattern)
	require.NoError(t, err)
	sessionMgr := session.NewManager(dataDir, format, t.TempDir())

	return NewHandler(dataDir, format, fileStore, sessionMgr), dataDir
}

func writeDataFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestHandleHealth(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if assert.NoError(t, h.HandleHealth(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	}
}

func TestHandleDatasetInfo(t *testing.T) {
	e := echo.New()
	h, dataDir := newTestHandler(t)
	writeDataFile(t, dataDir, "data_94226401_2021_02_18_0.csv", "1;2021.01.19 12:00;0;1.0;2.0;3.0;100;5;0\n")
	writeDataFile(t, dataDir, "unrelated.txt", "x")

	req := httptest.NewRequest(http.MethodGet, "/api/dataset", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if assert.NoError(t, h.HandleDatasetInfo(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"fileCount":1`)
		assert.Contains(t, rec.Body.String(), "94226401")
	}
}

func TestHandleCheckMissing(t *testing.T) {
	e := echo.New()
	h, dataDir := newTestHandler(t)
	writeDataFile(t, dataDir, "data_94226401_2021_02_18_0.csv", "1;2021.01.19 12:00;0;1.0;2.0;3.0;100;5;0\n")

	body := strings.NewReader(`{"expected":[94226401,99]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/dataset/check-missing", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if assert.NoError(t, h.HandleCheckMissing(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"missing":[99]`)
	}
}

func TestManifestFlow(t *testing.T) {
	e := echo.New()
	h, dataDir := newTestHandler(t)
	writeDataFile(t, dataDir, "data_94226401_2021_02_18_0.csv", "1;2021.01.19 12:00;0;1.0;2.0;3.0;100;5;0\n")

	// 1. No manifest yet
	req := httptest.NewRequest(http.MethodGet, "/api/dataset/manifest", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if assert.NoError(t, h.HandleGetManifest(c)) {
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	// 2. Upload manifest
	manifestYAML := "sites:\n  - name: north\n    loggers: [94226401, 94226499]\n"
	req = httptest.NewRequest(http.MethodPost, "/api/dataset/manifest", strings.NewReader(manifestYAML))
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	if assert.NoError(t, h.HandleUploadManifest(c)) {
		assert.Equal(t, http.StatusCreated, rec.Code)
	}

	// 3. Check dataset against manifest
	req = httptest.NewRequest(http.MethodPost, "/api/dataset/check-manifest", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	if assert.NoError(t, h.HandleCheckManifest(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"missing":[94226499]`)
		assert.Contains(t, rec.Body.String(), `"name":"north"`)
	}
}

func TestLoadDefaultManifest(t *testing.T) {
	h, _ := newTestHandler(t)

	manifestPath := filepath.Join(t.TempDir(), "loggers.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte("sites:\n  - name: s\n    loggers: [1]\n"), 0644))

	require.NoError(t, h.LoadDefaultManifest(manifestPath))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/dataset/manifest", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if assert.NoError(t, h.HandleGetManifest(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	// Missing path is not an error, just no manifest.
	h2, _ := newTestHandler(t)
	assert.NoError(t, h2.LoadDefaultManifest(filepath.Join(t.TempDir(), "none.yaml")))
}

func TestHandleUploadFile(t *testing.T) {
	e := echo.New()
	h, dataDir := newTestHandler(t)

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", "data_94226401_2021_02_18_0.csv")
	part.Write([]byte("1;2021.01.19 12:00;0;1.0;2.0;3.0;100;5;0\n"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if assert.NoError(t, h.HandleUploadFile(c)) {
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"loggerId":94226401`)
	}

	_, err := os.Stat(filepath.Join(dataDir, "data_94226401_2021_02_18_0.csv"))
	assert.NoError(t, err)
}

func TestHandleUploadFileRejectsBadName(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", "notes.txt")
	part.Write([]byte("x"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if assert.NoError(t, h.HandleUploadFile(c)) {
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}
