package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tms-reader/backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

func startCompletedRead(t *testing.T, e *echo.Echo, h *Handler) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/read", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, h.HandleStartRead(c))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var sess models.ReadSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))

	for i := 0; i < 50; i++ {
		s, ok := h.sessions.GetSession(sess.ID)
		require.True(t, ok)
		if s.Status == models.ReadStatusComplete {
			return sess.ID
		}
		if s.Status == models.ReadStatusError {
			t.Fatalf("read session failed: %v", s.Errors)
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("read session did not complete")
	return ""
}

func TestReadFlow(t *testing.T) {
	e := echo.New()
	h, dataDir := newTestHandler(t)
	writeDataFile(t, dataDir, "data_94226401_2021_02_18_0.csv",
		"1;2021.01.19 12:00;0;11.3125;8.3750;6.5000;150;10;0\n"+
			"2;2021.01.19 12:15;0;11.2500;8.3125;6.5000;151;10;0\n")

	sessionID := startCompletedRead(t, e, h)

	// Status
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("sessionId")
	c.SetParamValues(sessionID)
	require.NoError(t, h.HandleReadStatus(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"recordCount":2`)

	// Records
	req = httptest.NewRequest(http.MethodGet, "/?logger=94226401&limit=10", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("sessionId")
	c.SetParamValues(sessionID)
	require.NoError(t, h.HandleRecords(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Records []models.MeasurementRecord `json:"records"`
		Total   int                        `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Records, 2)
	assert.Equal(t, int64(94226401), resp.Records[0].LoggerID)
	require.NotNil(t, resp.Records[0].T1)
	assert.Equal(t, 11.3125, *resp.Records[0].T1)

	// Logger summaries
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("sessionId")
	c.SetParamValues(sessionID)
	require.NoError(t, h.HandleLoggerSummaries(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"loggerId":94226401`)
	assert.Contains(t, rec.Body.String(), `"records":2`)
}

func TestRecordsMsgpack(t *testing.T) {
	e := echo.New()
	h, dataDir := newTestHandler(t)
	writeDataFile(t, dataDir, "data_94226401_2021_02_18_0.csv",
		"1;2021.01.19 12:00;0;11.3125;8.3750;6.5000;150;10;0\n")

	sessionID := startCompletedRead(t, e, h)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("sessionId")
	c.SetParamValues(sessionID)
	require.NoError(t, h.HandleRecordsMsgpack(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-msgpack", rec.Header().Get(echo.HeaderContentType))

	var payload map[string]interface{}
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &payload))
	assert.EqualValues(t, 1, payload["total"])
}

func TestRecordsUnknownSession(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("sessionId")
	c.SetParamValues("does-not-exist")
	require.NoError(t, h.HandleRecords(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordsBadQueryParams(t *testing.T) {
	e := echo.New()
	h, dataDir := newTestHandler(t)
	writeDataFile(t, dataDir, "data_94226401_2021_02_18_0.csv",
		"1;2021.01.19 12:00;0;1.0;2.0;3.0;100;5;0\n")

	sessionID := startCompletedRead(t, e, h)

	req := httptest.NewRequest(http.MethodGet, "/?logger=abc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("sessionId")
	c.SetParamValues(sessionID)
	require.NoError(t, h.HandleRecords(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
