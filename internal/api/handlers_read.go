package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/tms-reader/backend/internal/models"
	"github.com/tms-reader/backend/internal/store"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	defaultPageLimit = 500
	maxPageLimit     = 10000
)

// HandleStartRead begins a background read of the dataset.
func (h *Handler) HandleStartRead(c echo.Context) error {
	sess, err := h.sessions.StartRead()
	if err != nil {
		return RespondWithError(c, NewInternalError("failed to start read", err))
	}

	return c.JSON(http.StatusAccepted, sess)
}

// HandleReadStatus returns the session metadata.
func (h *Handler) HandleReadStatus(c echo.Context) error {
	sessionID := c.Param("sessionId")

	sess, ok := h.sessions.GetSession(sessionID)
	if !ok {
		return RespondWithError(c, NewNotFoundError("read session", sessionID))
	}

	return c.JSON(http.StatusOK, sess)
}

// sessionStore resolves a completed session's result table.
func (h *Handler) sessionStore(c echo.Context) (*store.MeasurementStore, *APIError) {
	sessionID := c.Param("sessionId")

	sess, ok := h.sessions.GetSession(sessionID)
	if !ok {
		return nil, NewNotFoundError("read session", sessionID)
	}
	if sess.Status != models.ReadStatusComplete {
		return nil, NewConflictError("read session is not complete: " + string(sess.Status))
	}

	ms, ok := h.sessions.GetStore(sessionID)
	if !ok {
		return nil, NewNotFoundError("read session result", sessionID)
	}
	return ms, nil
}

// queryParams parses the record filter query string.
func queryParams(c echo.Context) (store.QueryParams, *APIError) {
	params := store.QueryParams{Limit: defaultPageLimit}

	if v := c.QueryParam("logger"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return params, NewBadRequestError("invalid logger parameter", err)
		}
		params.Logger = &id
	}
	if v := c.QueryParam("from"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return params, NewBadRequestError("invalid from parameter (expect Unix ms)", err)
		}
		params.FromMs = &ms
	}
	if v := c.QueryParam("to"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return params, NewBadRequestError("invalid to parameter (expect Unix ms)", err)
		}
		params.ToMs = &ms
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return params, NewBadRequestError("invalid limit parameter", err)
		}
		if n > maxPageLimit {
			n = maxPageLimit
		}
		params.Limit = n
	}
	if v := c.QueryParam("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return params, NewBadRequestError("invalid offset parameter", err)
		}
		params.Offset = n
	}

	return params, nil
}

// HandleRecords returns filtered, paginated records as JSON.
func (h *Handler) HandleRecords(c echo.Context) error {
	ms, apiErr := h.sessionStore(c)
	if apiErr != nil {
		return RespondWithError(c, apiErr)
	}

	params, apiErr := queryParams(c)
	if apiErr != nil {
		return RespondWithError(c, apiErr)
	}

	records, total, err := ms.Query(c.Request().Context(), params)
	if err != nil {
		return RespondWithError(c, NewInternalError("record query failed", err))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"records": records,
		"total":   total,
		"limit":   params.Limit,
		"offset":  params.Offset,
	})
}

// HandleRecordsMsgpack returns the same page as HandleRecords but encoded
// with msgpack for bulk consumers.
func (h *Handler) HandleRecordsMsgpack(c echo.Context) error {
	ms, apiErr := h.sessionStore(c)
	if apiErr != nil {
		return RespondWithError(c, apiErr)
	}

	params, apiErr := queryParams(c)
	if apiErr != nil {
		return RespondWithError(c, apiErr)
	}

	records, total, err := ms.Query(c.Request().Context(), params)
	if err != nil {
		return RespondWithError(c, NewInternalError("record query failed", err))
	}

	payload, err := msgpack.Marshal(map[string]interface{}{
		"records": records,
		"total":   total,
		"limit":   params.Limit,
		"offset":  params.Offset,
	})
	if err != nil {
		return RespondWithError(c, NewInternalError("msgpack encoding failed", err))
	}

	return c.Blob(http.StatusOK, "application/x-msgpack", payload)
}

// HandleLoggerSummaries returns per-logger record counts and time ranges.
func (h *Handler) HandleLoggerSummaries(c echo.Context) error {
	ms, apiErr := h.sessionStore(c)
	if apiErr != nil {
		return RespondWithError(c, apiErr)
	}

	summaries, err := ms.LoggerSummaries(c.Request().Context())
	if err != nil {
		return RespondWithError(c, NewInternalError("summary query failed", err))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"loggers": summaries,
	})
}
