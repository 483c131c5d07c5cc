package api

import "github.com/labstack/echo/v4"

// RegisterRoutes wires the API routes onto the echo instance.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", h.HandleHealth)

	// Dataset inspection
	apiGroup.GET("/dataset", h.HandleDatasetInfo)
	apiGroup.POST("/dataset/check-missing", h.HandleCheckMissing)
	apiGroup.GET("/dataset/manifest", h.HandleGetManifest)
	apiGroup.POST("/dataset/manifest", h.HandleUploadManifest)
	apiGroup.POST("/dataset/check-manifest", h.HandleCheckManifest)

	// Data file drop-box
	apiGroup.POST("/files/upload", h.HandleUploadFile)

	// Read sessions
	apiGroup.POST("/read", h.HandleStartRead)
	apiGroup.GET("/read/:sessionId/status", h.HandleReadStatus)
	apiGroup.GET("/read/:sessionId/records", h.HandleRecords)
	apiGroup.GET("/read/:sessionId/records/msgpack", h.HandleRecordsMsgpack)
	apiGroup.GET("/read/:sessionId/loggers", h.HandleLoggerSummaries)
}
