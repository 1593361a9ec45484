package adminapi

import (
	"net/http"

	"github.com/coursehub/perfwatch/internal/domain"
	"github.com/coursehub/perfwatch/internal/webserver"
	"github.com/labstack/echo/v4"
)

// samplePayload is the input event pushed by the monitored request pipeline
// for every completed request.
type samplePayload struct {
	Endpoint      string  `json:"endpoint"`
	Method        string  `json:"method"`
	DurationMs    int64   `json:"duration_ms"`
	StatusCode    int     `json:"status_code"`
	MemoryPercent float64 `json:"memory_percent,omitempty"`
	Timestamp     int64   `json:"timestamp,omitempty"`
}

func registerSampleRoutes() {
	webserver.ApiPOST("/perf/samples", IngestSample)
	webserver.ApiPOST("/perf/samples/batch", IngestSampleBatch)
}

// IngestSample records one request observation. Recording is best-effort by
// contract, so this always acknowledges once the payload parses.
func IngestSample(c echo.Context) error {
	var payload samplePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_BODY", "Invalid sample payload", err.Error())
	}

	GetAppContext(c).Recorder().Record(domain.Sample{
		Endpoint:           payload.Endpoint,
		Method:             payload.Method,
		Timestamp:          payload.Timestamp,
		Duration:           payload.DurationMs,
		StatusCode:         payload.StatusCode,
		MemoryUsagePercent: payload.MemoryPercent,
	})
	return c.NoContent(http.StatusAccepted)
}

// IngestSampleBatch records a batch of observations in one call.
func IngestSampleBatch(c echo.Context) error {
	var payloads []samplePayload
	if err := c.Bind(&payloads); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_BODY", "Invalid sample batch", err.Error())
	}

	rec := GetAppContext(c).Recorder()
	for _, payload := range payloads {
		rec.Record(domain.Sample{
			Endpoint:           payload.Endpoint,
			Method:             payload.Method,
			Timestamp:          payload.Timestamp,
			Duration:           payload.DurationMs,
			StatusCode:         payload.StatusCode,
			MemoryUsagePercent: payload.MemoryPercent,
		})
	}
	return c.JSON(http.StatusAccepted, map[string]interface{}{"accepted": len(payloads)})
}
