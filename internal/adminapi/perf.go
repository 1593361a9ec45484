package adminapi

import (
	"net/http"
	"time"

	"github.com/coursehub/perfwatch/internal/aggregate"
	"github.com/coursehub/perfwatch/internal/domain"
	"github.com/coursehub/perfwatch/internal/threshold"
	"github.com/coursehub/perfwatch/internal/webserver"
	"github.com/labstack/echo/v4"
)

func registerPerfRoutes() {
	webserver.ApiGET("/perf/aggregate", GetAggregate)
	webserver.ApiGET("/perf/violations", ListViolations)
	webserver.ApiGET("/perf/alerts", ListAlertRecords)
	webserver.ApiGET("/perf/thresholds", GetThresholds)
	webserver.ApiPUT("/perf/thresholds", UpdateThresholds)
}

// GetAggregate computes window statistics, either system-wide or for one
// endpoint.
// @Summary get aggregated performance statistics
// @Tags Performance
// @Param endpoint query string false "Normalized endpoint filter"
// @Param window_ms query int false "Lookback window in milliseconds"
// @Param since query string false "Lookback start timestamp (alternative to window_ms)"
// @Success 200 {object} domain.AggregateStats
// @Router /api/v1/perf/aggregate [get]
func GetAggregate(c echo.Context) error {
	appCtx := GetAppContext(c)
	window, err := parseWindowMillis(c, appCtx.Config().Monitoring.EvalWindowMillis)
	if err != nil {
		return err
	}

	endpoint := c.QueryParam("endpoint")
	since := time.Now().UnixMilli() - window
	samples := appCtx.Recorder().Window(endpoint, since)

	agg := aggregate.Aggregate(samples, window)
	agg.Endpoint = endpoint
	return c.JSON(http.StatusOK, agg)
}

// ListViolations returns logged violations inside the window.
// @Summary list detected violations
// @Tags Performance
// @Param window_ms query int false "Lookback window in milliseconds"
// @Param severity query string false "Severity filter"
// @Success 200 {object} ListResponse
// @Router /api/v1/perf/violations [get]
func ListViolations(c echo.Context) error {
	window, err := parseWindowMillis(c, 24*3600*1000)
	if err != nil {
		return err
	}

	query := GetDB(c).Model(&domain.PerfViolationLog{}).
		Where("detected_at >= ?", time.Now().Add(-time.Duration(window)*time.Millisecond))
	if severity := c.QueryParam("severity"); severity != "" {
		query = query.Where("severity = ?", severity)
	}

	var total int64
	var rows []domain.PerfViolationLog
	query.Count(&total)
	query.Order("detected_at DESC").Limit(500).Find(&rows)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  rows,
		"total": total,
	})
}

// ListAlertRecords exposes the dispatcher's rate-limit table.
// @Summary list alert dispatch records
// @Tags Performance
// @Success 200 {object} ListResponse
// @Router /api/v1/perf/alerts [get]
func ListAlertRecords(c echo.Context) error {
	records := GetAppContext(c).Dispatcher().Records()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  records,
		"total": len(records),
	})
}

// GetThresholds returns the current limits.
func GetThresholds(c echo.Context) error {
	return c.JSON(http.StatusOK, GetAppContext(c).Evaluator().Config())
}

// UpdateThresholds swaps new limits in at runtime and persists them as
// settings so they survive restarts.
func UpdateThresholds(c echo.Context) error {
	var cfg threshold.Config
	if err := c.Bind(&cfg); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_BODY", "Invalid threshold config", err.Error())
	}

	appCtx := GetAppContext(c)
	appCtx.Evaluator().SetConfig(cfg)
	applied := appCtx.Evaluator().Config()

	cm := appCtx.ConfigMgr()
	persist := map[string]float64{
		"response_time_warn_ms":   applied.ResponseTimeMs.Warning,
		"response_time_crit_ms":   applied.ResponseTimeMs.Critical,
		"memory_warn_percent":     applied.MemoryPercent.Warning,
		"memory_crit_percent":     applied.MemoryPercent.Critical,
		"error_rate_warn_percent": applied.ErrorRatePercent.Warning,
		"error_rate_crit_percent": applied.ErrorRatePercent.Critical,
	}
	for key, value := range persist {
		if err := cm.Set("threshold", key, formatFloat(value)); err != nil {
			return fail(c, http.StatusInternalServerError, "SAVE_FAILED", "Failed to persist thresholds", err.Error())
		}
	}
	return c.JSON(http.StatusOK, applied)
}
