package adminapi

import (
	"net/http"

	"github.com/coursehub/perfwatch/internal/baseline"
	"github.com/coursehub/perfwatch/internal/webserver"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// capturePayload names a manual baseline capture.
type capturePayload struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

func registerBaselineRoutes() {
	webserver.ApiGET("/perf/baseline", GetActiveBaseline)
	webserver.ApiGET("/perf/baselines", ListBaselines)
	webserver.ApiPOST("/perf/baselines/capture", CaptureBaseline)
	webserver.ApiGET("/perf/comparison", GetComparison)
	webserver.ApiPOST("/perf/baselines/validate", ValidateBaseline)
	webserver.ApiPOST("/perf/baselines/auto-update", TriggerAutoUpdate)
}

// GetActiveBaseline returns the active baseline, 404 when none is active.
// @Summary get the active baseline
// @Tags Baselines
// @Success 200 {object} domain.Baseline
// @Router /api/v1/perf/baseline [get]
func GetActiveBaseline(c echo.Context) error {
	active := GetAppContext(c).Baselines().Active()
	if active == nil {
		return fail(c, http.StatusNotFound, "NO_BASELINE", "No active baseline", nil)
	}
	return c.JSON(http.StatusOK, active)
}

// ListBaselines returns the stored baseline history, newest first.
// @Summary list baseline history
// @Tags Baselines
// @Success 200 {object} ListResponse
// @Router /api/v1/perf/baselines [get]
func ListBaselines(c echo.Context) error {
	history, err := GetAppContext(c).Baselines().History(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "LOAD_FAILED", "Failed to load baselines", err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  history,
		"total": len(history),
	})
}

// CaptureBaseline snapshots current aggregates into a new active baseline.
// @Summary capture a new baseline
// @Tags Baselines
// @Param body body capturePayload true "Baseline name and description"
// @Success 201 {object} domain.Baseline
// @Router /api/v1/perf/baselines/capture [post]
func CaptureBaseline(c echo.Context) error {
	var payload capturePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_BODY", "Invalid capture payload", err.Error())
	}
	if payload.Name == "" {
		return fail(c, http.StatusBadRequest, "INVALID_NAME", "Baseline name is required", nil)
	}

	b, err := GetAppContext(c).Baselines().Capture(c.Request().Context(), payload.Name, payload.Description)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "CAPTURE_FAILED", "Failed to capture baseline", err.Error())
	}
	return c.JSON(http.StatusCreated, b)
}

// GetComparison compares the live window against the active baseline.
// @Summary compare current performance against the active baseline
// @Tags Baselines
// @Param window_ms query int false "Lookback window in milliseconds"
// @Success 200 {object} domain.Comparison
// @Router /api/v1/perf/comparison [get]
func GetComparison(c echo.Context) error {
	appCtx := GetAppContext(c)
	window, err := parseWindowMillis(c, appCtx.Config().Monitoring.EvalWindowMillis)
	if err != nil {
		return err
	}

	cmp, err := appCtx.Baselines().Compare(window)
	if errors.Is(err, baseline.ErrNoBaseline) {
		return fail(c, http.StatusNotFound, "NO_BASELINE", "No active baseline to compare against", nil)
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "COMPARE_FAILED", "Comparison failed", err.Error())
	}
	return c.JSON(http.StatusOK, cmp)
}

// ValidateBaseline runs an on-demand validation pass.
func ValidateBaseline(c echo.Context) error {
	result, err := GetAppContext(c).Baselines().Validate()
	if errors.Is(err, baseline.ErrNoBaseline) {
		return fail(c, http.StatusNotFound, "NO_BASELINE", "No active baseline to validate against", nil)
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "VALIDATE_FAILED", "Validation failed", err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

// autoUpdatePayload overrides the runtime auto-update knobs for one run.
type autoUpdatePayload struct {
	MinAgeDays                  int     `json:"min_age_days"`
	ImprovementThresholdPercent float64 `json:"improvement_threshold_percent"`
}

// TriggerAutoUpdate runs the auto-update check immediately.
func TriggerAutoUpdate(c echo.Context) error {
	appCtx := GetAppContext(c)

	payload := autoUpdatePayload{
		MinAgeDays:                  int(appCtx.GetSettingsInt64Value("baseline", "auto_update_min_age_days")),
		ImprovementThresholdPercent: float64(appCtx.GetSettingsInt64Value("baseline", "auto_update_improvement_percent")),
	}
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_BODY", "Invalid auto-update payload", err.Error())
	}

	promoted, err := appCtx.Baselines().AutoUpdate(c.Request().Context(), payload.MinAgeDays, payload.ImprovementThresholdPercent)
	if errors.Is(err, baseline.ErrNoBaseline) {
		return fail(c, http.StatusNotFound, "NO_BASELINE", "No active baseline to update", nil)
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "AUTO_UPDATE_FAILED", "Auto-update failed", err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"promoted": promoted})
}

// Register wires all admin API routes; call after webserver.Init.
func Register() {
	registerSampleRoutes()
	registerPerfRoutes()
	registerBaselineRoutes()
}
