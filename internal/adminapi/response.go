package adminapi

import (
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/coursehub/perfwatch/internal/app"
	"github.com/coursehub/perfwatch/internal/webserver"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// ListResponse is the generic list envelope returned by list endpoints.
type ListResponse struct {
	Data  interface{} `json:"data"`
	Total int64       `json:"total"`
}

// GetAppContext extracts the application context injected by the webserver.
func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(webserver.AppContextKey).(app.AppContext)
}

// GetDB returns the application database handle.
func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB()
}

func fail(c echo.Context, status int, code, message string, detail interface{}) error {
	return c.JSON(status, map[string]interface{}{
		"code":    code,
		"message": message,
		"detail":  detail,
	})
}

// parseWindowMillis resolves the lookback window from either a window_ms
// integer or a since timestamp (any common format). Falls back to def.
func parseWindowMillis(c echo.Context, def int64) (int64, error) {
	if raw := c.QueryParam("window_ms"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms <= 0 {
			return 0, echo.NewHTTPError(400, "invalid window_ms")
		}
		return ms, nil
	}
	if raw := c.QueryParam("since"); raw != "" {
		t, err := dateparse.ParseAny(raw)
		if err != nil {
			return 0, echo.NewHTTPError(400, "invalid since timestamp")
		}
		ms := time.Since(t).Milliseconds()
		if ms <= 0 {
			return 0, echo.NewHTTPError(400, "since must be in the past")
		}
		return ms, nil
	}
	return def, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
