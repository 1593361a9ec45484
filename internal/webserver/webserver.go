// Package webserver hosts the echo instance serving the query surface.
// Route registration goes through the Api* helpers so handler packages stay
// free of echo bootstrap details.
package webserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coursehub/perfwatch/internal/app"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const AppContextKey = "appctx"

var server *WebServer

type WebServer struct {
	root   *echo.Echo
	api    *echo.Group
	appCtx app.AppContext
}

// Init builds the global web server bound to the application context.
func Init(appCtx app.AppContext) {
	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(AppContextKey, appCtx)
			return next(c)
		}
	})
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}
		zap.L().Error("http error", zap.String("path", c.Path()), zap.Error(err))
		_ = c.JSON(code, map[string]interface{}{"code": code, "message": err.Error()})
	}

	server = &WebServer{
		root:   e,
		api:    e.Group("/api/v1"),
		appCtx: appCtx,
	}
}

// Start serves until the listener fails or Stop is called.
func Start() error {
	cfg := server.appCtx.Config().Web
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	zap.L().Info("starting web server", zap.String("listen", addr))
	return server.root.Start(addr)
}

// Stop shuts the listener down gracefully.
func Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.root.Shutdown(ctx)
}

func ApiGET(path string, h echo.HandlerFunc) {
	server.api.GET(path, h)
}

func ApiPOST(path string, h echo.HandlerFunc) {
	server.api.POST(path, h)
}

func ApiPUT(path string, h echo.HandlerFunc) {
	server.api.PUT(path, h)
}

func ApiDELETE(path string, h echo.HandlerFunc) {
	server.api.DELETE(path, h)
}
