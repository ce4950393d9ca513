// Package webserver hosts the echo instance the admin API registers on.
package webserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/talkincode/thriftmart/config"
	"go.uber.org/zap"
)

type AdminServer struct {
	root *echo.Echo
	addr string
}

func NewAdminServer(cfg config.WebConfig) *AdminServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = &JSONSerializer{}
	e.HTTPErrorHandler = httpErrorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("namespace", "http"),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			if v.Status >= http.StatusInternalServerError {
				zap.L().Error("request", fields...)
			} else {
				zap.L().Debug("request", fields...)
			}
			return nil
		},
	}))
	return &AdminServer{
		root: e,
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}
}

// Echo exposes the underlying instance, mainly for httptest.
func (s *AdminServer) Echo() *echo.Echo {
	return s.root
}

func (s *AdminServer) Addr() string {
	return s.addr
}

func (s *AdminServer) GET(path string, h echo.HandlerFunc) {
	s.root.GET(path, h)
}

func (s *AdminServer) POST(path string, h echo.HandlerFunc) {
	s.root.POST(path, h)
}

func (s *AdminServer) PUT(path string, h echo.HandlerFunc) {
	s.root.PUT(path, h)
}

func (s *AdminServer) DELETE(path string, h echo.HandlerFunc) {
	s.root.DELETE(path, h)
}

// Start serves until Shutdown is called. A graceful shutdown is not an error.
func (s *AdminServer) Start() error {
	zap.L().Info("admin server listening", zap.String("namespace", "http"), zap.String("addr", s.addr))
	if err := s.root.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *AdminServer) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.root.Shutdown(ctx)
}

// httpErrorHandler renders errors that escaped the handlers, such as unknown
// routes or recovered panics, in the same {code, msg} shape the API uses.
func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	code := "INTERNAL"
	msg := "internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		code = http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	} else {
		zap.L().Error("unhandled error", zap.String("namespace", "http"), zap.Error(err))
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, map[string]interface{}{"code": code, "msg": msg})
}
