package trigger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/UnitVectorY-Labs/buildbadges/internal/relocator"
)

// Relocator is the part of relocator.Relocator the triggers use.
type Relocator interface {
	HandleEnvelope(ctx context.Context, raw []byte) (relocator.Result, error)
	Handle(ctx context.Context, payload []byte) (relocator.Result, error)
}

const maxBody = "1M"

// NewHTTPServer returns an echo instance serving the push endpoint on
// POST /, a health check and, when metricsHandler is set, /metrics.
func NewHTTPServer(r Relocator, metricsHandler http.Handler, log *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(requestLogger(log))

	e.POST("/", func(c echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			// BodyLimit reports oversized streamed bodies as 413.
			var he *echo.HTTPError
			if errors.As(err, &he) {
				return he
			}
			return echo.NewHTTPError(http.StatusBadRequest, "failed to read body")
		}
		res, err := r.HandleEnvelope(c.Request().Context(), body)
		if err != nil {
			log.Error("badge relocation failed", "error", err, "dest", res.Dest)
			// Non-2xx makes the push subscription redeliver.
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		if res.Skipped {
			return c.NoContent(http.StatusNoContent)
		}
		return c.JSON(http.StatusOK, res)
	}, middleware.BodyLimit(maxBody))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	if metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(metricsHandler))
	}
	return e
}

// Serve runs e on addr until ctx is done, then shuts it down.
func Serve(ctx context.Context, e *echo.Echo, addr string, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("http trigger listening", "addr", addr)
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down http trigger")
		return e.Shutdown(shutdownCtx)
	}
}

func requestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			log.Debug("request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"latency_ms", time.Since(start).Milliseconds())
			return nil
		}
	}
}
