// controllers/srv.go
package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"Gin_gorm_library_borrow/app"
	"Gin_gorm_library_borrow/library"
)

type Srv struct {
	Lib *library.Service
	Log *slog.Logger
}

func GetSrv(a *app.App) *Srv {
	return &Srv{Lib: a.Library, Log: a.Log}
}

// --- helpers ---

func (s *Srv) fail(c *app.Ctx, err error) { app.RespondError(c, s.Log, err) }

// Health is a plain liveness probe.
func (s *Srv) Health(c *app.Ctx) { c.JSON(http.StatusOK, app.H{"status": "ok"}) }

// Ready also checks the store.
func (s *Srv) Ready(c *app.Ctx) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.Lib.Ping(ctx); err != nil {
		s.Log.Warn("readiness check failed", "err", err)
		c.JSON(http.StatusServiceUnavailable, app.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, app.H{"status": "ok"})
}
