package httpserver

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Server owns the HTTP listener for the storefront API.
type Server struct {
	httpServer *http.Server
	logger     *log.Logger
}

type pinger interface {
	Ping(ctx context.Context) error
}

// New builds a Server with all API routes. db may be nil, in which case /readyz reports unavailable.
func New(addr string, logger *log.Logger, db *pgxpool.Pool, deps Deps) (*Server, error) {
	var p pinger
	if db != nil {
		p = db
	}
	router, err := buildRouter(logger, p, deps)
	if err != nil {
		return nil, err
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}, nil
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readyHandler reports the database and each configured platform API. A missing
// platform config degrades the affected routes but does not fail readiness.
func readyHandler(db pinger, deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{
			"storefront": configState(deps.StorefrontReady),
			"admin":      configState(deps.AdminReady),
		}
		if db == nil {
			checks["db"] = "not configured"
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": checks})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			checks["db"] = "unreachable"
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": checks})
			return
		}
		checks["db"] = "ok"
		c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
	}
}

func configState(check ConfigCheck) string {
	if check == nil {
		return "ok"
	}
	if err := check(); err != nil {
		return "not configured"
	}
	return "ok"
}
