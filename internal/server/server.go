// Package server exposes the experiment store as the JSON API behind the
// dashboard page.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/franz/mldb/internal/util"
)

// Server is the dashboard API.
type Server struct {
	pool   *Pool
	engine *gin.Engine
}

// New builds the router. The pool is owned by the caller.
func New(pool *Pool) *Server {
	s := &Server{pool: pool}

	r := gin.New()
	r.UseRawPath = true
	r.Use(gin.Recovery(), requestLogger())

	api := r.Group("/api")
	{
		experiments := api.Group("/experiments")
		{
			experiments.GET("", s.listExperiments)
			experiments.GET("/:id", s.experimentDetails)
			experiments.GET("/:id/metrics/latest", s.latestMetrics)
			experiments.GET("/:id/qualitative", s.qualitativePlots)
			experiments.GET("/:id/qualitative/:plot", s.qualitativeResult)
		}

		groups := api.Group("/groups")
		{
			groups.GET("", s.listGroups)
			groups.GET("/:group", s.groupMembers)
		}

		api.POST("/query", s.query)
	}

	s.engine = r
	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		util.InfoLog("Server started: http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	util.InfoLog("Server stopped")
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		util.DebugLog("%s %s -> %d (%v)", c.Request.Method, c.Request.URL.Path, status, time.Since(start).Round(time.Millisecond))
		if status >= http.StatusInternalServerError {
			util.ErrorLog("%s %s failed: %s", c.Request.Method, c.Request.URL.Path, c.Errors.String())
		}
	}
}
