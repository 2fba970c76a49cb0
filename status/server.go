// Package status serves the election status and metrics over HTTP.
package status

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nickbruun/zkelection/election"
	log "github.com/nickbruun/zkelection/logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Source of the election status.
type Source interface {
	Status() election.Status
}

// Status response.
type Response struct {
	InstanceID string `json:"instance_id"`
	election.Status
}

// Status server.
type Server struct {
	instanceID string
	source     Source
	engine     *gin.Engine
	srv        *http.Server
}

// New status server.
func New(instanceID string, source Source) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		instanceID: instanceID,
		source:     source,
		engine:     gin.New(),
	}

	s.engine.Use(gin.Recovery(), requestLogger())
	s.engine.GET("/status", s.status)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.srv = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Debug("Served status request")
	}
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		InstanceID: s.instanceID,
		Status:     s.source.Status(),
	})
}

// HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Listen and serve on an address.
//
// Returns nil once the server has been shut down, also if it was shut down
// before listening.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	return s.Serve(ln)
}

// Serve on a listener.
//
// Closes the listener when returning.
func (s *Server) Serve(ln net.Listener) error {
	log.Infof("Serving status on %s", ln.Addr())

	if err := s.srv.Serve(ln); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shut down the server.
//
// The server does not serve once shut down.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
