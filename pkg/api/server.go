// Package api is the embedded HTTP control surface: job submission,
// status, and cancellation against the Classification Engine, plus a
// Prometheus scrape endpoint.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/peerworks/classifierd/pkg/database"
	"github.com/peerworks/classifierd/pkg/engine"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the classifier's HTTP control surface.
type Server struct {
	engine    *engine.Engine
	db        *database.Client
	allowedIP string
	httpSrv   *http.Server
	log       *slog.Logger
}

// NewServer builds a Server bound to addr. allowedIP, when non-empty,
// restricts every request to that single source IP.
func NewServer(addr string, eng *engine.Engine, db *database.Client, allowedIP string) *Server {
	s := &Server{
		engine:    eng,
		db:        db,
		allowedIP: allowedIP,
		log:       slog.With("component", "api"),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())
	if allowedIP != "" {
		router.Use(s.ipAllowlist())
	}

	s.setupRoutes(router)

	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: stripXMLSuffix(router),
	}
	return s
}

func (s *Server) setupRoutes(router *gin.Engine) {
	router.GET("/classifier", s.handleAbout)
	router.POST("/classifier/jobs", s.handleCreateJob)
	router.GET("/classifier/jobs/:id", s.handleGetJob)
	router.DELETE("/classifier/jobs/:id", s.handleDeleteJob)
	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Start serves on the configured address until the server is shut down.
// It returns http.ErrServerClosed on a clean Shutdown.
func (s *Server) Start() error {
	s.log.Info("http server listening", "addr", s.httpSrv.Addr)
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// ipAllowlist rejects any request whose remote address does not match the
// configured allowed_ip.
func (s *Server) ipAllowlist() gin.HandlerFunc {
	return func(c *gin.Context) {
		host := c.Request.RemoteAddr
		if idx := strings.LastIndex(host, ":"); idx != -1 {
			host = host[:idx]
		}
		if host != s.allowedIP {
			c.Abort()
			c.XML(http.StatusForbidden, errorsXML{Error: "forbidden"})
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	health, err := database.Health(reqCtx, s.db.DB())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": health, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "database": health, "queue_depth": s.engine.QueueDepth()})
}

// stripXMLSuffix wraps handler so that a path ending in ".xml" is routed
// as if the suffix were absent, matching the original's convention of
// accepting an optional .xml extension on every resource path.
func stripXMLSuffix(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".xml") {
			r.URL.Path = strings.TrimSuffix(r.URL.Path, ".xml")
		}
		handler.ServeHTTP(w, r)
	})
}

func jobLocation(r *http.Request, id string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/classifier/jobs/%s", scheme, r.Host, id)
}
