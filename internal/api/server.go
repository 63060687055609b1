// Package api is the thin HTTP surface over the service context:
// status, metrics and the two activity triggers.
package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"trainhub/internal/service"
)

type Server struct {
	svc    *service.Service
	apiKey string
	log    *zap.Logger
}

func NewServer(svc *service.Service, apiKey string, log *zap.Logger) *Server {
	return &Server{svc: svc, apiKey: apiKey, log: log}
}

// Router builds the gin engine with all routes registered. The
// status and banner routes stay open; everything else sits behind
// the bearer-key check.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	r.GET("/", s.root)
	r.GET("/status", s.status)

	guarded := r.Group("/", RequireKey(s.apiKey))
	guarded.POST("/scrape", s.scrape)
	guarded.POST("/train", s.train)
	guarded.GET("/metrics", s.metrics)
	guarded.GET("/models/latest", s.latestModel)
	guarded.GET("/samples", s.samples)
	guarded.GET("/prometheus", gin.WrapH(promhttp.Handler()))

	return r
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "trainhub API", "version": "1.0.0"})
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"uptime":         s.svc.Uptime(),
		"last_scrape":    nullable(s.svc.LastScrape()),
		"last_train":     nullable(s.svc.LastTrain()),
		"dataset_counts": s.svc.Stats(c.Request.Context()),
	})
}

func (s *Server) scrape(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": s.svc.StartScrape()})
}

func (s *Server) train(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": s.svc.StartTrain()})
}

func (s *Server) metrics(c *gin.Context) {
	stats := s.svc.Stats(c.Request.Context())
	entries := s.svc.Registry.List("")

	var lastTraining any
	var accuracy any
	if latest, ok := s.svc.Registry.Latest(service.DefaultModel); ok {
		lastTraining = latest.Timestamp
		if acc, ok := latest.Accuracy(); ok {
			accuracy = acc
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"total_images":        stats.Total,
		"models_trained":      len(entries),
		"last_training":       lastTraining,
		"validation_accuracy": accuracy,
	})
}

func (s *Server) latestModel(c *gin.Context) {
	info, ok := s.svc.Registry.LatestInfo(service.DefaultModel)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no models trained"})
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) samples(c *gin.Context) {
	limit := parseInt(c.Query("limit"), 100)
	label := c.Query("label")
	items := s.svc.Dataset.ListSamples(c.Request.Context(), label, limit)
	c.JSON(http.StatusOK, gin.H{
		"count": len(items),
		"items": items,
	})
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
