// Package web serves a read-only local view of the session: a feed per
// category, the stream journal, health and metrics.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/deemkeen/thrive/domain"
	"github.com/deemkeen/thrive/logging"
	"github.com/deemkeen/thrive/metrics"
	"github.com/deemkeen/thrive/timeline"
	"github.com/deemkeen/thrive/util"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type Server struct {
	conf     *util.AppConfig
	store    *timeline.Store
	source   FeedSource
	events   EventReader
	gatherer prometheus.Gatherer
	limiter  *RateLimiter
	engine   *gin.Engine
	log      zerolog.Logger
	now      func() time.Time
}

func NewServer(conf *util.AppConfig, store *timeline.Store, me *domain.Account, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		conf:  conf,
		store: store,
		source: FeedSource{
			Me:      me,
			Host:    util.InstanceHost(conf.Conf.Instance),
			BaseURL: fmt.Sprintf("http://%s:%d", conf.Conf.HttpHost, conf.Conf.HttpPort),
		},
		gatherer: gatherer,
		limiter:  NewRateLimiter(rate.Limit(10), 20),
		log:      logging.Component("web"),
		now:      time.Now,
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	g := gin.New()
	g.Use(gin.Recovery(), RequestLogger(s.log), LoopbackOnly(), RateLimitMiddleware(s.limiter))
	g.Use(gzip.Gzip(gzip.DefaultCompression))

	g.GET("/healthz", s.handleHealth)
	if s.gatherer != nil {
		g.GET("/metrics", gin.WrapH(metrics.Handler(s.gatherer)))
	}
	g.GET("/feed/:category", s.handleFeed)
	g.GET("/feed/:category/:id", s.handleFeedItem)
	g.GET("/events", s.handleEvents)
	return g
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

type categoryHealth struct {
	State   string `json:"state"`
	Items   int    `json:"items"`
	Version uint64 `json:"version"`
}

func (s *Server) handleHealth(c *gin.Context) {
	cats := make(map[string]categoryHealth, len(domain.AllCategories))
	for _, cat := range domain.AllCategories {
		snap := s.store.Snapshot(cat)
		cats[string(cat)] = categoryHealth{
			State:   snap.State.String(),
			Items:   len(snap.Items),
			Version: snap.Version,
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"version":    util.GetVersion(),
		"categories": cats,
	})
}

func (s *Server) category(c *gin.Context) (domain.Category, bool) {
	cat := domain.Category(c.Param("category"))
	if !cat.Valid() {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown category"})
		return "", false
	}
	return cat, true
}

func (s *Server) render(c *gin.Context, snap timeline.Snapshot) {
	feed := BuildFeed(s.source, snap, s.now())
	body, contentType, err := RenderFeed(feed, c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Type", contentType)
	c.Render(http.StatusOK, render.String{Format: body})
}

func (s *Server) handleFeed(c *gin.Context) {
	cat, ok := s.category(c)
	if !ok {
		return
	}
	s.render(c, s.store.Snapshot(cat))
}

func (s *Server) handleFeedItem(c *gin.Context) {
	cat, ok := s.category(c)
	if !ok {
		return
	}
	item, found := s.store.FindByID(cat, c.Param("id"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}
	s.render(c, timeline.Snapshot{Category: cat, Items: []domain.Item{item}})
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.conf.Conf.HttpHost, s.conf.Conf.HttpPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.limiter.Prune(ctx, 5*time.Minute)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", addr).Msg("starting local bridge")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
