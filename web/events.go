package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/deemkeen/thrive/db"
	"github.com/gin-gonic/gin"
)

const (
	defaultEventsLimit = 100
	maxEventsLimit     = 1000
)

// EventReader lists journaled stream events, newest first. *db.DB
// implements it.
type EventReader interface {
	ReadStreamEvents(limit int) (error, *[]db.StreamEvent)
}

type journalEntry struct {
	Kind       string    `json:"kind"`
	ItemId     string    `json:"item_id"`
	ReceivedAt time.Time `json:"received_at"`
}

// WithEvents exposes the stream journal at /events.
func (s *Server) WithEvents(r EventReader) *Server {
	s.events = r
	return s
}

func (s *Server) handleEvents(c *gin.Context) {
	if s.events == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no stream journal"})
		return
	}

	limit := defaultEventsLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive number"})
			return
		}
		limit = min(n, maxEventsLimit)
	}

	err, events := s.events.ReadStreamEvents(limit)
	if err != nil {
		s.log.Error().Err(err).Msg("reading stream journal")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read the journal"})
		return
	}

	entries := make([]journalEntry, 0, len(*events))
	for _, ev := range *events {
		entries = append(entries, journalEntry{Kind: ev.Kind, ItemId: ev.ItemId, ReceivedAt: ev.ReceivedAt})
	}
	c.JSON(http.StatusOK, gin.H{"events": entries})
}
