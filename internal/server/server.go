package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chal0326/researchcms/internal/bucket"
	"github.com/chal0326/researchcms/internal/ledger"
	"github.com/chal0326/researchcms/internal/logger"
	"github.com/chal0326/researchcms/internal/orchestrator"
	"github.com/chal0326/researchcms/internal/store"
)

// LedgerSyncer runs one ledger sync.
type LedgerSyncer interface {
	Sync(ctx context.Context) (ledger.SyncStats, error)
}

type Server struct {
	Orchestrator *orchestrator.Orchestrator
	Ledger       LedgerSyncer
	Store        store.Store
	Log          *logger.Logger
}

func NewServer(o *orchestrator.Orchestrator, l LedgerSyncer, s store.Store, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{Orchestrator: o, Ledger: l, Store: s, Log: log}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.Health)
	r.GET("/stats", s.Stats)
	r.POST("/extract-graph", s.ExtractGraph)
	r.POST("/extraction/automagic", s.Automagic)
	r.POST("/sync-ledger", s.SyncLedger)

	return r
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ExtractGraph processes one page of documents. Per-file failures are part
// of the stats; only request-level problems produce an error status.
func (s *Server) ExtractGraph(c *gin.Context) {
	var req orchestrator.SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request"})
		return
	}

	resp, err := s.Orchestrator.Sweep(c.Request.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, bucket.ErrUnknownBucket) {
			status = http.StatusBadRequest
		}
		s.Log.Error("Extraction batch failed", "error", err)
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"stats":       resp.Stats,
		"next_cursor": resp.NextCursor,
	})
}

type AutomagicRequest struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
}

func (s *Server) Automagic(c *gin.Context) {
	var req AutomagicRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request"})
		return
	}

	n, err := s.Orchestrator.Enqueue(c.Request.Context(), req.Bucket, req.Prefix)
	if err != nil {
		s.Log.Error("Failed to enqueue documents", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Enqueued %d files for background extraction.", n),
	})
}

func (s *Server) SyncLedger(c *gin.Context) {
	if s.Ledger == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sync failed", "details": ledger.ErrNoLedger.Error()})
		return
	}

	stats, err := s.Ledger.Sync(c.Request.Context())
	if err != nil {
		s.Log.Error("Ledger sync failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sync failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Sync completed successfully", "stats": stats})
}

func (s *Server) Stats(c *gin.Context) {
	counts, err := s.Store.Counts(c.Request.Context())
	if err != nil {
		s.Log.Error("Failed to count records", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}
	c.JSON(http.StatusOK, counts)
}
