package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/vampirenirmal/insightatlas/internal/config"
	"github.com/vampirenirmal/insightatlas/internal/extract"
	"github.com/vampirenirmal/insightatlas/internal/pipeline"
	"github.com/vampirenirmal/insightatlas/internal/progress"
	"github.com/vampirenirmal/insightatlas/internal/storage"
)

// Server exposes the insight generation API and progress WebSocket.
type Server struct {
	cfg          *config.Config
	extractor    extract.Extractor
	orchestrator *pipeline.Orchestrator
	store        *storage.InsightStore
	broadcaster  *progress.Broadcaster
	runs         *semaphore.Weighted
	logger       *slog.Logger
}

func New(cfg *config.Config, extractor extract.Extractor, orch *pipeline.Orchestrator, store *storage.InsightStore, broadcaster *progress.Broadcaster, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:          cfg,
		extractor:    extractor,
		orchestrator: orch,
		store:        store,
		broadcaster:  broadcaster,
		runs:         semaphore.NewWeighted(cfg.Limits.MaxConcurrentRuns),
		logger:       logger.With("component", "server"),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: s.cfg.Server.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}))

	router.GET("/api/health", s.handleHealth)
	router.POST("/api/insights", s.handleCreateInsight)
	router.GET("/api/insights", s.handleListInsights)
	router.GET("/api/insights/:id", s.handleGetInsight)
	router.GET("/ws", s.handleWebSocket)

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleCreateInsight accepts a book upload, extracts its text, and
// launches the generation pipeline in the background. The response carries
// the insight id the client subscribes with.
func (s *Server) handleCreateInsight(c *gin.Context) {
	if s.cfg.Storage.UploadLimit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.Storage.UploadLimit)
	}

	fileHeader, err := c.FormFile("book")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing book file"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable book file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reading book file failed"})
		return
	}

	content, err := s.extractor.ExtractContent(data, fileHeader.Filename, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		s.logger.Warn("text extraction failed",
			"filename", fileHeader.Filename,
			"error", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	title := c.PostForm("title")
	if title == "" {
		title = content.Title
	}
	author := c.PostForm("author")
	if author == "" {
		author = content.Author
	}

	insightID := uuid.NewString()
	go s.runPipeline(insightID, title, author, content.Text)

	s.logger.Info("insight generation accepted",
		"insight_id", insightID,
		"book_title", title,
		"word_count", content.WordCount)
	c.JSON(http.StatusAccepted, gin.H{
		"insightId": insightID,
		"bookTitle": title,
		"wordCount": content.WordCount,
	})
}

// runPipeline executes one generation run in the background, bounded by
// the concurrency semaphore, and persists the result.
func (s *Server) runPipeline(insightID, title, author, text string) {
	ctx := context.Background()

	if err := s.runs.Acquire(ctx, 1); err != nil {
		s.logger.Error("acquiring run slot failed", "insight_id", insightID, "error", err)
		return
	}
	defer s.runs.Release(1)

	result, err := s.orchestrator.GeneratePremiumInsight(ctx, title, author, text, insightID, nil)
	if err != nil {
		// The orchestrator has already logged and broadcast the failure;
		// the cached failed status is what polling clients see.
		return
	}

	if err := s.store.SaveInsight(ctx, result); err != nil {
		s.logger.Error("persisting insight failed",
			"insight_id", insightID,
			"error", err)
	}
}

func (s *Server) handleListInsights(c *gin.Context) {
	ids, err := s.store.ListInsights(c.Request.Context())
	if err != nil {
		s.logger.Error("listing insights failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing insights failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"insightIds": ids})
}

// handleGetInsight returns the persisted insight, or the current run
// status for an insight still generating (or recently failed).
func (s *Server) handleGetInsight(c *gin.Context) {
	id := c.Param("id")

	record, err := s.store.LoadInsight(c.Request.Context(), id)
	if err == nil {
		c.JSON(http.StatusOK, record)
		return
	}

	if update, ok := s.broadcaster.GetProgress(id); ok {
		c.JSON(http.StatusOK, gin.H{
			"insightId":   id,
			"status":      update.Status,
			"percent":     update.Percent,
			"currentStep": update.CurrentStep,
			"error":       update.Error,
		})
		return
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "insight not found"})
}
