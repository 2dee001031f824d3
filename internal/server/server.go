// Package server exposes the upload, files, chat, and status endpoints as a
// JSON API.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ragchat/internal/chat"
	"ragchat/internal/docstore"
	"ragchat/internal/domain"
	"ragchat/internal/ready"
	"ragchat/internal/summarizer"
)

// Server wires the HTTP surface to the retrieval pipeline behind the
// readiness gate.
type Server struct {
	gate         *ready.Gate
	files        *docstore.FileStore
	chat         *chat.Service
	summarizer   *summarizer.FrequencySummarizer
	readyTimeout time.Duration
	logger       *zap.Logger
}

func New(gate *ready.Gate, files *docstore.FileStore, chatSvc *chat.Service, sum *summarizer.FrequencySummarizer, readyTimeout time.Duration, logger *zap.Logger) *Server {
	if readyTimeout <= 0 {
		readyTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		gate:         gate,
		files:        files,
		chat:         chatSvc,
		summarizer:   sum,
		readyTimeout: readyTimeout,
		logger:       logger,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/initialization_status", s.handleStatus)
	r.GET("/files", s.handleListFiles)
	r.POST("/upload", s.handleUpload)
	r.DELETE("/files/:filename", s.handleRemove)
	r.POST("/chat", s.handleChat)
	return r
}

func (s *Server) handleStatus(c *gin.Context) {
	state, err := s.gate.Status()
	resp := gin.H{
		"is_initializing": state == ready.StateLoading,
		"is_complete":     state == ready.StateReady,
	}
	if err != nil {
		resp["error"] = err.Error()
	} else {
		resp["error"] = nil
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListFiles(c *gin.Context) {
	names, err := s.files.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"files": names})
}

func (s *Server) handleUpload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	content := string(data)

	if err := s.files.Save(header.Filename, content); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	st, err := s.store(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	chunks, err := st.AddDocument(c.Request.Context(), header.Filename, content)
	if err != nil {
		s.logger.Error("indexing uploaded document failed",
			zap.String("filename", header.Filename),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("error processing file: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"filename": header.Filename,
		"chunks":   chunks,
		"summary":  s.summarizer.Summarize(content, 3),
	})
}

func (s *Server) handleRemove(c *gin.Context) {
	filename := c.Param("filename")

	st, err := s.store(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	removed, err := st.RemoveDocument(c.Request.Context(), filename)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := s.files.Remove(filename); err != nil && removed == 0 {
		if err == domain.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("document '%s' not found", filename)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"filename": filename, "removed_chunks": removed})
}

func (s *Server) handleChat(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing message"})
		return
	}
	reply := s.chat.Respond(c.Request.Context(), req.Message)
	c.JSON(http.StatusOK, gin.H{"response": reply})
}

func (s *Server) store(ctx context.Context) (storeHandle, error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.readyTimeout)
	defer cancel()
	return s.gate.Store(waitCtx)
}

// storeHandle is the subset of the vector store the handlers need.
type storeHandle interface {
	AddDocument(ctx context.Context, filename, content string) (int, error)
	RemoveDocument(ctx context.Context, filename string) (int, error)
}
