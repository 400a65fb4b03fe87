// Package server exposes the fingering pipeline over HTTP: score upload,
// background processing with job tracking, result retrieval and layout
// generation endpoints.
package server

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/akkordio/akkordio/internal/config"
	"github.com/akkordio/akkordio/internal/layout"
)

// Server wires the HTTP API to the processing pipeline.
type Server struct {
	cfg  *config.Config
	jobs *jobStore
}

// New creates a server for the given configuration.
func New(cfg *config.Config) *Server {
	return &Server{cfg: cfg, jobs: newJobStore()}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/health", s.health)
	r.POST("/upload", s.upload)
	r.POST("/process/:job_id", s.process)
	r.GET("/status/:job_id", s.status)
	r.GET("/results/:job_id", s.results)
	r.GET("/midi/:job_id", s.midiFile)

	r.GET("/layouts/presets", s.listPresets)
	r.GET("/layouts/preset/:name", s.presetLayout)
	r.POST("/layouts/generate", s.generateLayout)

	return r
}

// Run starts the HTTP server on the configured address.
func (s *Server) Run() error {
	for _, dir := range []string{s.cfg.UploadDir, s.cfg.ProcessedDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	log.Printf("Akkordio backend listening on %s", s.cfg.ListenAddr)
	return s.Router().Run(s.cfg.ListenAddr)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "akkordio-backend",
	})
}

// upload accepts a Standard MIDI File and registers a job for it.
func (s *Server) upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	defer file.Close()

	name := strings.ToLower(header.Filename)
	if !strings.HasSuffix(name, ".mid") && !strings.HasSuffix(name, ".midi") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only MIDI files are accepted"})
		return
	}
	if header.Size > s.cfg.MaxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("file exceeds %d byte limit", s.cfg.MaxUploadBytes)})
		return
	}

	job := s.jobs.create(header.Filename)

	dst, err := os.Create(filepath.Join(s.cfg.UploadDir, job.ID+".mid"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store upload"})
		return
	}
	defer dst.Close()
	size, err := io.Copy(dst, io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil || size > s.cfg.MaxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":   job.ID,
		"filename": header.Filename,
		"size":     size,
		"status":   job.Status,
	})
}

// ProcessRequest configures a processing run for an uploaded score.
type ProcessRequest struct {
	// TrebleLayout picks a preset; empty uses the configured default.
	TrebleLayout string `json:"treble_layout"`
	// Layout overrides TrebleLayout with a custom generated layout.
	Layout *LayoutRequest `json:"layout,omitempty"`
	// StartBellows is the initial bellows state: push, pull or neutral.
	StartBellows string `json:"start_bellows,omitempty"`
	// BeamWidth and MaxExpansions override the configured search bounds
	// when positive.
	BeamWidth     int `json:"beam_width,omitempty"`
	MaxExpansions int `json:"max_expansions,omitempty"`
}

// LayoutRequest describes a custom layout to generate.
type LayoutRequest struct {
	System          string `json:"system"`
	Rows            int    `json:"rows"`
	Columns         int    `json:"columns"`
	StartMIDI       int    `json:"start_midi"`
	StartFifthIndex int    `json:"start_fifth_index"`
}

// process kicks off the background pipeline for an uploaded job.
func (s *Server) process(c *gin.Context) {
	id := c.Param("job_id")
	if _, ok := s.jobs.get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("job %s not found", id)})
		return
	}

	var req ProcessRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	lay, err := s.resolveLayout(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.jobs.progress(id, 10, "Reading MIDI file...")
	go s.runPipeline(id, &req, lay)

	c.JSON(http.StatusOK, gin.H{
		"job_id":   id,
		"status":   JobProcessing,
		"progress": 10,
		"message":  "Processing started",
	})
}

// resolveLayout picks the custom layout, the requested preset or the
// configured default, in that order.
func (s *Server) resolveLayout(req *ProcessRequest) (*layout.Layout, error) {
	if req.Layout != nil {
		return layout.Generate(
			layout.SystemType(req.Layout.System),
			req.Layout.Rows, req.Layout.Columns,
			req.Layout.StartMIDI, req.Layout.StartFifthIndex,
		)
	}
	preset := req.TrebleLayout
	if preset == "" {
		preset = s.cfg.DefaultTreblePreset
	}
	return layout.FromPreset(preset)
}

func (s *Server) status(c *gin.Context) {
	id := c.Param("job_id")
	job, ok := s.jobs.get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("job %s not found", id)})
		return
	}
	c.JSON(http.StatusOK, job)
}

// results serves the persisted result document of a job. Completed jobs
// always have one; failed jobs may carry a partial document showing how far
// the fingering got before the search gave up.
func (s *Server) results(c *gin.Context) {
	id := c.Param("job_id")
	job, ok := s.jobs.get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("job %s not found", id)})
		return
	}
	if job.Status != JobCompleted && job.Status != JobFailed {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("job %s is not completed yet, current status: %s", id, job.Status),
		})
		return
	}

	path := filepath.Join(s.cfg.ProcessedDir, id, "result.json")
	data, err := os.ReadFile(path)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("results for job %s not found", id)})
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

// midiFile serves the uploaded score back, so the frontend can play it
// alongside the fingering display.
func (s *Server) midiFile(c *gin.Context) {
	id := c.Param("job_id")
	if _, ok := s.jobs.get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("job %s not found", id)})
		return
	}
	path := filepath.Join(s.cfg.UploadDir, id+".mid")
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("midi for job %s not found", id)})
		return
	}
	c.Header("Content-Type", "audio/midi")
	c.File(path)
}

func (s *Server) listPresets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"treble": layout.TreblePresetNames(),
		"bass":   layout.BassPresetNames(),
		"all":    layout.PresetNames(),
	})
}

func (s *Server) presetLayout(c *gin.Context) {
	lay, err := layout.FromPreset(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, layoutDocument(lay))
}

func (s *Server) generateLayout(c *gin.Context) {
	var req LayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid layout configuration"})
		return
	}
	lay, err := layout.Generate(
		layout.SystemType(req.System),
		req.Rows, req.Columns, req.StartMIDI, req.StartFifthIndex,
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, layoutDocument(lay))
}

// layoutDocument augments the layout with its pitch index for the frontend.
func layoutDocument(lay *layout.Layout) gin.H {
	return gin.H{
		"layout":     lay,
		"note_index": lay.NoteIndex(),
	}
}
