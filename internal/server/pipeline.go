package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/akkordio/akkordio/internal/engine"
	"github.com/akkordio/akkordio/internal/layout"
	"github.com/akkordio/akkordio/internal/score"
)

// resultDocument is the persisted output of one processing run.
type resultDocument struct {
	JobID    string                    `json:"job_id"`
	Events   []score.Event             `json:"events"`
	Solution *engine.Solution          `json:"solution,omitempty"`
	Layout   *layout.Layout            `json:"layout"`
	Index    map[int][]layout.Position `json:"note_index"`
	Metadata score.Metadata            `json:"metadata"`
}

// runPipeline processes one uploaded score end to end: MIDI ingest, event
// slicing, fingering search, result persistence. It runs on its own
// goroutine; all job-state updates go through the store.
func (s *Server) runPipeline(id string, req *ProcessRequest, lay *layout.Layout) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("job %s: pipeline panic: %v", id, r)
			s.jobs.fail(id, fmt.Errorf("internal error"))
		}
	}()

	f, err := os.Open(filepath.Join(s.cfg.UploadDir, id+".mid"))
	if err != nil {
		s.jobs.fail(id, fmt.Errorf("open upload: %w", err))
		return
	}
	events, meta, err := score.FromSMF(f)
	f.Close()
	if err != nil {
		s.jobs.fail(id, err)
		return
	}
	if len(events) == 0 {
		s.jobs.fail(id, fmt.Errorf("no note events in file"))
		return
	}

	s.jobs.progress(id, 40, "Computing fingering...")

	eng := engine.New(lay, s.cfg.Weights)
	opts := engine.Options{
		StartBellows:  score.ParseBellows(req.StartBellows),
		BeamWidth:     s.cfg.Search.BeamWidth,
		MaxExpansions: s.cfg.Search.MaxExpansions,
	}
	if req.BeamWidth > 0 {
		opts.BeamWidth = req.BeamWidth
	}
	if req.MaxExpansions > 0 {
		opts.MaxExpansions = req.MaxExpansions
	}

	ctx := context.Background()
	if s.cfg.Search.SolveTimeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.Search.SolveTimeoutSec)*time.Second)
		defer cancel()
	}

	sol, err := eng.Solve(ctx, events, opts)
	if err != nil {
		var nfp *engine.NoFeasiblePathError
		if errors.As(err, &nfp) && nfp.Partial != nil {
			// Persist the furthest partial path so the frontend can show
			// where the hand got stuck, then fail the job.
			s.writeResult(id, &resultDocument{
				JobID: id, Events: events, Solution: nfp.Partial,
				Layout: lay, Index: lay.NoteIndex(), Metadata: meta,
			})
		}
		s.jobs.fail(id, err)
		return
	}

	s.jobs.progress(id, 80, "Finalizing results...")

	doc := &resultDocument{
		JobID:    id,
		Events:   events,
		Solution: sol,
		Layout:   lay,
		Index:    lay.NoteIndex(),
		Metadata: meta,
	}
	if err := s.writeResult(id, doc); err != nil {
		s.jobs.fail(id, err)
		return
	}

	s.jobs.complete(id)
	log.Printf("job %s: completed, %d events, cost %.2f", id, len(events), sol.TotalCost)
}

func (s *Server) writeResult(id string, doc *resultDocument) error {
	dir := filepath.Join(s.cfg.ProcessedDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create result dir: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "result.json"), data, 0644)
}
