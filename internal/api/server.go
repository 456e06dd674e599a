// Package api exposes the persisted sessions over a small HTTP/JSON surface:
// listings (optionally grouped into activity blocks), daily and monthly
// aggregate stats, and the administrative delete/recompute/reprocess actions.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/edvall/sonata/internal/config"
	"github.com/edvall/sonata/internal/ingest"
	"github.com/edvall/sonata/internal/logging"
	"github.com/edvall/sonata/internal/store"
)

// blockGapSeconds separates activity blocks: consecutive sessions closer
// than this are grouped into one block.
const blockGapSeconds = 30 * 60

// Server serves the session API.
type Server struct {
	cfg      *config.Config
	store    *store.Store
	pipeline *ingest.Pipeline
	logger   *logging.FileLogger
}

// New creates a Server over the shared store and pipeline.
func New(cfg *config.Config, st *store.Store, p *ingest.Pipeline, logger *logging.FileLogger) *Server {
	return &Server{
		cfg:      cfg,
		store:    st,
		pipeline: p,
		logger:   logger.WithComponent("api"),
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/sessions", s.handleSessions)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/month_stats", s.handleMonthStats)
	mux.HandleFunc("DELETE /api/sessions/{fingerprint}", s.handleDelete)
	mux.HandleFunc("POST /api/sessions/{fingerprint}/recompute", s.handleRecompute)
	mux.HandleFunc("POST /api/sessions/{fingerprint}/reprocess", s.handleReprocess)
	return mux
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", logging.String("addr", s.cfg.ListenAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Block groups consecutive sessions separated by short breaks into one
// continuous practice period.
type Block struct {
	Start          time.Time       `json:"start"`
	End            time.Time       `json:"end"`
	ActiveDuration float64         `json:"active_duration"`
	Keystrokes     int             `json:"keystrokes"`
	Sessions       []store.Session `json:"sessions"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	from, to, err := dayRange(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sessions, err := s.store.ListRange(from, to, s.cfg.MinKeystrokes)
	if err != nil {
		s.serverError(w, "list sessions", err)
		return
	}

	if r.URL.Query().Get("blocks") == "1" {
		writeJSON(w, http.StatusOK, groupBlocks(sessions))
		return
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	from, to, err := dayRange(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sessions, err := s.store.ListRange(from, to, s.cfg.MinKeystrokes)
	if err != nil {
		s.serverError(w, "daily stats", err)
		return
	}

	var active, total float64
	var keystrokes int
	for _, sess := range sessions {
		active += sess.ActiveDuration
		total += sess.TotalDuration
		keystrokes += sess.Keystrokes
	}
	efficiency := 0.0
	if total > 0 {
		efficiency = active / total
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":             from.Format("2006-01-02"),
		"today_duration":   active,
		"today_keystrokes": keystrokes,
		"today_efficiency": efficiency,
	})
}

func (s *Server) handleMonthStats(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	year, err := intParam(r, "year", now.Year())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	month, err := intParam(r, "month", int(now.Month()))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("month out of range: %d", month))
		return
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
	to := from.AddDate(0, 1, 0)

	sessions, err := s.store.ListRange(from, to, s.cfg.MinKeystrokes)
	if err != nil {
		s.serverError(w, "monthly stats", err)
		return
	}

	var total, active float64
	var keystrokes int
	dailyMap := make(map[string]float64)
	for _, sess := range sessions {
		total += sess.TotalDuration
		active += sess.ActiveDuration
		keystrokes += sess.Keystrokes
		day := sess.StartTime.Format("2006-01-02")
		dailyMap[day] += sess.ActiveDuration
	}
	efficiency := 0.0
	if total > 0 {
		efficiency = active / total
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"report": map[string]any{
			"total_audio_duration":  total,
			"total_active_duration": active,
			"total_keystrokes":      keystrokes,
			"efficiency":            efficiency,
		},
		"daily_map": dailyMap,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	fingerprint := r.PathValue("fingerprint")
	if err := s.pipeline.DeleteSession(fingerprint); err != nil {
		s.adminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": fingerprint})
}

func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	fingerprint := r.PathValue("fingerprint")
	sess, err := s.pipeline.Recompute(fingerprint)
	if err != nil {
		s.adminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleReprocess(w http.ResponseWriter, r *http.Request) {
	fingerprint := r.PathValue("fingerprint")
	if err := s.pipeline.Reprocess(fingerprint); err != nil {
		s.adminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reprocessing": fingerprint})
}

// adminError maps administrative failures to 4xx responses; nothing was
// mutated on these paths.
func (s *Server) adminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, ingest.ErrNoArtifact), errors.Is(err, ingest.ErrNoArchivedSource):
		writeError(w, http.StatusConflict, err)
	default:
		s.serverError(w, "admin action", err)
	}
}

func (s *Server) serverError(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op, err)
	writeError(w, http.StatusInternalServerError, errors.New("internal error"))
}

// groupBlocks folds sessions (already sorted ascending) into activity blocks.
// A session whose start follows the previous block's end by less than 30
// minutes extends that block.
func groupBlocks(sessions []store.Session) []Block {
	blocks := []Block{}
	for _, sess := range sessions {
		end := sess.StartTime.Add(time.Duration(sess.TotalDuration * float64(time.Second)))
		if n := len(blocks); n > 0 && sess.StartTime.Sub(blocks[n-1].End) < blockGapSeconds*time.Second {
			b := &blocks[n-1]
			if end.After(b.End) {
				b.End = end
			}
			b.ActiveDuration += sess.ActiveDuration
			b.Keystrokes += sess.Keystrokes
			b.Sessions = append(b.Sessions, sess)
			continue
		}
		blocks = append(blocks, Block{
			Start:          sess.StartTime,
			End:            end,
			ActiveDuration: sess.ActiveDuration,
			Keystrokes:     sess.Keystrokes,
			Sessions:       []store.Session{sess},
		})
	}
	return blocks
}

// dayRange resolves an optional YYYY-MM-DD query value to local-day bounds,
// defaulting to today.
func dayRange(value string) (time.Time, time.Time, error) {
	day := time.Now()
	if value != "" {
		parsed, err := time.ParseInLocation("2006-01-02", value, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q", value)
		}
		day = parsed
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.Local)
	return from, from.AddDate(0, 0, 1), nil
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, value)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
