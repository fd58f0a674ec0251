// Package web serves the journal as a local single-page application.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pbaille/dreams/internal/domain"
	"github.com/pbaille/dreams/internal/journal"
	"github.com/pbaille/dreams/internal/store"
	"github.com/pbaille/dreams/internal/theme"
	"github.com/pbaille/dreams/internal/view"
	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies for new entries
const maxBodyBytes = 1 << 20

// Entries is the read side of the store used by the server
type Entries interface {
	Ready() bool
	GetEntry(ctx context.Context, id int64) (domain.Entry, error)
	SearchEntries(ctx context.Context, query string) ([]domain.Entry, error)
}

// Server handles HTTP requests for the journal
type Server struct {
	journal *journal.Service
	entries Entries
	theme   *theme.Manager
	logger  *zap.Logger
}

// New creates a new server
func New(j *journal.Service, entries Entries, tm *theme.Manager, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{journal: j, entries: entries, theme: tm, logger: logger}
}

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Page
	mux.HandleFunc("GET /{$}", s.page)

	// Entries
	mux.HandleFunc("GET /entries", s.listEntries)
	mux.HandleFunc("POST /entries", s.addEntry)
	mux.HandleFunc("GET /entries/{id}", s.getEntry)

	// Search
	mux.HandleFunc("GET /search", s.searchEntries)

	// Theme
	mux.HandleFunc("GET /theme", s.getTheme)
	mux.HandleFunc("POST /theme/toggle", s.toggleTheme)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	return s.withRequestLog(mux)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestLog tags each request with an id and logs its outcome
func (s *Server) withRequestLog(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)

		s.logger.Debug("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if !s.entries.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) page(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, "")
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, message string) {
	entries, err := s.journal.Entries(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	page := view.Page{Theme: s.theme.Current(), Cards: view.Cards(entries), Error: message}
	if err := view.RenderPage(w, page); err != nil {
		s.logger.Error("render page", zap.Error(err))
	}
}

// AddEntryRequest is the request body for adding an entry
type AddEntryRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	Tags  string `json:"tags"`
}

// AddEntryResponse is the response for adding an entry
type AddEntryResponse struct {
	Entry   domain.Entry   `json:"entry"`
	Entries []domain.Entry `json:"entries"`
}

func (s *Server) addEntry(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if isJSON(r) {
		var req AddEntryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			if tooLarge(err) {
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		entry, all, err := s.journal.Record(r.Context(), req.Title, req.Text, req.Tags)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, AddEntryResponse{Entry: entry, Entries: all})
		return
	}

	if err := r.ParseForm(); err != nil {
		if tooLarge(err) {
			s.renderPage(w, r, http.StatusRequestEntityTooLarge, "dream is too long")
			return
		}
		s.renderPage(w, r, http.StatusBadRequest, "invalid form")
		return
	}

	_, _, err := s.journal.Record(r.Context(), r.PostFormValue("title"), r.PostFormValue("text"), r.PostFormValue("tags"))
	if errors.Is(err, journal.ErrTextRequired) {
		s.renderPage(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.journal.Entries(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
	})
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entry id")
		return
	}

	entry, err := s.entries.GetEntry(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) searchEntries(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	entries, err := s.entries.SearchEntries(r.Context(), query)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"query":   query,
	})
}

func (s *Server) getTheme(w http.ResponseWriter, r *http.Request) {
	explicit, err := s.theme.Explicit(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"theme":    s.theme.Current(),
		"explicit": explicit,
	})
}

func (s *Server) toggleTheme(w http.ResponseWriter, r *http.Request) {
	t, err := s.theme.Toggle(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"theme": t})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// fail maps domain errors to status codes
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, journal.ErrTextRequired):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", w.Header().Get("X-Request-ID")),
			zap.Error(err),
		)
	}
	writeError(w, status, err.Error())
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func wantsJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Accept"))
	return isJSON(r) || (err == nil && mt == "application/json")
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
