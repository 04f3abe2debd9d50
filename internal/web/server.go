// Package web serves the controller's status page, plus read-only views of
// the activity journal and of the access log kept in the credential store.
//
//	GET /             status page
//	GET /index.json   status document
//	GET /journal.json recent journal entries, newest first (?limit=N)
//	GET /log.json     credential-store access log, oldest first
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sweeney/door-controller/internal/journal"
	"github.com/sweeney/door-controller/internal/logic"
	"github.com/sweeney/door-controller/internal/status"
)

// Journal is the read side of the activity journal.
type Journal interface {
	Recent(ctx context.Context, n int) ([]journal.Entry, error)
}

// AccessLog reads the credential store's access log, oldest first.
type AccessLog func() ([]logic.LogRecord, error)

// Sources are the optional readers behind the journal and access-log
// views. A nil source leaves its route unregistered.
type Sources struct {
	Journal   Journal
	AccessLog AccessLog
}

const (
	defaultLimit = 50
	maxLimit     = 500
	pageEntries  = 10 // journal rows on the status page
	readTimeout  = 5 * time.Second
)

var errBadLimit = errors.New("limit must be a positive integer")

// Server is the HTTP status server.
type Server struct {
	srv     *http.Server
	tracker *status.Tracker
	src     Sources
}

// New returns a server on addr reading state from tracker and src.
func New(addr string, tracker *status.Tracker, src Sources) *Server {
	s := &Server{tracker: tracker, src: src}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /index.html", s.handleIndex)
	mux.HandleFunc("GET /index.json", s.handleStatus)
	if src.Journal != nil {
		mux.HandleFunc("GET /journal.json", s.handleJournal)
	}
	if src.AccessLog != nil {
		mux.HandleFunc("GET /log.json", s.handleAccessLog)
	}

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readTimeout,
	}
	return s
}

// Handler returns the routing handler.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// ListenAndServe blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Serve accepts connections on ln.
func (s *Server) Serve(ln net.Listener) error {
	return s.srv.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := pageData{
		Snapshot: s.tracker.Snapshot(),
		HasLog:   s.src.AccessLog != nil,
	}
	page.Uptime = page.Snapshot.Uptime()
	if s.src.Journal != nil {
		page.HasJournal = true
		ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
		entries, err := s.src.Journal.Recent(ctx, pageEntries)
		cancel()
		if err != nil {
			log.Printf("web: journal: %v", err)
			page.JournalErr = err.Error()
		}
		page.Journal = entries
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, page); err != nil {
		log.Printf("web: render: %v", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(s.tracker.Snapshot()))
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	n, err := limit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()
	entries, err := s.src.Journal.Recent(ctx, n)
	if err != nil {
		log.Printf("web: journal: %v", err)
		http.Error(w, "journal unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, FormatJournal(entries))
}

func (s *Server) handleAccessLog(w http.ResponseWriter, r *http.Request) {
	records, err := s.src.AccessLog()
	if err != nil {
		log.Printf("web: access log: %v", err)
		http.Error(w, "access log unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, FormatAccessLog(records))
}

// limit reads ?limit=N, capped at maxLimit.
func limit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, errBadLimit
	}
	return min(n, maxLimit), nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: encode: %v", err)
	}
}
