// Package web provides an HTTP status server for the dio-controller daemon.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/sweeney/dio-controller/internal/status"
)

const httpTimeout = 5 * time.Second

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker) *Server {
	s := &Server{tracker: tracker}

	router := httprouter.New()
	router.GET("/", s.handleIndex)
	router.GET("/index.html", s.handleIndex)
	router.GET("/index.json", s.handleJSON)
	router.GET("/inputs/:pin", s.handleInput)
	router.GET("/outputs/:pin", s.handleOutput)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       httpTimeout,
		ReadHeaderTimeout: httpTimeout,
		WriteTimeout:      httpTimeout,
		IdleTimeout:       2 * httpTimeout,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	pin, err := strconv.Atoi(p.ByName("pin"))
	if err != nil {
		http.Error(w, "invalid pin", http.StatusBadRequest)
		return
	}
	in, ok := s.tracker.Snapshot().Input(pin)
	if !ok {
		http.Error(w, "input not found", http.StatusNotFound)
		return
	}
	writeJSON(w, status.BuildInput(in))
}

func (s *Server) handleOutput(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	pin, err := strconv.Atoi(p.ByName("pin"))
	if err != nil {
		http.Error(w, "invalid pin", http.StatusBadRequest)
		return
	}
	out, ok := s.tracker.Snapshot().Output(pin)
	if !ok {
		http.Error(w, "output not found", http.StatusNotFound)
		return
	}
	writeJSON(w, status.BuildOutput(out))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
