package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"landbid/communication"
	"landbid/gamemaster"
)

// Server exposes a match over HTTP. It publishes updates to websocket
// clients and collects the choices of the human seats it is the Input of.
//
//	GET  /snapshot  latest update
//	GET  /prompt    pending decision, 204 if none
//	POST /choice    answer the pending decision
//	GET  /ws        stream of update and prompt events
type Server struct {
	hub *Hub

	mu      sync.RWMutex
	last    *gamemaster.Update
	prompt  *communication.Prompt
	replies chan communication.Reply

	done      chan struct{}
	closeOnce sync.Once
}

func New() *Server {
	return &Server{
		hub:     NewHub(),
		replies: make(chan communication.Reply),
		done:    make(chan struct{}),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /prompt", s.handlePrompt)
	mux.HandleFunc("POST /choice", s.handleChoice)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

// Close releases any seat waiting for a choice and disconnects clients.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.hub.Close()
	})
}

func (s *Server) Publish(_ context.Context, u gamemaster.Update) error {
	s.mu.Lock()
	s.last = &u
	s.mu.Unlock()
	s.hub.Broadcast(EventUpdate, u)
	return nil
}

// Choose blocks until a valid choice for p is posted.
func (s *Server) Choose(ctx context.Context, p communication.Prompt) (communication.Reply, error) {
	s.mu.Lock()
	s.prompt = &p
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.prompt = nil
		s.mu.Unlock()
	}()
	s.hub.Broadcast(EventPrompt, p)

	select {
	case r := <-s.replies:
		return r, nil
	case <-ctx.Done():
		return communication.Reply{}, ctx.Err()
	case <-s.done:
		return communication.Reply{}, communication.ErrClosed
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		writeError(w, http.StatusNotFound, "no game in progress")
		return
	}
	writeJSON(w, http.StatusOK, s.last)
}

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.prompt == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, s.prompt)
}

func (s *Server) handleChoice(w http.ResponseWriter, r *http.Request) {
	var reply communication.Reply
	if err := json.NewDecoder(r.Body).Decode(&reply); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.RLock()
	prompt := s.prompt
	s.mu.RUnlock()
	if prompt == nil {
		writeError(w, http.StatusConflict, "no decision pending")
		return
	}
	if err := reply.Validate(*prompt); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	select {
	case s.replies <- reply:
		w.WriteHeader(http.StatusAccepted)
	case <-r.Context().Done():
	case <-s.done:
		writeError(w, http.StatusServiceUnavailable, "server closed")
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	var greeting []byte
	s.mu.RLock()
	if s.last != nil {
		greeting, _ = encodeEvent(EventUpdate, s.last)
	}
	s.mu.RUnlock()
	s.hub.serve(w, r, greeting)
}
