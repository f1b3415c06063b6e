// Package relay moves a single text value between machines over HTTP.
package relay

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// ErrValidation is returned for a submission without a usable query.
var ErrValidation = errors.New("query is required")

const maxBody = 1 << 20

// Query is the stored value and the push payload.
type Query struct {
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
}

// Server keeps the last accepted query. Concurrent submissions are
// last-write-wins.
type Server struct {
	mu   sync.Mutex
	cur  *Query
	subs map[chan Query]struct{}

	upgrader websocket.Upgrader
	now      func() time.Time
}

// NewServer returns a server holding no query yet.
func NewServer() *Server {
	return &Server{
		subs: make(map[chan Query]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		now: time.Now,
	}
}

// Handler returns the HTTP surface of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /send_query", s.handleSend)
	mux.HandleFunc("GET /get_query", s.handleGet)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

// Set validates and stores text, then notifies subscribers.
func (s *Server) Set(text string) (Query, error) {
	if strings.TrimSpace(text) == "" {
		return Query{}, ErrValidation
	}
	q := Query{Query: text, Timestamp: s.now().UTC()}

	s.mu.Lock()
	s.cur = &q
	for ch := range s.subs {
		select {
		case ch <- q:
		default:
			slog.Warn("relay subscriber is behind, dropping update")
		}
	}
	s.mu.Unlock()
	return q, nil
}

// Current returns the stored query, if any.
func (s *Server) Current() (Query, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return Query{}, false
	}
	return *s.cur, true
}

func (s *Server) subscribe() chan Query {
	ch := make(chan Query, 8)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *Server) unsubscribe(ch chan Query) {
	s.mu.Lock()
	delete(s.subs, ch)
	s.mu.Unlock()
}

// ParseQuery extracts the query string from a submission body.
func ParseQuery(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", errors.New("invalid JSON")
	}
	v := gjson.GetBytes(body, "query")
	if v.Type != gjson.String || strings.TrimSpace(v.Str) == "" {
		return "", ErrValidation
	}
	return v.Str, nil
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": "error", "message": "could not read body"})
		return
	}
	text, err := ParseQuery(body)
	if err == nil {
		_, err = s.Set(text)
	}
	if err != nil {
		slog.Warn("rejected query", "remote", r.RemoteAddr, "err", err)
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": "error", "message": err.Error()})
		return
	}
	slog.Info("query received", "remote", r.RemoteAddr, "len", len(text))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "query received",
		"query":   text,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	q, ok := s.Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	q, ok := s.Current()
	resp := map[string]any{"status": "running", "has_query": ok, "timestamp": nil}
	if ok {
		resp["timestamp"] = q.Timestamp
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ch := s.subscribe()
	defer s.unsubscribe(ch)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	slog.Debug("watcher connected", "remote", r.RemoteAddr)
	for {
		select {
		case q := <-ch:
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(q); err != nil {
				slog.Debug("watcher write failed", "remote", r.RemoteAddr, "err", err)
				return
			}
		case <-closed:
			slog.Debug("watcher disconnected", "remote", r.RemoteAddr)
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response failed", "err", err)
	}
}
