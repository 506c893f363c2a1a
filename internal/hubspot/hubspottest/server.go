// Package hubspottest provides an in-memory fake of the forms and
// submissions endpoints for tests.
package hubspottest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"formexport/internal/model"
)

// Server is a fake API bound to one bearer token. It serves forms with an
// opaque cursor and submissions with a numeric offset, honouring `limit`.
type Server struct {
	*httptest.Server

	token string

	mu          sync.Mutex
	forms       []model.Form
	submissions map[string][]model.Submission
	failures    map[string]int
	requests    []string
	inFlight    int
	maxInFlight int

	// ZeroOffsetAtEnd makes the last submissions page carry offset 0
	// instead of omitting paging.
	ZeroOffsetAtEnd bool
}

// New starts a fake server that accepts only token.
func New(token string) *Server {
	s := &Server{
		token:       token,
		submissions: map[string][]model.Submission{},
		failures:    map[string]int{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// AddForm registers a form and its submissions, which should already be
// ordered newest first unless a test is checking unordered behaviour.
func (s *Server) AddForm(f model.Form, subs ...model.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forms = append(s.forms, f)
	s.submissions[f.ID] = append(s.submissions[f.ID], subs...)
}

// FailOn makes every request whose path starts with prefix reply status.
func (s *Server) FailOn(prefix string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[prefix] = status
}

// Requests returns the request URIs seen so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// MaxInFlight returns the highest number of concurrently served requests.
func (s *Server) MaxInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxInFlight
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.URL.RequestURI())
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if r.Header.Get("Authorization") != "Bearer "+s.token {
		http.Error(w, `{"status":"error","message":"invalid token"}`, http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	for prefix, status := range s.failures {
		if strings.HasPrefix(r.URL.Path, prefix) {
			s.mu.Unlock()
			http.Error(w, `{"status":"error"}`, status)
			return
		}
	}
	s.mu.Unlock()

	switch {
	case r.URL.Path == "/marketing/v3/forms":
		s.serveForms(w, r)
	case strings.HasPrefix(r.URL.Path, "/form-integrations/v1/submissions/forms/"):
		s.serveSubmissions(w, r, strings.TrimPrefix(r.URL.Path, "/form-integrations/v1/submissions/forms/"))
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) serveForms(w http.ResponseWriter, r *http.Request) {
	start := 0
	if after := r.URL.Query().Get("after"); after != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(after, "cur-"))
		if err != nil {
			http.Error(w, "bad cursor", http.StatusBadRequest)
			return
		}
		start = n
	}

	s.mu.Lock()
	page, next := window(s.forms, start, limit(r))
	s.mu.Unlock()

	body := map[string]any{"results": page}
	if next > 0 {
		body["paging"] = map[string]any{"next": map[string]any{"after": fmt.Sprintf("cur-%d", next)}}
	}
	writeJSON(w, body)
}

func (s *Server) serveSubmissions(w http.ResponseWriter, r *http.Request, formID string) {
	start := 0
	if after := r.URL.Query().Get("after"); after != "" {
		n, err := strconv.Atoi(after)
		if err != nil {
			http.Error(w, "bad offset", http.StatusBadRequest)
			return
		}
		start = n
	}

	s.mu.Lock()
	subs, ok := s.submissions[formID]
	page, next := window(subs, start, limit(r))
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}

	body := map[string]any{"results": page}
	switch {
	case next > 0:
		body["paging"] = map[string]any{"next": map[string]any{"after": strconv.Itoa(next)}}
	case s.ZeroOffsetAtEnd:
		body["paging"] = map[string]any{"next": map[string]any{"after": 0}}
	}
	writeJSON(w, body)
}

// window returns items[start:start+n] and the next start index, 0 when
// the slice is exhausted.
func window[T any](items []T, start, n int) ([]T, int) {
	if start >= len(items) {
		return []T{}, 0
	}
	end := min(start+n, len(items))
	if end == len(items) {
		return items[start:end], 0
	}
	return items[start:end], end
}

func limit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return 20
	}
	return n
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
