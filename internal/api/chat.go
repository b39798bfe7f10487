package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/nhle/buildfast/internal/ai"
	"github.com/nhle/buildfast/internal/apperr"
)

// chatRequest accepts either the web client's {messages:[...]} body, whose
// last entry is the new message, or a bare {message}.
type chatRequest struct {
	IdeaID   *int64 `json:"ideaId,omitempty"`
	Message  string `json:"message,omitempty"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages,omitempty"`
}

func (c chatRequest) text() string {
	if n := len(c.Messages); n > 0 {
		return strings.TrimSpace(c.Messages[n-1].Content)
	}
	return strings.TrimSpace(c.Message)
}

func readChatRequest(w http.ResponseWriter, r *http.Request) (chatRequest, string, error) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return req, "", err
	}
	text := req.text()
	if text == "" {
		return req, "", apperr.Invalid("messages", "too_small", "Message is required")
	}
	return req, text, nil
}

// streamWriter sends deltas as a chunked text/plain body. Headers go out
// with the first delta, so errors raised before it still get a JSON body.
type streamWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
}

func newStreamWriter(w http.ResponseWriter) *streamWriter {
	return &streamWriter{w: w, rc: http.NewResponseController(w)}
}

func (sw *streamWriter) start() {
	if sw.started {
		return
	}
	sw.started = true
	h := sw.w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Content-Type-Options", "nosniff")
	sw.w.WriteHeader(http.StatusOK)
}

func (sw *streamWriter) emit(delta string) error {
	sw.start()
	if _, err := io.WriteString(sw.w, delta); err != nil {
		return err
	}
	_ = sw.rc.Flush()
	return nil
}

// stream runs one chat turn against sw and settles the response.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, notFound string, turn func(ai.Emit) (*ai.TurnResult, error)) {
	sw := newStreamWriter(w)
	_, err := turn(sw.emit)
	if err == nil {
		sw.start()
		return
	}
	if !sw.started {
		s.writeDomainError(w, r, err, notFound)
		return
	}
	s.log.Warn("chat stream interrupted",
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)
}

func (s *Server) handleSectionHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Section")
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	messages, err := s.engine.SectionHistory(r.Context(), currentUser(r), id)
	if err != nil {
		s.writeDomainError(w, r, err, "Section not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (s *Server) handleSectionChat(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Section")
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	_, text, err := readChatRequest(w, r)
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	userID := currentUser(r)
	s.stream(w, r, "Section not found", func(emit ai.Emit) (*ai.TurnResult, error) {
		return s.engine.SectionChat(r.Context(), userID, id, text, emit)
	})
}

func (s *Server) handlePlanningHistory(w http.ResponseWriter, r *http.Request) {
	ideaID, err := queryID(r, "ideaId", "Idea")
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	messages, err := s.engine.PlanningHistory(r.Context(), currentUser(r), ideaID)
	if err != nil {
		s.writeDomainError(w, r, err, "Idea not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (s *Server) handlePlanningChat(w http.ResponseWriter, r *http.Request) {
	req, text, err := readChatRequest(w, r)
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	var v validator
	ideaID := v.requiredID("ideaId", req.IdeaID)
	if err := v.err(); err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	userID := currentUser(r)
	s.stream(w, r, "Idea not found", func(emit ai.Emit) (*ai.TurnResult, error) {
		return s.engine.PlanningChat(r.Context(), userID, ideaID, text, emit)
	})
}

func (s *Server) handleTestChat(w http.ResponseWriter, r *http.Request) {
	_, text, err := readChatRequest(w, r)
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	s.stream(w, r, "", func(emit ai.Emit) (*ai.TurnResult, error) {
		return s.engine.Passthrough(r.Context(), text, emit)
	})
}
