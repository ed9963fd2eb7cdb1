package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/pagekeeper/internal/graph"
	"github.com/MikeSquared-Agency/pagekeeper/internal/inbox"
	"github.com/MikeSquared-Agency/pagekeeper/internal/period"
	"github.com/MikeSquared-Agency/pagekeeper/internal/tools"
)

const maxBodyBytes = 1 << 20

// MessagesResponse is the body of GET /api/v1/inbox/messages.
type MessagesResponse struct {
	Period   string                    `json:"period"`
	Cutoff   time.Time                 `json:"cutoff"`
	Count    int                       `json:"count"`
	Messages []inbox.NormalizedMessage `json:"messages"`
}

// listTools handles GET /api/v1/tools
func (s *Server) listTools(w http.ResponseWriter, r *http.Request) {
	catalogue := s.registry.List()
	writeJSON(w, http.StatusOK, map[string]any{"tools": catalogue, "count": len(catalogue)})
}

// invokeTool handles POST /api/v1/tools/{name}
func (s *Server) invokeTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
		return
	}

	res, err := s.registry.Invoke(r.Context(), name, body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// inboxMessages handles GET /api/v1/inbox/messages?period=...
func (s *Server) inboxMessages(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("period")
	if p == "" {
		p = tools.DefaultPeriod
	}

	cutoff, err := inbox.Cutoff(p, s.registry.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	msgs, err := s.inbox.MessagesSince(r.Context(), cutoff)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessagesResponse{
		Period:   p,
		Cutoff:   cutoff,
		Count:    len(msgs),
		Messages: msgs,
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		slog.Error("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	var apiErr *graph.APIError
	switch {
	case errors.Is(err, tools.ErrUnknownTool):
		return http.StatusNotFound
	case errors.Is(err, period.ErrInvalidPeriod),
		errors.Is(err, tools.ErrInvalidInput),
		errors.Is(err, graph.ErrMissingArgument):
		return http.StatusBadRequest
	case errors.Is(err, inbox.ErrMalformedTimestamp), errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
