package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/pagekeeper/internal/graph"
	"github.com/MikeSquared-Agency/pagekeeper/internal/inbox"
	"github.com/MikeSquared-Agency/pagekeeper/internal/tools"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubFetcher struct {
	page *graph.ConversationPage
	err  error
}

func (f stubFetcher) FetchInboxPage(ctx context.Context) (*graph.ConversationPage, error) {
	return f.page, f.err
}

type stubAPI struct{}

func (stubAPI) PostMessage(ctx context.Context, message string) (*graph.ObjectRef, error) {
	return &graph.ObjectRef{ID: "123_1"}, nil
}
func (stubAPI) Posts(ctx context.Context) (*graph.PostPage, error) { return &graph.PostPage{}, nil }
func (stubAPI) Comments(ctx context.Context, postID string) (*graph.CommentPage, error) {
	return &graph.CommentPage{}, nil
}
func (stubAPI) ReplyToComment(ctx context.Context, commentID, message string) (*graph.ObjectRef, error) {
	return &graph.ObjectRef{ID: "r1"}, nil
}
func (stubAPI) DeletePost(ctx context.Context, postID string) (*graph.DeleteResult, error) {
	return nil, &graph.APIError{StatusCode: 403, Type: "OAuthException", Code: 200, Message: "Permissions error"}
}
func (stubAPI) DeleteComment(ctx context.Context, commentID string) (*graph.DeleteResult, error) {
	return &graph.DeleteResult{Success: true}, nil
}
func (stubAPI) SendMessage(ctx context.Context, psid, text string) (*graph.SendResult, error) {
	return &graph.SendResult{RecipientID: psid, MessageID: "mid.1"}, nil
}

var fixedNow = time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)

func twoConversationPage() *graph.ConversationPage {
	return &graph.ConversationPage{Data: []graph.Conversation{
		{ID: "t_1", Messages: &graph.MessageList{Data: []graph.RawMessage{
			{ID: "m_jan", Message: "old", CreatedTime: "2024-01-01T00:00:00+0000"},
		}}},
		{ID: "t_2", Messages: &graph.MessageList{Data: []graph.RawMessage{
			{ID: "m_june", Message: "new", From: &graph.Sender{ID: "psid-1", Name: "Ana"}, CreatedTime: "2024-06-01T00:00:00+0000"},
		}}},
	}}
}

func newTestServer(t *testing.T, token string, fetcher inbox.Fetcher) *Server {
	t.Helper()
	retriever := inbox.New(fetcher, discardLogger())
	registry := tools.NewPageRegistry(stubAPI{}, retriever, discardLogger(),
		tools.WithClock(func() time.Time { return fixedNow }))
	return NewServer(Options{Port: 8760, PageID: "123", APIToken: token}, registry, retriever)
}

func serve(srv *Server, method, target, body, token string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, "", stubFetcher{})

	w := serve(srv, "GET", "/health", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(t, "secret", stubFetcher{})

	w := serve(srv, "GET", "/api/v1/pagekeeper/status", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["agent"] != "pagekeeper" {
		t.Errorf("expected agent pagekeeper, got %v", body["agent"])
	}
	if body["page_id"] != "123" {
		t.Errorf("expected page_id 123, got %v", body["page_id"])
	}
	if body["tools"] != float64(8) {
		t.Errorf("expected 8 tools, got %v", body["tools"])
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv := newTestServer(t, "", stubFetcher{})

	w := serve(srv, "GET", "/nonexistent", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t, "secret", stubFetcher{})

	if w := serve(srv, "GET", "/api/v1/tools", "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}
	if w := serve(srv, "GET", "/api/v1/tools", "", "wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", w.Code)
	}
	if w := serve(srv, "GET", "/api/v1/tools", "", "secret"); w.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", w.Code)
	}
}

func TestListTools(t *testing.T) {
	srv := newTestServer(t, "", stubFetcher{})

	w := serve(srv, "GET", "/api/v1/tools", "", "")
	var body struct {
		Tools []tools.Tool `json:"tools"`
		Count int          `json:"count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Count != 8 || len(body.Tools) != 8 {
		t.Errorf("expected 8 tools, got %d", body.Count)
	}
}

func TestInvokeTool(t *testing.T) {
	srv := newTestServer(t, "", stubFetcher{page: twoConversationPage()})

	w := serve(srv, "POST", "/api/v1/tools/get_messages_from_period", `{"period":"7 days"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Tool   string                    `json:"tool"`
		Output []inbox.NormalizedMessage `json:"output"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Output) != 1 || body.Output[0].MessageID != "m_june" {
		t.Errorf("expected only m_june, got %+v", body.Output)
	}
	if body.Output[0].SenderName == nil || *body.Output[0].SenderName != "Ana" {
		t.Errorf("expected sender name Ana, got %v", body.Output[0].SenderName)
	}
}

func TestInvokeTool_ErrorStatuses(t *testing.T) {
	malformed := &graph.ConversationPage{Data: []graph.Conversation{
		{Messages: &graph.MessageList{Data: []graph.RawMessage{{ID: "m1", CreatedTime: "not a time"}}}},
	}}
	srv := newTestServer(t, "", stubFetcher{page: malformed})

	tests := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{"unknown tool", "/api/v1/tools/roll_dice", `{}`, http.StatusNotFound},
		{"missing argument", "/api/v1/tools/post_to_facebook", `{}`, http.StatusBadRequest},
		{"bad json", "/api/v1/tools/post_to_facebook", `{`, http.StatusBadRequest},
		{"invalid period", "/api/v1/tools/get_messages_from_period", `{"period":"soon"}`, http.StatusBadRequest},
		{"malformed timestamp", "/api/v1/tools/get_messages_from_period", `{"period":"1 year"}`, http.StatusBadGateway},
		{"graph error", "/api/v1/tools/delete_post", `{"post_id":"p1"}`, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(srv, "POST", tt.target, tt.body, "")
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
			var body map[string]string
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil || body["error"] == "" {
				t.Errorf("expected error body, got %q", w.Body.String())
			}
		})
	}
}

func TestInboxMessages(t *testing.T) {
	srv := newTestServer(t, "", stubFetcher{page: twoConversationPage()})

	w := serve(srv, "GET", "/api/v1/inbox/messages", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body MessagesResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Period != "7 days" {
		t.Errorf("expected default period, got %q", body.Period)
	}
	if !body.Cutoff.Equal(fixedNow.Add(-7 * 24 * time.Hour)) {
		t.Errorf("unexpected cutoff %v", body.Cutoff)
	}
	if body.Count != 1 || body.Messages[0].MessageID != "m_june" {
		t.Errorf("unexpected messages: %+v", body.Messages)
	}

	w = serve(srv, "GET", "/api/v1/inbox/messages?period=1%20year", "", "")
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Count != 2 {
		t.Errorf("expected both messages within a year, got %d", body.Count)
	}

	if w := serve(srv, "GET", "/api/v1/inbox/messages?period=fortnight", "", ""); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid period, got %d", w.Code)
	}
}
