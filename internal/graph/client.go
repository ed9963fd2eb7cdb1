package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://graph.facebook.com/v19.0"

// inboxFields expands every conversation's messages in a single request.
const inboxFields = "messages{id,message,from,created_time}"

// ErrMissingArgument is returned before any request is made when a required id or text is empty.
var ErrMissingArgument = errors.New("missing argument")

// APIError is a non-2xx Graph API response.
type APIError struct {
	StatusCode int
	Type       string
	Code       int
	Message    string
	TraceID    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("graph api error %d: %s (code %d): %s", e.StatusCode, e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("graph api error %d: %s", e.StatusCode, e.Message)
}

type errorResponse struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

// Client talks to the Graph API on behalf of a single Page using a
// pre-provisioned page access token.
type Client struct {
	baseURL string
	token   string
	pageID  string
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL, token, pageID string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		pageID:  pageID,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// PageID returns the Page this client acts for.
func (c *Client) PageID() string {
	return c.pageID
}

// FetchInboxPage returns the Page's conversations with their messages inlined.
// Paging cursors in the response are ignored.
func (c *Client) FetchInboxPage(ctx context.Context) (*ConversationPage, error) {
	var page ConversationPage
	q := url.Values{"fields": {inboxFields}}
	if err := c.do(ctx, http.MethodGet, c.pageID+"/conversations", q, nil, &page); err != nil {
		return nil, fmt.Errorf("fetch inbox: %w", err)
	}
	c.logger.Debug("fetched inbox page", "conversations", len(page.Data))
	return &page, nil
}

// PostMessage publishes a text post on the Page feed.
func (c *Client) PostMessage(ctx context.Context, message string) (*ObjectRef, error) {
	if message == "" {
		return nil, fmt.Errorf("post message: %w: message", ErrMissingArgument)
	}
	var ref ObjectRef
	if err := c.do(ctx, http.MethodPost, c.pageID+"/feed", nil, map[string]string{"message": message}, &ref); err != nil {
		return nil, fmt.Errorf("post message: %w", err)
	}
	c.logger.Info("posted to page", "post_id", ref.ID)
	return &ref, nil
}

// Posts returns the latest Page posts.
func (c *Client) Posts(ctx context.Context) (*PostPage, error) {
	var page PostPage
	if err := c.do(ctx, http.MethodGet, c.pageID+"/posts", nil, nil, &page); err != nil {
		return nil, fmt.Errorf("get posts: %w", err)
	}
	return &page, nil
}

// Comments returns the comments on a post.
func (c *Client) Comments(ctx context.Context, postID string) (*CommentPage, error) {
	if postID == "" {
		return nil, fmt.Errorf("get comments: %w: post id", ErrMissingArgument)
	}
	var page CommentPage
	if err := c.do(ctx, http.MethodGet, url.PathEscape(postID)+"/comments", nil, nil, &page); err != nil {
		return nil, fmt.Errorf("get comments: %w", err)
	}
	return &page, nil
}

// ReplyToComment posts a reply under an existing comment.
func (c *Client) ReplyToComment(ctx context.Context, commentID, message string) (*ObjectRef, error) {
	if commentID == "" || message == "" {
		return nil, fmt.Errorf("reply to comment: %w: comment id and message", ErrMissingArgument)
	}
	var ref ObjectRef
	path := url.PathEscape(commentID) + "/comments"
	if err := c.do(ctx, http.MethodPost, path, nil, map[string]string{"message": message}, &ref); err != nil {
		return nil, fmt.Errorf("reply to comment: %w", err)
	}
	c.logger.Info("replied to comment", "comment_id", commentID, "reply_id", ref.ID)
	return &ref, nil
}

func (c *Client) DeletePost(ctx context.Context, postID string) (*DeleteResult, error) {
	return c.deleteObject(ctx, "post", postID)
}

func (c *Client) DeleteComment(ctx context.Context, commentID string) (*DeleteResult, error) {
	return c.deleteObject(ctx, "comment", commentID)
}

func (c *Client) deleteObject(ctx context.Context, kind, id string) (*DeleteResult, error) {
	if id == "" {
		return nil, fmt.Errorf("delete %s: %w: id", kind, ErrMissingArgument)
	}
	var res DeleteResult
	if err := c.do(ctx, http.MethodDelete, url.PathEscape(id), nil, nil, &res); err != nil {
		return nil, fmt.Errorf("delete %s: %w", kind, err)
	}
	c.logger.Info("deleted object", "kind", kind, "id", id, "success", res.Success)
	return &res, nil
}

// SendMessage sends a Messenger text to a user by their page-scoped id (PSID).
func (c *Client) SendMessage(ctx context.Context, psid, text string) (*SendResult, error) {
	if psid == "" || text == "" {
		return nil, fmt.Errorf("send message: %w: psid and text", ErrMissingArgument)
	}
	body := map[string]any{
		"recipient": map[string]string{"id": psid},
		"message":   map[string]string{"text": text},
	}
	var res SendResult
	if err := c.do(ctx, http.MethodPost, "me/messages", nil, body, &res); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	c.logger.Info("sent message", "recipient_id", res.RecipientID, "message_id", res.MessageID)
	return &res, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, dest any) error {
	fullURL := c.baseURL + "/" + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, dest); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, body []byte) *APIError {
	var errResp errorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		return &APIError{
			StatusCode: status,
			Type:       errResp.Error.Type,
			Code:       errResp.Error.Code,
			Message:    errResp.Error.Message,
			TraceID:    errResp.Error.FBTraceID,
		}
	}
	msg := string(body)
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return &APIError{StatusCode: status, Message: msg}
}
