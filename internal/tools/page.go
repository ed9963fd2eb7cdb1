package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/pagekeeper/internal/graph"
	"github.com/MikeSquared-Agency/pagekeeper/internal/inbox"
)

// DefaultPeriod is used when get_messages_from_period is called without one.
const DefaultPeriod = "7 days"

// PageAPI is the subset of *graph.Client the page tools call.
type PageAPI interface {
	PostMessage(ctx context.Context, message string) (*graph.ObjectRef, error)
	Posts(ctx context.Context) (*graph.PostPage, error)
	Comments(ctx context.Context, postID string) (*graph.CommentPage, error)
	ReplyToComment(ctx context.Context, commentID, message string) (*graph.ObjectRef, error)
	DeletePost(ctx context.Context, postID string) (*graph.DeleteResult, error)
	DeleteComment(ctx context.Context, commentID string) (*graph.DeleteResult, error)
	SendMessage(ctx context.Context, psid, text string) (*graph.SendResult, error)
}

// InboxReader is satisfied by *inbox.Retriever.
type InboxReader interface {
	MessagesFromPeriod(ctx context.Context, periodText string, now time.Time) ([]inbox.NormalizedMessage, error)
}

type PostInput struct {
	Message string `json:"message" validate:"required"`
}

type PostIDInput struct {
	PostID string `json:"post_id" validate:"required"`
}

type CommentIDInput struct {
	CommentID string `json:"comment_id" validate:"required"`
}

type ReplyCommentInput struct {
	CommentID string `json:"comment_id" validate:"required"`
	Message   string `json:"message" validate:"required"`
}

type PeriodInput struct {
	Period string `json:"period"`
}

type ReplyMessageInput struct {
	SenderID string `json:"sender_id" validate:"required"`
	Text     string `json:"text" validate:"required"`
}

type noInput struct{}

// NewPageRegistry registers the Page tools against api and the inbox reader.
func NewPageRegistry(api PageAPI, reader InboxReader, logger *slog.Logger, opts ...Option) *Registry {
	r := NewRegistry(logger, opts...)

	Register(r, "post_to_facebook", "Post a text message to the Facebook Page.",
		func(ctx context.Context, in PostInput) (any, error) {
			return api.PostMessage(ctx, in.Message)
		})

	Register(r, "get_page_posts", "Get the latest Facebook Page posts.",
		func(ctx context.Context, _ noInput) (any, error) {
			return api.Posts(ctx)
		})

	Register(r, "get_post_comments", "Get comments for a specific post.",
		func(ctx context.Context, in PostIDInput) (any, error) {
			return api.Comments(ctx, in.PostID)
		})

	Register(r, "reply_to_comment", "Reply to a specific comment.",
		func(ctx context.Context, in ReplyCommentInput) (any, error) {
			return api.ReplyToComment(ctx, in.CommentID, in.Message)
		})

	Register(r, "delete_post", "Delete a Facebook post.",
		func(ctx context.Context, in PostIDInput) (any, error) {
			return api.DeletePost(ctx, in.PostID)
		})

	Register(r, "delete_comment", "Delete a specific comment.",
		func(ctx context.Context, in CommentIDInput) (any, error) {
			return api.DeleteComment(ctx, in.CommentID)
		})

	Register(r, "get_messages_from_period",
		"Get Messenger inbox messages from the Page within a given period, e.g. \"4 days\", \"3 months\", \"2 years\". "+
			"Months count as 30 days and years as 365 days.",
		func(ctx context.Context, in PeriodInput) (any, error) {
			p := in.Period
			if p == "" {
				p = DefaultPeriod
			}
			return reader.MessagesFromPeriod(ctx, p, r.Now())
		})

	Register(r, "reply_to_message", "Reply to a user message from the inbox by PSID.",
		func(ctx context.Context, in ReplyMessageInput) (any, error) {
			return api.SendMessage(ctx, in.SenderID, in.Text)
		})

	return r
}
