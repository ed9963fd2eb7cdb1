// Package inbox retrieves Page inbox messages that fall inside a time window.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/pagekeeper/internal/graph"
	"github.com/MikeSquared-Agency/pagekeeper/internal/period"
)

// TimeLayout is the Graph API timestamp layout, e.g. 2024-06-01T00:00:00+0000.
const TimeLayout = "2006-01-02T15:04:05-0700"

// ErrMalformedTimestamp is matched by errors for unparsable created_time values.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

// MalformedTimestampError aborts the whole retrieval; no partial window is returned.
type MalformedTimestampError struct {
	MessageID string
	Value     string
	Err       error
}

func (e *MalformedTimestampError) Error() string {
	return fmt.Sprintf("message %s: malformed created_time %q: %v", e.MessageID, e.Value, e.Err)
}

func (e *MalformedTimestampError) Is(target error) bool {
	return target == ErrMalformedTimestamp
}

func (e *MalformedTimestampError) Unwrap() error {
	return e.Err
}

// NormalizedMessage is a flattened inbox message. Sender fields are nil when
// the API omitted the author.
type NormalizedMessage struct {
	MessageID   string    `json:"message_id"`
	SenderID    *string   `json:"sender_id"`
	SenderName  *string   `json:"sender_name"`
	Message     string    `json:"message"`
	CreatedTime string    `json:"created_time"`
	CreatedAt   time.Time `json:"-"`
}

// Fetcher returns one page of conversations with nested messages.
type Fetcher interface {
	FetchInboxPage(ctx context.Context) (*graph.ConversationPage, error)
}

type Retriever struct {
	fetcher Fetcher
	logger  *slog.Logger
}

func New(fetcher Fetcher, logger *slog.Logger) *Retriever {
	return &Retriever{fetcher: fetcher, logger: logger}
}

// Cutoff returns now minus the parsed period, in UTC.
func Cutoff(periodText string, now time.Time) (time.Time, error) {
	d, err := period.Parse(periodText)
	if err != nil {
		return time.Time{}, err
	}
	return now.UTC().Add(-d), nil
}

// MessagesFromPeriod returns messages created within periodText of now.
func (r *Retriever) MessagesFromPeriod(ctx context.Context, periodText string, now time.Time) ([]NormalizedMessage, error) {
	cutoff, err := Cutoff(periodText, now)
	if err != nil {
		return nil, err
	}
	return r.MessagesSince(ctx, cutoff)
}

// MessagesSince returns every message created at or after cutoff, in the
// order the API returned them (conversation order, then message order).
func (r *Retriever) MessagesSince(ctx context.Context, cutoff time.Time) ([]NormalizedMessage, error) {
	page, err := r.fetcher.FetchInboxPage(ctx)
	if err != nil {
		return nil, err
	}

	out, scanned, err := filterPage(page, cutoff)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("inbox window filtered",
		"cutoff", cutoff.Format(time.RFC3339),
		"conversations", conversationCount(page),
		"scanned", scanned,
		"kept", len(out),
	)
	return out, nil
}

func filterPage(page *graph.ConversationPage, cutoff time.Time) ([]NormalizedMessage, int, error) {
	out := []NormalizedMessage{}
	if page == nil {
		return out, 0, nil
	}

	scanned := 0
	for _, conv := range page.Data {
		if conv.Messages == nil {
			continue
		}
		for _, raw := range conv.Messages.Data {
			scanned++
			created, err := ParseTime(raw.CreatedTime)
			if err != nil {
				return nil, scanned, &MalformedTimestampError{MessageID: raw.ID, Value: raw.CreatedTime, Err: err}
			}
			if created.Before(cutoff) {
				continue
			}
			out = append(out, normalize(raw, created))
		}
	}
	return out, scanned, nil
}

func normalize(raw graph.RawMessage, created time.Time) NormalizedMessage {
	msg := NormalizedMessage{
		MessageID:   raw.ID,
		Message:     raw.Message,
		CreatedTime: raw.CreatedTime,
		CreatedAt:   created,
	}
	if raw.From != nil {
		if raw.From.ID != "" {
			id := raw.From.ID
			msg.SenderID = &id
		}
		if raw.From.Name != "" {
			name := raw.From.Name
			msg.SenderName = &name
		}
	}
	return msg
}

// ParseTime parses a Graph timestamp. RFC 3339 offsets ("+00:00", "Z") are
// accepted as well as the compact "+0000" form the API normally sends.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err == nil {
		return t, nil
	}
	if t2, err2 := time.Parse(time.RFC3339, s); err2 == nil {
		return t2, nil
	}
	return time.Time{}, err
}

func conversationCount(page *graph.ConversationPage) int {
	if page == nil {
		return 0
	}
	return len(page.Data)
}
