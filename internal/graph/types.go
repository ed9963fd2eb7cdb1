package graph

// ConversationPage is the response of the page conversations edge with the
// nested messages field expanded. Only the first page is ever read.
type ConversationPage struct {
	Data []Conversation `json:"data"`
}

// Conversation groups messages between the Page and one counterpart.
type Conversation struct {
	ID       string       `json:"id"`
	Messages *MessageList `json:"messages,omitempty"`
}

type MessageList struct {
	Data []RawMessage `json:"data"`
}

// RawMessage is a single inbox message as the Graph API returns it.
// CreatedTime uses the Graph layout, e.g. 2024-06-01T00:00:00+0000.
type RawMessage struct {
	ID          string  `json:"id"`
	Message     string  `json:"message,omitempty"`
	From        *Sender `json:"from,omitempty"`
	CreatedTime string  `json:"created_time"`
}

// Sender identifies a message or comment author. ID is the PSID for inbox messages.
type Sender struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type Post struct {
	ID          string `json:"id"`
	Message     string `json:"message,omitempty"`
	Story       string `json:"story,omitempty"`
	CreatedTime string `json:"created_time,omitempty"`
}

type PostPage struct {
	Data []Post `json:"data"`
}

type Comment struct {
	ID          string  `json:"id"`
	Message     string  `json:"message,omitempty"`
	From        *Sender `json:"from,omitempty"`
	CreatedTime string  `json:"created_time,omitempty"`
}

type CommentPage struct {
	Data []Comment `json:"data"`
}

// ObjectRef is returned by create calls (posts, comments).
type ObjectRef struct {
	ID string `json:"id"`
}

type DeleteResult struct {
	Success bool `json:"success"`
}

// SendResult is returned by the Send API.
type SendResult struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}
