package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MikeSquared-Agency/pagekeeper/internal/hermes"
)

// HandleRequest is the NATS handler for hermes.SubjectToolInvoke.
// It returns the JSON-encoded Result.
func (r *Registry) HandleRequest(subject string, data []byte) ([]byte, error) {
	var req hermes.ToolRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse tool request: %w", err)
	}
	if req.Tool == "" {
		return nil, fmt.Errorf("parse tool request: %w", &ValidationError{Field: "tool", Message: "tool is a required field"})
	}

	res, err := r.Invoke(context.Background(), req.Tool, req.Args)
	if err != nil {
		return nil, err
	}
	return json.Marshal(res)
}
