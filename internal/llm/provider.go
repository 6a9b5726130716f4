package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Provider is the single seam between deepread and a model vendor.
// Concept extraction, depth assignment, question generation and answer
// evaluation all go through Generate.
type Provider interface {
	// Generate sends one request. When req.Schema is set the provider asks
	// for structured output and validates the result before returning it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model this provider targets.
	ModelID() string
}

// Request is a single-shot prompt.
type Request struct {
	System   string
	Messages []Message

	// Schema, when set, constrains the response to JSON matching the
	// definition. When nil the response is free text.
	Schema *Schema

	MaxTokens   int
	Temperature float64
}

// Message is one turn of a conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the sender of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// UserPrompt builds a Request with a system prompt and one user message.
func UserPrompt(system, user string) Request {
	return Request{
		System:   system,
		Messages: []Message{{Role: RoleUser, Content: user}},
	}
}

// Schema describes the JSON shape a response must take.
type Schema struct {
	// Name is unique per distinct Definition; compiled validators are
	// cached by it.
	Name        string
	Description string
	Definition  map[string]any
}

// Response holds what a provider returned.
type Response struct {
	// Content is the validated JSON object for schema requests, or the
	// reply text encoded as a JSON string otherwise.
	Content json.RawMessage

	Usage Usage
	Model string

	// StopReason is normalized to "end", "max_tokens" or "error".
	StopReason string
}

// Text decodes a free-text response.
func (r *Response) Text() (string, error) {
	var s string
	if err := json.Unmarshal(r.Content, &s); err != nil {
		return "", fmt.Errorf("decode text response: %w", err)
	}
	return s, nil
}

// Usage is the token accounting for one request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// textContent wraps raw reply text for schema-less requests.
func textContent(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}
