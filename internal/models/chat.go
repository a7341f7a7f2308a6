package models

// ChatMessage represents a single turn in an assistant conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatRequest is the payload sent to the assistant endpoint.
type ChatRequest struct {
	Message string        `json:"message" validate:"required,max=4000"`
	Subject string        `json:"subject" validate:"max=100"`
	History []ChatMessage `json:"history"`
}

// ChatResponse is the assistant reply.
type ChatResponse struct {
	Reply   string              `json:"reply"`
	Source  string              `json:"source"` // "gemini" | "offline"
	Profile GamificationProfile `json:"profile"`
}
