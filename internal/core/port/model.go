package port

import "context"

// Message is one chat turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LanguageModel is a model-serving endpoint. Chat blocks until the model has
// produced its full reply.
type LanguageModel interface {
	Chat(ctx context.Context, model string, messages []Message) (string, error)
}
