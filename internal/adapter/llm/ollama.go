package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/guillermoBallester/askdb/internal/core/port"
)

const DefaultOllamaHost = "http://localhost:11434"

type OllamaConfig struct {
	Host    string
	Timeout time.Duration
}

// OllamaClient calls a local Ollama server's non-streaming chat endpoint.
type OllamaClient struct {
	host   string
	client *http.Client
}

func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	host := normalizeBaseURL(cfg.Host)
	if host == "" {
		host = DefaultOllamaHost
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaClient{host: host, client: httpClient(timeout)}
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []port.Message `json:"messages"`
	Stream   bool           `json:"stream"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Error string `json:"error"`
}

func (c *OllamaClient) Chat(ctx context.Context, model string, messages []port.Message) (string, error) {
	raw, err := postJSON(ctx, c.client, c.host+"/api/chat", nil, ollamaChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return "", err
	}

	var parsed ollamaChatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("ollama: %s", parsed.Error)
	}
	return parsed.Message.Content, nil
}
