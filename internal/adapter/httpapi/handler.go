// Package httpapi serves the question endpoint, health and readiness checks,
// Prometheus metrics and the MCP streamable HTTP transport.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/guillermoBallester/askdb/internal/core/domain"
	"github.com/guillermoBallester/askdb/internal/core/service"
)

const maxBodyBytes = 1 << 20

// Answerer is the part of service.TranslationService the handler needs.
type Answerer interface {
	Answer(ctx context.Context, question string) domain.Result
}

type ReadinessCheck func(ctx context.Context) error

// RequestObserver receives one sample per served request.
type RequestObserver interface {
	ObserveHTTPRequest(method, path string, status int, elapsed time.Duration)
}

type Dependencies struct {
	Logger           *slog.Logger
	Answerer         Answerer
	Readiness        ReadinessCheck
	ReadinessTimeout time.Duration
	Metrics          http.Handler
	Observer         RequestObserver
	// MCP is mounted at /mcp when non-nil.
	MCP         http.Handler
	BearerToken string
}

func NewHandler(deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler)

	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		}
		timeout := deps.ReadinessTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}

	var ask http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleAsk(deps, w, r)
	})
	if deps.BearerToken != "" {
		ask = bearerAuthMiddleware(ask, deps.BearerToken)
	}
	mux.Handle("POST /ask", ask)

	if deps.MCP != nil {
		var mcpHandler = deps.MCP
		if deps.BearerToken != "" {
			mcpHandler = bearerAuthMiddleware(mcpHandler, deps.BearerToken)
		}
		mux.Handle("/mcp", mcpHandler)
	}

	var h http.Handler = mux
	if deps.Observer != nil {
		h = observeMiddleware(h, mux, deps.Observer)
	}
	return recoveryMiddleware(h, deps.Logger)
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	question, err := readQuestion(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	if strings.TrimSpace(question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "question is required"})
		return
	}

	result := deps.Answerer.Answer(service.WithSource(r.Context(), "http"), question)
	writeJSON(w, http.StatusOK, result)
}

// readQuestion accepts a JSON body {"question": "..."} or a form field.
func readQuestion(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body struct {
			Question string `json:"question"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", errInvalidJSON
		}
		return body.Question, nil
	}

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return "", errInvalidForm
		}
	} else if err := r.ParseForm(); err != nil {
		return "", errInvalidForm
	}
	return r.PostFormValue("question"), nil
}

// internalErrorBody is sent when a payload cannot be encoded.
var internalErrorBody = []byte(`{"ok":false,"error":"internal server error"}` + "\n")

// writeJSON encodes payload before committing the status, so an encoding
// failure becomes a 500 with a JSON body instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body = internalErrorBody
	} else {
		body = append(body, '\n')
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
