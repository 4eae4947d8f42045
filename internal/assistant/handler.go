package assistant

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/health-assistant/internal/http/middleware"
	"github.com/wolfman30/health-assistant/pkg/logging"
)

const (
	msgChatSaved      = "HealthBot replied and chat saved successfully."
	msgCacheCleared   = "Chat session cache cleared successfully."
	msgInputRequired  = "Message is required either as text or through audio."
	msgInvalidInput   = "Invalid input detected. Please provide a valid message."
	msgRateLimited    = "Too many requests. Please wait a moment before trying again."
	msgChatNotFound   = "Chat session not found."
	msgInternal       = "Something went wrong while processing your request. Please try again."
	msgBadRequestBody = "Invalid request body."
)

// Envelope is the response shape of every health-bot endpoint.
type Envelope struct {
	Status     bool   `json:"status"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
}

type chatBody struct {
	Message  string `json:"message"`
	AudioURL string `json:"audioUrl"`
	ChatID   string `json:"chatId"`
}

// Handler exposes Service over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("assistant: service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Chat handles POST /api/v1/health-bot/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var body chatBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil {
		h.writeJSON(w, http.StatusBadRequest, Envelope{StatusCode: http.StatusBadRequest, Message: msgBadRequestBody})
		return
	}

	res, err := h.service.Chat(r.Context(), ChatRequest{
		Message:       body.Message,
		AudioURL:      body.AudioURL,
		ChatID:        body.ChatID,
		UserID:        middleware.UserIDFromContext(r.Context()),
		AnonToken:     r.Header.Get("x-anon-token"),
		ForwardedFor:  r.Header.Get("X-Forwarded-For"),
		RemoteAddr:    r.RemoteAddr,
		Authorization: r.Header.Get("Authorization"),
	})
	if err != nil {
		status, msg := StatusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("health bot chat failed", "error", err)
		}
		h.writeJSON(w, status, Envelope{StatusCode: status, Message: msg})
		return
	}
	h.writeJSON(w, http.StatusOK, Envelope{Status: true, StatusCode: http.StatusOK, Message: msgChatSaved, Data: res})
}

// ClearCache handles DELETE /api/v1/health-bot/cache.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	err := h.service.ClearSession(r.Context(), ClearRequest{
		UserID:       middleware.UserIDFromContext(r.Context()),
		ChatID:       r.URL.Query().Get("chatId"),
		AnonToken:    r.Header.Get("x-anon-token"),
		ForwardedFor: r.Header.Get("X-Forwarded-For"),
		RemoteAddr:   r.RemoteAddr,
	})
	if err != nil {
		h.logger.Error("failed to clear health bot cache", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, Envelope{StatusCode: http.StatusInternalServerError, Message: msgInternal})
		return
	}
	h.writeJSON(w, http.StatusOK, Envelope{Status: true, StatusCode: http.StatusOK, Message: msgCacheCleared})
}

// StatusFor maps a Chat error to its HTTP status and user-facing message.
func StatusFor(err error) (int, string) {
	var safety *SafetyError
	switch {
	case errors.As(err, &safety):
		return http.StatusBadRequest, safety.Response
	case errors.Is(err, ErrInputRequired):
		return http.StatusBadRequest, msgInputRequired
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest, msgInvalidInput
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, msgRateLimited
	case errors.Is(err, ErrChatNotFound):
		return http.StatusNotFound, msgChatNotFound
	}
	return http.StatusInternalServerError, msgInternal
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
