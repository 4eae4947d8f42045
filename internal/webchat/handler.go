package webchat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/health-assistant/internal/assistant"
	"github.com/wolfman30/health-assistant/internal/chathistory"
	"github.com/wolfman30/health-assistant/internal/http/middleware"
	"github.com/wolfman30/health-assistant/pkg/logging"
)

// ChatService runs one chat turn.
type ChatService interface {
	Chat(ctx context.Context, req assistant.ChatRequest) (*assistant.ChatResult, error)
}

// Handler serves the health-bot chat over WebSocket.
type Handler struct {
	service ChatService
	logger  *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*wsConn // connection id -> active connection
}

type wsConn struct {
	conn *websocket.Conn
	// sendMu serializes frames written by the read loop and SendToSession.
	sendMu sync.Mutex
}

// InboundMessage is what the client sends.
type InboundMessage struct {
	Type     string `json:"type"` // "message", "ping"
	Text     string `json:"text"`
	AudioURL string `json:"audioUrl,omitempty"`
	ChatID   string `json:"chatId,omitempty"`
}

// OutboundMessage is what we send to the client.
type OutboundMessage struct {
	Type       string `json:"type"` // "session", "typing", "message", "error", "pong"
	Text       string `json:"text,omitempty"`
	Role       string `json:"role,omitempty"`
	ChatID     string `json:"chatId,omitempty"`
	SessionID  string `json:"sessionId,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
}

// NewHandler creates a web chat handler.
func NewHandler(service ChatService, logger *logging.Logger) *Handler {
	if service == nil {
		panic("webchat: chat service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service:  service,
		logger:   logger,
		sessions: make(map[string]*wsConn),
	}
}

// generateSessionID creates a random session identifier.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// connectionInfo holds the request-scoped identity captured at upgrade time.
type connectionInfo struct {
	userID        string
	anonToken     string
	authorization string
	forwardedFor  string
	remoteAddr    string
}

// HandleWebSocket upgrades to WebSocket and runs a chat turn per message frame.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	info := connectionInfo{
		userID:        middleware.UserIDFromContext(r.Context()),
		anonToken:     r.Header.Get("x-anon-token"),
		authorization: r.Header.Get("Authorization"),
		forwardedFor:  r.Header.Get("X-Forwarded-For"),
		remoteAddr:    r.RemoteAddr,
	}
	if info.anonToken == "" {
		info.anonToken = r.URL.Query().Get("session")
	}
	if info.anonToken == "" && info.userID == "" {
		info.anonToken = generateSessionID()
	}
	connID := uuid.New().String()

	wsc := &wsConn{conn: conn}
	h.mu.Lock()
	h.sessions[connID] = wsc
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.sessions, connID)
		h.mu.Unlock()
	}()

	h.send(wsc, OutboundMessage{Type: "session", SessionID: info.anonToken})
	h.logger.Info("webchat: connection opened", "user_id", info.userID, "remote_addr", info.remoteAddr)

	chatID := r.URL.Query().Get("chatId")
	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "user_id", info.userID, "error", err)
			return
		}

		if msg.Type == "ping" {
			h.send(wsc, OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || (strings.TrimSpace(msg.Text) == "" && strings.TrimSpace(msg.AudioURL) == "") {
			continue
		}
		if msg.ChatID != "" {
			chatID = msg.ChatID
		}
		chatID = h.processMessage(r.Context(), wsc, info, chatID, msg)
	}
}

// processMessage runs one turn and returns the chat id to use for the next frame.
func (h *Handler) processMessage(ctx context.Context, wsc *wsConn, info connectionInfo, chatID string, msg InboundMessage) string {
	h.send(wsc, OutboundMessage{Type: "typing"})

	res, err := h.service.Chat(ctx, assistant.ChatRequest{
		Message:       msg.Text,
		AudioURL:      msg.AudioURL,
		ChatID:        chatID,
		UserID:        info.userID,
		AnonToken:     info.anonToken,
		ForwardedFor:  info.forwardedFor,
		RemoteAddr:    info.remoteAddr,
		Authorization: info.authorization,
	})
	if err != nil {
		status, text := assistant.StatusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("webchat: chat turn failed", "error", err, "chat_id", chatID)
		}
		h.send(wsc, OutboundMessage{Type: "error", Text: text, StatusCode: status, ChatID: chatID})
		return chatID
	}

	h.send(wsc, OutboundMessage{
		Type:      "message",
		Role:      "assistant",
		Text:      lastAssistantText(res),
		ChatID:    res.ChatID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return res.ChatID
}

// SendToSession sends a message to an active WebSocket connection.
func (h *Handler) SendToSession(connID string, msg OutboundMessage) {
	h.mu.RLock()
	wsc, ok := h.sessions[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.send(wsc, msg)
}

// ActiveSessions reports the number of open connections.
func (h *Handler) ActiveSessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Handler) send(wsc *wsConn, msg OutboundMessage) {
	wsc.sendMu.Lock()
	defer wsc.sendMu.Unlock()
	if err := websocket.JSON.Send(wsc.conn, msg); err != nil {
		h.logger.Debug("webchat: send failed", "type", msg.Type, "error", err)
	}
}

func lastAssistantText(res *assistant.ChatResult) string {
	if res == nil {
		return ""
	}
	for i := len(res.Messages) - 1; i >= 0; i-- {
		if res.Messages[i].Role == chathistory.RoleBot {
			return res.Messages[i].Message
		}
	}
	return ""
}
