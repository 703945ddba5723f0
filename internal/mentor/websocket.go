package mentor

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ashureev/leetmentor/internal/identity"
	"github.com/ashureev/leetmentor/internal/interview"
	"github.com/ashureev/leetmentor/internal/middleware"
)

// WebSocket message types.
const (
	wsTypeChat   = "chat"
	wsTypeHint   = "hint"
	wsTypePhase  = "phase"
	wsTypeStatus = "status"
	wsTypePing   = "ping"

	wsTypeChunk = "chunk"
	wsTypeDone  = "done"
	wsTypePong  = "pong"
	wsTypeError = "error"
)

const (
	wsWriteTimeout = 10 * time.Second
	idleEndedNote  = "Interview ended after inactivity"
)

// wsMessage is a client request on /ws/mentor.
type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Phase   string `json:"phase,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// wsReply is a server message on /ws/mentor.
type wsReply struct {
	Type      string            `json:"type"`
	Content   string            `json:"content,omitempty"`
	Hint      *HintResult       `json:"hint,omitempty"`
	Status    *interview.Status `json:"status,omitempty"`
	ShouldEnd bool              `json:"should_end,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// WebSocketHandler serves the interview chat over a WebSocket.
type WebSocketHandler struct {
	svc            *Service
	conns          *Connections
	rateLimiter    *RateLimiter
	allowedOrigins []string
	isDev          bool
}

// NewWebSocketHandler creates a WebSocketHandler.
func NewWebSocketHandler(svc *Service, rl *RateLimiter, allowedOrigins []string, isDev bool) *WebSocketHandler {
	h := &WebSocketHandler{
		svc:            svc,
		conns:          NewConnections(),
		rateLimiter:    rl,
		allowedOrigins: allowedOrigins,
		isDev:          isDev,
	}
	if svc != nil {
		svc.OnReaped(func(key Key) { h.conns.NotifyEnded(key, idleEndedNote) })
	}
	return h
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	key := Key{UserID: userID, TabID: identity.TabIDFromContext(r.Context())}
	slog.Info("WebSocket connection request",
		"user_id", key.UserID,
		"username", identity.UsernameFromContext(r.Context()),
		"tab_id", key.TabID,
		"ip", identity.IPFromRequest(r),
	)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", key.UserID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", key.UserID)
		}
	}()

	h.conns.Register(key, ws)
	defer h.conns.Unregister(key, ws)

	h.readLoop(r.Context(), ws, key)
	slog.Info("Mentor websocket closed", "user_id", key.UserID, "tab_id", key.TabID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || middleware.OriginAllowed(h.allowedOrigins, origin) {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigins)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, key Key) {
	for {
		var msg wsMessage
		if err := wsjson.Read(ctx, ws, &msg); err != nil {
			// Client closes and cancelled requests are expected.
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				slog.Debug("WebSocket read error", "error", err, "user_id", key.UserID)
			}
			return
		}

		if err := h.dispatch(ctx, ws, key, msg); err != nil {
			slog.Debug("WebSocket write error", "error", err, "user_id", key.UserID)
			return
		}
	}
}

// dispatch handles one client message. The returned error is a write failure.
func (h *WebSocketHandler) dispatch(ctx context.Context, ws *websocket.Conn, key Key, msg wsMessage) error {
	switch msg.Type {
	case wsTypePing:
		return h.write(ctx, ws, wsReply{Type: wsTypePong})
	case wsTypeStatus:
		status := h.svc.Status(key)
		return h.write(ctx, ws, wsReply{Type: wsTypeStatus, Status: &status})
	case wsTypeHint:
		hint, err := h.svc.Hint(key)
		if err != nil {
			return h.writeError(ctx, ws, err)
		}
		return h.write(ctx, ws, wsReply{Type: wsTypeHint, Hint: hint, ShouldEnd: hint.ShouldEnd})
	case wsTypePhase:
		var (
			result *PhaseResult
			err    error
		)
		if msg.Phase == "" {
			result, err = h.svc.NextPhase(key, msg.Reason)
		} else {
			result, err = h.svc.AdvancePhase(key, msg.Phase, msg.Reason)
		}
		if err != nil {
			return h.writeError(ctx, ws, err)
		}
		return h.write(ctx, ws, wsReply{
			Type:      wsTypeStatus,
			Content:   result.Instruction,
			Status:    &result.Status,
			ShouldEnd: result.ShouldEnd,
		})
	case wsTypeChat:
		return h.chat(ctx, ws, key, msg.Content)
	default:
		return h.write(ctx, ws, wsReply{Type: wsTypeError, Error: "unknown message type: " + msg.Type})
	}
}

func (h *WebSocketHandler) chat(ctx context.Context, ws *websocket.Conn, key Key, content string) error {
	if !h.rateLimiter.Allow(key.UserID) {
		return h.write(ctx, ws, wsReply{Type: wsTypeError, Error: "rate limit exceeded"})
	}
	for chunk, err := range h.svc.Chat(ctx, key, ChannelWebSocket, content) {
		if err != nil {
			return h.writeError(ctx, ws, err)
		}
		if err := h.write(ctx, ws, wsReply{Type: wsTypeChunk, Content: chunk.Content}); err != nil {
			return err
		}
	}
	status := h.svc.Status(key)
	return h.write(ctx, ws, wsReply{Type: wsTypeDone, Status: &status, ShouldEnd: h.svc.ShouldEnd(key)})
}

func (h *WebSocketHandler) writeError(ctx context.Context, ws *websocket.Conn, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return h.write(ctx, ws, wsReply{Type: wsTypeError, Error: err.Error()})
}

func (h *WebSocketHandler) write(ctx context.Context, ws *websocket.Conn, reply wsReply) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, reply)
}
