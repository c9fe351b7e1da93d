package handler

import (
	"net/http"

	"github.com/patrykmil/passy/internal/logging"
	"github.com/patrykmil/passy/internal/middleware"
	"github.com/patrykmil/passy/internal/websocket"
	"github.com/patrykmil/passy/pkg/jwt"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

// WebSocketHandler upgrades authenticated clients onto the event feed.
// Browsers cannot set headers on a websocket handshake, so the token may
// also come in the query string.
type WebSocketHandler struct {
	manager   *websocket.Manager
	jwtSecret string
	upgrader  ws.Upgrader
	log       *logging.Logger
}

func NewWebSocketHandler(manager *websocket.Manager, jwtSecret string, readBuffer, writeBuffer int, log *logging.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		manager:   manager,
		jwtSecret: jwtSecret,
		log:       log,
		upgrader: ws.Upgrader{
			ReadBufferSize:  readBuffer,
			WriteBufferSize: writeBuffer,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = middleware.BearerToken(r.Header.Get("Authorization"))
	}
	if token == "" {
		http.Error(w, "missing authorization token", http.StatusUnauthorized)
		return
	}

	claims, err := jwt.ValidateToken(token, h.jwtSecret)
	if err != nil {
		h.log.Debugf("websocket token rejected: %v", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = "default"
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("websocket upgrade failed for user %s: %v", claims.UserID, err)
		return
	}

	client := websocket.NewClient(uuid.New().String(), claims.UserID, sessionID, conn, h.manager)
	h.manager.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
