package live

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aliuyar1234/printshop/internal/apperrors"
	"github.com/aliuyar1234/printshop/internal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Source loads a collection for a subscriber. It should return an error
// wrapping ErrUnauthorized when the actor may no longer read it.
type Source func(ctx context.Context, actorID, orgID uuid.UUID) (any, error)

// Config holds connection timing for the WebSocket endpoint.
type Config struct {
	// PingInterval is how often to send ping messages to clients.
	PingInterval time.Duration
	// WriteTimeout is the timeout for writing to a client.
	WriteTimeout time.Duration
	// ReadTimeout is the timeout for reading from a client.
	ReadTimeout time.Duration
	// MaxMessageSize is the maximum size of a message from a client.
	MaxMessageSize int64
}

func DefaultConfig() Config {
	return Config{
		PingInterval:   30 * time.Second,
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		MaxMessageSize: 512,
	}
}

// Frame is the JSON message written for every snapshot.
type Frame struct {
	Collection string `json:"collection"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Handler serves GET /api/v1/orgs/{org_id}/live/{collection}.
type Handler struct {
	hub      *Hub
	sources  map[string]Source
	config   Config
	upgrader websocket.Upgrader
}

// NewHandler wires sources by collection name. allowedOrigins empty allows any origin.
func NewHandler(hub *Hub, sources map[string]Source, cfg Config, allowedOrigins []string) *Handler {
	return &Handler{
		hub:     hub,
		sources: sources,
		config:  cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == origin {
				return true
			}
		}
		return false
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.GetUserID(ctx)

	orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
	if err != nil {
		apperrors.WriteBadRequest(w, r, "Invalid organization ID")
		return
	}
	collection := chi.URLParam(r, "collection")
	source, ok := h.sources[collection]
	if !ok {
		apperrors.WriteNotFound(w, r, "Unknown collection")
		return
	}

	// Authorize before upgrading so failures get a normal HTTP response.
	first, err := source(ctx, userID, orgID)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			apperrors.WriteNotFound(w, r, "Organization not found")
			return
		}
		h.hub.logger.Error().Err(err).Str("collection", collection).Msg("Failed to load collection")
		apperrors.WriteInternalError(w, r, "Failed to load collection")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.logger.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}
	defer conn.Close()

	primed := true
	sub := h.hub.Subscribe(ctx, orgID, userID, collection, func(ctx context.Context) (any, error) {
		if primed {
			primed = false
			return first, nil
		}
		return source(ctx, userID, orgID)
	})
	defer sub.Close()

	go h.readPump(conn, sub)
	h.writePump(conn, sub)
}

// readPump discards client messages and ends the subscription on disconnect.
func (h *Handler) readPump(conn *websocket.Conn, sub *Subscription) {
	defer sub.Close()

	conn.SetReadLimit(h.config.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.hub.logger.Debug().Err(err).Msg("Websocket read error")
			}
			return
		}
	}
}

func (h *Handler) writePump(conn *websocket.Conn, sub *Subscription) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-sub.Updates():
			_ = conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "subscription closed"))
				return
			}
			frame := Frame{Collection: snap.Collection, Data: snap.Data}
			if snap.Err != nil {
				frame.Data = nil
				frame.Error = "Failed to load collection"
				h.hub.logger.Warn().Err(snap.Err).Str("collection", snap.Collection).Msg("Delivering error frame")
			}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
