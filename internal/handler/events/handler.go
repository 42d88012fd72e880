// Package events exposes a read-only websocket feed of a chat's live events,
// so additional tabs can watch a stream already in flight.
package events

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/skylinehq/skyline/backend/internal/auth"
	"github.com/skylinehq/skyline/backend/internal/live"
	chatModel "github.com/skylinehq/skyline/backend/internal/model/chat"
	"github.com/skylinehq/skyline/backend/internal/store"
	"github.com/skylinehq/skyline/backend/pkg/utils"
)

const writeTimeout = 10 * time.Second

// Handler upgrades connections and binds them into the registry.
type Handler struct {
	registry *live.Registry
	store    store.Store
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// New creates the events handler.
func New(registry *live.Registry, st store.Store, logger *zap.Logger) *Handler {
	return &Handler{
		registry: registry,
		store:    st,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger.Named("events"),
	}
}

// RegisterRoutes registers the websocket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/{chatID}/events", h.handleSubscribe)
}

func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	identity, _ := auth.FromContext(r.Context())

	c, err := h.store.GetChat(r.Context(), chatID)
	if errors.Is(err, store.ErrChatNotFound) {
		utils.RespondError(w, http.StatusNotFound, "chat not found")
		return
	}
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to resolve chat")
		return
	}
	if c.Visibility != chatModel.VisibilityPublic && c.UserID != identity.UserID {
		utils.RespondError(w, http.StatusUnauthorized, "chat belongs to another user")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("chat_id", chatID), zap.Error(err))
		return
	}

	sub := &wsSubscriber{conn: conn}
	h.registry.Subscribe(chatID, sub)
	h.logger.Info("websocket subscriber joined", zap.String("chat_id", chatID))

	// Reads are discarded; the loop exists to notice the close.
	go func() {
		defer func() {
			h.registry.Unsubscribe(chatID, sub)
			conn.Close()
			h.logger.Info("websocket subscriber left", zap.String("chat_id", chatID))
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// wsSubscriber adapts a websocket connection into a live.Subscriber.
type wsSubscriber struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSubscriber) Send(ev live.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteJSON(ev)
}
