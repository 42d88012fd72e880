package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/skylinehq/skyline/backend/internal/auth"
	"github.com/skylinehq/skyline/backend/internal/live"
	"github.com/skylinehq/skyline/backend/internal/model/catalog"
	chatModel "github.com/skylinehq/skyline/backend/internal/model/chat"
	"github.com/skylinehq/skyline/backend/internal/service/turn"
	"github.com/skylinehq/skyline/backend/internal/store"
	"github.com/skylinehq/skyline/backend/pkg/utils"
)

// Handler owns the chat HTTP surface: the streaming turn endpoint plus
// history, vote, visibility and deletion.
type Handler struct {
	orchestrator *turn.Orchestrator
	store        store.Store
	registry     *live.Registry
	catalog      catalog.Store
	validate     *validator.Validate
	logger       *zap.Logger
}

// New creates the chat handler.
func New(orchestrator *turn.Orchestrator, st store.Store, registry *live.Registry, models catalog.Store, logger *zap.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		store:        st,
		registry:     registry,
		catalog:      models,
		validate:     validator.New(),
		logger:       logger.Named("chat"),
	}
}

// RegisterRoutes registers the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleTurn)
	r.Get("/chat/{chatID}/messages", h.handleGetMessages)
	r.Get("/chat/{chatID}/votes", h.handleGetVotes)
	r.Post("/chat/{chatID}/vote", h.handleVote)
	r.Patch("/chat/{chatID}/visibility", h.handleVisibility)
	r.Delete("/chat/{chatID}", h.handleDelete)
}

type messagePayload struct {
	Role        string                 `json:"role"`
	Content     string                 `json:"content"`
	Attachments []chatModel.Attachment `json:"attachments,omitempty"`
}

type turnPayload struct {
	ChatID        string           `json:"chatId" validate:"required"`
	Messages      []messagePayload `json:"messages" validate:"min=1"`
	SelectedModel string           `json:"selectedModel"`
}

// handleTurn runs one chat turn. Validation and chat resolution happen
// before the SSE stream opens so bad requests still get a plain status code;
// everything after the first frame surfaces as error frames instead.
func (h *Handler) handleTurn(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var payload turnPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "chatId and a non-empty messages list are required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	selected, ok := h.catalog.FindByID(payload.SelectedModel)
	if !ok {
		selected = h.catalog.Default()
	}

	messages := make([]chatModel.Message, 0, len(payload.Messages))
	for _, m := range payload.Messages {
		messages = append(messages, chatModel.Message{
			Role:        chatModel.Role(m.Role),
			Content:     m.Content,
			Attachments: m.Attachments,
		})
	}

	prepared, err := h.orchestrator.Prepare(r.Context(), turn.Request{
		ChatID:        payload.ChatID,
		UserID:        identity.UserID,
		Messages:      messages,
		SelectedModel: selected.ID,
		Reasoning:     selected.Reasoning,
	})
	if err != nil {
		switch {
		case errors.Is(err, turn.ErrBadRequest):
			utils.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, turn.ErrUnauthorized):
			utils.RespondError(w, http.StatusUnauthorized, "chat belongs to another user")
		default:
			h.logger.Error("turn preparation failed", zap.String("chat_id", payload.ChatID), zap.Error(err))
			utils.RespondError(w, http.StatusInternalServerError, "failed to start chat turn")
		}
		return
	}

	utils.SetupSSEHeaders(w)
	sub := live.NewSSESubscriber(w, flusher)
	h.registry.Subscribe(payload.ChatID, sub)
	defer h.registry.Unsubscribe(payload.ChatID, sub)

	h.logger.Info("turn started",
		zap.String("chat_id", payload.ChatID),
		zap.String("model", selected.ID))
	prepared.Stream(r.Context())
}

func (h *Handler) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	c, ok := h.authorizeRead(w, r, chatID)
	if !ok {
		return
	}

	messages, err := h.store.GetMessagesByChat(r.Context(), c.ID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}
	utils.RespondJSON(w, http.StatusOK, messages)
}

func (h *Handler) handleGetVotes(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	c, ok := h.authorizeRead(w, r, chatID)
	if !ok {
		return
	}

	votes, err := h.store.GetVotesByChat(r.Context(), c.ID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to load votes")
		return
	}
	utils.RespondJSON(w, http.StatusOK, votes)
}

type votePayload struct {
	MessageID string `json:"messageId" validate:"required"`
	Type      string `json:"type" validate:"required,oneof=up down"`
}

func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	identity, _ := auth.FromContext(r.Context())

	var payload votePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "messageId and a vote type of up or down are required")
		return
	}

	c, err := h.store.GetChat(r.Context(), chatID)
	if errors.Is(err, store.ErrChatNotFound) {
		utils.RespondError(w, http.StatusNotFound, "chat not found")
		return
	}
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to resolve chat")
		return
	}
	if c.UserID != identity.UserID {
		utils.RespondError(w, http.StatusUnauthorized, "chat belongs to another user")
		return
	}

	vote := chatModel.Vote{ChatID: chatID, MessageID: payload.MessageID, IsUpvoted: payload.Type == "up"}
	if err := h.store.CreateVote(r.Context(), vote); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to record vote")
		return
	}
	utils.RespondJSON(w, http.StatusOK, vote)
}

type visibilityPayload struct {
	Visibility string `json:"visibility" validate:"required,oneof=private public"`
}

func (h *Handler) handleVisibility(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	identity, _ := auth.FromContext(r.Context())

	var payload visibilityPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "visibility must be private or public")
		return
	}

	c, err := h.store.GetChat(r.Context(), chatID)
	if errors.Is(err, store.ErrChatNotFound) {
		utils.RespondError(w, http.StatusNotFound, "chat not found")
		return
	}
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to resolve chat")
		return
	}
	if c.UserID != identity.UserID {
		utils.RespondError(w, http.StatusUnauthorized, "chat belongs to another user")
		return
	}

	if err := h.store.UpdateChatVisibility(r.Context(), chatID, chatModel.Visibility(payload.Visibility)); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to update visibility")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	identity, _ := auth.FromContext(r.Context())

	err := h.orchestrator.Delete(r.Context(), chatID, identity.UserID)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, store.ErrChatNotFound):
		utils.RespondError(w, http.StatusNotFound, "chat not found")
	case errors.Is(err, turn.ErrUnauthorized):
		utils.RespondError(w, http.StatusUnauthorized, "chat belongs to another user")
	default:
		h.logger.Error("chat deletion failed", zap.String("chat_id", chatID), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to delete chat")
	}
}

// authorizeRead loads the chat and enforces read access: the owner always,
// anyone when the chat is public.
func (h *Handler) authorizeRead(w http.ResponseWriter, r *http.Request, chatID string) (chatModel.Chat, bool) {
	identity, _ := auth.FromContext(r.Context())

	c, err := h.store.GetChat(r.Context(), chatID)
	if errors.Is(err, store.ErrChatNotFound) {
		utils.RespondError(w, http.StatusNotFound, "chat not found")
		return chatModel.Chat{}, false
	}
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to resolve chat")
		return chatModel.Chat{}, false
	}
	if c.Visibility != chatModel.VisibilityPublic && c.UserID != identity.UserID {
		utils.RespondError(w, http.StatusUnauthorized, "chat belongs to another user")
		return chatModel.Chat{}, false
	}
	return c, true
}
