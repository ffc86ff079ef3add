package handler

import (
	"net/http"
	"strconv"

	"chat-assistant-server/internal/domain"
	apperrors "chat-assistant-server/pkg/errors"
)

const maxHistoryPage = 200

// ChatHandler serves message submission and history.
type ChatHandler struct {
	chat   domain.ChatService
	logger domain.Logger
}

func NewChatHandler(chat domain.ChatService, logger domain.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

// SendMessage runs one message through the quota gate and returns the bot's
// reply. Rejections are 403 with a machine readable code.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	var req domain.ChatRequest
	if appErr := decodeJSON(w, r, &req); appErr != nil {
		writeAppError(w, appErr)
		return
	}

	result, err := h.chat.Send(r.Context(), user.ID, req.Action())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	if !result.Decision.Allowed {
		writeAppError(w, rejection(result.Decision.Reason))
		return
	}

	resp := domain.ChatResponse{
		Response: result.Reply.Text,
		Kind:     result.Reply.Kind,
		ImageURL: result.Reply.ImageURL,
	}
	if result.Remaining >= 0 {
		remaining := result.Remaining
		resp.Remaining = &remaining
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetMessages returns recent history, oldest first.
func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxHistoryPage {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		limit = n
	}

	messages, err := h.chat.History(r.Context(), user.ID, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if messages == nil {
		messages = []*domain.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

func rejection(reason domain.RejectReason) *apperrors.AppError {
	switch reason {
	case domain.ReasonPremiumRequired:
		return apperrors.NewForbiddenError("premium_required", "Image generation requires a premium account")
	default:
		return apperrors.NewForbiddenError("quota_exceeded", "Daily message limit reached")
	}
}
