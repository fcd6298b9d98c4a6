package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/reelwork/marketplace/internal/api/types"
	"github.com/reelwork/marketplace/internal/services"
)

type MessagesHandler struct {
	svc services.MessageService
}

func NewMessagesHandler(svc services.MessageService) *MessagesHandler {
	return &MessagesHandler{svc: svc}
}

func (h *MessagesHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	raw := r.URL.Query().Get("other_user_id")
	if raw == "" {
		writeErrorStr(w, http.StatusBadRequest, "Other user ID is required")
		return
	}
	other, err := uuid.Parse(raw)
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	msgs, err := h.svc.ListConversation(r.Context(), p.UserID, other)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *MessagesHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	var req types.MessageCreateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	receiver, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "Invalid receiver ID")
		return
	}

	m, err := h.svc.SendMessage(r.Context(), p.UserID, receiver, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}
