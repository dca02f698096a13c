package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/linkup/messenger/internal/middleware"
	"github.com/linkup/messenger/internal/models"
	"github.com/linkup/messenger/internal/store"
)

type MessageHandler struct {
	Store store.Store
	Log   *slog.Logger
}

// GetConversation returns the full history between the caller and the user in
// the path, in ascending message id order.
func (h *MessageHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	otherID, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	messages, err := h.Store.GetConversation(caller.ID, otherID)
	if err != nil {
		h.Log.Error("conversation query failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	json.NewEncoder(w).Encode(messages)
}

// GetContacts returns the caller's distinct conversation partners, merged
// across both directions.
func (h *MessageHandler) GetContacts(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	contacts, err := h.Store.GetContacts(caller.ID)
	if err != nil {
		h.Log.Error("contacts query failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if contacts == nil {
		contacts = []models.User{}
	}
	json.NewEncoder(w).Encode(contacts)
}
