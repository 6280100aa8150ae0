package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tharanis13/campus-lost-found/internal/model"
	"github.com/tharanis13/campus-lost-found/internal/store"
)

// AdminHandler handles the administrator endpoints. All routes are
// gated behind RequireRole(admin) in the router.
type AdminHandler struct {
	DB *sql.DB
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

// Stats handles GET /api/admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := store.GetStats(r.Context(), h.DB)
	if err != nil {
		slog.Error("computing admin stats", "error", err)
		jsonError(w, http.StatusInternalServerError, "Server error")
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}

// ListUsers handles GET /api/admin/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		slog.Error("listing users", "error", err)
		jsonError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// ListItems handles GET /api/admin/items: every item, newest first.
func (h *AdminHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListAllItems(r.Context(), h.DB)
	if err != nil {
		slog.Error("listing all items", "error", err)
		jsonError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// UpdateItemStatus handles PUT /api/admin/items/{id}/status. Moves are
// validated against the item state machine; arbitrary jumps are 400s.
func (h *AdminHandler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req statusUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.Status {
	case model.StatusActive, model.StatusClaimed, model.StatusReturned, model.StatusArchived:
	default:
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	item, err := store.UpdateItemStatus(r.Context(), h.DB, id, req.Status)
	if errors.Is(err, store.ErrBadTransition) {
		jsonError(w, http.StatusBadRequest, "illegal status transition")
		return
	}
	if err != nil {
		slog.Error("updating item status", "item", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "Item not found")
		return
	}

	slog.Info("item status updated", "item", id, "status", req.Status)
	jsonResponse(w, http.StatusOK, item)
}

// DeleteUser handles DELETE /api/admin/users/{id}. Cascades to the
// user's reported items; items they merely claimed are untouched.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("getting user for deletion", "user", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "User not found")
		return
	}

	if err := store.DeleteUser(r.Context(), h.DB, id); err != nil {
		slog.Error("deleting user", "user", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "Server error")
		return
	}

	slog.Info("user deleted", "user", id, "email", user.Email)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}
