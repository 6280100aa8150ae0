package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/tharanis13/campus-lost-found/internal/imaging"
	"github.com/tharanis13/campus-lost-found/internal/model"
	"github.com/tharanis13/campus-lost-found/internal/realtime"
	"github.com/tharanis13/campus-lost-found/internal/store"
)

// MaxImages is the attachment cap per report.
const MaxImages = 5

// maxUploadBytes bounds the whole multipart body.
const maxUploadBytes = 25 << 20

// ItemsHandler handles item reporting, browsing, claiming, and matching.
type ItemsHandler struct {
	DB         *sql.DB
	Hub        *realtime.Hub
	UploadsDir string
}

type claimRequest struct {
	Description string `json:"description"`
}

type claimDecisionRequest struct {
	Status string `json:"status"`
}

type listResponse struct {
	Items       []model.Item `json:"items"`
	TotalPages  int          `json:"totalPages"`
	CurrentPage int          `json:"currentPage"`
	Total       int          `json:"total"`
}

// Create handles POST /api/items: a multipart form with the report
// fields and up to MaxImages image attachments.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid multipart form or body too large")
		return
	}

	n := store.NewItem{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Type:        r.FormValue("type"),
		Location:    r.FormValue("location"),
		UniqueMarks: r.FormValue("unique_marks"),
		ReporterID:  claims.UserID,
	}

	fields := map[string]string{}
	if n.Title == "" {
		fields["title"] = "Title is required"
	}
	if n.Description == "" {
		fields["description"] = "Description is required"
	}
	if !model.ValidCategory(n.Category) {
		fields["category"] = "Category is required"
	}
	if n.Type != model.TypeLost && n.Type != model.TypeFound {
		fields["type"] = "Type must be lost or found"
	}
	if n.Location == "" {
		fields["location"] = "Location is required"
	}

	date, err := parseDate(r.FormValue("date"))
	if err != nil {
		fields["date"] = "Valid date is required"
	}
	n.Date = date

	if len(fields) > 0 {
		jsonValidationError(w, fields)
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) > MaxImages {
		jsonError(w, http.StatusBadRequest, "at most 5 images allowed")
		return
	}
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			jsonError(w, http.StatusBadRequest, "unreadable image attachment")
			return
		}
		name, err := imaging.SaveUpload(file, h.UploadsDir)
		file.Close()
		if err != nil {
			jsonError(w, http.StatusBadRequest, "image must be JPEG or PNG")
			return
		}
		n.Images = append(n.Images, "/uploads/"+name)
	}

	item, err := store.CreateItem(r.Context(), h.DB, n)
	if err != nil {
		slog.Error("creating item", "error", err)
		jsonError(w, http.StatusInternalServerError, "Server error")
		return
	}

	// Match suggestions are best-effort: a failure here never fails
	// the report itself.
	if n, err := store.SuggestMatches(r.Context(), h.DB, item.ID); err != nil {
		slog.Error("suggesting matches", "item", item.ID, "error", err)
	} else if n > 0 {
		slog.Info("match suggestions queued", "item", item.ID, "matches", n)
		item, err = store.GetItem(r.Context(), h.DB, item.ID)
		if err != nil || item == nil {
			jsonError(w, http.StatusInternalServerError, "Server error")
			return
		}
	}

	slog.Info("item reported", "item", item.ID, "type", item.Type, "reporter", claims.UserID)
	jsonResponse(w, http.StatusCreated, item)
}

// List handles GET /api/items with type/category/status/search filters
// and page/limit pagination.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	filter := store.ListFilter{
		Type:     q.Get("type"),
		Category: q.Get("category"),
		Status:   q.Get("status"),
		Search:   q.Get("search"),
		Page:     page,
		Limit:    limit,
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 10
	}

	items, total, err := store.ListItems(r.Context(), h.DB, filter)
	if err != nil {
		slog.Error("listing items", "error", err)
		jsonError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if items == nil {
		items = []model.Item{}
	}

	jsonResponse(w, http.StatusOK, listResponse{
		Items:       items,
		TotalPages:  (total + filter.Limit - 1) / filter.Limit,
		CurrentPage: filter.Page,
		Total:       total,
	})
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("getting item", "item", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "Item not found")
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// Claim handles POST /api/items/{id}/claim. The claim is persisted with
// its email notification in one transaction; the realtime push happens
// after commit and can never fail the request.
func (h *ItemsHandler) Claim(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req claimRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := store.SubmitClaim(r.Context(), h.DB, id, claims.UserID, req.Description)
	switch {
	case errors.Is(err, store.ErrDuplicateClaim):
		jsonError(w, http.StatusBadRequest, "You have already claimed this item")
		return
	case errors.Is(err, store.ErrOwnClaim):
		jsonError(w, http.StatusBadRequest, "You cannot claim your own item")
		return
	case errors.Is(err, store.ErrItemNotActive):
		jsonError(w, http.StatusBadRequest, "Item is no longer active")
		return
	case err != nil:
		slog.Error("submitting claim", "item", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "Server error")
		return
	case result == nil:
		jsonError(w, http.StatusNotFound, "Item not found")
		return
	}

	h.Hub.Publish(result.ReporterID, "new-claim", map[string]any{
		"itemId":      id,
		"itemTitle":   result.ItemTitle,
		"claimerName": result.ClaimerName,
	})

	slog.Info("claim submitted", "item", id, "claimer", claims.UserID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "Claim submitted successfully"})
}

// Matches handles GET /api/items/{id}/matches: up to five active
// counterpart reports ranked by text relevance.
func (h *ItemsHandler) Matches(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("getting item for matches", "item", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "Item not found")
		return
	}

	matches, err := store.FindMatches(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("finding matches", "item", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if matches == nil {
		matches = []model.Item{}
	}

	jsonResponse(w, http.StatusOK, matches)
}

// DecideClaim handles PUT /api/items/{id}/claims/{claimId}. Only the
// item's reporter or an admin may approve or reject a pending claim.
func (h *ItemsHandler) DecideClaim(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	itemID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	claimID, err := strconv.ParseInt(r.PathValue("claimId"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid claim id")
		return
	}

	var req claimDecisionRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status != model.ClaimApproved && req.Status != model.ClaimRejected {
		jsonError(w, http.StatusBadRequest, "status must be approved or rejected")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, itemID)
	if err != nil {
		slog.Error("getting item for claim decision", "item", itemID, "error", err)
		jsonError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "Item not found")
		return
	}
	if item.ReporterID != claims.UserID && !model.RoleAtLeast(claims.Role, model.RoleAdmin) {
		jsonError(w, http.StatusForbidden, "Only the reporter can decide claims on this item")
		return
	}

	if req.Status == model.ClaimApproved {
		updated, err := store.ApproveClaim(r.Context(), h.DB, itemID, claimID)
		switch {
		case errors.Is(err, store.ErrClaimNotPending):
			jsonError(w, http.StatusBadRequest, "Claim has already been decided")
			return
		case errors.Is(err, store.ErrBadTransition):
			jsonError(w, http.StatusBadRequest, "Item can no longer be claimed")
			return
		case err != nil:
			slog.Error("approving claim", "item", itemID, "claim", claimID, "error", err)
			jsonError(w, http.StatusInternalServerError, "Server error")
			return
		case updated == nil:
			jsonError(w, http.StatusNotFound, "Claim not found")
			return
		}
		slog.Info("claim approved", "item", itemID, "claim", claimID, "by", claims.UserID)
		jsonResponse(w, http.StatusOK, updated)
		return
	}

	rejected, err := store.RejectClaim(r.Context(), h.DB, itemID, claimID)
	switch {
	case errors.Is(err, store.ErrClaimNotPending):
		jsonError(w, http.StatusBadRequest, "Claim has already been decided")
		return
	case err != nil:
		slog.Error("rejecting claim", "item", itemID, "claim", claimID, "error", err)
		jsonError(w, http.StatusInternalServerError, "Server error")
		return
	case rejected == nil:
		jsonError(w, http.StatusNotFound, "Claim not found")
		return
	}
	slog.Info("claim rejected", "item", itemID, "claim", claimID, "by", claims.UserID)
	jsonResponse(w, http.StatusOK, rejected)
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
