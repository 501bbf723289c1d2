package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tallyapp/tally/pkg/middleware"
	"github.com/tallyapp/tally/pkg/money"
	"github.com/tallyapp/tally/pkg/response"
)

// MembershipChecker answers whether a user belongs to a group
type MembershipChecker interface {
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)
}

// Handler handles HTTP requests for settlement operations
type Handler struct {
	service *Service
	members MembershipChecker
}

// NewHandler creates a new settlement handler
func NewHandler(service *Service, members MembershipChecker) *Handler {
	return &Handler{service: service, members: members}
}

// Routes returns the router for settlement endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/{id}", h.GetByID)
	r.Get("/group/{groupId}", h.ListByGroup)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	return r
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSettlementNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotRecorder):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrUnknownMember),
		errors.Is(err, ErrCannotSettleSelf),
		errors.Is(err, ErrInvalidDate),
		errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, money.ErrTooPrecise):
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w, "Request failed")
	}
}

// Create handles POST /settlements
// @Summary      Record a settlement
// @Description  Record a repayment from one group member to another
// @Tags         settlements
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateSettlementRequest true "Settlement creation request"
// @Success      201 {object} response.Envelope{data=SettlementResponse}
// @Failure      400 {object} response.Envelope
// @Router       /settlements [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	var req CreateSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if req.GroupID == 0 || req.ToUserID == 0 || req.Amount == "" {
		response.BadRequest(w, "group_id, to_user_id, and amount are required")
		return
	}

	created, err := h.service.CreateSettlement(r.Context(), userID, &req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, created.ToResponse())
}

// GetByID handles GET /settlements/{id}
// @Summary      Get a settlement
// @Tags         settlements
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Settlement ID"
// @Success      200 {object} response.Envelope{data=SettlementResponse}
// @Failure      404 {object} response.Envelope
// @Router       /settlements/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid settlement ID")
		return
	}

	s, err := h.service.GetSettlementByID(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if ok, err := h.members.IsMember(r.Context(), s.GroupID, userID); err != nil {
		response.InternalError(w, "Request failed")
		return
	} else if !ok {
		response.Forbidden(w, "Not a member of this group")
		return
	}

	response.JSON(w, http.StatusOK, s.ToResponse())
}

// ListByGroup handles GET /settlements/group/{groupId}
// @Summary      List group settlements
// @Description  List settlements of a group, newest first
// @Tags         settlements
// @Produce      json
// @Security     BearerAuth
// @Param        groupId path int true "Group ID"
// @Param        page query int false "Page number (default 1)"
// @Param        per_page query int false "Items per page (default 20, max 100)"
// @Success      200 {object} response.Envelope{data=[]SettlementResponse}
// @Failure      403 {object} response.Envelope
// @Router       /settlements/group/{groupId} [get]
func (h *Handler) ListByGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	if ok, err := h.members.IsMember(r.Context(), groupID, userID); err != nil {
		response.InternalError(w, "Request failed")
		return
	} else if !ok {
		response.Forbidden(w, "Not a member of this group")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	settlements, total, err := h.service.ListSettlementsByGroupID(r.Context(), groupID, page, perPage)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	responses := make([]*SettlementResponse, len(settlements))
	for i, s := range settlements {
		responses[i] = s.ToResponse()
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	response.JSONWithMeta(w, http.StatusOK, responses, response.NewMeta(page, perPage, total))
}

// Update handles PUT /settlements/{id}
// @Summary      Correct a settlement
// @Description  Correct the amount, note, or date of a settlement; the parties cannot change
// @Tags         settlements
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Settlement ID"
// @Param        request body UpdateSettlementRequest true "Settlement update request"
// @Success      200 {object} response.Envelope{data=SettlementResponse}
// @Failure      403 {object} response.Envelope
// @Router       /settlements/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid settlement ID")
		return
	}

	var req UpdateSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	updated, err := h.service.UpdateSettlement(r.Context(), id, userID, &req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, updated.ToResponse())
}

// Delete handles DELETE /settlements/{id}
// @Summary      Delete a settlement
// @Description  Delete a settlement and reverse its effect on group balances
// @Tags         settlements
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Settlement ID"
// @Success      200 {object} response.Envelope
// @Failure      403 {object} response.Envelope
// @Router       /settlements/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid settlement ID")
		return
	}

	if err := h.service.DeleteSettlement(r.Context(), id, userID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Settlement deleted successfully"})
}
