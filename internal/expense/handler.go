package expense

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tallyapp/tally/internal/ledger"
	"github.com/tallyapp/tally/pkg/middleware"
	"github.com/tallyapp/tally/pkg/money"
	"github.com/tallyapp/tally/pkg/response"
)

// MembershipChecker answers whether a user belongs to a group
type MembershipChecker interface {
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)
}

// Handler handles HTTP requests for expense operations
type Handler struct {
	service *Service
	members MembershipChecker
}

// NewHandler creates a new expense handler
func NewHandler(service *Service, members MembershipChecker) *Handler {
	return &Handler{service: service, members: members}
}

// Routes returns the router for expense endpoints
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
	case errors.Is(err, ErrExpenseNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotPayer):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrUnknownMember),
		errors.Is(err, ErrInvalidDate),
		errors.Is(err, ErrParticipantsRequired),
		errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, money.ErrTooPrecise),
		isSplitError(err):
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w, "Request failed")
	}
}

func isSplitError(err error) bool {
	return errors.Is(err, ledger.ErrInvalidAmount) ||
		errors.Is(err, ledger.ErrNoParticipants) ||
		errors.Is(err, ledger.ErrDuplicateParticipant) ||
		errors.Is(err, ledger.ErrPercentageMismatch) ||
		errors.Is(err, ledger.ErrMissingPercentage) ||
		errors.Is(err, ledger.ErrMissingShare) ||
		errors.Is(err, ledger.ErrNegativeShare) ||
		errors.Is(err, ledger.ErrShareSumMismatch) ||
		errors.Is(err, ledger.ErrUnknownMethod)
}

// Create handles POST /expenses
// @Summary      Create an expense
// @Description  Record an expense and split it among participants; an optional Idempotency-Key header makes retries safe
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key header string false "UUID to deduplicate retried requests"
// @Param        request body CreateExpenseRequest true "Expense creation request"
// @Success      201 {object} response.Envelope{data=ExpenseResponse}
// @Failure      400 {object} response.Envelope
// @Router       /expenses [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey != "" {
		if _, err := uuid.Parse(idempotencyKey); err != nil {
			response.BadRequest(w, "Idempotency-Key must be a valid UUID")
			return
		}
	}

	var req CreateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if req.GroupID == 0 || req.Description == "" || req.Amount == "" || req.SplitMethod == "" {
		response.BadRequest(w, "group_id, description, amount, and split_method are required")
		return
	}

	created, err := h.service.CreateExpense(r.Context(), userID, &req, idempotencyKey)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, created.ToResponse())
}

// GetByID handles GET /expenses/{id}
// @Summary      Get an expense
// @Description  Get an expense with its participant shares
// @Tags         expenses
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Expense ID"
// @Success      200 {object} response.Envelope{data=ExpenseResponse}
// @Failure      404 {object} response.Envelope
// @Router       /expenses/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid expense ID")
		return
	}

	e, err := h.service.GetExpenseByID(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if ok, err := h.members.IsMember(r.Context(), e.Expense.GroupID, userID); err != nil {
		response.InternalError(w, "Request failed")
		return
	} else if !ok {
		response.Forbidden(w, "Not a member of this group")
		return
	}

	response.JSON(w, http.StatusOK, e.ToResponse())
}

// ListByGroup handles GET /expenses/group/{groupId}
// @Summary      List group expenses
// @Description  List expenses of a group, newest first
// @Tags         expenses
// @Produce      json
// @Security     BearerAuth
// @Param        groupId path int true "Group ID"
// @Param        page query int false "Page number (default 1)"
// @Param        per_page query int false "Items per page (default 20, max 100)"
// @Success      200 {object} response.Envelope{data=[]ExpenseResponse}
// @Failure      403 {object} response.Envelope
// @Router       /expenses/group/{groupId} [get]
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

	expenses, total, err := h.service.ListExpensesByGroupID(r.Context(), groupID, page, perPage)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	responses := make([]*ExpenseResponse, len(expenses))
	for i, e := range expenses {
		responses[i] = e.ToResponse()
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	response.JSONWithMeta(w, http.StatusOK, responses, response.NewMeta(page, perPage, total))
}

// Update handles PUT /expenses/{id}
// @Summary      Update an expense
// @Description  Update an expense; only its payer may do so, and amount or split changes replace every share
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Expense ID"
// @Param        request body UpdateExpenseRequest true "Expense update request"
// @Success      200 {object} response.Envelope{data=ExpenseResponse}
// @Failure      403 {object} response.Envelope
// @Router       /expenses/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid expense ID")
		return
	}

	var req UpdateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	updated, err := h.service.UpdateExpense(r.Context(), id, userID, &req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, updated.ToResponse())
}

// Delete handles DELETE /expenses/{id}
// @Summary      Delete an expense
// @Description  Delete an expense and reverse its effect on group balances; only its payer may do so
// @Tags         expenses
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Expense ID"
// @Success      200 {object} response.Envelope
// @Failure      403 {object} response.Envelope
// @Router       /expenses/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid expense ID")
		return
	}

	if err := h.service.DeleteExpense(r.Context(), id, userID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Expense deleted successfully"})
}
