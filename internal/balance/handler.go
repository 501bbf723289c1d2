package balance

import (
	"context"
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

// Handler handles HTTP requests for balance queries
type Handler struct {
	service *Service
	members MembershipChecker
}

// NewHandler creates a new balance handler
func NewHandler(service *Service, members MembershipChecker) *Handler {
	return &Handler{service: service, members: members}
}

// Routes returns the router for balance endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/group/{groupId}", h.GetGroupBalances)
	r.Get("/group/{groupId}/user/{userId}", h.GetMemberBalance)
	r.Get("/group/{groupId}/settle-up", h.GetSettleUpPlan)
	r.Get("/group/{groupId}/audit", h.Audit)

	return r
}

// requireMember parses the groupId param and rejects non-members. It writes
// the error response itself and reports whether the caller may proceed.
func (h *Handler) requireMember(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return 0, false
	}

	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return 0, false
	}

	member, err := h.members.IsMember(r.Context(), groupID, userID)
	if err != nil {
		response.InternalError(w, "Request failed")
		return 0, false
	}
	if !member {
		response.Forbidden(w, "Not a member of this group")
		return 0, false
	}
	return groupID, true
}

// GetGroupBalances handles GET /balances/group/{groupId}
// @Summary      Get group balances
// @Description  Get every member's net position; positive means the group owes them
// @Tags         balances
// @Produce      json
// @Security     BearerAuth
// @Param        groupId path int true "Group ID"
// @Success      200 {object} response.Envelope{data=[]BalanceResponse}
// @Failure      403 {object} response.Envelope
// @Router       /balances/group/{groupId} [get]
func (h *Handler) GetGroupBalances(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.requireMember(w, r)
	if !ok {
		return
	}

	balances, err := h.service.GetGroupBalances(r.Context(), groupID)
	if err != nil {
		response.InternalError(w, "Request failed")
		return
	}

	responses := make([]*BalanceResponse, len(balances))
	for i, b := range balances {
		responses[i] = b.ToResponse()
	}
	response.JSON(w, http.StatusOK, responses)
}

// GetMemberBalance handles GET /balances/group/{groupId}/user/{userId}
// @Summary      Get a member's balance
// @Description  Get one member's net position; a settled member reads 0.00, a non-member is a 404
// @Tags         balances
// @Produce      json
// @Security     BearerAuth
// @Param        groupId path int true "Group ID"
// @Param        userId path int true "User ID"
// @Success      200 {object} response.Envelope{data=BalanceResponse}
// @Failure      404 {object} response.Envelope
// @Router       /balances/group/{groupId}/user/{userId} [get]
func (h *Handler) GetMemberBalance(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.requireMember(w, r)
	if !ok {
		return
	}

	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	b, err := h.service.GetMemberBalance(r.Context(), groupID, userID)
	if err != nil {
		if errors.Is(err, ErrNotGroupMember) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Request failed")
		return
	}

	response.JSON(w, http.StatusOK, b.ToResponse())
}

// GetSettleUpPlan handles GET /balances/group/{groupId}/settle-up
// @Summary      Get a settle-up plan
// @Description  Get a minimal list of repayments that would settle the whole group
// @Tags         balances
// @Produce      json
// @Security     BearerAuth
// @Param        groupId path int true "Group ID"
// @Success      200 {object} response.Envelope{data=[]TransferResponse}
// @Failure      403 {object} response.Envelope
// @Router       /balances/group/{groupId}/settle-up [get]
func (h *Handler) GetSettleUpPlan(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.requireMember(w, r)
	if !ok {
		return
	}

	transfers, err := h.service.GetSuggestedTransfers(r.Context(), groupID)
	if err != nil {
		response.InternalError(w, "Request failed")
		return
	}

	responses := make([]*TransferResponse, len(transfers))
	for i, t := range transfers {
		responses[i] = &TransferResponse{
			FromUserID: t.FromUserID,
			ToUserID:   t.ToUserID,
			Amount:     money.Format(t.Amount),
		}
	}
	response.JSON(w, http.StatusOK, responses)
}

// Audit handles GET /balances/group/{groupId}/audit
// @Summary      Audit group balances
// @Description  Recompute balances from the ledger and report any cached value that disagrees
// @Tags         balances
// @Produce      json
// @Security     BearerAuth
// @Param        groupId path int true "Group ID"
// @Success      200 {object} response.Envelope{data=AuditResponse}
// @Failure      403 {object} response.Envelope
// @Router       /balances/group/{groupId}/audit [get]
func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.requireMember(w, r)
	if !ok {
		return
	}

	result, err := h.service.Audit(r.Context(), groupID)
	if err != nil {
		response.InternalError(w, "Request failed")
		return
	}

	response.JSON(w, http.StatusOK, result)
}
