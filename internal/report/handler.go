package report

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tallyapp/tally/pkg/middleware"
	"github.com/tallyapp/tally/pkg/money"
	"github.com/tallyapp/tally/pkg/response"
)

// Handler handles HTTP requests for reports
type Handler struct {
	service *Service
}

// NewHandler creates a new report handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for report endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/group/{groupId}/statement", h.GroupStatement)

	return r
}

// StatementResponse is the JSON rendering of a group statement
type StatementResponse struct {
	GroupID    int64            `json:"group_id"`
	GroupName  string           `json:"group_name"`
	TotalSpent string           `json:"total_spent"`
	TotalCount int              `json:"expense_count"`
	Balances   []*BalanceEntry  `json:"balances"`
	Transfers  []*TransferEntry `json:"settle_up"`
	Expenses   []*ExpenseEntry  `json:"expenses"`
}

// BalanceEntry is one member's net position in a statement
type BalanceEntry struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Net    string `json:"net"`
}

// TransferEntry is one suggested repayment in a statement
type TransferEntry struct {
	FromUserID int64  `json:"from_user_id"`
	ToUserID   int64  `json:"to_user_id"`
	Amount     string `json:"amount"`
}

// ExpenseEntry is one expense row in a statement
type ExpenseEntry struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	PayerName   string `json:"payer_name"`
	Amount      string `json:"amount"`
}

func toStatementResponse(st *Statement) *StatementResponse {
	resp := &StatementResponse{
		GroupID:    st.Group.ID,
		GroupName:  st.Group.Name,
		TotalSpent: money.Format(st.TotalSpent),
		TotalCount: st.TotalCount,
	}
	for _, b := range st.Balances {
		resp.Balances = append(resp.Balances, &BalanceEntry{
			UserID: b.UserID,
			Name:   b.Name,
			Net:    money.Format(b.Net),
		})
	}
	for _, t := range st.Transfers {
		resp.Transfers = append(resp.Transfers, &TransferEntry{
			FromUserID: t.FromUserID,
			ToUserID:   t.ToUserID,
			Amount:     money.Format(t.Amount),
		})
	}
	for _, e := range st.Expenses {
		resp.Expenses = append(resp.Expenses, &ExpenseEntry{
			ID:          e.ID,
			Date:        e.Date.Format("2006-01-02"),
			Description: e.Description,
			PayerName:   e.PayerName,
			Amount:      money.Format(e.Amount),
		})
	}
	return resp
}

// GroupStatement handles GET /reports/group/{groupId}/statement
// @Summary      Get a group statement
// @Description  Get a full ledger snapshot for a group, as JSON or a PDF download via ?format=pdf
// @Tags         reports
// @Produce      json
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        groupId path int true "Group ID"
// @Param        format query string false "Output format: json (default) or pdf"
// @Success      200 {object} response.Envelope{data=StatementResponse}
// @Failure      403 {object} response.Envelope
// @Router       /reports/group/{groupId}/statement [get]
func (h *Handler) GroupStatement(w http.ResponseWriter, r *http.Request) {
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

	member, err := h.service.groups.IsMember(r.Context(), groupID, userID)
	if err != nil {
		response.InternalError(w, "Request failed")
		return
	}
	if !member {
		response.Forbidden(w, "Not a member of this group")
		return
	}

	st, err := h.service.GroupStatement(r.Context(), groupID)
	if err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Request failed")
		return
	}

	if r.URL.Query().Get("format") == "pdf" {
		data, err := RenderPDF(st)
		if err != nil {
			response.InternalError(w, "Failed to render statement")
			return
		}
		filename := fmt.Sprintf("statement-group-%d.pdf", groupID)
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		w.WriteHeader(http.StatusOK)
		w.Write(data)
		return
	}

	response.JSON(w, http.StatusOK, toStatementResponse(st))
}
