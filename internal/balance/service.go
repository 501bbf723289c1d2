package balance

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tallyapp/tally/internal/ledger"
	"github.com/tallyapp/tally/pkg/money"
)

// Common errors
var (
	ErrNotGroupMember = errors.New("user is not a member of this group")
)

// Service reads net positions and derives settle-up plans from them
type Service struct {
	repo Repository
	log  *slog.Logger
}

// NewService creates a new balance service
func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// GetGroupBalances retrieves every member's net position
func (s *Service) GetGroupBalances(ctx context.Context, groupID int64) ([]*MemberBalance, error) {
	return s.repo.GetGroupBalances(ctx, groupID)
}

// GetMemberBalance retrieves one member's net position. A settled member
// returns net 0; a user outside the group returns ErrNotGroupMember.
func (s *Service) GetMemberBalance(ctx context.Context, groupID, userID int64) (*MemberBalance, error) {
	b, err := s.repo.GetMemberBalance(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotGroupMember
	}
	return b, nil
}

// GetSuggestedTransfers computes a minimal repayment plan that settles the
// group: at most one fewer transfers than there are unsettled members.
func (s *Service) GetSuggestedTransfers(ctx context.Context, groupID int64) ([]ledger.Transfer, error) {
	members, err := s.repo.GetGroupBalances(ctx, groupID)
	if err != nil {
		return nil, err
	}

	balances := make(ledger.Balances, len(members))
	for _, m := range members {
		balances[m.UserID] = m.Net
	}
	return ledger.Simplify(balances), nil
}

// Audit recomputes every net position from the ledger rows and reports any
// member whose cached balance disagrees
func (s *Service) Audit(ctx context.Context, groupID int64) (*AuditResponse, error) {
	members, err := s.repo.GetGroupBalances(ctx, groupID)
	if err != nil {
		return nil, err
	}
	recomputed, err := s.repo.RecomputeGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	result := &AuditResponse{GroupID: groupID, Consistent: true}
	for _, m := range members {
		want := recomputed[m.UserID]
		if m.Net != want {
			result.Consistent = false
			result.Discrepancies = append(result.Discrepancies, &DiscrepancyResponse{
				UserID:     m.UserID,
				Cached:     money.Format(m.Net),
				Recomputed: money.Format(want),
			})
		}
	}
	if !result.Consistent {
		s.log.Warn("balance audit found discrepancies",
			"group_id", groupID,
			"count", len(result.Discrepancies))
	}
	return result, nil
}
