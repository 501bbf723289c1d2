package balance

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tallyapp/tally/internal/ledger"
)

// Repository reads net positions. Zero-balance members appear with net 0;
// the COALESCE join distinguishes them from non-members, who are absent.
type Repository interface {
	GetGroupBalances(ctx context.Context, groupID int64) ([]*MemberBalance, error)
	GetMemberBalance(ctx context.Context, groupID, userID int64) (*MemberBalance, error)
	RecomputeGroup(ctx context.Context, groupID int64) (ledger.Balances, error)
}

type postgresRepository struct {
	db *sql.DB
}

// NewRepository creates a new balance repository
func NewRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

const memberBalanceQuery = `
	SELECT gm.group_id, gm.user_id, u.name, u.username,
	       COALESCE(b.net, 0), COALESCE(b.updated_at, gm.joined_at)
	FROM group_memberships gm
	JOIN users u ON gm.user_id = u.id
	LEFT JOIN balances b ON b.group_id = gm.group_id AND b.user_id = gm.user_id
`

// GetGroupBalances retrieves every member's net position, including members
// with no ledger activity yet
func (r *postgresRepository) GetGroupBalances(ctx context.Context, groupID int64) ([]*MemberBalance, error) {
	rows, err := r.db.QueryContext(ctx,
		memberBalanceQuery+` WHERE gm.group_id = $1 ORDER BY gm.user_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group balances: %w", err)
	}
	defer rows.Close()

	var balances []*MemberBalance
	for rows.Next() {
		b := &MemberBalance{}
		if err := rows.Scan(&b.GroupID, &b.UserID, &b.Name, &b.Username, &b.Net, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// GetMemberBalance retrieves one member's net position, nil if the user is
// not a member of the group
func (r *postgresRepository) GetMemberBalance(ctx context.Context, groupID, userID int64) (*MemberBalance, error) {
	b := &MemberBalance{}
	err := r.db.QueryRowContext(ctx,
		memberBalanceQuery+` WHERE gm.group_id = $1 AND gm.user_id = $2`, groupID, userID,
	).Scan(&b.GroupID, &b.UserID, &b.Name, &b.Username, &b.Net, &b.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member balance: %w", err)
	}
	return b, nil
}

// RecomputeGroup derives every net position from the ledger rows alone,
// ignoring the materialized balances table
func (r *postgresRepository) RecomputeGroup(ctx context.Context, groupID int64) (ledger.Balances, error) {
	balances := make(ledger.Balances)

	rows, err := r.db.QueryContext(ctx, `
		SELECT e.payer_id, e.amount, ep.user_id, ep.share_amount
		FROM expenses e
		JOIN expense_participants ep ON ep.expense_id = e.id
		WHERE e.group_id = $1
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to read expenses: %w", err)
	}
	defer rows.Close()

	// The payer credit is amount spread over the participant rows, so add
	// each share to the payer rather than the full amount per row.
	for rows.Next() {
		var payerID, amount, userID, share int64
		if err := rows.Scan(&payerID, &amount, &userID, &share); err != nil {
			return nil, fmt.Errorf("failed to scan expense row: %w", err)
		}
		balances[payerID] += share
		balances[userID] -= share
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	srows, err := r.db.QueryContext(ctx, `
		SELECT from_user_id, to_user_id, amount
		FROM settlements
		WHERE group_id = $1
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to read settlements: %w", err)
	}
	defer srows.Close()

	for srows.Next() {
		var s ledger.Settlement
		if err := srows.Scan(&s.FromUserID, &s.ToUserID, &s.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan settlement row: %w", err)
		}
		balances.AddSettlement(s)
	}
	return balances, srows.Err()
}
