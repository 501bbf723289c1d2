package settlement

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/tallyapp/tally/internal/balance"
	"github.com/tallyapp/tally/internal/ledger"
)

// Repository defines settlement persistence. Like expense writes, every
// mutation applies its balance deltas inside the same transaction.
type Repository interface {
	Create(ctx context.Context, s *Settlement) (*Settlement, error)
	GetByID(ctx context.Context, id int64) (*Settlement, error)
	ListByGroupID(ctx context.Context, groupID int64, limit, offset int) ([]*Settlement, int, error)
	Update(ctx context.Context, s *Settlement) (*Settlement, error)
	Delete(ctx context.Context, id int64) error
}

type postgresRepository struct {
	db *sql.DB
}

// NewRepository creates a new settlement repository
func NewRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

func verifyMembers(ctx context.Context, tx *sql.Tx, groupID int64, userIDs []int64) error {
	var count int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT user_id)
		FROM group_memberships
		WHERE group_id = $1 AND user_id = ANY($2)
	`, groupID, pq.Array(userIDs)).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to verify group members: %w", err)
	}
	if count != len(userIDs) {
		return ErrUnknownMember
	}
	return nil
}

// Create records the settlement and shifts both parties' balances
// in one transaction serialized per group
func (r *postgresRepository) Create(ctx context.Context, s *Settlement) (*Settlement, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := balance.LockGroup(ctx, tx, s.GroupID); err != nil {
		return nil, err
	}
	if err := verifyMembers(ctx, tx, s.GroupID, []int64{s.FromUserID, s.ToUserID}); err != nil {
		return nil, err
	}

	created := &Settlement{}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO settlements (group_id, from_user_id, to_user_id, amount, note, date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, group_id, from_user_id, to_user_id, amount, note, date, created_at
	`, s.GroupID, s.FromUserID, s.ToUserID, s.Amount, s.Note, s.Date).Scan(
		&created.ID, &created.GroupID, &created.FromUserID, &created.ToUserID,
		&created.Amount, &created.Note, &created.Date, &created.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create settlement: %w", err)
	}

	deltas := make(ledger.Balances)
	deltas.AddSettlement(created.LedgerSettlement())
	if err := balance.ApplyDeltas(ctx, tx, created.GroupID, deltas); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settlement: %w", err)
	}
	return created, nil
}

// GetByID retrieves a settlement with party names, nil if absent
func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*Settlement, error) {
	s := &Settlement{}
	err := r.db.QueryRowContext(ctx, `
		SELECT s.id, s.group_id, s.from_user_id, s.to_user_id, s.amount, s.note,
		       s.date, s.created_at, uf.name, ut.name
		FROM settlements s
		JOIN users uf ON s.from_user_id = uf.id
		JOIN users ut ON s.to_user_id = ut.id
		WHERE s.id = $1
	`, id).Scan(
		&s.ID, &s.GroupID, &s.FromUserID, &s.ToUserID, &s.Amount, &s.Note,
		&s.Date, &s.CreatedAt, &s.FromName, &s.ToName,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	return s, nil
}

// ListByGroupID retrieves settlements for a group with a total count
func (r *postgresRepository) ListByGroupID(ctx context.Context, groupID int64, limit, offset int) ([]*Settlement, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM settlements WHERE group_id = $1`, groupID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count settlements: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.group_id, s.from_user_id, s.to_user_id, s.amount, s.note,
		       s.date, s.created_at, uf.name, ut.name
		FROM settlements s
		JOIN users uf ON s.from_user_id = uf.id
		JOIN users ut ON s.to_user_id = ut.id
		WHERE s.group_id = $1
		ORDER BY s.date DESC, s.id DESC
		LIMIT $2 OFFSET $3
	`, groupID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []*Settlement
	for rows.Next() {
		s := &Settlement{}
		if err := rows.Scan(
			&s.ID, &s.GroupID, &s.FromUserID, &s.ToUserID, &s.Amount, &s.Note,
			&s.Date, &s.CreatedAt, &s.FromName, &s.ToName,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, s)
	}
	return settlements, total, rows.Err()
}

// Update corrects a settlement, reconciling the balance difference
// between the old and new amounts
func (r *postgresRepository) Update(ctx context.Context, s *Settlement) (*Settlement, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := balance.LockGroup(ctx, tx, s.GroupID); err != nil {
		return nil, err
	}

	old := &Settlement{}
	err = tx.QueryRowContext(ctx, `
		SELECT id, group_id, from_user_id, to_user_id, amount
		FROM settlements
		WHERE id = $1
	`, s.ID).Scan(&old.ID, &old.GroupID, &old.FromUserID, &old.ToUserID, &old.Amount)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSettlementNotFound
		}
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}

	updated := &Settlement{}
	err = tx.QueryRowContext(ctx, `
		UPDATE settlements
		SET amount = $2, note = $3, date = $4
		WHERE id = $1
		RETURNING id, group_id, from_user_id, to_user_id, amount, note, date, created_at
	`, s.ID, s.Amount, s.Note, s.Date).Scan(
		&updated.ID, &updated.GroupID, &updated.FromUserID, &updated.ToUserID,
		&updated.Amount, &updated.Note, &updated.Date, &updated.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update settlement: %w", err)
	}

	deltas := make(ledger.Balances)
	deltas.RemoveSettlement(old.LedgerSettlement())
	deltas.AddSettlement(updated.LedgerSettlement())
	if err := balance.ApplyDeltas(ctx, tx, updated.GroupID, deltas); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settlement update: %w", err)
	}
	return updated, nil
}

// Delete removes a settlement and reverses its balance contribution
func (r *postgresRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var groupID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT group_id FROM settlements WHERE id = $1`, id,
	).Scan(&groupID); err != nil {
		if err == sql.ErrNoRows {
			return ErrSettlementNotFound
		}
		return fmt.Errorf("failed to get settlement: %w", err)
	}

	if err := balance.LockGroup(ctx, tx, groupID); err != nil {
		return err
	}

	old := &Settlement{}
	err = tx.QueryRowContext(ctx, `
		SELECT id, group_id, from_user_id, to_user_id, amount
		FROM settlements
		WHERE id = $1
	`, id).Scan(&old.ID, &old.GroupID, &old.FromUserID, &old.ToUserID, &old.Amount)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrSettlementNotFound
		}
		return fmt.Errorf("failed to get settlement: %w", err)
	}

	deltas := make(ledger.Balances)
	deltas.RemoveSettlement(old.LedgerSettlement())
	if err := balance.ApplyDeltas(ctx, tx, groupID, deltas); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM settlements WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete settlement: %w", err)
	}

	return tx.Commit()
}
