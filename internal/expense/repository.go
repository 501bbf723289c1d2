package expense

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/tallyapp/tally/internal/balance"
	"github.com/tallyapp/tally/internal/ledger"
)

// Repository defines expense persistence. Implementations must keep the
// materialized balances equal to a recomputation over the ledger rows:
// every write applies its balance deltas in the same transaction.
type Repository interface {
	Create(ctx context.Context, e *Expense, shares []ledger.Share, idempotencyKey string) (*ExpenseWithParticipants, error)
	GetByID(ctx context.Context, id int64) (*ExpenseWithParticipants, error)
	ListByGroupID(ctx context.Context, groupID int64, limit, offset int) ([]*Expense, int, error)
	Update(ctx context.Context, e *Expense, shares []ledger.Share) (*ExpenseWithParticipants, error)
	Delete(ctx context.Context, id int64) error
}

type postgresRepository struct {
	db *sql.DB
}

// NewRepository creates a new expense repository
func NewRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

// verifyMembers checks that the payer and every participant belong to the
// group; detecting unknown members is this layer's job, not the engine's.
func verifyMembers(ctx context.Context, tx *sql.Tx, groupID int64, userIDs []int64) error {
	query := `
		SELECT COUNT(DISTINCT user_id)
		FROM group_memberships
		WHERE group_id = $1 AND user_id = ANY($2)
	`
	unique := make(map[int64]struct{}, len(userIDs))
	for _, id := range userIDs {
		unique[id] = struct{}{}
	}
	ids := make([]int64, 0, len(unique))
	for id := range unique {
		ids = append(ids, id)
	}

	var count int
	if err := tx.QueryRowContext(ctx, query, groupID, pq.Array(ids)).Scan(&count); err != nil {
		return fmt.Errorf("failed to verify group members: %w", err)
	}
	if count != len(ids) {
		return ErrUnknownMember
	}
	return nil
}

func memberIDs(e *Expense, shares []ledger.Share) []int64 {
	ids := make([]int64, 0, len(shares)+1)
	ids = append(ids, e.PayerID)
	for _, s := range shares {
		ids = append(ids, s.UserID)
	}
	return ids
}

// Create inserts the expense, its participant rows, and the balance deltas
// in one transaction serialized per group. A repeated idempotency key
// returns the originally created expense.
func (r *postgresRepository) Create(ctx context.Context, e *Expense, shares []ledger.Share, idempotencyKey string) (*ExpenseWithParticipants, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := balance.LockGroup(ctx, tx, e.GroupID); err != nil {
		return nil, err
	}

	if idempotencyKey != "" {
		var existingID int64
		err := tx.QueryRowContext(ctx,
			`SELECT expense_id FROM expense_idempotency WHERE key = $1`, idempotencyKey,
		).Scan(&existingID)
		switch {
		case err == nil:
			if err := tx.Commit(); err != nil {
				return nil, err
			}
			return r.GetByID(ctx, existingID)
		case err != sql.ErrNoRows:
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
	}

	if err := verifyMembers(ctx, tx, e.GroupID, memberIDs(e, shares)); err != nil {
		return nil, err
	}

	created := &Expense{}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO expenses (group_id, payer_id, description, category, amount, split_method, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, group_id, payer_id, description, category, amount, split_method, date, created_at
	`, e.GroupID, e.PayerID, e.Description, e.Category, e.Amount, e.SplitMethod, e.Date).Scan(
		&created.ID, &created.GroupID, &created.PayerID, &created.Description,
		&created.Category, &created.Amount, &created.SplitMethod, &created.Date, &created.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}

	participants, err := insertParticipants(ctx, tx, created.ID, shares)
	if err != nil {
		return nil, err
	}

	result := &ExpenseWithParticipants{Expense: created, Participants: participants}
	deltas := make(ledger.Balances)
	deltas.AddExpense(result.LedgerExpense())
	if err := balance.ApplyDeltas(ctx, tx, created.GroupID, deltas); err != nil {
		return nil, err
	}

	if idempotencyKey != "" {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO expense_idempotency (key, expense_id) VALUES ($1, $2)`,
			idempotencyKey, created.ID,
		); err != nil {
			return nil, fmt.Errorf("failed to record idempotency key: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit expense: %w", err)
	}
	return result, nil
}

func insertParticipants(ctx context.Context, tx *sql.Tx, expenseID int64, shares []ledger.Share) ([]*Participant, error) {
	const query = `
		INSERT INTO expense_participants (expense_id, user_id, share_amount)
		VALUES ($1, $2, $3)
		RETURNING id, expense_id, user_id, share_amount
	`

	participants := make([]*Participant, len(shares))
	for i, s := range shares {
		p := &Participant{}
		if err := tx.QueryRowContext(ctx, query, expenseID, s.UserID, s.Amount).Scan(
			&p.ID, &p.ExpenseID, &p.UserID, &p.ShareAmount,
		); err != nil {
			return nil, fmt.Errorf("failed to create participant: %w", err)
		}
		participants[i] = p
	}
	return participants, nil
}

// GetByID retrieves an expense and its participants, nil if absent
func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*ExpenseWithParticipants, error) {
	e := &Expense{}
	err := r.db.QueryRowContext(ctx, `
		SELECT e.id, e.group_id, e.payer_id, e.description, e.category, e.amount,
		       e.split_method, e.date, e.created_at, u.name
		FROM expenses e
		JOIN users u ON e.payer_id = u.id
		WHERE e.id = $1
	`, id).Scan(
		&e.ID, &e.GroupID, &e.PayerID, &e.Description, &e.Category, &e.Amount,
		&e.SplitMethod, &e.Date, &e.CreatedAt, &e.PayerName,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	participants, err := r.participantsByExpenseID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ExpenseWithParticipants{Expense: e, Participants: participants}, nil
}

func (r *postgresRepository) participantsByExpenseID(ctx context.Context, expenseID int64) ([]*Participant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ep.id, ep.expense_id, ep.user_id, ep.share_amount, u.name
		FROM expense_participants ep
		JOIN users u ON ep.user_id = u.id
		WHERE ep.expense_id = $1
		ORDER BY ep.id
	`, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var participants []*Participant
	for rows.Next() {
		p := &Participant{}
		if err := rows.Scan(&p.ID, &p.ExpenseID, &p.UserID, &p.ShareAmount, &p.Name); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// ListByGroupID retrieves expenses for a group with a total count
func (r *postgresRepository) ListByGroupID(ctx context.Context, groupID int64, limit, offset int) ([]*Expense, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses WHERE group_id = $1`, groupID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count expenses: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.group_id, e.payer_id, e.description, e.category, e.amount,
		       e.split_method, e.date, e.created_at, u.name
		FROM expenses e
		JOIN users u ON e.payer_id = u.id
		WHERE e.group_id = $1
		ORDER BY e.date DESC, e.id DESC
		LIMIT $2 OFFSET $3
	`, groupID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*Expense
	for rows.Next() {
		e := &Expense{}
		if err := rows.Scan(
			&e.ID, &e.GroupID, &e.PayerID, &e.Description, &e.Category, &e.Amount,
			&e.SplitMethod, &e.Date, &e.CreatedAt, &e.PayerName,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, total, rows.Err()
}

// Update replaces the expense row and its whole participant set, reversing
// the old balance contribution and applying the new one atomically.
func (r *postgresRepository) Update(ctx context.Context, e *Expense, shares []ledger.Share) (*ExpenseWithParticipants, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := balance.LockGroup(ctx, tx, e.GroupID); err != nil {
		return nil, err
	}

	old, err := lockedExpense(ctx, tx, e.ID)
	if err != nil {
		return nil, err
	}
	if old == nil {
		return nil, ErrExpenseNotFound
	}

	if err := verifyMembers(ctx, tx, e.GroupID, memberIDs(e, shares)); err != nil {
		return nil, err
	}

	updated := &Expense{}
	err = tx.QueryRowContext(ctx, `
		UPDATE expenses
		SET description = $2, category = $3, amount = $4, split_method = $5, date = $6
		WHERE id = $1
		RETURNING id, group_id, payer_id, description, category, amount, split_method, date, created_at
	`, e.ID, e.Description, e.Category, e.Amount, e.SplitMethod, e.Date).Scan(
		&updated.ID, &updated.GroupID, &updated.PayerID, &updated.Description,
		&updated.Category, &updated.Amount, &updated.SplitMethod, &updated.Date, &updated.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM expense_participants WHERE expense_id = $1`, e.ID,
	); err != nil {
		return nil, fmt.Errorf("failed to clear participants: %w", err)
	}

	participants, err := insertParticipants(ctx, tx, e.ID, shares)
	if err != nil {
		return nil, err
	}

	result := &ExpenseWithParticipants{Expense: updated, Participants: participants}
	deltas := make(ledger.Balances)
	deltas.RemoveExpense(old.LedgerExpense())
	deltas.AddExpense(result.LedgerExpense())
	if err := balance.ApplyDeltas(ctx, tx, updated.GroupID, deltas); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit expense update: %w", err)
	}
	return result, nil
}

// Delete removes the expense and reverses its balance contribution
func (r *postgresRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var groupID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT group_id FROM expenses WHERE id = $1`, id,
	).Scan(&groupID); err != nil {
		if err == sql.ErrNoRows {
			return ErrExpenseNotFound
		}
		return fmt.Errorf("failed to get expense: %w", err)
	}

	if err := balance.LockGroup(ctx, tx, groupID); err != nil {
		return err
	}

	old, err := lockedExpense(ctx, tx, id)
	if err != nil {
		return err
	}
	if old == nil {
		return ErrExpenseNotFound
	}

	deltas := make(ledger.Balances)
	deltas.RemoveExpense(old.LedgerExpense())
	if err := balance.ApplyDeltas(ctx, tx, groupID, deltas); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM expense_participants WHERE expense_id = $1`, id,
	); err != nil {
		return fmt.Errorf("failed to delete participants: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}

	return tx.Commit()
}

// lockedExpense reads an expense and its shares inside the caller's
// transaction, after the group lock is held
func lockedExpense(ctx context.Context, tx *sql.Tx, id int64) (*ExpenseWithParticipants, error) {
	e := &Expense{}
	err := tx.QueryRowContext(ctx, `
		SELECT id, group_id, payer_id, description, category, amount, split_method, date, created_at
		FROM expenses
		WHERE id = $1
	`, id).Scan(
		&e.ID, &e.GroupID, &e.PayerID, &e.Description, &e.Category, &e.Amount,
		&e.SplitMethod, &e.Date, &e.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, expense_id, user_id, share_amount
		FROM expense_participants
		WHERE expense_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var participants []*Participant
	for rows.Next() {
		p := &Participant{}
		if err := rows.Scan(&p.ID, &p.ExpenseID, &p.UserID, &p.ShareAmount); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return &ExpenseWithParticipants{Expense: e, Participants: participants}, rows.Err()
}
