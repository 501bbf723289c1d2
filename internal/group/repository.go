package group

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository defines group and membership persistence operations
type Repository interface {
	Create(ctx context.Context, g *Group) (*Group, error)
	GetByID(ctx context.Context, id int64) (*Group, error)
	ListByUserID(ctx context.Context, userID int64) ([]*Group, error)
	Update(ctx context.Context, id int64, req *UpdateGroupRequest) (*Group, error)
	Delete(ctx context.Context, id int64) error
	HasLedgerEntries(ctx context.Context, id int64) (bool, error)

	AddMember(ctx context.Context, groupID, userID int64, role MemberRole) (*Member, error)
	GetMember(ctx context.Context, groupID, userID int64) (*Member, error)
	ListMembers(ctx context.Context, groupID int64) ([]*Member, error)
	RemoveMember(ctx context.Context, groupID, userID int64) error
}

type postgresRepository struct {
	db *sql.DB
}

// NewRepository creates a new group repository
func NewRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

// Create inserts a new group
func (r *postgresRepository) Create(ctx context.Context, g *Group) (*Group, error) {
	query := `
		INSERT INTO groups (name, description, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, name, description, created_by, created_at
	`

	created := &Group{}
	err := r.db.QueryRowContext(ctx, query, g.Name, g.Description, g.CreatedBy).Scan(
		&created.ID, &created.Name, &created.Description, &created.CreatedBy, &created.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	return created, nil
}

// GetByID retrieves a group by its ID, nil if absent
func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*Group, error) {
	query := `SELECT id, name, description, created_by, created_at FROM groups WHERE id = $1`

	g := &Group{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return g, nil
}

// ListByUserID retrieves every group the user is a member of
func (r *postgresRepository) ListByUserID(ctx context.Context, userID int64) ([]*Group, error) {
	query := `
		SELECT g.id, g.name, g.description, g.created_by, g.created_at
		FROM groups g
		JOIN group_memberships gm ON g.id = gm.group_id
		WHERE gm.user_id = $1
		ORDER BY g.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*Group
	for rows.Next() {
		g := &Group{}
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// Update modifies a group's name and/or description
func (r *postgresRepository) Update(ctx context.Context, id int64, req *UpdateGroupRequest) (*Group, error) {
	query := `
		UPDATE groups
		SET name = COALESCE($2, name), description = COALESCE($3, description)
		WHERE id = $1
		RETURNING id, name, description, created_by, created_at
	`

	g := &Group{}
	err := r.db.QueryRowContext(ctx, query, id, req.Name, req.Description).Scan(
		&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update group: %w", err)
	}
	return g, nil
}

// Delete removes a group and its memberships and balances
func (r *postgresRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM balances WHERE group_id = $1`,
		`DELETE FROM group_memberships WHERE group_id = $1`,
		`DELETE FROM groups WHERE id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("failed to delete group: %w", err)
		}
	}
	return tx.Commit()
}

// HasLedgerEntries reports whether any expense or settlement references the group
func (r *postgresRepository) HasLedgerEntries(ctx context.Context, id int64) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM expenses WHERE group_id = $1)
		    OR EXISTS (SELECT 1 FROM settlements WHERE group_id = $1)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check ledger entries: %w", err)
	}
	return exists, nil
}

// AddMember inserts a membership row
func (r *postgresRepository) AddMember(ctx context.Context, groupID, userID int64, role MemberRole) (*Member, error) {
	query := `
		INSERT INTO group_memberships (group_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, group_id, user_id, role, joined_at
	`

	m := &Member{}
	err := r.db.QueryRowContext(ctx, query, groupID, userID, role).Scan(
		&m.ID, &m.GroupID, &m.UserID, &m.Role, &m.JoinedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}
	return m, nil
}

// GetMember retrieves one membership, nil if absent
func (r *postgresRepository) GetMember(ctx context.Context, groupID, userID int64) (*Member, error) {
	query := `
		SELECT gm.id, gm.group_id, gm.user_id, gm.role, gm.joined_at, u.name, u.username
		FROM group_memberships gm
		JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = $1 AND gm.user_id = $2
	`

	m := &Member{}
	err := r.db.QueryRowContext(ctx, query, groupID, userID).Scan(
		&m.ID, &m.GroupID, &m.UserID, &m.Role, &m.JoinedAt, &m.Name, &m.Username,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

// ListMembers retrieves all members of a group
func (r *postgresRepository) ListMembers(ctx context.Context, groupID int64) ([]*Member, error) {
	query := `
		SELECT gm.id, gm.group_id, gm.user_id, gm.role, gm.joined_at, u.name, u.username
		FROM group_memberships gm
		JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = $1
		ORDER BY u.name
	`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m := &Member{}
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Role, &m.JoinedAt, &m.Name, &m.Username); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// RemoveMember deletes a membership row
func (r *postgresRepository) RemoveMember(ctx context.Context, groupID, userID int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM group_memberships WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("membership not found")
	}
	return nil
}
