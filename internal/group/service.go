package group

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrGroupNotFound       = errors.New("group not found")
	ErrMemberNotFound      = errors.New("member not found")
	ErrMemberAlreadyExists = errors.New("user is already a member of this group")
	ErrNotAuthorized       = errors.New("not authorized to perform this action")
	ErrGroupHasLedger      = errors.New("cannot delete group with expenses or settlements")
	ErrCannotRemoveAdmin   = errors.New("cannot remove the last admin from a group")
)

// Service handles group business logic
type Service struct {
	repo Repository
}

// NewService creates a new group service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create creates a new group and adds the creator as admin
func (s *Service) Create(ctx context.Context, creatorID int64, req *CreateGroupRequest) (*Group, error) {
	g, err := s.repo.Create(ctx, &Group{
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   creatorID,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.AddMember(ctx, g.ID, creatorID, MemberRoleAdmin); err != nil {
		return nil, err
	}
	return g, nil
}

// GetByID retrieves a group by its ID
func (s *Service) GetByID(ctx context.Context, id int64) (*Group, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGroupNotFound
	}
	return g, nil
}

// GetByIDWithMembers retrieves a group with all its members
func (s *Service) GetByIDWithMembers(ctx context.Context, id int64) (*Group, []*Member, error) {
	g, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	members, err := s.repo.ListMembers(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return g, members, nil
}

// ListForUser retrieves every group the user belongs to
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]*Group, error) {
	return s.repo.ListByUserID(ctx, userID)
}

// Update modifies a group; only admins may do so
func (s *Service) Update(ctx context.Context, id, userID int64, req *UpdateGroupRequest) (*Group, error) {
	if err := s.requireAdmin(ctx, id, userID); err != nil {
		return nil, err
	}

	g, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGroupNotFound
	}
	return g, nil
}

// Delete removes a group. Refused while the group still has ledger entries,
// so balances can never be orphaned by a group deletion.
func (s *Service) Delete(ctx context.Context, id, userID int64) error {
	if err := s.requireAdmin(ctx, id, userID); err != nil {
		return err
	}

	hasLedger, err := s.repo.HasLedgerEntries(ctx, id)
	if err != nil {
		return err
	}
	if hasLedger {
		return ErrGroupHasLedger
	}
	return s.repo.Delete(ctx, id)
}

// AddMember adds a user to a group; only admins may do so
func (s *Service) AddMember(ctx context.Context, groupID, actorID int64, req *AddMemberRequest) (*Member, error) {
	if err := s.requireAdmin(ctx, groupID, actorID); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetMember(ctx, groupID, req.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrMemberAlreadyExists
	}

	role := req.Role
	if role == "" {
		role = MemberRoleMember
	}
	return s.repo.AddMember(ctx, groupID, req.UserID, role)
}

// ListMembers retrieves every member of a group
func (s *Service) ListMembers(ctx context.Context, groupID int64) ([]*Member, error) {
	g, err := s.repo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGroupNotFound
	}
	return s.repo.ListMembers(ctx, groupID)
}

// RemoveMember removes a user from a group. Members may leave on their own;
// removing someone else requires admin. The last admin cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, groupID, actorID, userID int64) error {
	if actorID != userID {
		if err := s.requireAdmin(ctx, groupID, actorID); err != nil {
			return err
		}
	}

	target, err := s.repo.GetMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrMemberNotFound
	}

	if target.Role == MemberRoleAdmin {
		members, err := s.repo.ListMembers(ctx, groupID)
		if err != nil {
			return err
		}
		admins := 0
		for _, m := range members {
			if m.Role == MemberRoleAdmin {
				admins++
			}
		}
		if admins <= 1 {
			return ErrCannotRemoveAdmin
		}
	}

	return s.repo.RemoveMember(ctx, groupID, userID)
}

// IsMember reports whether the user belongs to the group
func (s *Service) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	m, err := s.repo.GetMember(ctx, groupID, userID)
	if err != nil {
		return false, err
	}
	return m != nil, nil
}

func (s *Service) requireAdmin(ctx context.Context, groupID, userID int64) error {
	g, err := s.repo.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if g == nil {
		return ErrGroupNotFound
	}

	m, err := s.repo.GetMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if m == nil || m.Role != MemberRoleAdmin {
		return ErrNotAuthorized
	}
	return nil
}
