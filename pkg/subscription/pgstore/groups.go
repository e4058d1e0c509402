package pgstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/subkit/pkg/subscription"
)

// GroupStore implements subscription.GroupMembership on a join table.
type GroupStore struct {
	db DBTX
}

var _ subscription.GroupMembership = (*GroupStore)(nil)

func NewGroupStore(db DBTX) *GroupStore {
	if db == nil {
		panic("pgstore: db is required")
	}
	return &GroupStore{db: db}
}

// AddToGroup adds the user to group. Adding twice is a no-op.
func (g *GroupStore) AddToGroup(ctx context.Context, userID uuid.UUID, group string) error {
	_, err := g.db.Exec(ctx, `
		INSERT INTO subscription_group_members (user_id, group_name) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, group)
	if err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

// RemoveFromGroup removes the user from group.
func (g *GroupStore) RemoveFromGroup(ctx context.Context, userID uuid.UUID, group string) error {
	_, err := g.db.Exec(ctx, `DELETE FROM subscription_group_members WHERE user_id = $1 AND group_name = $2`, userID, group)
	if err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}
	return nil
}

// IsMember reports whether the user belongs to group.
func (g *GroupStore) IsMember(ctx context.Context, userID uuid.UUID, group string) (bool, error) {
	var ok bool
	err := g.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM subscription_group_members WHERE user_id = $1 AND group_name = $2)`,
		userID, group).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check group member: %w", err)
	}
	return ok, nil
}

// Groups returns the user's groups sorted by name.
func (g *GroupStore) Groups(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := g.db.Query(ctx, `
		SELECT group_name FROM subscription_group_members WHERE user_id = $1 ORDER BY group_name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	groups, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan groups: %w", err)
	}
	return groups, nil
}
