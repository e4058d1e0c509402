package redis

import (
	"context"
	"errors"
	"slices"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// GroupStore keeps authorization group membership in Redis sets.
// Each user has one set "<prefix>:groups:<user id>" holding group names.
// It satisfies subscription.GroupMembership.
type GroupStore struct {
	client redis.UniversalClient
	prefix string
}

// NewGroupStore creates a group store. Panics if client is nil.
func NewGroupStore(client redis.UniversalClient, prefix string) *GroupStore {
	if client == nil {
		panic("redis: client is required")
	}
	return &GroupStore{client: client, prefix: prefix}
}

func (s *GroupStore) key(userID uuid.UUID) string {
	if s.prefix == "" {
		return "groups:" + userID.String()
	}
	return s.prefix + ":groups:" + userID.String()
}

func (s *GroupStore) AddToGroup(ctx context.Context, userID uuid.UUID, group string) error {
	if err := s.client.SAdd(ctx, s.key(userID), group).Err(); err != nil {
		return errors.Join(ErrGroupStore, err)
	}
	return nil
}

func (s *GroupStore) RemoveFromGroup(ctx context.Context, userID uuid.UUID, group string) error {
	if err := s.client.SRem(ctx, s.key(userID), group).Err(); err != nil {
		return errors.Join(ErrGroupStore, err)
	}
	return nil
}

func (s *GroupStore) IsMember(ctx context.Context, userID uuid.UUID, group string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, s.key(userID), group).Result()
	if err != nil {
		return false, errors.Join(ErrGroupStore, err)
	}
	return ok, nil
}

// Groups returns the user's groups sorted by name.
func (s *GroupStore) Groups(ctx context.Context, userID uuid.UUID) ([]string, error) {
	groups, err := s.client.SMembers(ctx, s.key(userID)).Result()
	if err != nil {
		return nil, errors.Join(ErrGroupStore, err)
	}
	slices.Sort(groups)
	return groups, nil
}
