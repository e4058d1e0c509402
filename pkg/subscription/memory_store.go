package subscription

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps plans and user subscriptions in memory.
// It implements PlanStore and UserSubscriptionStore and is safe for concurrent use.
// Values are copied on the way in and out so callers cannot mutate stored state.
type MemoryStore struct {
	mu    sync.RWMutex
	plans map[uuid.UUID]Plan
	subs  map[uuid.UUID]UserSubscription
}

// NewMemoryStore creates a store seeded with the given plans.
func NewMemoryStore(plans ...Plan) *MemoryStore {
	s := &MemoryStore{
		plans: make(map[uuid.UUID]Plan, len(plans)),
		subs:  make(map[uuid.UUID]UserSubscription),
	}
	for _, p := range plans {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		s.plans[p.ID] = p
	}
	return s
}

// GetPlan returns a copy of the plan or ErrPlanNotFound.
func (s *MemoryStore) GetPlan(_ context.Context, id uuid.UUID) (*Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[id]
	if !ok {
		return nil, ErrPlanNotFound
	}
	return &p, nil
}

// ListPlans returns all plans in display order.
func (s *MemoryStore) ListPlans(_ context.Context) ([]Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plans := make([]Plan, 0, len(s.plans))
	for _, p := range s.plans {
		plans = append(plans, p)
	}
	SortPlans(plans)
	return plans, nil
}

// SavePlan inserts or replaces the plan. Names must stay unique.
func (s *MemoryStore) SavePlan(_ context.Context, plan *Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.plans {
		if id != plan.ID && p.Name == plan.Name {
			return ErrPlanNameTaken
		}
	}
	s.plans[plan.ID] = *plan
	return nil
}

// Get returns a copy of the subscription or ErrSubscriptionNotFound.
func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*UserSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	us, ok := s.subs[id]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return cloneUserSubscription(us), nil
}

// GetByUserAndPlan returns the user's subscription to the plan or ErrSubscriptionNotFound.
func (s *MemoryStore) GetByUserAndPlan(_ context.Context, userID, planID uuid.UUID) (*UserSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, us := range s.subs {
		if us.UserID == userID && us.PlanID == planID {
			return cloneUserSubscription(us), nil
		}
	}
	return nil, ErrSubscriptionNotFound
}

// ListByUser returns the user's subscriptions, oldest first.
func (s *MemoryStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*UserSubscription, error) {
	return s.filter(func(us UserSubscription) bool { return us.UserID == userID }), nil
}

// ListExpiringBefore returns subscriptions whose expiry date is before date.
func (s *MemoryStore) ListExpiringBefore(_ context.Context, date time.Time) ([]*UserSubscription, error) {
	date = DateOf(date)
	return s.filter(func(us UserSubscription) bool {
		return us.Expires != nil && us.Expires.Before(date)
	}), nil
}

// ListActive returns subscriptions with the active flag set.
func (s *MemoryStore) ListActive(_ context.Context) ([]*UserSubscription, error) {
	return s.filter(func(us UserSubscription) bool { return us.Active }), nil
}

// Save upserts the subscription. A second subscription to the same plan fails with ErrSubscriptionAlreadyExists.
func (s *MemoryStore) Save(_ context.Context, us *UserSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.subs {
		if id != us.ID && existing.UserID == us.UserID && existing.PlanID == us.PlanID {
			return ErrSubscriptionAlreadyExists
		}
	}
	s.subs[us.ID] = *cloneUserSubscription(*us)
	return nil
}

// Delete removes the subscription. Unknown IDs are ignored.
func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.subs, id)
	return nil
}

func (s *MemoryStore) filter(keep func(UserSubscription) bool) []*UserSubscription {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*UserSubscription, 0)
	for _, us := range s.subs {
		if keep(us) {
			out = append(out, cloneUserSubscription(us))
		}
	}
	slices.SortFunc(out, func(a, b *UserSubscription) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

func cloneUserSubscription(us UserSubscription) *UserSubscription {
	if us.Expires != nil {
		exp := *us.Expires
		us.Expires = &exp
	}
	return &us
}

// MemoryGroups keeps group membership in memory. Safe for concurrent use.
type MemoryGroups struct {
	mu      sync.RWMutex
	members map[uuid.UUID]map[string]struct{}
}

// NewMemoryGroups creates an empty membership registry.
func NewMemoryGroups() *MemoryGroups {
	return &MemoryGroups{members: make(map[uuid.UUID]map[string]struct{})}
}

// AddToGroup adds the user to group. Adding twice is a no-op.
func (g *MemoryGroups) AddToGroup(_ context.Context, userID uuid.UUID, group string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	set, ok := g.members[userID]
	if !ok {
		set = make(map[string]struct{})
		g.members[userID] = set
	}
	set[group] = struct{}{}
	return nil
}

// RemoveFromGroup removes the user from group.
func (g *MemoryGroups) RemoveFromGroup(_ context.Context, userID uuid.UUID, group string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.members[userID], group)
	return nil
}

// IsMember reports whether the user belongs to group.
func (g *MemoryGroups) IsMember(_ context.Context, userID uuid.UUID, group string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.members[userID][group]
	return ok, nil
}

// Groups returns the user's groups sorted by name.
func (g *MemoryGroups) Groups(_ context.Context, userID uuid.UUID) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	groups := make([]string, 0, len(g.members[userID]))
	for group := range g.members[userID] {
		groups = append(groups, group)
	}
	slices.Sort(groups)
	return groups, nil
}
