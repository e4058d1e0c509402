// Package subscription tracks user subscriptions to plans and keeps
// authorization-group membership consistent with billing state.
//
// A Plan grants membership in one authorization group. A UserSubscription
// binds a user to a plan and carries three pieces of state: an expiry date
// (nil for one-time purchases), an Active flag and a Cancelled flag. The
// Manager drives the lifecycle and reconciles membership through the
// GroupMembership interface. It never charges anyone: payment is confirmed
// elsewhere and reported by calling Activate.
//
// # Lifecycle
//
//	us, _ := mgr.UserSubscriptionFor(ctx, userID, planID) // existing or new
//	_ = mgr.Signup(ctx, us)   // deactivate other plans, join the group
//	_ = mgr.Activate(ctx, us) // after payment: extend expiry or mark one-time plan paid
//	_ = mgr.Cancel(ctx, us)   // keep access until expiry, or drop it when inactive
//
// A subscription is Expired once its expiry date plus the grace period
// (two days by default) lies in the past. It is Valid when group membership
// matches its state: expired or inactive subscriptions must not grant
// membership, live ones must. Fix repairs invalid subscriptions and deletes
// cancelled ones that lost membership. UnsubscribeExpired runs Fix over every
// subscription past its expiry date and is meant to run on a schedule.
//
// # Signals
//
// Lifecycle transitions are reported through Signals:
//
//	mgr.Signals().Connect(subscription.EventPaid, func(ctx context.Context, e subscription.Event) {
//		log.Printf("%s paid for %s", e.UserID, e.Plan)
//	})
//
// Plan changes can be vetoed with change checks; TryChange collects their reasons:
//
//	mgr.Signals().ConnectChangeCheck(func(ctx context.Context, us *subscription.UserSubscription, target *subscription.Plan) string {
//		if target.IsFree() && hasPaidAddons(us.UserID) {
//			return "Remove paid add-ons before downgrading."
//		}
//		return ""
//	})
//
// # Access control
//
// RequireSubscription and RequireSubscriptionIn are net/http middleware that
// redirect users without a suitable active subscription to a start URL:
//
//	r.With(subscription.RequireSubscription(mgr,
//		subscription.WithLoginURL(cfg.StartURL),
//		subscription.WithBypass(isStaff),
//	)).Get("/reports", reports)
//
// # Storage
//
// PlanStore, UserSubscriptionStore and GroupMembership are small interfaces.
// MemoryStore and MemoryGroups implement them in memory; package pgstore
// provides PostgreSQL and package redis provides Redis-backed membership.
package subscription
