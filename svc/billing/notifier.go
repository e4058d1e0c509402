package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/a-h/templ"
	"github.com/google/uuid"

	"github.com/dmitrymomot/subkit/pkg/email"
	"github.com/dmitrymomot/subkit/pkg/email/templates"
	"github.com/dmitrymomot/subkit/pkg/logger"
	"github.com/dmitrymomot/subkit/pkg/subscription"
)

// UserDirectory resolves where to send a user's notifications.
// Implementations return subscription.ErrUserNotFound for unknown users.
type UserDirectory interface {
	EmailAddress(ctx context.Context, userID uuid.UUID) (string, error)
}

// Notifier emails users about lifecycle events.
// Delivery failures are logged and never fail the lifecycle call.
type Notifier struct {
	sender email.EmailSender
	users  UserDirectory
	logger *slog.Logger
}

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

func WithNotifierLogger(l *slog.Logger) NotifierOption {
	return func(n *Notifier) {
		if l != nil {
			n.logger = l
		}
	}
}

func NewNotifier(sender email.EmailSender, users UserDirectory, opts ...NotifierOption) *Notifier {
	if sender == nil || users == nil {
		panic("billing: notifier needs a sender and a user directory")
	}
	n := &Notifier{sender: sender, users: users, logger: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Connect subscribes the notifier to paid, subscribed and unsubscribed events.
func (n *Notifier) Connect(s *subscription.Signals) {
	for _, typ := range []subscription.EventType{
		subscription.EventPaid,
		subscription.EventSubscribed,
		subscription.EventUnsubscribed,
	} {
		s.Connect(typ, n.Notify)
	}
}

// Notify sends the email for one event.
func (n *Notifier) Notify(ctx context.Context, e subscription.Event) {
	log := n.logger.With(logger.EventType(string(e.Type)), logger.UserID(e.UserID))

	addr, err := n.users.EmailAddress(ctx, e.UserID)
	if errors.Is(err, subscription.ErrUserNotFound) {
		log.WarnContext(ctx, "no email address for user, notification skipped")
		return
	}
	if err != nil {
		log.ErrorContext(ctx, "failed to resolve user email", logger.Error(err))
		return
	}

	subject, lines := message(e)
	if subject == "" {
		return
	}
	body := make([]templ.Component, 0, len(lines))
	for _, l := range lines {
		body = append(body, templates.Paragraph(l))
	}
	html, err := templates.Render(ctx, templates.Layout(subject, templ.Join(body...)))
	if err != nil {
		log.ErrorContext(ctx, "failed to render notification", logger.Error(err))
		return
	}

	if err := n.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   addr,
		Subject:  subject,
		BodyHTML: html,
		Tag:      "subscription-" + string(e.Type),
	}); err != nil {
		log.ErrorContext(ctx, "failed to send notification", logger.Error(err))
	}
}

func message(e subscription.Event) (string, []string) {
	plan := "your plan"
	if e.Plan != nil {
		plan = e.Plan.Name
	}

	switch e.Type {
	case subscription.EventPaid:
		lines := []string{fmt.Sprintf("We received your payment for %s.", plan)}
		if us := e.UserSubscription; us != nil && us.Expires != nil {
			lines = append(lines, "Your subscription is paid until "+us.Expires.Format(dateLayout)+".")
		} else {
			lines = append(lines, "Your subscription does not expire.")
		}
		return "Payment received for " + plan, lines
	case subscription.EventSubscribed:
		return "Welcome to " + plan, []string{fmt.Sprintf("You are now subscribed to %s.", plan)}
	case subscription.EventUnsubscribed:
		switch e.Reason {
		case subscription.ReasonCancel:
			return "Your " + plan + " subscription was cancelled",
				[]string{fmt.Sprintf("Your %s subscription was cancelled. Access continues until the paid period ends.", plan)}
		case subscription.ReasonExpired:
			return "Your " + plan + " subscription has expired",
				[]string{fmt.Sprintf("Your %s subscription expired and its features are no longer available.", plan)}
		default:
			return "Your " + plan + " subscription has ended",
				[]string{fmt.Sprintf("Your %s subscription is no longer active.", plan)}
		}
	}
	return "", nil
}
