package logger

import (
	"log/slog"
	"time"
)

// Error creates an attribute for err under the key "error".
// Returns an empty Attr for nil, which slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

func UserSubscriptionID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_subscription_id", id)
}

func Plan(name string) slog.Attr {
	return slog.String("plan", name)
}

func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

func Task(name string) slog.Attr {
	return slog.String("task", name)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}
