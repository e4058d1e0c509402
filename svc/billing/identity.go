package billing

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/subkit/handler"
	"github.com/dmitrymomot/subkit/pkg/subscription"
)

// UserFromHeader stores the user ID found in header in the request context.
// The service must run behind a proxy that authenticates the caller and sets
// the header; requests without a parsable ID stay anonymous.
func UserFromHeader(header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, err := uuid.Parse(r.Header.Get(header)); err == nil && id != uuid.Nil {
				r = r.WithContext(subscription.SetUserIDToContext(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := subscription.GetUserIDFromContext(r.Context()); !ok {
			_ = handler.JSONError(handler.ErrUnauthorized).Render(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
