package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/subkit/pkg/subscription"
)

// UserDirectory resolves email addresses from the application's users table.
// The table must have uuid "id" and text "email" columns.
type UserDirectory struct {
	db    DBTX
	query string
}

// NewUserDirectory reads addresses from table, which may be schema-qualified.
func NewUserDirectory(db DBTX, table string) *UserDirectory {
	if db == nil {
		panic("pgstore: db is required")
	}
	if table == "" {
		table = "users"
	}
	return &UserDirectory{
		db:    db,
		query: fmt.Sprintf("SELECT email FROM %s WHERE id = $1", pgx.Identifier(strings.Split(table, ".")).Sanitize()),
	}
}

// EmailAddress returns subscription.ErrUserNotFound for unknown users.
func (d *UserDirectory) EmailAddress(ctx context.Context, userID uuid.UUID) (string, error) {
	var addr string
	if err := d.db.QueryRow(ctx, d.query, userID).Scan(&addr); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", subscription.ErrUserNotFound
		}
		return "", fmt.Errorf("lookup user email: %w", err)
	}
	return addr, nil
}
