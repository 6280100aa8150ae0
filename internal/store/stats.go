package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tharanis13/campus-lost-found/internal/model"
)

// GetStats computes the admin dashboard counters.
func GetStats(ctx context.Context, db *sql.DB) (*model.Stats, error) {
	stats := &model.Stats{}
	// created_at defaults to CURRENT_TIMESTAMP, which is UTC, so the
	// week boundary must be UTC too.
	weekAgo := time.Now().UTC().AddDate(0, 0, -7)

	counts := []struct {
		dest  *int
		query string
		args  []any
	}{
		{&stats.TotalUsers, `SELECT COUNT(*) FROM users`, nil},
		{&stats.TotalItems, `SELECT COUNT(*) FROM items`, nil},
		{&stats.LostItems, `SELECT COUNT(*) FROM items WHERE type = ?`, []any{model.TypeLost}},
		{&stats.FoundItems, `SELECT COUNT(*) FROM items WHERE type = ?`, []any{model.TypeFound}},
		{&stats.ClaimedItems, `SELECT COUNT(*) FROM items WHERE status = ?`, []any{model.StatusClaimed}},
		{&stats.NewUsersThisWeek, `SELECT COUNT(*) FROM users WHERE created_at >= ?`, []any{weekAgo}},
		{&stats.NewItemsThisWeek, `SELECT COUNT(*) FROM items WHERE created_at >= ?`, []any{weekAgo}},
	}

	for _, c := range counts {
		if err := db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("counting stats: %w", err)
		}
	}
	return stats, nil
}
