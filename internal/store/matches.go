package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/tharanis13/campus-lost-found/internal/model"
)

// MatchLimit caps the number of suggested counterparts per item.
const MatchLimit = 5

// FindMatches suggests counterpart reports for an item: opposite type,
// same category, still active, ranked by full-text relevance of the
// source item's title and description against the index. Returns at
// most MatchLimit items, best match first. Read-only. Returns nil, nil
// if the source item does not exist.
func FindMatches(ctx context.Context, db *sql.DB, itemID int64) ([]model.Item, error) {
	var title, description, category, itemType string
	err := db.QueryRowContext(ctx,
		`SELECT title, description, category, type FROM items WHERE id = ?`, itemID,
	).Scan(&title, &description, &category, &itemType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading item for matching: %w", err)
	}

	query := ftsQuery(title + " " + description)
	if query == "" {
		return []model.Item{}, nil
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+itemCols+`
		 FROM items_fts
		 JOIN items i ON i.id = items_fts.rowid
		 JOIN users r ON r.id = i.reporter_id
		 LEFT JOIN users c ON c.id = i.claimer_id
		 WHERE items_fts MATCH ?
		   AND i.id != ?
		   AND i.type = ?
		   AND i.category = ?
		   AND i.status = ?
		 ORDER BY items_fts.rank
		 LIMIT ?`,
		query, itemID, model.OppositeType(itemType), category, model.StatusActive, MatchLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("finding matches: %w", err)
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Item{}
	}
	for i := range items {
		if err := loadItemImages(ctx, db, &items[i]); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// SuggestMatches runs match finding for a freshly reported item, records
// the suggestions, and queues a matchSuggestion email to the owner of
// each lost report involved. A new found item notifies the reporters of
// the matching lost items; a new lost item notifies its own reporter
// about each matching found item. Returns the number of matches.
func SuggestMatches(ctx context.Context, db *sql.DB, itemID int64) (int, error) {
	item, err := GetItem(ctx, db, itemID)
	if err != nil {
		return 0, err
	}
	if item == nil {
		return 0, nil
	}

	matches, err := FindMatches(ctx, db, itemID)
	if err != nil {
		return 0, err
	}
	if len(matches) == 0 {
		return 0, nil
	}

	ids := make([]int64, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	if err := RecordMatches(ctx, db, itemID, ids); err != nil {
		return 0, err
	}

	for _, m := range matches {
		var recipient string
		var args []string
		if item.Type == model.TypeLost {
			recipient = item.Reporter.Email
			args = []string{
				item.Title, m.Title, m.Description, m.Location,
				m.Date.Format("2006-01-02"), strconv.FormatInt(m.ID, 10),
			}
		} else {
			recipient = m.Reporter.Email
			args = []string{
				m.Title, item.Title, item.Description, item.Location,
				item.Date.Format("2006-01-02"), strconv.FormatInt(item.ID, 10),
			}
		}
		if err := EnqueueNotification(ctx, db, recipient, "matchSuggestion", args); err != nil {
			return 0, fmt.Errorf("queueing match suggestion: %w", err)
		}
	}

	return len(matches), nil
}

// ftsQuery turns free text into a safe FTS5 query: each word becomes a
// quoted token and tokens are ORed, so punctuation in user input can
// never be parsed as MATCH syntax. Returns "" when the text contains no
// usable tokens.
func ftsQuery(text string) string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var tokens []string
	for _, f := range fields {
		tokens = append(tokens, `"`+f+`"`)
	}
	return strings.Join(tokens, " OR ")
}
