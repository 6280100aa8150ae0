package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tharanis13/campus-lost-found/internal/model"
)

// ErrBadTransition is returned when a status change is not allowed by
// the item state machine.
var ErrBadTransition = fmt.Errorf("illegal status transition")

// itemCols is the column list shared by every item query. The two user
// joins populate reporter and claimer summaries in one round trip.
const itemCols = `i.id, i.title, i.description, i.category, i.type, i.location, i.date,
	i.unique_marks, i.status, i.reporter_id, i.claimer_id, i.match_suggested,
	i.created_at, i.updated_at,
	r.name, r.email, r.campus_id,
	c.name, c.email, c.campus_id`

const itemJoins = `FROM items i
	JOIN users r ON r.id = i.reporter_id
	LEFT JOIN users c ON c.id = i.claimer_id`

// NewItem carries the caller-supplied fields for item creation.
type NewItem struct {
	Title       string
	Description string
	Category    string
	Type        string
	Location    string
	Date        time.Time
	UniqueMarks string
	ReporterID  int64
	Images      []string
}

// ListFilter narrows and pages an item listing.
type ListFilter struct {
	Type     string
	Category string
	Status   string
	Search   string
	Page     int
	Limit    int
}

// CreateItem inserts an item and its image references in one transaction.
func CreateItem(ctx context.Context, db *sql.DB, n NewItem) (*model.Item, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO items (title, description, category, type, location, date, unique_marks, reporter_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.Title, n.Description, n.Category, n.Type, n.Location, n.Date, n.UniqueMarks, n.ReporterID,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	for pos, path := range n.Images {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO item_images (item_id, position, path) VALUES (?, ?, ?)`,
			id, pos, path,
		); err != nil {
			return nil, fmt.Errorf("saving item image: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns the full item aggregate: reporter and claimer
// summaries, ordered images, ordered claims with their users, and
// suggested match ids.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+itemCols+` `+itemJoins+` WHERE i.id = ?`, id,
	)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}

	if err := loadItemImages(ctx, db, item); err != nil {
		return nil, err
	}
	if err := loadItemClaims(ctx, db, item); err != nil {
		return nil, err
	}
	if err := loadItemMatches(ctx, db, item); err != nil {
		return nil, err
	}
	return item, nil
}

// ListItems returns a page of items, newest first, plus the total count
// for the unpaged filter. A non-empty Search restricts to items whose
// indexed text matches.
func ListItems(ctx context.Context, db *sql.DB, f ListFilter) ([]model.Item, int, error) {
	if f.Limit <= 0 {
		f.Limit = 10
	}
	if f.Page <= 0 {
		f.Page = 1
	}

	where := ` WHERE 1=1`
	var args []any
	if f.Type != "" {
		where += ` AND i.type = ?`
		args = append(args, f.Type)
	}
	if f.Category != "" {
		where += ` AND i.category = ?`
		args = append(args, f.Category)
	}
	if f.Status != "" {
		where += ` AND i.status = ?`
		args = append(args, f.Status)
	}

	from := itemJoins
	if f.Search != "" {
		query := ftsQuery(f.Search)
		if query == "" {
			return nil, 0, nil
		}
		from = `FROM items_fts
	JOIN items i ON i.id = items_fts.rowid
	JOIN users r ON r.id = i.reporter_id
	LEFT JOIN users c ON c.id = i.claimer_id`
		where += ` AND items_fts MATCH ?`
		args = append(args, query)
	}

	var total int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) `+from+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting items: %w", err)
	}

	pagedArgs := append(args, f.Limit, (f.Page-1)*f.Limit)
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemCols+` `+from+where+` ORDER BY i.created_at DESC, i.id DESC LIMIT ? OFFSET ?`,
		pagedArgs...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, 0, err
	}

	for i := range items {
		if err := loadItemImages(ctx, db, &items[i]); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

// ListAllItems returns every item, newest first, for the admin view.
func ListAllItems(ctx context.Context, db *sql.DB) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemCols+` `+itemJoins+` ORDER BY i.created_at DESC, i.id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing all items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// UpdateItemStatus moves an item to a new status, validating the
// transition against the state machine inside a transaction so
// concurrent changes cannot skip a state.
func UpdateItemStatus(ctx context.Context, db *sql.DB, id int64, status string) (*model.Item, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM items WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading item status: %w", err)
	}

	if !model.CanTransition(current, status) {
		return nil, ErrBadTransition
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id,
	); err != nil {
		return nil, fmt.Errorf("updating item status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing status update: %w", err)
	}

	return GetItem(ctx, db, id)
}

// RecordMatches stores suggested counterpart ids for an item and marks
// it as having had matches suggested.
func RecordMatches(ctx context.Context, db *sql.DB, itemID int64, matchedIDs []int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, mid := range matchedIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO item_matches (item_id, matched_id) VALUES (?, ?)`,
			itemID, mid,
		); err != nil {
			return fmt.Errorf("recording match: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET match_suggested = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		itemID,
	); err != nil {
		return fmt.Errorf("marking match suggested: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing matches: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var uniqueMarks sql.NullString
	var claimerID sql.NullInt64
	var repName, repEmail, repCampus string
	var clName, clEmail, clCampus sql.NullString

	err := row.Scan(
		&item.ID, &item.Title, &item.Description, &item.Category, &item.Type,
		&item.Location, &item.Date, &uniqueMarks, &item.Status,
		&item.ReporterID, &claimerID, &item.MatchSuggested,
		&item.CreatedAt, &item.UpdatedAt,
		&repName, &repEmail, &repCampus,
		&clName, &clEmail, &clCampus,
	)
	if err != nil {
		return nil, err
	}

	item.UniqueMarks = uniqueMarks.String
	item.Images = []string{}
	item.Reporter = &model.UserSummary{
		ID: item.ReporterID, Name: repName, Email: repEmail, CampusID: repCampus,
	}
	if claimerID.Valid {
		id := claimerID.Int64
		item.ClaimerID = &id
		item.Claimer = &model.UserSummary{
			ID: id, Name: clName.String, Email: clEmail.String, CampusID: clCampus.String,
		}
	}
	return item, nil
}

func scanItems(rows *sql.Rows) ([]model.Item, error) {
	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func loadItemImages(ctx context.Context, db *sql.DB, item *model.Item) error {
	rows, err := db.QueryContext(ctx,
		`SELECT path FROM item_images WHERE item_id = ? ORDER BY position`, item.ID,
	)
	if err != nil {
		return fmt.Errorf("loading item images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return fmt.Errorf("scanning item image: %w", err)
		}
		item.Images = append(item.Images, path)
	}
	return rows.Err()
}

func loadItemClaims(ctx context.Context, db *sql.DB, item *model.Item) error {
	rows, err := db.QueryContext(ctx,
		`SELECT cl.id, cl.item_id, cl.user_id, cl.description, cl.status, cl.created_at,
		        u.name, u.email, u.campus_id
		 FROM claims cl
		 JOIN users u ON u.id = cl.user_id
		 WHERE cl.item_id = ?
		 ORDER BY cl.created_at, cl.id`, item.ID,
	)
	if err != nil {
		return fmt.Errorf("loading item claims: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c model.Claim
		var description sql.NullString
		var name, email, campusID string
		if err := rows.Scan(&c.ID, &c.ItemID, &c.UserID, &description, &c.Status, &c.CreatedAt,
			&name, &email, &campusID); err != nil {
			return fmt.Errorf("scanning claim: %w", err)
		}
		c.Description = description.String
		c.User = &model.UserSummary{ID: c.UserID, Name: name, Email: email, CampusID: campusID}
		item.Claims = append(item.Claims, c)
	}
	return rows.Err()
}

func loadItemMatches(ctx context.Context, db *sql.DB, item *model.Item) error {
	rows, err := db.QueryContext(ctx,
		`SELECT matched_id FROM item_matches WHERE item_id = ? ORDER BY matched_id`, item.ID,
	)
	if err != nil {
		return fmt.Errorf("loading item matches: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scanning match id: %w", err)
		}
		item.MatchedIDs = append(item.MatchedIDs, id)
	}
	return rows.Err()
}
