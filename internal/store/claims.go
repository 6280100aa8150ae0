package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tharanis13/campus-lost-found/internal/model"
)

// Claim submission business errors, surfaced to clients as 400s.
var (
	ErrDuplicateClaim  = fmt.Errorf("claim already submitted for this item")
	ErrOwnClaim        = fmt.Errorf("cannot claim your own item")
	ErrItemNotActive   = fmt.Errorf("item is not active")
	ErrClaimNotPending = fmt.Errorf("claim is not pending")
)

// ClaimResult carries what the caller needs after a successful claim:
// the new claim plus the context for the realtime event to the reporter.
type ClaimResult struct {
	Claim       model.Claim
	ItemTitle   string
	ReporterID  int64
	ClaimerName string
}

// SubmitClaim appends a pending claim to an item and enqueues the
// reporter's email notification in the same transaction. The
// UNIQUE(item_id, user_id) index is the real duplicate guard; the
// pre-check only exists to give the common case a clean error without
// burning the constraint. Claims against non-active items and claims by
// the item's own reporter are rejected outright.
func SubmitClaim(ctx context.Context, db *sql.DB, itemID, userID int64, description string) (*ClaimResult, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var title, status, reporterEmail string
	var reporterID int64
	err = tx.QueryRowContext(ctx,
		`SELECT i.title, i.status, i.reporter_id, r.email
		 FROM items i JOIN users r ON r.id = i.reporter_id
		 WHERE i.id = ?`, itemID,
	).Scan(&title, &status, &reporterID, &reporterEmail)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading item for claim: %w", err)
	}

	if status != model.StatusActive {
		return nil, ErrItemNotActive
	}
	if reporterID == userID {
		return nil, ErrOwnClaim
	}

	var existing int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM claims WHERE item_id = ? AND user_id = ?`,
		itemID, userID,
	).Scan(&existing); err != nil {
		return nil, fmt.Errorf("checking existing claim: %w", err)
	}
	if existing > 0 {
		return nil, ErrDuplicateClaim
	}

	var claimerName string
	if err := tx.QueryRowContext(ctx,
		`SELECT name FROM users WHERE id = ?`, userID,
	).Scan(&claimerName); err != nil {
		return nil, fmt.Errorf("loading claimer: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO claims (item_id, user_id, description) VALUES (?, ?, ?)`,
		itemID, userID, description,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateClaim
		}
		return nil, fmt.Errorf("creating claim: %w", err)
	}

	claimID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting claim id: %w", err)
	}

	if err := EnqueueNotification(ctx, tx, reporterEmail, "claimNotification",
		[]string{title, claimerName, description}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}

	claim, err := GetClaim(ctx, db, claimID)
	if err != nil {
		return nil, err
	}
	return &ClaimResult{
		Claim:       *claim,
		ItemTitle:   title,
		ReporterID:  reporterID,
		ClaimerName: claimerName,
	}, nil
}

// GetClaim returns a claim by ID.
func GetClaim(ctx context.Context, db *sql.DB, id int64) (*model.Claim, error) {
	c := &model.Claim{}
	var description sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, item_id, user_id, description, status, created_at
		 FROM claims WHERE id = ?`, id,
	).Scan(&c.ID, &c.ItemID, &c.UserID, &description, &c.Status, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting claim: %w", err)
	}
	c.Description = description.String
	return c, nil
}

// ApproveClaim accepts a pending claim in one transaction: the claim is
// approved, every other pending claim on the item is rejected, the item
// records its claimer and moves active->claimed, and a claimApproved
// email is enqueued for the winner.
func ApproveClaim(ctx context.Context, db *sql.DB, itemID, claimID int64) (*model.Item, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var claimStatus string
	var claimerID int64
	err = tx.QueryRowContext(ctx,
		`SELECT status, user_id FROM claims WHERE id = ? AND item_id = ?`,
		claimID, itemID,
	).Scan(&claimStatus, &claimerID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading claim: %w", err)
	}
	if claimStatus != model.ClaimPending {
		return nil, ErrClaimNotPending
	}

	var title, itemStatus, claimerEmail string
	if err := tx.QueryRowContext(ctx,
		`SELECT i.title, i.status, u.email
		 FROM items i, users u WHERE i.id = ? AND u.id = ?`,
		itemID, claimerID,
	).Scan(&title, &itemStatus, &claimerEmail); err != nil {
		return nil, fmt.Errorf("loading item for approval: %w", err)
	}

	if !model.CanTransition(itemStatus, model.StatusClaimed) {
		return nil, ErrBadTransition
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE claims SET status = ? WHERE id = ?`,
		model.ClaimApproved, claimID,
	); err != nil {
		return nil, fmt.Errorf("approving claim: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE claims SET status = ? WHERE item_id = ? AND id != ? AND status = ?`,
		model.ClaimRejected, itemID, claimID, model.ClaimPending,
	); err != nil {
		return nil, fmt.Errorf("rejecting other claims: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET status = ?, claimer_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		model.StatusClaimed, claimerID, itemID,
	); err != nil {
		return nil, fmt.Errorf("updating item for approval: %w", err)
	}

	if err := EnqueueNotification(ctx, tx, claimerEmail, "claimApproved", []string{title}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing approval: %w", err)
	}

	return GetItem(ctx, db, itemID)
}

// RejectClaim marks a pending claim rejected. The item stays active.
func RejectClaim(ctx context.Context, db *sql.DB, itemID, claimID int64) (*model.Claim, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE claims SET status = ? WHERE id = ? AND item_id = ? AND status = ?`,
		model.ClaimRejected, claimID, itemID, model.ClaimPending,
	)
	if err != nil {
		return nil, fmt.Errorf("rejecting claim: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking rejection: %w", err)
	}
	if affected == 0 {
		// Either the claim does not exist or it was already decided.
		claim, err := GetClaim(ctx, db, claimID)
		if err != nil {
			return nil, err
		}
		if claim == nil || claim.ItemID != itemID {
			return nil, nil
		}
		return nil, ErrClaimNotPending
	}

	return GetClaim(ctx, db, claimID)
}
