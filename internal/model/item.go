package model

import "time"

// Item represents a lost or found report.
type Item struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Category       string     `json:"category"`
	Type           string     `json:"type"`
	Location       string     `json:"location"`
	Date           time.Time  `json:"date"`
	UniqueMarks    string     `json:"unique_marks,omitempty"`
	Images         []string   `json:"images"`
	Status         string     `json:"status"`
	ReporterID     int64      `json:"reporter_id"`
	ClaimerID      *int64     `json:"claimer_id,omitempty"`
	MatchSuggested bool       `json:"match_suggested"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Populated on reads (not always).
	Reporter   *UserSummary `json:"reporter,omitempty"`
	Claimer    *UserSummary `json:"claimer,omitempty"`
	Claims     []Claim      `json:"claims,omitempty"`
	MatchedIDs []int64      `json:"matched_items,omitempty"`
}

// Claim is a user's assertion of ownership over an item. Claims belong
// to their item and are ordered by creation.
type Claim struct {
	ID          int64     `json:"id"`
	ItemID      int64     `json:"item_id"`
	UserID      int64     `json:"user_id"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`

	User *UserSummary `json:"user,omitempty"`
}

// Item types. A report's type never changes after creation.
const (
	TypeLost  = "lost"
	TypeFound = "found"
)

// Item statuses.
const (
	StatusActive   = "active"
	StatusClaimed  = "claimed"
	StatusReturned = "returned"
	StatusArchived = "archived"
)

// Claim statuses.
const (
	ClaimPending  = "pending"
	ClaimApproved = "approved"
	ClaimRejected = "rejected"
)

// Categories lists the valid item categories.
var Categories = []string{
	"electronics", "books", "clothing", "accessories",
	"documents", "keys", "bags", "other",
}

// ValidCategory reports whether c is a known category.
func ValidCategory(c string) bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// transitions maps each status to the statuses it may move to.
// Archived is terminal and reachable from every other state.
var transitions = map[string][]string{
	StatusActive:   {StatusClaimed, StatusArchived},
	StatusClaimed:  {StatusReturned, StatusArchived},
	StatusReturned: {StatusArchived},
	StatusArchived: {},
}

// CanTransition reports whether an item may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// OppositeType returns the counterpart report type for match finding.
func OppositeType(t string) string {
	if t == TypeLost {
		return TypeFound
	}
	return TypeLost
}
