package model

// Stats holds the admin dashboard counters. JSON names follow the
// dashboard's API contract.
type Stats struct {
	TotalUsers       int `json:"totalUsers"`
	TotalItems       int `json:"totalItems"`
	LostItems        int `json:"lostItems"`
	FoundItems       int `json:"foundItems"`
	ClaimedItems     int `json:"claimedItems"`
	NewUsersThisWeek int `json:"newUsersThisWeek"`
	NewItemsThisWeek int `json:"newItemsThisWeek"`
}
