package models

import "time"

// User represents the authenticated account as reported by the API.
type User struct {
	// ID is the unique identifier of the account.
	ID int64 `json:"id"`
	// Username is the login name of the account.
	Username string `json:"username"`
	// Email is the address the account registered with.
	Email string `json:"email,omitempty"`
}

// Owner identifies the account a link belongs to.
type Owner struct {
	Username string `json:"username"`
}

// Link represents a short-link redirect owned by the remote API.
// The console holds only read-through copies of links; beyond the cache
// key there is no client-side identity.
type Link struct {
	// ID is the unique identifier of the link record.
	ID int64 `json:"id"`
	// ShortCode is the unique alphanumeric path segment of the redirect.
	ShortCode string `json:"short_code"`
	// TargetURL is the destination the short code redirects to.
	TargetURL string `json:"target_url"`
	// Title is a human-readable label for the link.
	Title string `json:"title"`
	// Description is optional free-form text.
	Description string `json:"description,omitempty"`
	// IsActive reports whether the redirect currently resolves.
	IsActive bool `json:"is_active"`
	// AccessCount tracks how many times the redirect has been visited.
	AccessCount int64 `json:"access_count"`
	// Owner is the account that created the link.
	Owner Owner `json:"owner"`
}

// LinkPage is one page of the link collection.
type LinkPage struct {
	Links   []Link `json:"links"`
	Total   int64  `json:"total"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
}

// LinkStats are the read-only access statistics of a single link,
// keyed by short code.
type LinkStats struct {
	ShortCode   string    `json:"short_code"`
	AccessCount int64     `json:"access_count"`
	CreatedAt   time.Time `json:"created_at"`
	// LastAccessed is nil for links that have never been visited.
	LastAccessed *time.Time `json:"last_accessed,omitempty"`
}
