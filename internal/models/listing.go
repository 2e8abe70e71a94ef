// internal/models/listing.go
package models

import "time"

// Listing is a catalog entry for a car part offered by a supplier.
type Listing struct {
	ID            string     `json:"id"`
	SupplierID    string     `json:"supplierId"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Price         float64    `json:"price"`
	Featured      bool       `json:"featured"`
	FeaturedUntil *time.Time `json:"featuredUntil,omitempty"`
	ViewCount     int64      `json:"viewCount"`
	ClickCount    int64      `json:"clickCount"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Subscription statuses
const (
	SubscriptionActive  = "active"
	SubscriptionExpired = "expired"
)

// Subscription is a supplier's time-bound plan row.
type Subscription struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Status    string    `json:"status"` // "active", "expired"
	CreatedAt time.Time `json:"createdAt"`
}

// BlogPost is a content entry that may be scheduled for future publication.
type BlogPost struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Published          bool       `json:"published"`
	ScheduledPublishAt *time.Time `json:"scheduledPublishAt,omitempty"`
	PublishedAt        *time.Time `json:"publishedAt,omitempty"`
}
