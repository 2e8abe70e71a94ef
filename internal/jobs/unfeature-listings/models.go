// internal/jobs/unfeature-listings/models.go
package unfeaturelistings

type Output struct {
	Unfeatured int64    `json:"unfeatured"`
	ListingIDs []string `json:"listingIds,omitempty"`
	RanAt      string   `json:"ranAt"` // ISO 8601
}
