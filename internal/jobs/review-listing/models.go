// internal/jobs/review-listing/models.go
package reviewlisting

type Input struct {
	ListingID string `json:"listingId"`
}

type Output struct {
	ListingID  string   `json:"listingId"`
	Verdict    string   `json:"verdict"` // "approve", "flag", "reject"
	Flags      []string `json:"flags,omitempty"`
	Confidence float64  `json:"confidence"`
	ReviewedAt string   `json:"reviewedAt"` // ISO 8601
}

// Verdicts
const (
	VerdictApprove = "approve"
	VerdictFlag    = "flag"
	VerdictReject  = "reject"
)
