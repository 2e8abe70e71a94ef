// internal/jobs/expire-subscriptions/models.go
package expiresubscriptions

type Output struct {
	Expired int64  `json:"expired"`
	RanAt   string `json:"ranAt"` // ISO 8601
}
