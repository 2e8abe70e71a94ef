// internal/models/analytics.go
package models

// Analytics event kinds
const (
	KindView    = "view"
	KindClick   = "click"
	KindContact = "contact"
)

// AnalyticsEvent is a typed interaction against a subject listing. Immutable
// once recorded; counters on the subject are maintained separately.
type AnalyticsEvent struct {
	ID        string                 `json:"id"`
	SubjectID string                 `json:"subjectId"`
	Kind      string                 `json:"kind"`              // "view", "click", "contact"
	ActorID   string                 `json:"actorId,omitempty"` // empty = anonymous
	Payload   map[string]interface{} `json:"payload,omitempty"`
	CreatedAt string                 `json:"createdAt"` // ISO 8601
}

// PromotionSuggestion is the transient result of the promotion advisor.
type PromotionSuggestion struct {
	SubjectID      string                 `json:"subjectId"`
	Recommendation map[string]interface{} `json:"recommendation"`
}
