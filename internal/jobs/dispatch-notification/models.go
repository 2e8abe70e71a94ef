// internal/jobs/dispatch-notification/models.go
package dispatchnotification

type Input struct {
	RecipientID string                 `json:"recipientId"`
	Type        string                 `json:"type"` // "new_request", "offer_received"
	RequestID   string                 `json:"requestId,omitempty"`
	Priority    string                 `json:"priority,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

type Output struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"` // "sent", "failed", "disabled"
	SentAt         string `json:"sentAt"` // ISO 8601
}

// Priorities
const (
	PriorityHigh   = "high"
	PriorityNormal = "normal"
)
