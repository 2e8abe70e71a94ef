// internal/models/notification.go
package models

type Notification struct {
	ID          string                 `json:"id"`
	RecipientID string                 `json:"recipientId"`
	Type        string                 `json:"type"` // "new_request", "offer_received"
	Title       string                 `json:"title"`
	Body        string                 `json:"body"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"` // structured link target
	Read        bool                   `json:"read"`
	CreatedAt   string                 `json:"createdAt"` // ISO 8601
}

// Notification types recognized by the presenter allow-list.
const (
	TypeNewRequest    = "new_request"
	TypeOfferReceived = "offer_received"
)

// Dispatch statuses
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)
