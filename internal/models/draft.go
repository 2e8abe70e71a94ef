// internal/models/draft.go
package models

import "fmt"

// GuestOwner is the owner segment used for unauthenticated drafts.
const GuestOwner = "guest"

// DraftKey builds the storage key for a draft scoped to a form and owner.
// Format: listing-draft-<formId>-<ownerIdOrGuest>.
func DraftKey(formID, ownerID string) string {
	if ownerID == "" {
		ownerID = GuestOwner
	}
	return fmt.Sprintf("listing-draft-%s-%s", formID, ownerID)
}

// Draft is locally persisted, not-yet-submitted form state. Exactly one draft
// exists per (form, owner) pair; migration moves, never duplicates.
type Draft struct {
	FormID      string                 `json:"formId"`
	OwnerID     string                 `json:"ownerId"` // GuestOwner when unauthenticated
	Data        map[string]interface{} `json:"data"`
	LastSavedAt string                 `json:"lastSavedAt"` // ISO 8601
}
