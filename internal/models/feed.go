// internal/models/feed.go
package models

// Change-feed operation kinds
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// ChangeEvent is a row-level change delivered over the change feed. It is
// ephemeral: produced by the feed, consumed once by a presenter.
type ChangeEvent struct {
	Stream    string                 `json:"stream"`              // table name, e.g. "notifications"
	Op        string                 `json:"op"`                  // "insert", "update", "delete"
	Record    map[string]interface{} `json:"record"`              // affected row snapshot
	Recipient string                 `json:"recipient,omitempty"` // recipient filter key
}

// DedupeTag returns a stable tag identifying the underlying change, so a
// redelivered event presents only once.
func (e ChangeEvent) DedupeTag() string {
	id, _ := e.Record["id"].(string)
	return e.Stream + ":" + e.Op + ":" + id
}

// Type returns the event type carried in the record, if any.
func (e ChangeEvent) Type() string {
	t, _ := e.Record["type"].(string)
	return t
}
