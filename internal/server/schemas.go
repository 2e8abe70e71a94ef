// internal/server/schemas.go
package server

// Request body schemas, enforced before a payload reaches its handler.
var (
	dispatchNotificationSchema = []byte(`{
		"type": "object",
		"required": ["recipientId", "type"],
		"properties": {
			"recipientId": {"type": "string", "minLength": 1},
			"type": {"type": "string", "enum": ["new_request", "offer_received"]},
			"requestId": {"type": "string"},
			"priority": {"type": "string", "enum": ["high", "normal"]},
			"metadata": {"type": "object"}
		}
	}`)

	reviewListingSchema = []byte(`{
		"type": "object",
		"required": ["listingId"],
		"properties": {
			"listingId": {"type": "string", "minLength": 1}
		}
	}`)

	promotionAdvisorSchema = []byte(`{
		"type": "object",
		"required": ["listingId"],
		"properties": {
			"listingId": {"type": "string", "minLength": 1}
		}
	}`)

	analyticsEventSchema = []byte(`{
		"type": "object",
		"required": ["kind", "subjectId"],
		"properties": {
			"kind": {"type": "string", "enum": ["view", "click", "contact"]},
			"subjectId": {"type": "string"},
			"actorId": {"type": "string"},
			"payload": {"type": "object"}
		}
	}`)
)
