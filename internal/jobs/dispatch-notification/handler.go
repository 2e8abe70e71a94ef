// internal/jobs/dispatch-notification/handler.go
package dispatchnotification

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"autoparts-relay/internal/common/errors"
	"autoparts-relay/internal/common/logger"
	"autoparts-relay/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
)

const FunctionName = "dispatch-notification"

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput) (*sns.PublishOutput, error)
}

// FeedPublisher pushes the persisted notification to its recipient's live
// change feed.
type FeedPublisher interface {
	Publish(ctx context.Context, event models.ChangeEvent) error
}

type Handler struct {
	config      *Config
	db          *sql.DB
	logger      logger.Logger
	sesClient   SESService
	snsClient   SNSService
	feed        FeedPublisher
	templateMap map[string]map[string]string
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger, sesClient SESService, snsClient SNSService, feed FeedPublisher) *Handler {
	return &Handler{
		config:      config,
		db:          db,
		logger:      log.WithFields(map[string]interface{}{"function": FunctionName}),
		sesClient:   sesClient,
		snsClient:   snsClient,
		feed:        feed,
		templateMap: loadTemplates(),
	}
}

// Execute persists the notification, pushes it to the recipient's live feed,
// and fans out to email and SMS channels. The database row is the source of
// truth: channel failures mark the dispatch failed but never roll it back.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.RecipientID == "" {
		return nil, errors.NewInvalidPayloadError("recipientId is required")
	}

	template, exists := h.templateMap[input.Type]
	if !exists {
		return nil, errors.NewInvalidPayloadError(fmt.Sprintf("unrecognized notification type: %s", input.Type))
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	email, phone, err := h.getRecipientContact(ctx, input.RecipientID)
	if err != nil {
		h.logger.Warn("recipient not found", map[string]interface{}{
			"recipientId": input.RecipientID,
		})
		return &Output{
			NotificationID: uuid.New().String(),
			Status:         models.StatusDisabled,
			SentAt:         time.Now().UTC().Format(time.RFC3339),
		}, nil
	}

	data := map[string]interface{}{
		"recipientId": input.RecipientID,
		"requestId":   input.RequestID,
		"priority":    input.Priority,
	}
	for k, v := range input.Metadata {
		data[k] = v
	}

	notification := models.Notification{
		ID:          uuid.New().String(),
		RecipientID: input.RecipientID,
		Type:        input.Type,
		Title:       renderTemplate(template["title"], data),
		Body:        renderTemplate(template["body"], data),
		Metadata:    input.Metadata,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.insertNotification(ctx, &notification); err != nil {
		return nil, errors.NewDatabaseInsertFailedError(err)
	}

	h.publishToFeed(ctx, &notification)

	emailSent := false
	smsSent := false

	if h.config.EmailEnabled && email != "" {
		if err := h.sendEmail(ctx, email, notification.Title, notification.Body); err != nil {
			h.logger.Error("email send failed", map[string]interface{}{
				"error": err,
				"email": email,
			})
			return &Output{NotificationID: notification.ID, Status: models.StatusFailed, SentAt: notification.CreatedAt}, nil
		}
		emailSent = true
	}

	// SMS only for high priority dispatches with a known phone number
	if h.config.SMSEnabled && phone != "" && input.Priority == PriorityHigh {
		if err := h.sendSMS(ctx, phone, notification.Body); err != nil {
			h.logger.Error("SMS send failed", map[string]interface{}{
				"error": err,
				"phone": phone,
			})
			return &Output{NotificationID: notification.ID, Status: models.StatusFailed, SentAt: notification.CreatedAt}, nil
		}
		smsSent = true
	}

	status := models.StatusDisabled
	if emailSent || smsSent {
		status = models.StatusSent
	}

	return &Output{
		NotificationID: notification.ID,
		Status:         status,
		SentAt:         notification.CreatedAt,
	}, nil
}

func (h *Handler) getRecipientContact(ctx context.Context, recipientID string) (string, string, error) {
	var email, phone string
	err := h.db.QueryRowContext(ctx,
		`SELECT email, phone FROM users WHERE id = $1`,
		recipientID,
	).Scan(&email, &phone)
	return email, phone, err
}

func (h *Handler) insertNotification(ctx context.Context, n *models.Notification) error {
	metadata, err := marshalMetadata(n.Metadata)
	if err != nil {
		return err
	}
	_, err = h.db.ExecContext(ctx,
		`INSERT INTO notifications (id, recipient_id, type, title, body, metadata, read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)`,
		n.ID, n.RecipientID, n.Type, n.Title, n.Body, metadata, n.CreatedAt,
	)
	return err
}

// publishToFeed is best effort: the row is already persisted, a subscriber
// that misses the live push still sees the notification on its next list.
func (h *Handler) publishToFeed(ctx context.Context, n *models.Notification) {
	event := models.ChangeEvent{
		Stream:    "notifications",
		Op:        models.OpInsert,
		Recipient: n.RecipientID,
		Record: map[string]interface{}{
			"id":    n.ID,
			"type":  n.Type,
			"title": n.Title,
			"body":  n.Body,
		},
	}
	if err := h.feed.Publish(ctx, event); err != nil {
		h.logger.Error("feed publish failed", map[string]interface{}{
			"error":          err,
			"notificationId": n.ID,
		})
	}
}

func (h *Handler) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	return err
}

func (h *Handler) sendSMS(ctx context.Context, to, message string) error {
	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
}

// Simplified template rendering with placeholder removal for missing values
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if i, ok := v.(int); ok {
			value = fmt.Sprintf("%d", i)
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	// Remove any remaining placeholders (missing values)
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}

func marshalMetadata(metadata map[string]interface{}) ([]byte, error) {
	if metadata == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(metadata)
}

func loadTemplates() map[string]map[string]string {
	return map[string]map[string]string{
		models.TypeNewRequest: {
			"title": "New part request",
			"body":  "A buyer is looking for a part you sell. Request: {{requestId}}.",
		},
		models.TypeOfferReceived: {
			"title": "Offer received",
			"body":  "A seller responded to your request {{requestId}}.",
		},
	}
}
