// Package notify turns incoming change events into user-visible alerts.
package notify

import (
	"fmt"
	"sync"

	"autoparts-relay/internal/common/logger"
	"autoparts-relay/internal/common/metrics"
	"autoparts-relay/internal/models"
)

// Toaster renders an in-app alert.
type Toaster interface {
	Show(title, body string)
}

// Haptics triggers device vibration. Optional; a nil Haptics means the
// runtime does not support it.
type Haptics interface {
	Vibrate(pattern []int)
}

// vibrationPattern is the short buzz used for every presented notification.
var vibrationPattern = []int{200, 100, 200}

const dedupeWindow = 64

// Presenter filters events to a recognized allow-list and fires the two side
// channels. Presentation never fails the caller; worst case is a missed toast.
type Presenter struct {
	toaster Toaster
	haptics Haptics
	logger  logger.Logger

	mu   sync.Mutex
	seen map[string]struct{}
	tags []string // FIFO eviction order, bounded at dedupeWindow
}

func NewPresenter(toaster Toaster, haptics Haptics, log logger.Logger) *Presenter {
	return &Presenter{
		toaster: toaster,
		haptics: haptics,
		logger:  log.WithFields(map[string]interface{}{"component": "presenter"}),
		seen:    make(map[string]struct{}),
	}
}

// allowed is the event-type allow-list. Unrecognized types are dropped
// silently, not treated as errors.
var allowed = map[string]struct{}{
	models.TypeNewRequest:    {},
	models.TypeOfferReceived: {},
}

// Present converts event into a toast plus optional vibration. Redelivery of
// the same underlying change (same dedupe tag) presents nothing.
func (p *Presenter) Present(event models.ChangeEvent) {
	eventType := event.Type()
	if _, ok := allowed[eventType]; !ok {
		return
	}

	tag := event.DedupeTag()
	if p.alreadySeen(tag) {
		metrics.NotificationsDeduped.Inc()
		return
	}

	title, body := render(eventType, event.Record)
	p.toaster.Show(title, body)
	if p.haptics != nil {
		p.haptics.Vibrate(vibrationPattern)
	}

	metrics.NotificationsPresented.WithLabelValues(eventType).Inc()
	p.logger.Debug("presented notification", map[string]interface{}{
		"type": eventType,
		"tag":  tag,
	})
}

func (p *Presenter) alreadySeen(tag string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.seen[tag]; ok {
		return true
	}

	p.seen[tag] = struct{}{}
	p.tags = append(p.tags, tag)
	if len(p.tags) > dedupeWindow {
		oldest := p.tags[0]
		p.tags = p.tags[1:]
		delete(p.seen, oldest)
	}
	return false
}

func render(eventType string, record map[string]interface{}) (string, string) {
	title, _ := record["title"].(string)
	body, _ := record["body"].(string)

	if title == "" {
		switch eventType {
		case models.TypeNewRequest:
			title = "New part request"
		case models.TypeOfferReceived:
			title = "New offer on your request"
		}
	}
	if body == "" {
		if part, ok := record["part_name"].(string); ok {
			body = fmt.Sprintf("Tap to view details for %s", part)
		} else {
			body = "Tap to view details"
		}
	}
	return title, body
}
