// Package draft persists in-progress form state, keyed by form identity and
// owner, with debounced auto-save and guest-to-user migration on login.
package draft

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"autoparts-relay/internal/common/logger"
	"autoparts-relay/internal/models"

	"github.com/redis/go-redis/v9"
)

// Store owns the draft for one (form, owner) pair. The debounce timer is owned
// by the instance; Close cancels it as part of the teardown contract.
type Store struct {
	rdb      *redis.Client
	formID   string
	ownerID  string // "" means guest
	debounce time.Duration
	ttl      time.Duration
	logger   logger.Logger

	mu    sync.Mutex
	data  map[string]interface{}
	timer *time.Timer
}

func NewStore(rdb *redis.Client, formID, ownerID string, debounce, ttl time.Duration, log logger.Logger) *Store {
	return &Store{
		rdb:      rdb,
		formID:   formID,
		ownerID:  ownerID,
		debounce: debounce,
		ttl:      ttl,
		logger:   log.WithFields(map[string]interface{}{"component": "draft", "formId": formID}),
	}
}

func (s *Store) key() string {
	return models.DraftKey(s.formID, s.ownerID)
}

func (s *Store) guestKey() string {
	return models.DraftKey(s.formID, "")
}

// Get returns the current in-memory form data.
func (s *Store) Get() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// Set replaces the in-memory form data and (re)starts the debounce timer.
// Only the last write within the debounce window is persisted; intermediate
// states are coalesced, not queued.
func (s *Store) Set(data map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = data
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Flush(ctx); err != nil {
			s.logger.Warn("draft auto-save failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	})
}

// Flush persists the latest in-memory state immediately.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	data := s.data
	s.mu.Unlock()

	if data == nil {
		return nil
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(), payload, s.ttl).Err()
}

// Load reads the persisted draft into memory and returns it. When the store is
// owner-scoped and a guest draft exists, the guest draft is migrated first:
// copied to the owner key, then deleted from the guest scope. Migration takes
// priority over any existing owner draft and overwrites it. A corrupt stored
// draft is discarded (deleted), not surfaced.
func (s *Store) Load(ctx context.Context) (map[string]interface{}, error) {
	if s.ownerID != "" {
		migrated, err := s.migrateGuestDraft(ctx)
		if err != nil {
			return nil, err
		}
		if migrated != nil {
			s.mu.Lock()
			s.data = migrated
			s.mu.Unlock()
			return migrated, nil
		}
	}

	data, err := s.read(ctx, s.key())
	if err != nil {
		return nil, err
	}
	if data != nil {
		s.mu.Lock()
		s.data = data
		s.mu.Unlock()
	}
	return data, nil
}

func (s *Store) migrateGuestDraft(ctx context.Context) (map[string]interface{}, error) {
	raw, err := s.rdb.Get(ctx, s.guestKey()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		s.logger.Warn("discarding corrupt guest draft", map[string]interface{}{
			"key":   s.guestKey(),
			"error": err.Error(),
		})
		_ = s.rdb.Del(ctx, s.guestKey()).Err()
		return nil, nil
	}

	// The guest draft wins over any owner draft already present.
	s.logger.Warn("migrating guest draft, owner draft overwritten if present", map[string]interface{}{
		"ownerId": s.ownerID,
	})
	if err := s.rdb.Set(ctx, s.key(), raw, s.ttl).Err(); err != nil {
		return nil, err
	}
	if err := s.rdb.Del(ctx, s.guestKey()).Err(); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Store) read(ctx context.Context, key string) (map[string]interface{}, error) {
	raw, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		s.logger.Warn("discarding corrupt draft", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		_ = s.rdb.Del(ctx, key).Err()
		return nil, nil
	}
	return data, nil
}

// Clear removes both guest- and owner-scoped entries for the form identity,
// cancels any pending debounce timer, and resets the in-memory state.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.data = nil
	s.mu.Unlock()

	return s.rdb.Del(ctx, s.key(), s.guestKey()).Err()
}

// Close cancels a pending debounce without persisting. In-flight saves that
// already fired complete on their own and their results stand.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
