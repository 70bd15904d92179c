package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jcmexdev/bakery-storefront/internal/pkg/cache"
)

// PersistedCart is the JSON form of a cart kept between requests. Timestamps
// are RFC 3339 strings on the wire.
type PersistedCart struct {
	Items           []LineItem       `json:"items"`
	CustomLoafItems []CustomLoafItem `json:"customLoafItems"`
	TotalItems      int              `json:"totalItems"`
	TotalPrice      int64            `json:"totalPrice"`
	LastUpdated     time.Time        `json:"lastUpdated"`
	PromotionID     string           `json:"promotionId,omitempty"`
}

func (e *Engine) Snapshot() PersistedCart {
	return PersistedCart{
		Items:           e.Items(),
		CustomLoafItems: e.CustomLoaves(),
		TotalItems:      e.TotalItems(),
		TotalPrice:      e.Subtotal(),
		LastUpdated:     e.lastUpdated,
		PromotionID:     e.promotionID,
	}
}

// Restore replaces the engine state with p. Totals are recomputed from the
// lines; a snapshot breaking a cart limit is rejected and the engine is left
// as it was.
func (e *Engine) Restore(p PersistedCart) error {
	if n := len(p.Items) + len(p.CustomLoafItems); n > MaxLines {
		return invalid("lines", "a cart holds at most %d lines, snapshot has %d", MaxLines, n)
	}
	total := 0
	for _, l := range p.Items {
		if err := checkQuantity("quantity", l.Quantity, MaxLineQuantity); err != nil {
			return err
		}
		total += l.Quantity
	}
	for _, l := range p.CustomLoafItems {
		if err := checkQuantity("quantity", l.Quantity, MaxLoafQuantity); err != nil {
			return err
		}
		total += l.Quantity
	}
	if total > MaxTotalItems {
		return invalid("quantity", "a cart holds at most %d items, snapshot has %d", MaxTotalItems, total)
	}

	e.items = append([]LineItem(nil), p.Items...)
	e.loaves = append([]CustomLoafItem(nil), p.CustomLoafItems...)
	e.lastUpdated = p.LastUpdated
	e.promotionID = p.PromotionID
	if e.ItemCount() == 0 {
		e.promotionID = ""
	}
	return nil
}

// Store keeps persisted carts by session id.
type Store interface {
	Load(ctx context.Context, sessionID string) (PersistedCart, bool, error)
	Save(ctx context.Context, sessionID string, p PersistedCart) error
	Delete(ctx context.Context, sessionID string) error
}

// CacheStore keeps carts in a cache.Cache (Redis in production) with a
// sliding TTL.
type CacheStore struct {
	store cache.Cache
	ttl   time.Duration
}

func NewCacheStore(store cache.Cache, ttl time.Duration) *CacheStore {
	return &CacheStore{store: store, ttl: ttl}
}

func (s *CacheStore) key(sessionID string) string {
	return s.store.GenerateKey("session", sessionID)
}

func (s *CacheStore) Load(ctx context.Context, sessionID string) (PersistedCart, bool, error) {
	raw, err := s.store.Get(ctx, s.key(sessionID))
	if err != nil {
		return PersistedCart{}, false, fmt.Errorf("load cart %s: %w", sessionID, err)
	}
	if raw == "" {
		return PersistedCart{}, false, nil
	}
	var p PersistedCart
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return PersistedCart{}, false, fmt.Errorf("decode cart %s: %w", sessionID, err)
	}
	return p, true, nil
}

func (s *CacheStore) Save(ctx context.Context, sessionID string, p PersistedCart) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", sessionID, err)
	}
	if err := s.store.Set(ctx, s.key(sessionID), payload, s.ttl); err != nil {
		return fmt.Errorf("save cart %s: %w", sessionID, err)
	}
	return nil
}

func (s *CacheStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, s.key(sessionID)); err != nil {
		return fmt.Errorf("delete cart %s: %w", sessionID, err)
	}
	return nil
}
