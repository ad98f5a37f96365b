package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ms-eventpass/internal/models"

	"github.com/go-redis/redis/v8"
)

const confirmationKeyPrefix = "payment_intent:"

// ConfirmationCache keeps processor-confirmed intents in Redis. Entries come
// from signature-verified webhooks or from a successful direct lookup.
type ConfirmationCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewConfirmationCache(client *redis.Client, ttl time.Duration) *ConfirmationCache {
	return &ConfirmationCache{client: client, ttl: ttl}
}

func (c *ConfirmationCache) Record(ctx context.Context, intent *models.PaymentIntent) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("marshal intent: %w", err)
	}
	return c.client.Set(ctx, confirmationKeyPrefix+intent.ID, data, c.ttl).Err()
}

// Get returns the cached intent, or nil when none is recorded.
func (c *ConfirmationCache) Get(ctx context.Context, intentID string) (*models.PaymentIntent, error) {
	data, err := c.client.Get(ctx, confirmationKeyPrefix+intentID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var intent models.PaymentIntent
	if err := json.Unmarshal(data, &intent); err != nil {
		return nil, fmt.Errorf("unmarshal intent: %w", err)
	}
	return &intent, nil
}
