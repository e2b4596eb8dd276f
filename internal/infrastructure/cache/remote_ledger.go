package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"inkmirror-ai/internal/domain/models"
	"inkmirror-ai/internal/domain/repositories"
)

// remoteLedgerStore keeps the hosted copy of each ledger as a JSON record
// keyed by user id. It is a backup for reconciliation, never a lock.
type remoteLedgerStore struct {
	client *RedisClient
}

func NewRemoteLedgerStore(client *RedisClient) repositories.RemoteLedgerStore {
	return &remoteLedgerStore{client: client}
}

func ledgerKey(userID string) string {
	return fmt.Sprintf("ledger:%s", userID)
}

// Fetch returns nil with no error when no record exists; the caller seeds
// one from local state.
func (s *remoteLedgerStore) Fetch(ctx context.Context, userID string) (*models.SubscriptionLedger, error) {
	data, err := s.client.Get(ctx, ledgerKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch remote ledger: %w", err)
	}

	var ledger models.SubscriptionLedger
	if err := json.Unmarshal(data, &ledger); err != nil {
		return nil, fmt.Errorf("failed to unmarshal remote ledger: %w", err)
	}

	return &ledger, nil
}

func (s *remoteLedgerStore) Upsert(ctx context.Context, ledger *models.SubscriptionLedger) error {
	data, err := json.Marshal(ledger)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	if err := s.client.Set(ctx, ledgerKey(ledger.UserID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to upsert remote ledger: %w", err)
	}

	return nil
}

func (s *remoteLedgerStore) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, ledgerKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete remote ledger: %w", err)
	}
	return nil
}
