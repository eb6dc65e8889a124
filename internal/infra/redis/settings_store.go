package redis

import (
	"context"
	"errors"

	"github.com/boddenberg/donations-ledger-go/internal/domain"

	"github.com/redis/go-redis/v9"
)

// SettingsKey is the hash holding every setting as field -> raw value.
const SettingsKey = "donations:settings"

// SettingsStore reads and writes settings in a single Redis hash.
type SettingsStore struct {
	client *redis.Client
	key    string
}

// NewSettingsStore constructs a store on the default hash key.
func NewSettingsStore(client *redis.Client) *SettingsStore {
	return &SettingsStore{client: client, key: SettingsKey}
}

func (s *SettingsStore) GetSetting(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.HGet(ctx, s.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &domain.ErrStorage{Op: "get_setting", Err: err}
	}
	return v, true, nil
}

func (s *SettingsStore) AllSettings(ctx context.Context) (map[string]string, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, &domain.ErrStorage{Op: "all_settings", Err: err}
	}
	return values, nil
}

// SaveSettings writes only the fields whose value differs from the stored one
// and returns how many that was.
func (s *SettingsStore) SaveSettings(ctx context.Context, values map[string]string) (int, error) {
	if len(values) == 0 {
		return 0, nil
	}

	fields := make([]string, 0, len(values))
	for k := range values {
		fields = append(fields, k)
	}
	current, err := s.client.HMGet(ctx, s.key, fields...).Result()
	if err != nil {
		return 0, &domain.ErrStorage{Op: "save_settings", Err: err}
	}

	changed := make(map[string]any, len(values))
	for i, field := range fields {
		if old, ok := current[i].(string); ok && old == values[field] {
			continue
		}
		changed[field] = values[field]
	}
	if len(changed) == 0 {
		return 0, nil
	}

	if err := s.client.HSet(ctx, s.key, changed).Err(); err != nil {
		return 0, &domain.ErrStorage{Op: "save_settings", Err: err}
	}
	return len(changed), nil
}
