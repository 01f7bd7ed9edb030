package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/models"

	"github.com/redis/go-redis/v9"
)

// BundleStore keeps signed offline bundles in Redis keyed by cache id,
// so a device re-requesting its bundle does not rebuild the snapshot.
// Entries expire with the bundle itself.
type BundleStore struct {
	rdb *redis.Client
}

// NewBundleStore connects using a redis URL such as
// redis://localhost:6379/0.
func NewBundleStore(redisURL string) (*BundleStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &BundleStore{rdb: redis.NewClient(opts)}, nil
}

func (s *BundleStore) Close() error {
	return s.rdb.Close()
}

func bundleKey(key string) string {
	return "offline_bundle:" + key
}

// Put stores a bundle under the given key until its expiry instant.
// Devices are keyed by device id so re-requests find their snapshot.
func (s *BundleStore) Put(ctx context.Context, key string, bundle models.OfflineBundle) error {
	ttl := time.Until(bundle.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(bundle)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, bundleKey(key), raw, ttl).Err()
}

// Get returns the cached bundle, or ok=false when absent or expired.
func (s *BundleStore) Get(ctx context.Context, key string) (models.OfflineBundle, bool, error) {
	raw, err := s.rdb.Get(ctx, bundleKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.OfflineBundle{}, false, nil
		}
		return models.OfflineBundle{}, false, err
	}
	var bundle models.OfflineBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return models.OfflineBundle{}, false, err
	}
	return bundle, true, nil
}

// Invalidate drops a cached bundle ahead of its TTL.
func (s *BundleStore) Invalidate(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, bundleKey(key)).Err()
}
