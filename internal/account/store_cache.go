package account

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"ledgergate/internal/auth"
	dErrors "ledgergate/pkg/domain-errors"
)

var (
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgergate_account_cache_lookups_total",
		Help: "Account cache lookups by outcome",
	}, []string{"outcome"}) // outcome: "hit", "miss", "error"

	lookupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledgergate_account_lookup_duration_seconds",
		Help:    "Latency of account store lookups including cache",
		Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})
)

const (
	cacheKeyNationPrefix = "account:nation:"
	cacheKeyRulerPrefix  = "account:ruler:"
)

// CachedStore is a read-through Redis cache in front of another Store. Cache
// failures degrade to the underlying store; they never fail the lookup.
// NotFound results are not cached so newly provisioned accounts appear
// without waiting out a TTL.
type CachedStore struct {
	inner  Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedStore(inner Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	return &CachedStore{inner: inner, client: client, ttl: ttl, logger: logger}
}

func cacheKey(key auth.IdentityKey) string {
	if key.NationID != "" {
		return cacheKeyNationPrefix + key.NationID
	}
	return cacheKeyRulerPrefix + key.RulerName
}

func (s *CachedStore) Lookup(ctx context.Context, key auth.IdentityKey) (*auth.AuthorizedAccount, error) {
	start := time.Now()
	defer func() {
		lookupDuration.Observe(time.Since(start).Seconds())
	}()

	redisKey := cacheKey(key)
	cached, err := s.client.Get(ctx, redisKey).Result()
	switch {
	case err == nil:
		var account auth.AuthorizedAccount
		if err := json.Unmarshal([]byte(cached), &account); err == nil {
			cacheLookups.WithLabelValues("hit").Inc()
			return &account, nil
		}
		// Corrupt entry: fall through to the source of truth.
		cacheLookups.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		cacheLookups.WithLabelValues("miss").Inc()
	default:
		cacheLookups.WithLabelValues("error").Inc()
		s.logger.WarnContext(ctx, "account cache read failed", "error", err)
	}

	account, err := s.inner.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(account); err == nil {
		if err := s.client.Set(ctx, redisKey, payload, s.ttl).Err(); err != nil {
			s.logger.WarnContext(ctx, "account cache write failed", "error", err)
		}
	}
	return account, nil
}

// Invalidate drops the cached entry for a key. Exposed for operational
// tooling; the auth flow itself never mutates accounts.
func (s *CachedStore) Invalidate(ctx context.Context, key auth.IdentityKey) error {
	if err := s.client.Del(ctx, cacheKey(key)).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to invalidate account cache entry")
	}
	return nil
}
