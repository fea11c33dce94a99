package redis

import (
	"PayoutGuard/internal/core/domain"
	"PayoutGuard/internal/core/ports"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// slidingWindow trims entries older than the window, then admits the request only
// while the set holds fewer than limit entries. Runs atomically on the server.
//
// KEYS[1] set key; ARGV: cutoff ms, now ms, limit, member, window ms.
var slidingWindow = goredis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[3]) then
	return 0
end
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return 1
`)

// OTPRateLimiter keeps a per-user sliding window of issued codes in a sorted set.
// When Redis is unreachable it defers to the fallback limiter instead of failing
// open.
type OTPRateLimiter struct {
	rdb      goredis.UniversalClient
	fallback ports.OTPRateLimiter
	limit    int
	window   time.Duration
	prefix   string
	log      zerolog.Logger
}

var _ ports.OTPRateLimiter = (*OTPRateLimiter)(nil)

func NewOTPRateLimiter(rdb goredis.UniversalClient, fallback ports.OTPRateLimiter, limit int, window time.Duration, baseLogger *zerolog.Logger) *OTPRateLimiter {
	return &OTPRateLimiter{
		rdb:      rdb,
		fallback: fallback,
		limit:    limit,
		window:   window,
		prefix:   "payoutguard:otp",
		log:      baseLogger.With().Str("component", "redis_otp_limiter").Logger(),
	}
}

func (l *OTPRateLimiter) key(userID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", l.prefix, userID)
}

func (l *OTPRateLimiter) Allow(ctx context.Context, userID uuid.UUID, now time.Time) error {
	nowMs := now.UnixMilli()
	cutoff := nowMs - l.window.Milliseconds()

	admitted, err := slidingWindow.Run(ctx, l.rdb,
		[]string{l.key(userID)},
		cutoff, nowMs, l.limit, uuid.NewString(), l.window.Milliseconds(),
	).Int()
	if err != nil {
		l.log.Warn().Err(err).Str("user_id", userID.String()).Msg("Redis limiter unavailable, using fallback")
		if l.fallback == nil {
			return domain.Persistence("otp rate limit", err)
		}
		return l.fallback.Allow(ctx, userID, now)
	}
	if admitted == 0 {
		return domain.Reasonf(domain.ErrRateLimited, "at most %d codes per %s", l.limit, l.window)
	}
	return nil
}

// NewClient connects to Redis and pings it.
func NewClient(ctx context.Context, addr, password string, baseLogger *zerolog.Logger) (*goredis.Client, error) {
	log := baseLogger.With().Str("component", "redis").Logger()
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error().Err(err).Str("addr", addr).Msg("Failed to ping redis")
		_ = rdb.Close()
		return nil, err
	}
	log.Info().Str("addr", addr).Msg("Redis connection established")
	return rdb, nil
}
