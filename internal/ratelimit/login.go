package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/ecoscape/internal/clock"
	"github.com/smallbiznis/ecoscape/internal/config"
)

const keyLoginIP = "ecoscape:login:ip:%s"

// LoginLimiter throttles login attempts per client IP.
type LoginLimiter struct {
	perMinute int
	bucket    *TokenBucket
	window    *windowCounter
}

type LoginLimiterParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
	Clock     clock.Clock
}

func NewLoginLimiter(p LoginLimiterParams) *LoginLimiter {
	log := p.Log.Named("ratelimit")
	limiter := &LoginLimiter{perMinute: p.Config.LoginRateLimitPerMinute}
	if limiter.perMinute <= 0 {
		log.Info("login rate limiting disabled")
		return limiter
	}

	addr := strings.TrimSpace(p.Config.RedisAddr)
	if addr == "" {
		limiter.window = newWindowCounter(p.Clock, time.Minute)
		log.Info("login rate limiting uses in-memory window", zap.Int("per_minute", limiter.perMinute))
		return limiter
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: p.Config.RedisPassword,
		DB:       p.Config.RedisDB,
	})
	limiter.bucket = NewTokenBucket(client)
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	log.Info("login rate limiting uses redis token bucket", zap.String("addr", addr), zap.Int("per_minute", limiter.perMinute))
	return limiter
}

// NewInMemoryLoginLimiter is used by tests and single-node deployments.
func NewInMemoryLoginLimiter(clk clock.Clock, perMinute int) *LoginLimiter {
	return &LoginLimiter{
		perMinute: perMinute,
		window:    newWindowCounter(clk, time.Minute),
	}
}

func (l *LoginLimiter) Enabled() bool {
	return l != nil && l.perMinute > 0 && (l.bucket != nil || l.window != nil)
}

// Allow consumes one attempt for ip. A disabled limiter always allows.
func (l *LoginLimiter) Allow(ctx context.Context, ip string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	ip = strings.TrimSpace(ip)
	if ip == "" {
		ip = "unknown"
	}
	if l.bucket != nil {
		return l.bucket.Allow(ctx, fmt.Sprintf(keyLoginIP, ip), float64(l.perMinute)/60, l.perMinute)
	}
	return l.window.Allow(ctx, ip, l.perMinute)
}
