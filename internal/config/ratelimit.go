package config

import "time"

// RateLimitConfig configures the Redis token bucket in front of the API.
// Settlement confirmations get their own, tighter bucket so that a client
// hammering /payment-success cannot starve browsing traffic.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string
    Prefix         string
    Debug          bool
}

func LoadRateLimitConfig() RateLimitConfig {
    return normalizeRateLimit(RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }, true)
}

// LoadPaymentRateLimitConfig derives the bucket used on payment routes.
func LoadPaymentRateLimitConfig() RateLimitConfig {
    base := LoadRateLimitConfig()
    base.Capacity = envInt("PAYMENT_RATE_LIMIT_CAPACITY", 10)
    base.RefillInterval = envDur("PAYMENT_RATE_LIMIT_REFILL_INTERVAL", 6*time.Second)
    base.KeyStrategy = "user_route"
    base.Prefix = envStr("PAYMENT_RATE_LIMIT_PREFIX", "rl:pay")
    return normalizeRateLimit(base, false)
}

// normalizeRateLimit clamps def to usable values.  RATE_LIMIT_BURST
// overrides the capacity of the global bucket only, whatever its prefix.
func normalizeRateLimit(def RateLimitConfig, global bool) RateLimitConfig {
    if b := envInt("RATE_LIMIT_BURST", -1); b > 0 && global { def.Capacity = b }
    if def.Capacity < 1 { def.Capacity = 1 }
    if def.RefillTokens < 1 { def.RefillTokens = 1 }
    if def.RefillInterval <= 0 { def.RefillInterval = time.Second }
    minTTL := 5 * def.RefillInterval
    if def.TTL < minTTL { def.TTL = minTTL }
    return def
}
