package config

import (
	"strings"
	"time"
)

// CacheConfig controls the Redis response cache middleware. Methods
// holds the HTTP methods worth caching, TTL the entry lifetime, and
// KeyStrategy which request parts form the cache key. Responses larger
// than MaxBodyBytes are served but never stored.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig builds a CacheConfig from CACHE_* environment
// variables, defaulting to caching GET responses for 30 seconds.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envOr("CACHE_ENABLED", "true") == "true",
		Methods:      parseMethods(envOr("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		KeyStrategy:  envOr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envOr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: intOr("CACHE_MAX_BODY_BYTES", 1048576),
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
