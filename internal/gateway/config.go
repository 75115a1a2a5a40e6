package gateway

import "time"

// Config holds the gateway's own knobs — everything the router and its
// middleware stack need that isn't already owned by control.Config or
// auth.Config.
type Config struct {
	ListenAddr string

	// CORSOrigins is the allowed origin list. A single "*" entry allows any
	// origin.
	CORSOrigins []string

	RateLimitRPS            float64
	WebSocketTimeoutSeconds  uint64
	MaxBodyBytes             int64
	RequestTimeoutSeconds    uint64
}

// DefaultConfig returns the gateway's defaults, matching the platform's
// published defaults (100 rps, 1 MiB bodies, 30s requests, 300s sessions).
func DefaultConfig() Config {
	return Config{
		ListenAddr:              "0.0.0.0:8080",
		CORSOrigins:             []string{"*"},
		RateLimitRPS:            100,
		WebSocketTimeoutSeconds: 300,
		MaxBodyBytes:            1024 * 1024,
		RequestTimeoutSeconds:   30,
	}
}

func (c Config) WebSocketTimeout() time.Duration {
	return time.Duration(c.WebSocketTimeoutSeconds) * time.Second
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}
