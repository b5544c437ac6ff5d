package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const StatsJobInterval = time.Minute

// Sessions whose row changed within this window count as active.
const ActiveSessionWindow = 15 * time.Minute

// Notification relay
const (
	TelegramTimeout = 5 * time.Second
	NotifyWindow    = time.Minute
)

// Pairing writes
const PairingRateLimitPerMin = 120
