package config

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	deviceEnvPrefix           = "SIGNAL"
	defaultDeviceServer       = "http://localhost:8080"
	defaultDeviceStateFile    = ".signal-link.json"
	defaultDevicePollInterval = 3 * time.Second
	defaultDeviceLogLevel     = "warn"
	defaultDeviceKVNamespace  = "default"
	minDevicePollInterval     = 500 * time.Millisecond
	unsetCoordinate           = math.MaxFloat64
)

// DeviceConfig is the configuration of one signal-link device.
type DeviceConfig struct {
	Server       string
	Origin       string
	StateFile    string
	RedisURL     string
	KVNamespace  string
	Lat          float64
	Lng          float64
	HasPosition  bool
	PollInterval time.Duration
	LogLevel     string
}

// NewDeviceViper returns a viper instance with device defaults and SIGNAL_*
// env bindings.
func NewDeviceViper() *viper.Viper {
	v := viper.New()
	ApplyDeviceDefaults(v)
	return v
}

func ApplyDeviceDefaults(v *viper.Viper) {
	v.SetEnvPrefix(deviceEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("server", defaultDeviceServer)
	v.SetDefault("origin", "")
	v.SetDefault("state-file", defaultDeviceStateFile)
	v.SetDefault("redis-url", "")
	v.SetDefault("kv-namespace", defaultDeviceKVNamespace)
	v.SetDefault("lat", unsetCoordinate)
	v.SetDefault("lng", unsetCoordinate)
	v.SetDefault("poll-interval", defaultDevicePollInterval)
	v.SetDefault("log-level", defaultDeviceLogLevel)
}

// LoadDevice reads the device configuration from v. The invitation origin
// defaults to the server URL.
func LoadDevice(v *viper.Viper) (DeviceConfig, error) {
	cfg := DeviceConfig{
		Server:       strings.TrimRight(v.GetString("server"), "/"),
		Origin:       strings.TrimRight(v.GetString("origin"), "/"),
		StateFile:    v.GetString("state-file"),
		RedisURL:     v.GetString("redis-url"),
		KVNamespace:  v.GetString("kv-namespace"),
		Lat:          v.GetFloat64("lat"),
		Lng:          v.GetFloat64("lng"),
		PollInterval: v.GetDuration("poll-interval"),
		LogLevel:     v.GetString("log-level"),
	}
	if cfg.Origin == "" {
		cfg.Origin = cfg.Server
	}
	cfg.HasPosition = cfg.Lat != unsetCoordinate && cfg.Lng != unsetCoordinate

	if err := cfg.validate(); err != nil {
		return DeviceConfig{}, err
	}
	return cfg, nil
}

func (c DeviceConfig) validate() error {
	if _, err := url.ParseRequestURI(c.Server); err != nil {
		return fmt.Errorf("server must be an absolute URL: %w", err)
	}
	if c.RedisURL == "" && strings.TrimSpace(c.StateFile) == "" {
		return fmt.Errorf("state-file is required when redis-url is empty")
	}
	if c.PollInterval < minDevicePollInterval {
		return fmt.Errorf("poll-interval must be at least %s", minDevicePollInterval)
	}
	if c.HasPosition && (c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180) {
		return fmt.Errorf("lat/lng out of range: %g,%g", c.Lat, c.Lng)
	}
	return nil
}
