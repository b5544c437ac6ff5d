package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/sxk/signal-link/internal/client"
	"github.com/sxk/signal-link/internal/config"
	"github.com/sxk/signal-link/internal/identity"
	"github.com/sxk/signal-link/internal/kv"
	"github.com/sxk/signal-link/internal/location"
	redisclient "github.com/sxk/signal-link/internal/redis"
	"github.com/sxk/signal-link/internal/session"
	"github.com/sxk/signal-link/internal/signal"
)

// app holds the device-side dependencies shared by every command.
type app struct {
	cfg      config.DeviceConfig
	store    kv.Store
	resolver *session.Resolver
	client   *client.Client
	closers  []func() error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadDevice(viper.GetViper())
	if err != nil {
		return nil, err
	}
	setLogLevel(cfg.LogLevel)

	a := &app{
		cfg:    cfg,
		client: client.New(cfg.Server),
	}

	if cfg.RedisURL != "" {
		rc, err := redisclient.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect state store: %w", err)
		}
		a.store = kv.NewRedisStore(rc, cfg.KVNamespace)
		a.closers = append(a.closers, rc.Close)
	} else {
		a.store = kv.NewFileStore(cfg.StateFile)
	}

	a.resolver = session.NewResolver(a.store)
	return a, nil
}

// orchestrator resolves the session and seeds the state machine with the
// row currently held by the server.
func (a *app) orchestrator(ctx context.Context, inbound string) (*signal.Orchestrator, error) {
	sess, err := a.resolver.Resolve(ctx, inbound)
	if err != nil {
		return nil, err
	}

	var source location.Source
	if a.cfg.HasPosition {
		source = location.NewFixed(a.cfg.Lat, a.cfg.Lng)
	}

	clientID := identity.GetOrCreateClientID(ctx, a.store)
	a.client.WithClientID(clientID)
	log.Debug().Str("clientId", clientID).Str("role", string(sess.Role())).Msg("device identity resolved")

	o := signal.New(signal.Config{
		Session:      sess,
		Origin:       a.cfg.Origin,
		PollInterval: a.cfg.PollInterval,
	}, a.client, a.client, location.NewAcquirer(source, location.DefaultOptions()))

	rec, err := a.client.ReadOnce(ctx, sess.Code)
	if err != nil {
		log.Warn().Err(err).Msg("could not read current pairing")
	} else if rec != nil {
		o.Apply(rec)
	}
	return o, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			log.Debug().Err(err).Msg("close failed")
		}
	}
}
