package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sxk/signal-link/internal/kv"
)

const ClientIDKey = "sxk-client-id"

// GetOrCreateClientID returns the persisted client identifier, minting and
// storing a random one on first use. When storage is unavailable the returned
// identifier is only valid for this process and a warning is logged.
func GetOrCreateClientID(ctx context.Context, store kv.Store) string {
	stored, err := store.Get(ctx, ClientIDKey)
	if err == nil && strings.TrimSpace(stored) != "" {
		return stored
	}
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		log.Warn().Err(err).Msg("client id storage unavailable, using ephemeral id")
		return uuid.NewString()
	}

	id := uuid.NewString()
	if err := store.Set(ctx, ClientIDKey, id); err != nil {
		log.Warn().Err(err).Msg("failed to persist client id, using ephemeral id")
	}
	return id
}
