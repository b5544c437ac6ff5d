package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/sxk/signal-link/internal/database"
	"github.com/sxk/signal-link/internal/model"
)

type PairingRepository interface {
	FindBySessionCode(ctx context.Context, code string) (*model.PairingRecord, error)
	Upsert(ctx context.Context, params model.UpsertPairingParams) (*model.PairingRecord, error)
	CountUpdatedSince(ctx context.Context, since time.Time) (int, error)
}

type pairingRepo struct {
	db database.DBTX
}

func NewPairingRepository(db database.DBTX) PairingRepository {
	return &pairingRepo{db: db}
}

func (r *pairingRepo) FindBySessionCode(ctx context.Context, code string) (*model.PairingRecord, error) {
	var rec model.PairingRecord
	err := r.db.GetContext(ctx, &rec, `
		SELECT * FROM synced_locations WHERE session_code = $1
	`, code)
	return HandleNotFound(&rec, err)
}

// Upsert writes only the writer's slot columns, so both roles may write the
// same row concurrently. A nil IsSynced leaves the flag unchanged.
func (r *pairingRepo) Upsert(ctx context.Context, params model.UpsertPairingParams) (*model.PairingRecord, error) {
	query, ok := upsertQueries[params.Role]
	if !ok {
		return nil, fmt.Errorf("unknown role %q", params.Role)
	}

	var rec model.PairingRecord
	err := r.db.GetContext(ctx, &rec, query,
		params.SessionCode, params.Lat, params.Lng, params.IsSynced)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *pairingRepo) CountUpdatedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM synced_locations WHERE updated_at >= $1
	`, since)
	return count, err
}

var upsertQueries = map[model.Role]string{
	model.RoleRequester: slotUpsert("requester"),
	model.RolePartner:   slotUpsert("partner"),
}

func slotUpsert(slot string) string {
	return fmt.Sprintf(`
		INSERT INTO synced_locations (session_code, %[1]s_lat, %[1]s_lng, %[1]s_updated_at, is_synced)
		VALUES ($1, $2, $3, NOW(), COALESCE($4::boolean, FALSE))
		ON CONFLICT (session_code) DO UPDATE SET
			%[1]s_lat = EXCLUDED.%[1]s_lat,
			%[1]s_lng = EXCLUDED.%[1]s_lng,
			%[1]s_updated_at = EXCLUDED.%[1]s_updated_at,
			is_synced = COALESCE($4::boolean, synced_locations.is_synced),
			updated_at = NOW()
		RETURNING *
	`, slot)
}
