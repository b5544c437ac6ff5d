package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestPairingRecord_Slots(t *testing.T) {
	now := time.Now()

	t.Run("returns both slots when populated", func(t *testing.T) {
		rec := &PairingRecord{
			SessionCode:        "ABC123",
			RequesterLat:       ptr(16.79),
			RequesterLng:       ptr(96.19),
			RequesterUpdatedAt: &now,
			PartnerLat:         ptr(16.85),
			PartnerLng:         ptr(96.12),
		}

		req := rec.Requester()
		require.NotNil(t, req)
		assert.Equal(t, 16.79, req.Lat)
		assert.Equal(t, 96.19, req.Lng)
		require.NotNil(t, req.UpdatedAt)
		assert.True(t, req.UpdatedAt.Equal(now))

		partner := rec.Partner()
		require.NotNil(t, partner)
		assert.Equal(t, 16.85, partner.Lat)
		assert.Nil(t, partner.UpdatedAt)
	})

	t.Run("half-populated slot is treated as empty", func(t *testing.T) {
		rec := &PairingRecord{RequesterLat: ptr(1.0)}
		assert.Nil(t, rec.Requester())
		assert.Nil(t, rec.Partner())
	})

	t.Run("Slot selects by role", func(t *testing.T) {
		rec := &PairingRecord{PartnerLat: ptr(2.0), PartnerLng: ptr(3.0)}
		assert.Nil(t, rec.Slot(RoleRequester))
		assert.Equal(t, 2.0, rec.Slot(RolePartner).Lat)
	})
}

func TestSessionOrigin(t *testing.T) {
	assert.Equal(t, RoleRequester, SessionOriginLocal.Role())
	assert.Equal(t, RolePartner, SessionOriginLink.Role())
	assert.True(t, SessionOriginLink.Valid())
	assert.False(t, SessionOrigin("remote").Valid())
	assert.False(t, Role("observer").Valid())
}

func TestLocationPoint_SamePosition(t *testing.T) {
	var nilPoint *LocationPoint
	assert.True(t, nilPoint.SamePosition(nil))
	assert.False(t, nilPoint.SamePosition(&LocationPoint{}))
	assert.True(t, (&LocationPoint{Lat: 1, Lng: 2}).SamePosition(&LocationPoint{Lat: 1, Lng: 2}))
	assert.False(t, (&LocationPoint{Lat: 1, Lng: 2}).SamePosition(&LocationPoint{Lat: 1, Lng: 3}))
}
