package model

import (
	"time"
)

// PairingRecord is the single shared row for a session code.
type PairingRecord struct {
	SessionCode        string     `db:"session_code" json:"sessionCode"`
	RequesterLat       *float64   `db:"requester_lat" json:"requesterLat"`
	RequesterLng       *float64   `db:"requester_lng" json:"requesterLng"`
	RequesterUpdatedAt *time.Time `db:"requester_updated_at" json:"requesterUpdatedAt,omitempty"`
	PartnerLat         *float64   `db:"partner_lat" json:"partnerLat"`
	PartnerLng         *float64   `db:"partner_lng" json:"partnerLng"`
	PartnerUpdatedAt   *time.Time `db:"partner_updated_at" json:"partnerUpdatedAt,omitempty"`
	IsSynced           bool       `db:"is_synced" json:"isSynced"`
	CreatedAt          time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updatedAt"`
}

// Requester returns the requester slot, or nil when either coordinate is missing.
func (r *PairingRecord) Requester() *LocationPoint {
	return slotPoint(r.RequesterLat, r.RequesterLng, r.RequesterUpdatedAt)
}

// Partner returns the partner slot, or nil when either coordinate is missing.
func (r *PairingRecord) Partner() *LocationPoint {
	return slotPoint(r.PartnerLat, r.PartnerLng, r.PartnerUpdatedAt)
}

// Slot returns the point stored for role.
func (r *PairingRecord) Slot(role Role) *LocationPoint {
	if role == RolePartner {
		return r.Partner()
	}
	return r.Requester()
}

func slotPoint(lat, lng *float64, updatedAt *time.Time) *LocationPoint {
	if lat == nil || lng == nil {
		return nil
	}
	p := &LocationPoint{Lat: *lat, Lng: *lng}
	if updatedAt != nil {
		t := *updatedAt
		p.UpdatedAt = &t
	}
	return p
}

type UpsertPairingParams struct {
	SessionCode string
	Role        Role
	Lat         float64
	Lng         float64
	IsSynced    *bool
}

// UpsertPairingRequest is the wire body of PUT /v1/pairings/{code}.
type UpsertPairingRequest struct {
	Role     Role     `json:"role" validate:"required,oneof=requester partner"`
	Lat      *float64 `json:"lat" validate:"required,latitude"`
	Lng      *float64 `json:"lng" validate:"required,longitude"`
	IsSynced *bool    `json:"isSynced,omitempty"`
}
