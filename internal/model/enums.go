package model

// SessionOrigin records how this device came to hold its session code.
type SessionOrigin string

const (
	SessionOriginLocal SessionOrigin = "local"
	SessionOriginLink  SessionOrigin = "link"
)

func (o SessionOrigin) Valid() bool {
	return o == SessionOriginLocal || o == SessionOriginLink
}

// Role returns the slot of the shared record this device writes.
func (o SessionOrigin) Role() Role {
	if o == SessionOriginLink {
		return RolePartner
	}
	return RoleRequester
}

type Role string

const (
	RoleRequester Role = "requester"
	RolePartner   Role = "partner"
)

func (r Role) Valid() bool {
	return r == RoleRequester || r == RolePartner
}

// LinkState is the lifecycle state of the signal link widget.
type LinkState string

const (
	LinkStateIdle         LinkState = "idle"
	LinkStateSelfKnown    LinkState = "self_known"
	LinkStatePartnerKnown LinkState = "partner_known"
	LinkStatePaired       LinkState = "paired"
)
