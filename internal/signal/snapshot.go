package signal

import (
	"github.com/sxk/signal-link/internal/geo"
	"github.com/sxk/signal-link/internal/model"
)

// Snapshot is a copy of the orchestrator's visible state.
type Snapshot struct {
	SessionCode string
	Role        model.Role
	State       model.LinkState
	Mine        *model.LocationPoint
	Partner     *model.LocationPoint
	IsSynced    bool
	Geometry    *model.Geometry
	Requesting  bool
	Sharing     bool
	CanPing     bool
	Err         error
	NotifyErr   error
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// CanPing reports whether a new invitation may be sent.
func (o *Orchestrator) CanPing() bool {
	if o.role != model.RoleRequester {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.canPingLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	s := Snapshot{
		SessionCode: o.cfg.Session.Code,
		Role:        o.role,
		Mine:        copyPoint(o.mine),
		Partner:     copyPoint(o.partner),
		IsSynced:    o.synced,
		Requesting:  o.requesting,
		Sharing:     o.sharing,
		CanPing:     o.role == model.RoleRequester && o.canPingLocked(),
		Err:         o.lastErr,
		NotifyErr:   o.notifyErr,
	}

	switch {
	case s.Mine != nil && s.Partner != nil:
		s.State = model.LinkStatePaired
		g := geo.Between(*s.Mine, *s.Partner)
		s.Geometry = &g
	case s.Mine != nil:
		s.State = model.LinkStateSelfKnown
	case s.Partner != nil:
		s.State = model.LinkStatePartnerKnown
	default:
		s.State = model.LinkStateIdle
	}
	return s
}

func copyPoint(p *model.LocationPoint) *model.LocationPoint {
	if p == nil {
		return nil
	}
	c := *p
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		c.UpdatedAt = &t
	}
	return &c
}
