package main

import (
	"fmt"
	"io"
	"time"

	"github.com/sxk/signal-link/internal/geo"
	"github.com/sxk/signal-link/internal/model"
	"github.com/sxk/signal-link/internal/signal"
)

func renderSnapshot(w io.Writer, s signal.Snapshot, inviteURL string, now time.Time) {
	fmt.Fprintf(w, "Session:  %s (%s)\n", s.SessionCode, s.Role)
	fmt.Fprintf(w, "State:    %s\n", s.State)
	fmt.Fprintf(w, "You:      %s\n", renderPoint(s.Mine, now))
	fmt.Fprintf(w, "Partner:  %s\n", renderPoint(s.Partner, now))
	if s.Geometry != nil {
		fmt.Fprintf(w, "Distance: %s %s, ~%d min drive\n",
			geo.FormatKm(s.Geometry.DistanceKm), s.Geometry.Compass, s.Geometry.DriveMinutes)
	}
	if s.Role == model.RoleRequester {
		fmt.Fprintf(w, "Invite:   %s\n", inviteURL)
	}

	synced := "no"
	if s.IsSynced {
		synced = "yes"
	}
	fmt.Fprintf(w, "Synced:   %s\n", synced)

	if s.Requesting {
		fmt.Fprintln(w, "Waiting:  signal sent, partner has not synced yet")
	}
	if s.Err != nil {
		fmt.Fprintf(w, "Error:    %v\n", s.Err)
	}
	if s.NotifyErr != nil {
		fmt.Fprintf(w, "Notify:   %v\n", s.NotifyErr)
	}
}

func renderPoint(p *model.LocationPoint, now time.Time) string {
	if p == nil {
		return "unknown"
	}
	out := fmt.Sprintf("%.5f, %.5f", p.Lat, p.Lng)
	if p.UpdatedAt != nil {
		out += " (" + geo.FormatAgo(*p.UpdatedAt, now) + ")"
	}
	return out
}
