package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sxk/signal-link/internal/model"
	"github.com/sxk/signal-link/internal/signal"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// pairingServer keeps one row per code the way the real server does.
type pairingServer struct {
	mu       sync.Mutex
	rows     map[string]*model.PairingRecord
	notified []string
}

func newPairingServer(t *testing.T) (*pairingServer, *httptest.Server) {
	ps := &pairingServer{rows: map[string]*model.PairingRecord{}}
	srv := httptest.NewServer(http.HandlerFunc(ps.serve))
	t.Cleanup(srv.Close)
	return ps, srv
}

func (p *pairingServer) serve(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if r.URL.Path == "/api/notify" {
		var body struct {
			Message string `json:"message"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		p.notified = append(p.notified, body.Message)
		w.Write([]byte(`{"ok":true}`))
		return
	}

	code := strings.TrimPrefix(r.URL.Path, "/v1/pairings/")
	switch r.Method {
	case http.MethodGet:
		rec, ok := p.rows[code]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"Pairing not found","code":"NOT_FOUND"}`))
			return
		}
		json.NewEncoder(w).Encode(rec)
	case http.MethodPut:
		var req model.UpsertPairingRequest
		json.NewDecoder(r.Body).Decode(&req)
		rec, ok := p.rows[code]
		if !ok {
			rec = &model.PairingRecord{SessionCode: code}
			p.rows[code] = rec
		}
		now := time.Now()
		if req.Role == model.RolePartner {
			rec.PartnerLat, rec.PartnerLng, rec.PartnerUpdatedAt = req.Lat, req.Lng, &now
		} else {
			rec.RequesterLat, rec.RequesterLng, rec.RequesterUpdatedAt = req.Lat, req.Lng, &now
		}
		if req.IsSynced != nil {
			rec.IsSynced = *req.IsSynced
		}
		rec.UpdatedAt = now
		json.NewEncoder(w).Encode(rec)
	}
}

func TestCLI_JoinAndShare(t *testing.T) {
	ps, srv := newPairingServer(t)
	stateFile := filepath.Join(t.TempDir(), "state.json")
	base := []string{"--server", srv.URL, "--state-file", stateFile}

	out, err := runCLI(t, append(base, "join", "https://sxk.example/?session=ab12cd")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Joined session AB12CD as partner")

	out, err = runCLI(t, append(base, "--lat", "16.85", "--lng", "96.12", "share")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Session:  AB12CD (partner)")
	assert.Contains(t, out, "Synced:   yes")

	ps.mu.Lock()
	defer ps.mu.Unlock()
	require.Contains(t, ps.rows, "AB12CD")
	assert.Equal(t, 16.85, *ps.rows["AB12CD"].PartnerLat)
	assert.Nil(t, ps.rows["AB12CD"].RequesterLat)
}

func TestCLI_PingNotifiesPartner(t *testing.T) {
	ps, srv := newPairingServer(t)
	stateFile := filepath.Join(t.TempDir(), "state.json")
	base := []string{"--server", srv.URL, "--origin", "https://sxk.example", "--state-file", stateFile}

	out, err := runCLI(t, append(base, "--lat", "16.79", "--lng", "96.19", "ping")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Signal sent. Invite: https://sxk.example/?session=")

	ps.mu.Lock()
	require.Len(t, ps.notified, 1)
	assert.Contains(t, ps.notified[0], "Partner is waiting at: https://sxk.example/?session=")
	ps.mu.Unlock()

	// Partner has not synced, so a second signal is refused.
	_, err = runCLI(t, append(base, "--lat", "16.79", "--lng", "96.19", "ping")...)
	assert.Error(t, err)
}

func TestCLI_PingWithoutPosition(t *testing.T) {
	_, srv := newPairingServer(t)
	stateFile := filepath.Join(t.TempDir(), "state.json")

	_, err := runCLI(t, "--server", srv.URL, "--state-file", stateFile, "ping")
	assert.Error(t, err)
}

func TestCLI_IDIsStable(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "state.json")

	first, err := runCLI(t, "--state-file", stateFile, "id")
	require.NoError(t, err)
	second, err := runCLI(t, "--state-file", stateFile, "id")
	require.NoError(t, err)

	assert.Len(t, strings.TrimSpace(first), 36)
	assert.Equal(t, first, second)
}

func TestCLI_JoinRejectsGarbage(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "state.json")
	_, err := runCLI(t, "--state-file", stateFile, "join", "https://sxk.example/about")
	assert.Error(t, err)
}

func TestRenderSnapshot(t *testing.T) {
	now := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	twoMinsAgo := now.Add(-2 * time.Minute)

	var out bytes.Buffer
	renderSnapshot(&out, signal.Snapshot{
		SessionCode: "AB12CD",
		Role:        model.RoleRequester,
		State:       model.LinkStatePaired,
		Mine:        &model.LocationPoint{Lat: 16.79, Lng: 96.19, UpdatedAt: &twoMinsAgo},
		Partner:     &model.LocationPoint{Lat: 16.85, Lng: 96.12, UpdatedAt: &now},
		IsSynced:    true,
		Geometry:    &model.Geometry{DistanceKm: 10.0012, Compass: "NW", DriveMinutes: 15},
	}, "https://sxk.example/?session=AB12CD", now)

	got := out.String()
	assert.Contains(t, got, "State:    paired")
	assert.Contains(t, got, "You:      16.79000, 96.19000 (2 mins ago)")
	assert.Contains(t, got, "Partner:  16.85000, 96.12000 (Just now)")
	assert.Contains(t, got, "Distance: 10.0km NW, ~15 min drive")
	assert.Contains(t, got, "Invite:   https://sxk.example/?session=AB12CD")
	assert.Contains(t, got, "Synced:   yes")
}

func TestRenderSnapshot_PartnerHidesInvite(t *testing.T) {
	var out bytes.Buffer
	renderSnapshot(&out, signal.Snapshot{SessionCode: "AB12CD", Role: model.RolePartner, State: model.LinkStateIdle},
		"https://sxk.example/?session=AB12CD", time.Now())

	assert.NotContains(t, out.String(), "Invite:")
	assert.Contains(t, out.String(), "You:      unknown")
}
