// Package signal holds the state machine behind the signal link: it pushes
// this device's position into the shared pairing row, ingests the partner's
// from push and poll deliveries, and derives the geometry between them.
package signal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/sxk/signal-link/internal/errors"
	"github.com/sxk/signal-link/internal/location"
	"github.com/sxk/signal-link/internal/model"
	"github.com/sxk/signal-link/internal/session"
	"github.com/sxk/signal-link/internal/util"
)

const DefaultPollInterval = 3 * time.Second

type Store interface {
	UpsertMine(ctx context.Context, code string, role model.Role, p model.LocationPoint, synced *bool) (*model.PairingRecord, error)
	ReadOnce(ctx context.Context, code string) (*model.PairingRecord, error)
	Subscribe(ctx context.Context, code string, onChange func(*model.PairingRecord)) func()
}

type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type Config struct {
	Session      session.Session
	Origin       string
	PollInterval time.Duration
}

type PingResult struct {
	InviteURL string
	NotifyErr error
}

type Orchestrator struct {
	cfg      Config
	role     model.Role
	store    Store
	notifier Notifier
	locator  location.Provider

	mu           sync.Mutex
	mine         *model.LocationPoint
	partner      *model.LocationPoint
	synced       bool
	writeFailed  bool
	rowUpdatedAt time.Time
	requesting   bool
	sharing      bool
	lastErr      error
	notifyErr    error
	listeners    []func(Snapshot)
}

func New(cfg Config, store Store, notifier Notifier, locator location.Provider) *Orchestrator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Orchestrator{
		cfg:      cfg,
		role:     cfg.Session.Role(),
		store:    store,
		notifier: notifier,
		locator:  locator,
	}
}

// OnChange registers fn to receive a snapshot after every visible change.
func (o *Orchestrator) OnChange(fn func(Snapshot)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, fn)
}

// InviteURL is the link the partner opens to join this session.
func (o *Orchestrator) InviteURL() string {
	return session.InviteURL(o.cfg.Origin, o.cfg.Session.Code)
}

// Ping captures this device's position, records it unsynced and asks the
// relay to invite the partner. Only the device that minted the session pings.
// A relay failure is reported in PingResult and never undoes the write.
func (o *Orchestrator) Ping(ctx context.Context) (PingResult, error) {
	if o.role != model.RoleRequester {
		return PingResult{}, apperrors.WrongRole("Ping")
	}

	o.mu.Lock()
	if !o.canPingLocked() {
		o.mu.Unlock()
		return PingResult{}, apperrors.PingPending()
	}
	o.requesting = true
	o.mu.Unlock()
	o.emit()

	defer func() {
		o.mu.Lock()
		o.requesting = false
		o.mu.Unlock()
		o.emit()
	}()

	if err := o.push(ctx, false); err != nil {
		return PingResult{}, err
	}

	invite := o.InviteURL()
	result := PingResult{InviteURL: invite}

	var err error
	if o.notifier == nil {
		err = apperrors.NotConfigured("Relay")
	} else {
		err = o.notifier.Notify(ctx, PingMessage(invite))
	}
	if err != nil {
		log.Warn().Err(err).Str("sessionCode", util.MaskCode(o.cfg.Session.Code)).Msg("signal request not delivered")
		result.NotifyErr = err
	}

	o.mu.Lock()
	o.notifyErr = err
	o.mu.Unlock()
	o.emit()

	return result, nil
}

// Share captures this device's position and records it synced. Either role
// may share.
func (o *Orchestrator) Share(ctx context.Context) error {
	o.mu.Lock()
	o.sharing = true
	o.mu.Unlock()
	o.emit()

	defer func() {
		o.mu.Lock()
		o.sharing = false
		o.mu.Unlock()
		o.emit()
	}()

	return o.push(ctx, true)
}

func PingMessage(inviteURL string) string {
	return fmt.Sprintf("📍 Signal Request.\nPartner is waiting at: %s", inviteURL)
}

// push acquires a fix, shows it optimistically and writes it to the store.
// Acquisition failure leaves state untouched. A write failure keeps the
// optimistic point but leaves the sync flag to rows the store returns.
func (o *Orchestrator) push(ctx context.Context, synced bool) error {
	point, err := o.locator.Acquire(ctx)
	if err != nil {
		o.fail(err)
		return err
	}

	o.mu.Lock()
	o.mine = &point
	o.lastErr = nil
	o.mu.Unlock()
	o.emit()

	record, err := o.store.UpsertMine(ctx, o.cfg.Session.Code, o.role, point, &synced)
	if err != nil {
		if !apperrors.IsAppError(err) {
			err = apperrors.SyncWriteFailed(err)
		}
		o.mu.Lock()
		o.writeFailed = true
		o.mu.Unlock()
		o.fail(err)
		return err
	}

	o.mu.Lock()
	o.writeFailed = false
	o.mu.Unlock()

	log.Info().
		Str("sessionCode", util.MaskCode(o.cfg.Session.Code)).
		Str("role", string(o.role)).
		Bool("isSynced", synced).
		Msg("location synced")

	if o.apply(record, true) {
		o.emit()
	}
	return nil
}

func (o *Orchestrator) fail(err error) {
	log.Warn().Err(err).Str("role", string(o.role)).Msg("signal action failed")
	o.mu.Lock()
	o.lastErr = err
	o.mu.Unlock()
	o.emit()
}

// Apply merges a delivered row. It reports whether anything visible changed;
// stale or duplicate rows are no-ops.
func (o *Orchestrator) Apply(record *model.PairingRecord) bool {
	changed := o.apply(record, false)
	if changed {
		o.emit()
	}
	return changed
}

func (o *Orchestrator) apply(record *model.PairingRecord, ownWrite bool) bool {
	if record == nil || record.SessionCode != o.cfg.Session.Code {
		return false
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.rowUpdatedAt.IsZero() && record.UpdatedAt.Before(o.rowUpdatedAt) {
		log.Debug().
			Time("incoming", record.UpdatedAt).
			Time("held", o.rowUpdatedAt).
			Msg("dropping stale pairing row")
		return false
	}

	changed := false

	if p := record.Slot(o.role); p != nil && (ownWrite || fresher(p, o.mine)) && !samePoint(p, o.mine) {
		o.mine = p
		changed = true
	}
	if p := record.Slot(other(o.role)); p != nil && fresher(p, o.partner) && !samePoint(p, o.partner) {
		o.partner = p
		changed = true
	}
	if record.IsSynced != o.synced {
		o.synced = record.IsSynced
		changed = true
	}
	if record.UpdatedAt.After(o.rowUpdatedAt) {
		o.rowUpdatedAt = record.UpdatedAt
	}

	return changed
}

// fresher reports whether incoming may replace held. Points without a
// timestamp cannot be ordered and are accepted.
func fresher(incoming, held *model.LocationPoint) bool {
	if held == nil || held.UpdatedAt == nil || incoming.UpdatedAt == nil {
		return true
	}
	return !incoming.UpdatedAt.Before(*held.UpdatedAt)
}

func samePoint(a, b *model.LocationPoint) bool {
	if !a.SamePosition(b) {
		return false
	}
	if a == nil || b == nil {
		return true
	}
	switch {
	case a.UpdatedAt == nil && b.UpdatedAt == nil:
		return true
	case a.UpdatedAt == nil || b.UpdatedAt == nil:
		return false
	default:
		return a.UpdatedAt.Equal(*b.UpdatedAt)
	}
}

func other(role model.Role) model.Role {
	if role == model.RolePartner {
		return model.RoleRequester
	}
	return model.RolePartner
}

// canPingLocked holds back a second ping only while a stored, unsynced
// point is waiting for the partner. A failed write never blocks a retry.
func (o *Orchestrator) canPingLocked() bool {
	if o.requesting {
		return false
	}
	return o.mine == nil || o.synced || o.writeFailed
}

func (o *Orchestrator) emit() {
	o.mu.Lock()
	snap := o.snapshotLocked()
	listeners := append([]func(Snapshot){}, o.listeners...)
	o.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

// Run ingests pushed and polled rows until ctx ends. Both sources publish
// into one channel; the subscription and poller are released on return.
func (o *Orchestrator) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	inbound := make(chan *model.PairingRecord, 16)
	publish := func(record *model.PairingRecord) {
		select {
		case inbound <- record:
		case <-ctx.Done():
		}
	}

	unsubscribe := o.store.Subscribe(ctx, o.cfg.Session.Code, publish)
	defer unsubscribe()

	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	wg.Add(1)
	go func() {
		defer wg.Done()
		o.poll(ctx, publish)
	}()

	log.Info().
		Str("sessionCode", util.MaskCode(o.cfg.Session.Code)).
		Str("role", string(o.role)).
		Dur("pollInterval", o.cfg.PollInterval).
		Msg("signal link running")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case record := <-inbound:
			o.Apply(record)
		}
	}
}

func (o *Orchestrator) poll(ctx context.Context, publish func(*model.PairingRecord)) {
	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	for {
		record, err := o.store.ReadOnce(ctx, o.cfg.Session.Code)
		if err != nil {
			if ctx.Err() == nil {
				log.Debug().Err(err).Msg("pairing poll failed")
			}
		} else if record != nil {
			publish(record)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
