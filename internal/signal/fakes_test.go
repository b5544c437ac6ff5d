package signal

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sxk/signal-link/internal/model"
)

// memStore mirrors the server's role-scoped upsert on a single in-memory row
// per session code, stamping writes from a clock that advances one second per
// write.
type memStore struct {
	mu      sync.Mutex
	rows    map[string]model.PairingRecord
	subs    map[int]func(*model.PairingRecord)
	nextSub int
	clock   time.Time
	failErr error
}

func newMemStore() *memStore {
	return &memStore{
		rows:  make(map[string]model.PairingRecord),
		subs:  make(map[int]func(*model.PairingRecord)),
		clock: time.Now().Add(time.Minute),
	}
}

func (s *memStore) UpsertMine(_ context.Context, code string, role model.Role, p model.LocationPoint, synced *bool) (*model.PairingRecord, error) {
	s.mu.Lock()
	if s.failErr != nil {
		s.mu.Unlock()
		return nil, s.failErr
	}

	s.clock = s.clock.Add(time.Second)
	now := s.clock
	row, ok := s.rows[code]
	if !ok {
		row = model.PairingRecord{SessionCode: code, CreatedAt: now}
	}

	lat, lng := p.Lat, p.Lng
	if role == model.RolePartner {
		row.PartnerLat, row.PartnerLng, row.PartnerUpdatedAt = &lat, &lng, &now
	} else {
		row.RequesterLat, row.RequesterLng, row.RequesterUpdatedAt = &lat, &lng, &now
	}
	if synced != nil {
		row.IsSynced = *synced
	}
	row.UpdatedAt = now
	s.rows[code] = row

	subs := make([]func(*model.PairingRecord), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		cp := row
		fn(&cp)
	}

	out := row
	return &out, nil
}

func (s *memStore) ReadOnce(_ context.Context, code string) (*model.PairingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[code]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (s *memStore) Row(code string) *model.PairingRecord {
	r, _ := s.ReadOnce(context.Background(), code)
	return r
}

func (s *memStore) Subscribe(_ context.Context, _ string, onChange func(*model.PairingRecord)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = onChange
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *memStore) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, message string) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

type failingLocator struct {
	err error
}

func (l failingLocator) Acquire(context.Context) (model.LocationPoint, error) {
	return model.LocationPoint{}, l.err
}
