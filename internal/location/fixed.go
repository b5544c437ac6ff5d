package location

import (
	"context"
	"sync"
)

// Fixed reports a configured position. Move changes it for later calls.
type Fixed struct {
	mu       sync.RWMutex
	lat, lng float64
}

func NewFixed(lat, lng float64) *Fixed {
	return &Fixed{lat: lat, lng: lng}
}

func (f *Fixed) Move(lat, lng float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lat, f.lng = lat, lng
}

func (f *Fixed) CurrentPosition(_ context.Context, _ Options) (float64, float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lat, f.lng, nil
}
