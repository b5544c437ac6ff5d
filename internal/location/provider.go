// Package location wraps a device positioning capability behind a single
// scoped acquisition call.
package location

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/sxk/signal-link/internal/errors"
	"github.com/sxk/signal-link/internal/model"
)

const DefaultTimeout = 10 * time.Second

// ErrDenied is returned by a Source when the user or platform refuses access.
var ErrDenied = errors.New("location: permission denied")

type Options struct {
	HighAccuracy bool
	MaximumAge   time.Duration
	Timeout      time.Duration
}

func DefaultOptions() Options {
	return Options{
		HighAccuracy: true,
		MaximumAge:   0,
		Timeout:      DefaultTimeout,
	}
}

// Source is the platform positioning capability. Implementations may ignore
// ctx; the Acquirer enforces the deadline itself.
type Source interface {
	CurrentPosition(ctx context.Context, opts Options) (lat, lng float64, err error)
}

type SourceFunc func(ctx context.Context, opts Options) (float64, float64, error)

func (f SourceFunc) CurrentPosition(ctx context.Context, opts Options) (float64, float64, error) {
	return f(ctx, opts)
}

type Provider interface {
	Acquire(ctx context.Context) (model.LocationPoint, error)
}

type Acquirer struct {
	source Source
	opts   Options
	now    func() time.Time
}

func NewAcquirer(source Source, opts Options) *Acquirer {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Acquirer{source: source, opts: opts, now: time.Now}
}

type fix struct {
	lat, lng float64
	err      error
}

// Acquire returns exactly one fresh fix. The platform call runs on its own
// goroutine; if ctx ends or the timeout elapses first, its eventual result is
// discarded.
func (a *Acquirer) Acquire(ctx context.Context) (model.LocationPoint, error) {
	if a == nil || a.source == nil {
		return model.LocationPoint{}, apperrors.GeolocationUnavailable()
	}

	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	result := make(chan fix, 1)
	go func() {
		lat, lng, err := a.source.CurrentPosition(ctx, a.opts)
		result <- fix{lat: lat, lng: lng, err: err}
	}()

	select {
	case f := <-result:
		if f.err != nil {
			return model.LocationPoint{}, classify(f.err)
		}
		if !validCoordinates(f.lat, f.lng) {
			log.Warn().Float64("lat", f.lat).Float64("lng", f.lng).Msg("location source returned out-of-range fix")
			return model.LocationPoint{}, apperrors.GeolocationUnavailable()
		}
		now := a.now()
		return model.LocationPoint{Lat: f.lat, Lng: f.lng, UpdatedAt: &now}, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return model.LocationPoint{}, apperrors.GeolocationTimeout()
		}
		return model.LocationPoint{}, ctx.Err()
	}
}

func classify(err error) error {
	switch {
	case apperrors.IsGeolocation(err):
		return err
	case errors.Is(err, ErrDenied):
		return apperrors.GeolocationDenied(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.GeolocationTimeout()
	default:
		return apperrors.GeolocationUnavailable().WithCause(err)
	}
}

func validCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
