package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sxk/signal-link/internal/metrics"
)

const statsQueryTimeout = 10 * time.Second

// ActivityCounter counts pairing rows written since a point in time.
type ActivityCounter interface {
	CountUpdatedSince(ctx context.Context, since time.Time) (int, error)
}

// StatsJob periodically publishes the number of recently active sessions.
type StatsJob struct {
	repo     ActivityCounter
	interval time.Duration
	window   time.Duration
	now      func() time.Time
	done     chan struct{}
}

func NewStatsJob(repo ActivityCounter, interval, window time.Duration) *StatsJob {
	return &StatsJob{
		repo:     repo,
		interval: interval,
		window:   window,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

func (j *StatsJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Dur("window", j.window).Msg("stats job started")
}

func (j *StatsJob) Stop() {
	close(j.done)
	log.Info().Msg("stats job stopped")
}

func (j *StatsJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.collect()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.collect()
		}
	}
}

func (j *StatsJob) collect() {
	ctx, cancel := context.WithTimeout(context.Background(), statsQueryTimeout)
	defer cancel()

	count, err := j.repo.CountUpdatedSince(ctx, j.now().Add(-j.window))
	if err != nil {
		log.Error().Err(err).Msg("failed to count active sessions")
		return
	}

	metrics.SetActiveSessions(count)
	log.Debug().Int("activeSessions", count).Msg("active sessions updated")
}
