package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"chat-assistant-server/internal/domain"
	"chat-assistant-server/internal/metrics"
)

const (
	sweepBatchSize = 500
	sweepWorkers   = 8
	sweepTimeout   = 5 * time.Minute
)

// ExpirySweeper periodically downgrades premium accounts whose window has
// ended. Requests already downgrade lazily; the sweep keeps storage honest
// for accounts that stay idle.
type ExpirySweeper struct {
	gate    *GateService
	store   domain.AccountStore
	cron    *cron.Cron
	logger  domain.Logger
	metrics *metrics.Metrics
}

func NewExpirySweeper(gate *GateService, store domain.AccountStore, logger domain.Logger, m *metrics.Metrics) *ExpirySweeper {
	return &ExpirySweeper{
		gate:    gate,
		store:   store,
		cron:    cron.New(),
		logger:  logger,
		metrics: m,
	}
}

// Start schedules the sweep with a standard cron spec or an @every
// descriptor and starts the scheduler.
func (s *ExpirySweeper) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()

		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("Expiry sweep failed", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("Expiry sweep scheduled", "schedule", schedule)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *ExpirySweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep downgrades one batch of expired accounts and returns how many it
// changed. Per-account failures are logged and skipped.
func (s *ExpirySweeper) Sweep(ctx context.Context) (int, error) {
	ids, err := s.store.ListExpiredPremium(ctx, s.gate.Now(), sweepBatchSize)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var downgraded atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepWorkers)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			changed, err := s.gate.ExpireIfDue(gctx, id)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Error("Failed to expire account", err, "account_id", id)
				return nil
			}
			if changed {
				downgraded.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(downgraded.Load()), err
	}

	n := int(downgraded.Load())
	if s.metrics != nil {
		s.metrics.ExpiredSweeps.Add(float64(n))
	}
	s.logger.Info("Expiry sweep finished", "candidates", len(ids), "downgraded", n)
	return n, nil
}
