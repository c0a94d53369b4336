package paper

import (
	"context"
	"fmt"
	"time"

	"github.com/EMS-UCU/ucu-uems-sub002/core"
)

// DueScheduler periodically issues credentials for approved papers whose
// printing due time has arrived. ExpirySweeper periodically reverts expired
// temporary unlocks. Both are safe to run in multiple replicas at once:
// every per-paper mutation is a conditional update, so concurrent workers
// race harmlessly and exactly one wins each claim.

type DueScheduler struct {
	svc      Service
	logger   core.Logger
	interval time.Duration
}

func NewDueScheduler(svc Service, logger core.Logger, conf *core.Config) *DueScheduler {
	return &DueScheduler{
		svc:      svc,
		logger:   logger,
		interval: conf.Vault.SweepInterval,
	}
}

// Run sweeps on every tick until ctx is cancelled. An immediate first sweep
// covers papers that came due while the process was down.
func (s *DueScheduler) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *DueScheduler) sweep(ctx context.Context) {
	issued, err := s.svc.SweepDueCredentials(ctx, nowFunc())
	if err != nil {
		s.logger.Error(fmt.Sprintf("due-credential sweep: %v", err), err)
		return
	}
	if issued > 0 {
		s.logger.Info(fmt.Sprintf("due-credential sweep: issued %d credential(s)", issued))
	}
}

type ExpirySweeper struct {
	svc      Service
	logger   core.Logger
	interval time.Duration
}

func NewExpirySweeper(svc Service, logger core.Logger, conf *core.Config) *ExpirySweeper {
	return &ExpirySweeper{
		svc:      svc,
		logger:   logger,
		interval: conf.Vault.SweepInterval,
	}
}

func (s *ExpirySweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ExpirySweeper) sweep(ctx context.Context) {
	relocked, err := s.svc.SweepExpiredUnlocks(ctx, nowFunc())
	if err != nil {
		s.logger.Error(fmt.Sprintf("unlock-expiry sweep: %v", err), err)
		return
	}
	if relocked > 0 {
		s.logger.Info(fmt.Sprintf("unlock-expiry sweep: re-locked %d paper(s)", relocked))
	}
}
