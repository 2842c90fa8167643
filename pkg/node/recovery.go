package node

import (
	"context"
	"time"

	"github.com/cuemby/dwn/pkg/log"
	"github.com/cuemby/dwn/pkg/provider"
	"github.com/cuemby/dwn/pkg/records"
	"github.com/rs/zerolog"
)

// recoverySweepInterval is how often the background sweep re-grabs
// interrupted prune tasks (spec.md §4.8). Short enough that a crash
// mid-purge is resumed well within an operator's patience, long enough
// not to spin the task store's lease scan for no reason.
const recoverySweepInterval = 30 * time.Second

// recoverySweepBatch bounds how many stale tasks one sweep resumes, so
// an unbounded backlog can't make a single cycle run forever.
const recoverySweepBatch = 16

// recoverySweeper periodically calls records.RecoverPruneTasks so a
// node that crashed between registering a prune task and completing it
// resumes the purge on its own, without an operator noticing. Grounded
// on the teacher's reconciler.Reconciler (pkg/reconciler/reconciler.go):
// a ticker-driven loop stopped by closing a channel.
type recoverySweeper struct {
	p      provider.Provider
	stopCh chan struct{}
}

func newRecoverySweeper(p provider.Provider) *recoverySweeper {
	return &recoverySweeper{p: p, stopCh: make(chan struct{})}
}

func (s *recoverySweeper) start() {
	go s.run()
}

func (s *recoverySweeper) stop() {
	close(s.stopCh)
}

func (s *recoverySweeper) run() {
	logger := log.WithComponent("recovery")
	ticker := time.NewTicker(recoverySweepInterval)
	defer ticker.Stop()

	// Sweep once immediately: a node that just restarted after a crash
	// shouldn't wait a full interval before resuming whatever prune task
	// it left behind.
	s.sweep(logger)

	for {
		select {
		case <-ticker.C:
			s.sweep(logger)
		case <-s.stopCh:
			return
		}
	}
}

func (s *recoverySweeper) sweep(logger zerolog.Logger) {
	n, err := records.RecoverPruneTasks(context.Background(), s.p, recoverySweepBatch)
	if err != nil {
		logger.Error().Err(err).Msg("prune task recovery sweep failed")
		return
	}
	if n > 0 {
		logger.Info().Int("resumed", n).Msg("resumed interrupted prune tasks")
	}
}
