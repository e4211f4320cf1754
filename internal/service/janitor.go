package service

import (
	"context"
	"log"
	"time"
)

// JanitorStore is the slice of the audit repository the janitor needs.
type JanitorStore interface {
	FailStuckAudits(ctx context.Context, maxAge time.Duration) (int, error)
	DeleteExpiredAudits(ctx context.Context, retention time.Duration) (int, error)
}

// Janitor is a periodic background job with two duties: audits left in
// running state past the stuck deadline (a crashed orchestrator never hands
// them a terminal status) are failed so poll clients stop waiting, and
// terminal audits past the retention window are pruned.
type Janitor struct {
	store     JanitorStore
	interval  time.Duration
	stuckAge  time.Duration
	retention time.Duration
	stopCh    chan struct{}
}

// NewJanitor creates a janitor that ticks every interval.
func NewJanitor(store JanitorStore, interval, stuckAge, retention time.Duration) *Janitor {
	return &Janitor{
		store:     store,
		interval:  interval,
		stuckAge:  stuckAge,
		retention: retention,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic cleanup loop. It runs one tick immediately, then
// every interval.
func (j *Janitor) Start(ctx context.Context) {
	log.Printf("janitor: starting (interval=%s, stuck-after=%s, retention=%s)",
		j.interval, j.stuckAge, j.retention)

	j.tick(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.tick(ctx)
		case <-ctx.Done():
			log.Println("janitor: stopping (context cancelled)")
			return
		case <-j.stopCh:
			log.Println("janitor: stopping (stop signal)")
			return
		}
	}
}

// Stop signals the janitor to stop.
func (j *Janitor) Stop() {
	close(j.stopCh)
}

func (j *Janitor) tick(ctx context.Context) {
	start := time.Now()

	failed, err := j.store.FailStuckAudits(ctx, j.stuckAge)
	if err != nil {
		log.Printf("janitor: fail stuck audits: %v", err)
		return
	}

	pruned, err := j.store.DeleteExpiredAudits(ctx, j.retention)
	if err != nil {
		log.Printf("janitor: prune expired audits: %v", err)
		return
	}

	if failed > 0 || pruned > 0 {
		log.Printf("janitor: tick complete — %d stuck audits failed, %d expired audits pruned (%s)",
			failed, pruned, time.Since(start).Round(time.Millisecond))
	}
}
