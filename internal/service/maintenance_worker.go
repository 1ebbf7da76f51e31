package service

import (
	"context"
	"log"
	"time"

	"github.com/redstone-squid/Redstone-Squid/internal/repository"
)

// titleBatchSize bounds one sweep so a post-rebuild backlog of untitled
// rows is worked off gradually instead of in a single long pass.
const titleBatchSize = 500

// staleLockAge is how long a build's edit lock may sit before the sweeper
// assumes its session crashed and force-releases it.
const staleLockAge = 5 * time.Minute

// MaintenanceWorker runs the periodic housekeeping jobs: backfilling
// display titles on record rows (record writes reset the title to NULL)
// and releasing edit locks leaked by crashed vote sessions.
type MaintenanceWorker struct {
	records       *repository.RecordRepo
	builds        *repository.BuildRepo
	titleInterval time.Duration
	stopCh        chan struct{}
}

// NewMaintenanceWorker creates a worker that sweeps titles every
// titleInterval; stale locks are swept on their own, shorter cadence.
func NewMaintenanceWorker(records *repository.RecordRepo, builds *repository.BuildRepo, titleInterval time.Duration) *MaintenanceWorker {
	return &MaintenanceWorker{
		records:       records,
		builds:        builds,
		titleInterval: titleInterval,
		stopCh:        make(chan struct{}),
	}
}

// Start begins the housekeeping loop. Both sweeps run once immediately,
// then on their tickers.
func (w *MaintenanceWorker) Start(ctx context.Context) {
	log.Printf("maintenance: starting (titles every %s, locks every %s)", w.titleInterval, staleLockAge)

	w.sweepTitles(ctx)
	w.sweepLocks(ctx)

	titleTicker := time.NewTicker(w.titleInterval)
	defer titleTicker.Stop()
	lockTicker := time.NewTicker(staleLockAge)
	defer lockTicker.Stop()

	for {
		select {
		case <-titleTicker.C:
			w.sweepTitles(ctx)
		case <-lockTicker.C:
			w.sweepLocks(ctx)
		case <-ctx.Done():
			log.Println("maintenance: stopping (context cancelled)")
			return
		case <-w.stopCh:
			log.Println("maintenance: stopping (stop signal)")
			return
		}
	}
}

// Stop signals the worker to stop.
func (w *MaintenanceWorker) Stop() {
	close(w.stopCh)
}

// sweepTitles runs one backfill cycle over a bounded batch of untitled rows.
func (w *MaintenanceWorker) sweepTitles(ctx context.Context) {
	start := time.Now()

	slots, err := w.records.Untitled(ctx, titleBatchSize)
	if err != nil {
		log.Printf("maintenance: title sweep error: %v", err)
		return
	}
	if len(slots) == 0 {
		return
	}

	titled := 0
	for i := range slots {
		title := RecordTitle(&slots[i])
		if err := w.records.SetTitle(ctx, slots[i].RecordKey, title); err != nil {
			log.Printf("maintenance: error titling %s: %v", slots[i].RecordKey.String(), err)
			continue
		}
		titled++
	}

	elapsed := time.Since(start)
	log.Printf("maintenance: title sweep complete — %d of %d records titled (%s)",
		titled, len(slots), elapsed.Round(time.Millisecond))
}

// sweepLocks force-releases edit locks older than staleLockAge.
func (w *MaintenanceWorker) sweepLocks(ctx context.Context) {
	released, err := w.builds.ReleaseStaleLocks(ctx, staleLockAge)
	if err != nil {
		log.Printf("maintenance: lock sweep error: %v", err)
		return
	}
	if released > 0 {
		log.Printf("maintenance: lock sweep released %d stale build locks", released)
	}
}
