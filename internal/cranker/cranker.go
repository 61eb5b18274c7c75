// Package cranker implements the permissionless background drainer
// described in spec.md §2/§9: "expensive or variable-fanout work ... is
// split into bounded, individually replayable tasks" that any caller may
// execute. It is grounded on the teacher's internal/mempool.Poller — a
// struct holding its dependencies, a Run(ctx) method built around
// time.Ticker + select on ctx.Done(), reporting progress through
// structured log fields rather than the teacher's log.Printf (see
// internal/coordinator.New's doc comment for why this one package uses
// zap instead of the teacher's plain log).
package cranker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rawblock/inferd/internal/coordinator"
	"github.com/rawblock/inferd/internal/queue"
)

// Drainer repeatedly pops the task queue's head and invokes the executor
// matching its kind (§4.4). It peeks the kind first rather than guessing,
// since a wrong-kind pop is a fatal error per §7.
type Drainer struct {
	engine   *coordinator.Engine
	store    coordinator.Store
	interval time.Duration
	log      *zap.Logger
}

func New(engine *coordinator.Engine, store coordinator.Store, interval time.Duration, log *zap.Logger) *Drainer {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Drainer{engine: engine, store: store, interval: interval, log: log}
}

// Run drains the queue on a fixed tick until ctx is cancelled. Each tick
// drains the queue fully (bounded by maxPerTick) rather than popping a
// single task, so a burst of enqueued work from one `infer` call doesn't
// wait multiple ticks to materialize.
func (d *Drainer) Run(ctx context.Context) {
	d.log.Info("cranker starting", zap.Duration("interval", d.interval))

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("cranker stopping")
			return
		case <-ticker.C:
			d.drainTick(ctx)
		}
	}
}

const maxPerTick = 200

func (d *Drainer) drainTick(ctx context.Context) {
	for i := 0; i < maxPerTick; i++ {
		kind, ok, err := d.store.PeekTaskKind(ctx)
		if err != nil {
			d.log.Error("peek task kind", zap.Error(err))
			return
		}
		if !ok {
			return
		}

		var execErr error
		switch kind {
		case queue.KindCreateAssignment:
			execErr = d.engine.CreateAssignment(ctx)
		case queue.KindPayMiner:
			execErr = d.engine.PayMiner(ctx)
		case queue.KindSlashMiner:
			execErr = d.engine.SlashMiner(ctx)
		default:
			d.log.Error("unknown task kind at queue head", zap.Uint8("kind", uint8(kind)))
			return
		}
		if execErr != nil {
			d.log.Error("task execution failed", zap.Uint8("kind", uint8(kind)), zap.Error(execErr))
			return
		}
	}
	d.log.Warn("drain tick hit maxPerTick cap, queue may be backing up", zap.Int("cap", maxPerTick))
}
