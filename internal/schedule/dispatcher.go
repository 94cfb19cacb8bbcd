package schedule

import (
	"context"
	"fmt"
	"time"

	"imgbot/internal/storage"
	logx "imgbot/pkg/logx"
)

// DispatcherConfig controls the polling loop.
type DispatcherConfig struct {
	PollInterval time.Duration // default 5s
	BatchSize    int           // default 10
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	return c
}

// Dispatcher claims due rows from the store and executes their deliveries.
// One instance is expected per process; correctness under more instances is
// carried by the store's atomic claim, not by anything here.
type Dispatcher struct {
	store    *storage.DB
	resolve  Resolver
	handlers *Registry
	cfg      DispatcherConfig
	log      logx.Logger
}

func NewDispatcher(store *storage.DB, resolve Resolver, handlers *Registry, cfg DispatcherConfig, log logx.Logger) *Dispatcher {
	if handlers == nil {
		handlers = NewRegistry()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{
		store:    store,
		resolve:  resolve,
		handlers: handlers,
		cfg:      cfg.withDefaults(),
		log:      log,
	}
}

// Run polls until ctx is done. Shutdown is only observed between ticks; a
// tick in progress always completes.
func (dp *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(dp.cfg.PollInterval)
	defer ticker.Stop()

	dp.log.Info("dispatcher started",
		logx.Duration("poll_interval", dp.cfg.PollInterval),
		logx.Int("batch_size", dp.cfg.BatchSize))

	for {
		if _, err := dp.Tick(ctx, time.Now().Unix()); err != nil {
			// Store-level failure: give up on this tick, recover on the next.
			dp.log.Error("dispatch tick failed", logx.Err(err))
		}
		select {
		case <-ctx.Done():
			dp.log.Info("dispatcher stopped")
			return
		case <-ticker.C:
		}
	}
}

// Tick claims one batch of due rows and processes them sequentially in claim
// order. It returns the number of rows that were delivered (sent or
// rescheduled); failed rows are not counted.
func (dp *Dispatcher) Tick(ctx context.Context, now int64) (int, error) {
	claimed, err := dp.store.ClaimDue(ctx, now, dp.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("claim due: %w", err)
	}
	if len(claimed) == 0 {
		return 0, nil
	}

	sent := 0
	for _, job := range claimed {
		if dp.dispatchOne(ctx, job, now) {
			sent++
		}
	}
	dp.log.Debug("tick complete",
		logx.Int("claimed", len(claimed)),
		logx.Int("delivered", sent))
	return sent, nil
}

// dispatchOne drives a single claimed row to a terminal or rescheduled state.
// Every failure path lands in MarkFailed; nothing escapes to the caller.
func (dp *Dispatcher) dispatchOne(ctx context.Context, job storage.Schedule, now int64) bool {
	log := dp.log.With(logx.Int64("schedule_id", job.ID), logx.String("kind", job.Kind))

	sink, ok := dp.resolve(job.ChannelID)
	if !ok {
		dp.fail(ctx, log, job.ID, fmt.Sprintf("channel %s not found", job.ChannelID))
		return false
	}

	handler, ok := dp.handlers.Get(job.Kind)
	if !ok {
		dp.fail(ctx, log, job.ID, fmt.Sprintf("unsupported schedule kind: %s", job.Kind))
		return false
	}

	if err := invoke(ctx, handler, sink, job.Content); err != nil {
		dp.fail(ctx, log, job.ID, err.Error())
		return false
	}

	if job.RepeatInterval != storage.IntervalNone {
		next := NextRepeat(job.RunAt, now, job.RepeatInterval)
		if err := dp.store.RescheduleRepeat(ctx, job.ID, now, next); err != nil {
			log.Error("reschedule failed", logx.Err(err))
			return false
		}
		// The row is already rescheduled; a failed announcement is not a
		// delivery failure.
		ann := fmt.Sprintf("Sent at %s. Next at %s.", formatUnix(now), formatUnix(next))
		if err := sink.SendText(ctx, ann); err != nil {
			log.Warn("repeat announcement failed", logx.Err(err))
		}
		log.Debug("delivery rescheduled", logx.Time("next", time.Unix(next, 0)))
		return true
	}

	if err := dp.store.MarkSent(ctx, job.ID, now); err != nil {
		log.Error("mark sent failed", logx.Err(err))
		return false
	}
	log.Debug("delivery sent")
	return true
}

func (dp *Dispatcher) fail(ctx context.Context, log logx.Logger, id int64, msg string) {
	log.Warn("delivery failed", logx.String("reason", msg))
	if err := dp.store.MarkFailed(ctx, id, msg); err != nil {
		log.Error("mark failed failed", logx.Err(err))
	}
}

// invoke runs a handler, converting a panic into an ordinary error so one
// misbehaving handler cannot take down the loop.
func invoke(ctx context.Context, h Handler, sink Sink, content string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, sink, content)
}

func formatUnix(ts int64) string {
	return time.Unix(ts, 0).Format("2006-01-02 15:04")
}
