// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package des

import (
	"context"

	luxlog "github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/fantasim-core/eventstore"
	"github.com/luxfi/fantasim-core/faults"
	"github.com/luxfi/fantasim-core/streamid"
	"github.com/luxfi/fantasim-core/topology"
)

// Registry maps a Kind to its registered (Driver, Trigger) pair. A kind
// dequeued without a registered handler fails the tick step with a
// faults.Validation fault (spec section 4.F).
type Registry struct {
	handlers map[Kind]handler
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Kind]handler)}
}

// Register binds driver and trigger to kind. Registering the same Kind
// twice overwrites the previous binding.
func (r *Registry) Register(kind Kind, driver Driver, trigger Trigger) {
	r.handlers[kind] = handler{driver: driver, trigger: trigger}
}

// Runtime is the single-threaded, cooperative DES runtime (spec section
// 4.F): one task advances one tick step at a time, dispatching through
// registered driver/trigger pairs and appending resulting drafts via the
// truth event store.
type Runtime struct {
	scenarioSeed uint64
	scheduler    *Scheduler
	registry     *Registry
	events       *eventstore.Store
	materializer *topology.Materializer
	log          luxlog.Logger

	itemsProcessed prometheus.Counter
	eventsAppended prometheus.Counter
	queueDepth     prometheus.Gauge
}

// Option configures a Runtime at construction time.
type Option func(*Runtime)

// WithLogger attaches a structured logger.
func WithLogger(l luxlog.Logger) Option {
	return func(rt *Runtime) { rt.log = l }
}

// WithRegisterer registers this runtime's metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(rt *Runtime) {
		rt.itemsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fantasim_des_items_processed_total",
			Help: "Number of work items dispatched.",
		})
		rt.eventsAppended = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fantasim_des_events_appended_total",
			Help: "Number of events appended by DES-triggered drafts.",
		})
		rt.queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fantasim_des_queue_depth",
			Help: "Number of pending work items after the last tick step.",
		})
		if reg != nil {
			reg.MustRegister(rt.itemsProcessed, rt.eventsAppended, rt.queueDepth)
		}
	}
}

// NewRuntime constructs a Runtime over the given scheduler, registry,
// event store, and materializer, seeded with scenarioSeed for deterministic
// per-tick RNG derivation (spec section 4.F).
func NewRuntime(scenarioSeed uint64, scheduler *Scheduler, registry *Registry, events *eventstore.Store, materializer *topology.Materializer, opts ...Option) *Runtime {
	rt := &Runtime{
		scenarioSeed: scenarioSeed,
		scheduler:    scheduler,
		registry:     registry,
		events:       events,
		materializer: materializer,
		log:          luxlog.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// RunOptions bounds one Run invocation (spec section 4.F's loop-exit
// conditions).
type RunOptions struct {
	StartTick         int64
	EndTick           int64
	MaxItemsProcessed int64 // 0 means unbounded
	MaxEventsAppended int64 // 0 means unbounded
}

// RunResult reports how a Run terminated.
type RunResult struct {
	ItemsProcessed int64
	EventsAppended int64
	// Exhausted is true if the queue emptied (as opposed to hitting a
	// bound or the end tick).
	Exhausted bool
}

// Run advances stream through work items for scenarioSeed's scheduler
// until the queue empties, the head item's When exceeds opts.EndTick, or
// a processed/appended bound is reached (spec section 4.F). Any fault
// aborts the current step; the dequeued item is not re-enqueued, and the
// error is returned alongside progress made so far.
func (rt *Runtime) Run(ctx context.Context, stream streamid.Identity, opts RunOptions) (RunResult, error) {
	var result RunResult

	for {
		if err := checkCancelled(ctx); err != nil {
			return result, err
		}

		head, ok := rt.scheduler.peek()
		if !ok {
			result.Exhausted = true
			break
		}
		if head.When > opts.EndTick {
			break
		}
		if opts.MaxItemsProcessed > 0 && result.ItemsProcessed >= opts.MaxItemsProcessed {
			break
		}
		if opts.MaxEventsAppended > 0 && result.EventsAppended >= opts.MaxEventsAppended {
			break
		}

		item, ok := rt.scheduler.dequeue()
		if !ok {
			result.Exhausted = true
			break
		}

		appended, err := rt.step(ctx, stream, item)
		if err != nil {
			return result, err
		}
		result.ItemsProcessed++
		result.EventsAppended += appended

		if rt.itemsProcessed != nil {
			rt.itemsProcessed.Inc()
		}
		if rt.eventsAppended != nil {
			rt.eventsAppended.Add(float64(appended))
		}
		if rt.queueDepth != nil {
			rt.queueDepth.Set(float64(rt.scheduler.Len()))
		}
	}

	return result, nil
}

// step executes one tick-step state machine iteration for an already-
// dequeued item: Materialize -> Derive RNG -> Dispatch -> Append Drafts
// (spec section 4.F).
func (rt *Runtime) step(ctx context.Context, stream streamid.Identity, item WorkItem) (int64, error) {
	h, ok := rt.registry.handlers[item.Kind]
	if !ok {
		return 0, faults.New(faults.Validation, "des: no handler registered for kind "+string(item.Kind))
	}

	if err := checkCancelled(ctx); err != nil {
		return 0, err
	}
	state, err := rt.materializer.MaterializeAtTick(stream, item.When, topology.Auto)
	if err != nil {
		return 0, err
	}

	if err := checkCancelled(ctx); err != nil {
		return 0, err
	}
	rng := DeriveRNG(rt.scenarioSeed, stream, item.When)

	desCtx := DesContext{
		Stream:      stream,
		CurrentTick: item.When,
		State:       state,
		Scheduler:   rt.scheduler,
		Rng:         rng,
	}
	output, err := h.driver(desCtx)
	if err != nil {
		return 0, err
	}

	if err := checkCancelled(ctx); err != nil {
		return 0, err
	}
	drafts, err := h.trigger(output, item.When, rng)
	if err != nil {
		return 0, err
	}
	if len(drafts) == 0 {
		return 0, nil
	}

	if err := checkCancelled(ctx); err != nil {
		return 0, err
	}
	appendResult, err := rt.events.Append(stream, drafts, eventstore.AppendOptions{})
	if err != nil {
		return 0, err
	}
	return int64(appendResult.LastSequence-appendResult.FirstSequence) + 1, nil
}

// checkCancelled observes ctx's cancellation signal at a suspension
// point, mapping it to faults.Cancelled (spec section 4.F / 5).
func checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return faults.Wrap(faults.Cancelled, "des: cancelled", ctx.Err())
	default:
		return nil
	}
}
