package engine

import (
	"context"
	"math"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"deriv-alert-bot/internal/registry"
	"deriv-alert-bot/internal/types"
)

// Feed is the upstream tick source whose subscription set the engine keeps
// synchronized with the registry's instrument set.
type Feed interface {
	Ticks() <-chan types.TickEvent
	Subscribe(instrument string)
	Unsubscribe(instrument string)
	Subscribed() []string
}

// Dispatcher delivers firing notifications. It never returns an error; it
// reports which channels failed.
type Dispatcher interface {
	Dispatch(alert types.Alert, price float64) []types.Channel
}

// Metrics are the engine's instrumentation hooks. Nil fields are skipped.
type Metrics struct {
	TicksProcessed       prometheus.Counter
	AlertsFired          prometheus.Counter
	NotificationFailures prometheus.Counter
	ActiveAlerts         prometheus.Gauge
}

// Config holds the engine's matching policy.
type Config struct {
	// Tolerance switches the firing predicate: 0 means strict
	// price >= target, a positive value fires within
	// abs(price-target) <= Tolerance instead.
	Tolerance float64

	// KeepSubscriptions leaves an instrument subscribed upstream after its
	// last alert is removed instead of unsubscribing immediately.
	KeepSubscriptions bool
}

// Engine consumes tick events, evaluates them against the alert registry,
// and retires fired alerts exactly once. A single goroutine consumes the
// tick channel, so ticks for one instrument are always evaluated in arrival
// order; notification dispatch runs on separate goroutines so a slow
// transport never stalls tick processing.
type Engine struct {
	cfg        Config
	registry   *registry.Registry
	feed       Feed
	dispatcher Dispatcher
	metrics    Metrics

	dispatches sync.WaitGroup
}

func New(cfg Config, reg *registry.Registry, feed Feed, dispatcher Dispatcher, metrics Metrics) *Engine {
	return &Engine{
		cfg:        cfg,
		registry:   reg,
		feed:       feed,
		dispatcher: dispatcher,
		metrics:    metrics,
	}
}

// Run subscribes the feed to every instrument with an active alert, then
// evaluates ticks until ctx is cancelled. In-flight dispatches are drained
// before returning.
func (e *Engine) Run(ctx context.Context) {
	for _, instrument := range e.registry.InstrumentSet() {
		e.feed.Subscribe(instrument)
	}
	e.updateActiveAlerts()

	log.Info("match engine started")

	for {
		select {
		case <-ctx.Done():
			e.dispatches.Wait()
			log.Info("match engine stopped")
			return
		case tick := <-e.feed.Ticks():
			e.evaluate(tick)
		}
	}
}

// CreateOrReplaceAlert registers an alert, atomically replacing any existing
// alert for the same (chat, instrument) pair, and subscribes the feed to the
// instrument. It returns the replaced alert, if any. The instrument must
// already be validated at the command boundary.
func (e *Engine) CreateOrReplaceAlert(alert types.Alert) (types.Alert, bool) {
	prev, replaced := e.registry.Put(alert)
	e.feed.Subscribe(alert.Instrument)
	e.updateActiveAlerts()
	return prev, replaced
}

// CancelAlert removes a chat's alert for an instrument and reports whether an
// alert was actually removed. A cancellation racing an in-flight firing
// resolves to exactly one winner through the registry's remove result.
func (e *Engine) CancelAlert(chatID int64, instrument string) bool {
	removed := e.registry.Remove(chatID, instrument)
	if removed {
		e.syncSubscriptions()
		e.updateActiveAlerts()
	}
	return removed
}

// ActiveAlerts returns a snapshot of one chat's alerts.
func (e *Engine) ActiveAlerts(chatID int64) []types.Alert {
	return e.registry.ForChat(chatID)
}

// evaluate runs the firing decision for one tick. Removal from the registry
// is the single source of truth for who gets to notify: only the evaluator
// whose Remove actually deleted the entry dispatches, so duplicate ticks and
// racing cancellations can never produce a second notification.
func (e *Engine) evaluate(tick types.TickEvent) {
	inc(e.metrics.TicksProcessed)

	snapshot := e.registry.AllForInstrument(tick.Instrument)
	if len(snapshot) == 0 {
		return
	}

	fired := false
	for _, alert := range snapshot {
		if !e.fires(alert, tick.Price) {
			continue
		}

		if !e.registry.Remove(alert.ChatID, alert.Instrument) {
			continue
		}

		log.Infof("alert fired: chat %d, %s at %v (target %v)", alert.ChatID, alert.Instrument, tick.Price, alert.Target)
		inc(e.metrics.AlertsFired)
		fired = true

		alert := alert
		e.dispatches.Add(1)
		go func() {
			defer e.dispatches.Done()
			for range e.dispatcher.Dispatch(alert, tick.Price) {
				inc(e.metrics.NotificationFailures)
			}
		}()
	}

	if fired {
		e.syncSubscriptions()
		e.updateActiveAlerts()
	}
}

func (e *Engine) fires(alert types.Alert, price float64) bool {
	if e.cfg.Tolerance > 0 {
		return math.Abs(price-alert.Target) <= e.cfg.Tolerance
	}
	return price >= alert.Target
}

// syncSubscriptions unsubscribes instruments that no longer have any active
// alert, unless the deployment keeps them subscribed.
func (e *Engine) syncSubscriptions() {
	if e.cfg.KeepSubscriptions {
		return
	}

	active := make(map[string]struct{})
	for _, instrument := range e.registry.InstrumentSet() {
		active[instrument] = struct{}{}
	}

	for _, instrument := range e.feed.Subscribed() {
		if _, ok := active[instrument]; !ok {
			e.feed.Unsubscribe(instrument)
		}
	}
}

func (e *Engine) updateActiveAlerts() {
	if e.metrics.ActiveAlerts != nil {
		e.metrics.ActiveAlerts.Set(float64(e.registry.Len()))
	}
}

func inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}
