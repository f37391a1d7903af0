package registry

import (
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"deriv-alert-bot/internal/types"
)

// Store mirrors registry mutations to durable storage. Implementations must
// tolerate deleting an absent alert.
type Store interface {
	UpsertAlert(alert types.Alert) error
	DeleteAlert(chatID int64, instrument string) error
}

type key struct {
	chatID     int64
	instrument string
}

// Registry is the authoritative store of active alerts, keyed by
// (chat, instrument). All operations are safe for concurrent use; callers
// never hold a lock across registry calls.
type Registry struct {
	mu     sync.Mutex
	alerts map[key]types.Alert
	store  Store
}

// New creates a registry. store may be nil for a memory-only registry.
func New(store Store) *Registry {
	return &Registry{
		alerts: make(map[key]types.Alert),
		store:  store,
	}
}

// Load seeds the registry with persisted alerts. Used at startup, before the
// feed connects; loaded alerts are not written back to the store.
func (r *Registry) Load(alerts []types.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, alert := range alerts {
		r.alerts[key{alert.ChatID, alert.Instrument}] = alert
	}
}

// Put inserts an alert, atomically replacing any existing alert for the same
// (chat, instrument) pair. It returns the replaced alert, if any.
func (r *Registry) Put(alert types.Alert) (types.Alert, bool) {
	k := key{alert.ChatID, alert.Instrument}

	r.mu.Lock()
	prev, replaced := r.alerts[k]
	r.alerts[k] = alert
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.UpsertAlert(alert); err != nil {
			log.Errorf("failed to persist alert for chat %d: %v", alert.ChatID, err)
		}
	}

	return prev, replaced
}

// Remove deletes the alert for (chatID, instrument) and reports whether an
// entry was actually deleted. Removing an absent alert is a no-op; the boolean
// result is what resolves races between duplicate ticks and cancellations.
func (r *Registry) Remove(chatID int64, instrument string) bool {
	k := key{chatID, instrument}

	r.mu.Lock()
	_, existed := r.alerts[k]
	if existed {
		delete(r.alerts, k)
	}
	r.mu.Unlock()

	if existed && r.store != nil {
		if err := r.store.DeleteAlert(chatID, instrument); err != nil {
			log.Errorf("failed to delete persisted alert for chat %d: %v", chatID, err)
		}
	}

	return existed
}

// AllForInstrument returns a snapshot of all alerts tracking an instrument.
// The snapshot is a copy, so evaluation can run without holding the lock.
func (r *Registry) AllForInstrument(instrument string) []types.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()

	var alerts []types.Alert
	for k, alert := range r.alerts {
		if k.instrument == instrument {
			alerts = append(alerts, alert)
		}
	}
	return alerts
}

// ForChat returns a snapshot of one chat's alerts, sorted by instrument.
func (r *Registry) ForChat(chatID int64) []types.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()

	var alerts []types.Alert
	for k, alert := range r.alerts {
		if k.chatID == chatID {
			alerts = append(alerts, alert)
		}
	}
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].Instrument < alerts[j].Instrument })
	return alerts
}

// InstrumentSet returns the distinct instruments with at least one active
// alert. This set drives the feed's upstream subscriptions.
func (r *Registry) InstrumentSet() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{})
	for k := range r.alerts {
		seen[k.instrument] = struct{}{}
	}

	instruments := make([]string, 0, len(seen))
	for instrument := range seen {
		instruments = append(instruments, instrument)
	}
	sort.Strings(instruments)
	return instruments
}

// Len returns the number of active alerts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.alerts)
}
