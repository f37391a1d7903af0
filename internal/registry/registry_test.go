package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"deriv-alert-bot/internal/types"
)

func newAlert(chatID int64, instrument string, target float64) types.Alert {
	return types.Alert{
		ChatID:     chatID,
		Instrument: instrument,
		Target:     target,
		Message:    "test message",
		CreatedAt:  time.Now(),
	}
}

type recordingStore struct {
	mu      sync.Mutex
	upserts []types.Alert
	deletes []string
}

func (s *recordingStore) UpsertAlert(alert types.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, alert)
	return nil
}

func (s *recordingStore) DeleteAlert(chatID int64, instrument string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, fmt.Sprintf("%d/%s", chatID, instrument))
	return nil
}

func TestPut(t *testing.T) {
	t.Run("insert returns no previous alert", func(t *testing.T) {
		r := New(nil)
		_, replaced := r.Put(newAlert(42, "R_10", 101.5))
		assert.False(t, replaced)
		assert.Equal(t, 1, r.Len())
	})

	t.Run("replace returns previous and keeps a single alert", func(t *testing.T) {
		r := New(nil)
		r.Put(newAlert(42, "R_10", 101.5))
		prev, replaced := r.Put(newAlert(42, "R_10", 205.0))
		assert.True(t, replaced)
		assert.Equal(t, 101.5, prev.Target)

		alerts := r.AllForInstrument("R_10")
		assert.Len(t, alerts, 1)
		assert.Equal(t, 205.0, alerts[0].Target)
	})

	t.Run("different instruments are independent", func(t *testing.T) {
		r := New(nil)
		r.Put(newAlert(42, "R_10", 101.5))
		_, replaced := r.Put(newAlert(42, "R_25", 300.0))
		assert.False(t, replaced)
		assert.Equal(t, 2, r.Len())
	})
}

func TestRemove(t *testing.T) {
	r := New(nil)
	r.Put(newAlert(42, "R_10", 101.5))

	assert.True(t, r.Remove(42, "R_10"))
	assert.False(t, r.Remove(42, "R_10"), "second remove must report nothing deleted")
	assert.Equal(t, 0, r.Len())
}

func TestAllForInstrumentIsASnapshot(t *testing.T) {
	r := New(nil)
	r.Put(newAlert(42, "R_10", 101.5))
	r.Put(newAlert(43, "R_10", 99.0))
	r.Put(newAlert(42, "R_25", 300.0))

	snapshot := r.AllForInstrument("R_10")
	assert.Len(t, snapshot, 2)

	r.Remove(42, "R_10")
	assert.Len(t, snapshot, 2, "snapshot must not observe later mutations")

	assert.Empty(t, r.AllForInstrument("1HZ100V"))
}

func TestInstrumentSet(t *testing.T) {
	r := New(nil)
	r.Put(newAlert(42, "R_10", 101.5))
	r.Put(newAlert(43, "R_10", 99.0))
	r.Put(newAlert(42, "R_25", 300.0))

	assert.Equal(t, []string{"R_10", "R_25"}, r.InstrumentSet())

	r.Remove(42, "R_10")
	assert.Equal(t, []string{"R_10", "R_25"}, r.InstrumentSet(), "R_10 still tracked by chat 43")

	r.Remove(43, "R_10")
	assert.Equal(t, []string{"R_25"}, r.InstrumentSet())
}

func TestForChat(t *testing.T) {
	r := New(nil)
	r.Put(newAlert(42, "R_25", 300.0))
	r.Put(newAlert(42, "R_10", 101.5))
	r.Put(newAlert(43, "R_10", 99.0))

	alerts := r.ForChat(42)
	assert.Len(t, alerts, 2)
	assert.Equal(t, "R_10", alerts[0].Instrument)
	assert.Equal(t, "R_25", alerts[1].Instrument)
}

func TestMutationsAreMirroredToStore(t *testing.T) {
	store := &recordingStore{}
	r := New(store)

	r.Put(newAlert(42, "R_10", 101.5))
	r.Remove(42, "R_10")
	r.Remove(42, "R_10") // absent, must not reach the store

	assert.Len(t, store.upserts, 1)
	assert.Equal(t, []string{"42/R_10"}, store.deletes)
}

func TestLoadDoesNotWriteBack(t *testing.T) {
	store := &recordingStore{}
	r := New(store)

	r.Load([]types.Alert{newAlert(42, "R_10", 101.5), newAlert(43, "R_25", 300.0)})

	assert.Equal(t, 2, r.Len())
	assert.Empty(t, store.upserts)
}

func TestConcurrentPutRemove(t *testing.T) {
	r := New(nil)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			r.Put(newAlert(int64(i%10), "R_10", float64(i)))
		}(i)
		go func(i int) {
			defer wg.Done()
			r.Remove(int64(i%10), "R_10")
		}(i)
	}
	wg.Wait()

	// Whatever interleaving happened, at most one alert per (chat, instrument).
	seen := make(map[int64]bool)
	for _, alert := range r.AllForInstrument("R_10") {
		assert.False(t, seen[alert.ChatID], "duplicate alert for chat %d", alert.ChatID)
		seen[alert.ChatID] = true
	}
}
