// Package live provides the shared in-memory market dataset, with
// versioning and pub/sub so open views pick up reloaded data.
package live

import (
	"sync"

	"kmarket/internal/market"
)

// Update is emitted to subscribers when the dataset changes.
type Update struct {
	Data    market.MarketData
	Version uint64
}

// Model holds the current dataset. Readers take snapshots; Replace swaps the
// whole dataset and notifies subscribers.
type Model struct {
	mu      sync.RWMutex
	data    market.MarketData
	version uint64

	subsMu    sync.Mutex
	nextSubID int
	subs      map[int]chan Update
}

// NewModel creates a model holding data at version 1.
func NewModel(data market.MarketData) *Model {
	return &Model{
		data:    data,
		version: 1,
		subs:    make(map[int]chan Update),
	}
}

// Snapshot returns the current dataset and its version. Callers must treat
// the returned value as read-only; Replace never mutates it in place.
func (m *Model) Snapshot() (market.MarketData, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data, m.version
}

// Version returns the current dataset version.
func (m *Model) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Replace installs data as the current dataset. It returns false and leaves
// the version untouched when data equals what is already held.
func (m *Model) Replace(data market.MarketData) bool {
	m.mu.Lock()
	if m.data.Equal(data) {
		m.mu.Unlock()
		return false
	}
	m.data = data
	m.version++
	upd := Update{Data: data, Version: m.version}
	m.mu.Unlock()

	// Notify subscribers (non-blocking send).
	m.subsMu.Lock()
	for _, ch := range m.subs {
		select {
		case ch <- upd:
		default:
			// Slow subscriber, drop update. It can resync via Snapshot.
		}
	}
	m.subsMu.Unlock()
	return true
}

// Subscribe creates a new subscription channel for dataset updates.
func (m *Model) Subscribe(bufSize int) (id int, ch <-chan Update) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	id = m.nextSubID
	m.nextSubID++
	c := make(chan Update, bufSize)
	m.subs[id] = c
	return id, c
}

// Unsubscribe removes a subscription and closes its channel.
func (m *Model) Unsubscribe(id int) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	if ch, ok := m.subs[id]; ok {
		close(ch)
		delete(m.subs, id)
	}
}

// Subscribers returns the number of open subscriptions.
func (m *Model) Subscribers() int {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	return len(m.subs)
}
