// Package metrics holds process-wide counters for the admin API.
package metrics

import (
	"sync/atomic"
	"time"
)

type Metrics struct {
	startedAt time.Time

	ConnectionsTotal  atomic.Int64
	ConnectionsActive atomic.Int64
	Joins             atomic.Int64
	Moves             atomic.Int64
	ProximityEnters   atomic.Int64
	ProximityExits    atomic.Int64
	ChatMessages      atomic.Int64
	Kicks             atomic.Int64
	DroppedEvents     atomic.Int64
	StoreErrors       atomic.Int64
}

func New() *Metrics {
	return &Metrics{startedAt: time.Now()}
}

func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startedAt)
}

// Snapshot returns a read-only copy for JSON output.
func (m *Metrics) Snapshot() map[string]any {
	return map[string]any{
		"uptime_seconds":     int64(m.Uptime().Seconds()),
		"connections_total":  m.ConnectionsTotal.Load(),
		"connections_active": m.ConnectionsActive.Load(),
		"joins":              m.Joins.Load(),
		"moves":              m.Moves.Load(),
		"proximity_enters":   m.ProximityEnters.Load(),
		"proximity_exits":    m.ProximityExits.Load(),
		"chat_messages":      m.ChatMessages.Load(),
		"kicks":              m.Kicks.Load(),
		"dropped_events":     m.DroppedEvents.Load(),
		"store_errors":       m.StoreErrors.Load(),
	}
}
