package roomstate

import (
	"sort"

	"github.com/cwrk-planet/room-sync/internal/domain"
)

// eventLog: FIFO фиксированной ёмкости; события упорядочены по времени.
type eventLog struct {
	items    []domain.Event
	capacity int
}

func newEventLog(capacity int) *eventLog {
	return &eventLog{items: make([]domain.Event, 0, capacity), capacity: capacity}
}

func (l *eventLog) append(ev domain.Event) {
	l.items = append(l.items, ev)
	over := len(l.items) - l.capacity
	if over <= 0 {
		return
	}
	n := copy(l.items, l.items[over:])
	clear(l.items[n:])
	l.items = l.items[:n]
}

// since возвращает копию событий с Timestamp строго больше since.
func (l *eventLog) since(since int64) []domain.Event {
	i := sort.Search(len(l.items), func(i int) bool { return l.items[i].Timestamp > since })
	out := make([]domain.Event, len(l.items)-i)
	copy(out, l.items[i:])
	return out
}

func (l *eventLog) len() int { return len(l.items) }
