package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cwrk-planet/room-sync/internal/roomstate"
)

// Причины, по которым push-сообщение клиента отброшено без ответа.
const (
	DropNotInRoom   = "not_in_room"
	DropBadPayload  = "bad_payload"
	DropUnknownType = "unknown_type"
	DropStoreError  = "store_error"
)

type Metrics struct {
	reg *prometheus.Registry

	Connections   prometheus.Gauge
	Dropped       *prometheus.CounterVec
	SlowConsumers prometheus.Counter
	Events        *prometheus.CounterVec
	Delivered     prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "room_sync_ws_connections",
			Help: "Authenticated push connections",
		}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "room_sync_ws_dropped_total",
			Help: "Client push messages ignored without reply",
		}, []string{"reason"}),
		SlowConsumers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "room_sync_ws_slow_consumers_total",
			Help: "Connections closed because their send queue was full",
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "room_sync_events_total",
			Help: "Room events recorded",
		}, []string{"type"}),
		Delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "room_sync_ws_delivered_total",
			Help: "Server events queued to push connections",
		}),
	}
	reg.MustRegister(
		m.Connections, m.Dropped, m.SlowConsumers, m.Events, m.Delivered,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveStore подписывается на журнал и публикует размеры хранилища.
func (m *Metrics) ObserveStore(store roomstate.Store) {
	store.Observe(func(c roomstate.Change) {
		m.Events.WithLabelValues(string(c.Event.Type)).Inc()
	})
	m.reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "room_sync_rooms",
			Help: "Rooms with tracked state",
		}, func() float64 { return float64(store.Stats().Rooms) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "room_sync_participants",
			Help: "Participants across all rooms",
		}, func() float64 { return float64(store.Stats().Participants) }),
	)
}

func (m *Metrics) Drop(reason string) {
	m.Dropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
