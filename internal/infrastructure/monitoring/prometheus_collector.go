package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/suissa/purecore-ninjalive/internal/core/domain"
)

type PrometheusCollector struct {
	registry *prometheus.Registry

	roomsActive       prometheus.Gauge
	participantsTotal prometheus.Gauge
	joinsTotal        prometheus.Counter
	joinRejections    *prometheus.CounterVec
	messagesRelayed   *prometheus.CounterVec
	sessionDuration   prometheus.Histogram

	roomMemberCount *prometheus.GaugeVec
}

// NewPrometheusCollector registers all metrics on its own registry so
// multiple collectors can coexist within one process.
func NewPrometheusCollector() *PrometheusCollector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &PrometheusCollector{
		registry: registry,

		roomsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ninjalive_rooms_active",
			Help: "Number of active rooms",
		}),

		participantsTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ninjalive_participants_connected",
			Help: "Number of connected participants across all rooms",
		}),

		joinsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ninjalive_joins_total",
			Help: "Total number of accepted room joins",
		}),

		joinRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ninjalive_join_rejections_total",
			Help: "Total number of rejected room joins",
		}, []string{"reason"}),

		messagesRelayed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ninjalive_messages_relayed_total",
			Help: "Total number of signaling messages relayed",
		}, []string{"type"}),

		sessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ninjalive_session_duration_seconds",
			Help:    "Duration of participant sessions",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		}),

		roomMemberCount: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ninjalive_room_member_count",
			Help: "Number of members in each room",
		}, []string{"room_id"}),
	}
}

// Registry exposes the backing registry for the /metrics handler.
func (p *PrometheusCollector) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusCollector) RecordRoomCreated(roomID domain.RoomID) {
	p.roomsActive.Inc()
}

func (p *PrometheusCollector) RecordRoomDestroyed(roomID domain.RoomID) {
	p.roomsActive.Dec()
	p.roomMemberCount.DeleteLabelValues(string(roomID))
}

func (p *PrometheusCollector) RecordJoin(roomID domain.RoomID, members int) {
	p.joinsTotal.Inc()
	p.participantsTotal.Inc()
	p.roomMemberCount.WithLabelValues(string(roomID)).Set(float64(members))
}

func (p *PrometheusCollector) RecordJoinRejected(reason string) {
	p.joinRejections.WithLabelValues(reason).Inc()
}

func (p *PrometheusCollector) RecordLeave(roomID domain.RoomID, members int, sessionDuration time.Duration) {
	p.participantsTotal.Dec()
	p.roomMemberCount.WithLabelValues(string(roomID)).Set(float64(members))
	p.sessionDuration.Observe(sessionDuration.Seconds())
}

func (p *PrometheusCollector) RecordMessageRelayed(messageType domain.MessageType) {
	p.messagesRelayed.WithLabelValues(string(messageType)).Inc()
}
