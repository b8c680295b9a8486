package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RecruitmentConfig labels every recruitment series with service and env.
type RecruitmentConfig struct {
	ServiceName string
	Environment string
}

// Recruitment holds Prometheus collectors for pipeline, booking and relay
// activity.
type Recruitment struct {
	transitionsTotal   *prometheus.CounterVec
	transitionDuration *prometheus.HistogramVec
	bookingsTotal      *prometheus.CounterVec
	bookingDuration    prometheus.Histogram
	slotsCreatedTotal  prometheus.Counter
	relayPublished     *prometheus.CounterVec
	relayFailed        *prometheus.CounterVec
	relayBacklog       prometheus.Gauge
}

var (
	recruitmentOnce sync.Once
	recruitment     *Recruitment
	recruitmentMu   sync.Mutex
)

// RecruitmentWithConfig returns the process-wide collectors, registering
// them with the default registerer on first use.
func RecruitmentWithConfig(cfg RecruitmentConfig) *Recruitment {
	recruitmentMu.Lock()
	defer recruitmentMu.Unlock()
	recruitmentOnce.Do(func() {
		recruitment = NewRecruitment(cfg, prometheus.DefaultRegisterer)
	})
	return recruitment
}

// NewRecruitment builds a collector set on the given registerer. Tests pass
// a fresh prometheus.NewRegistry().
func NewRecruitment(cfg RecruitmentConfig, registerer prometheus.Registerer) *Recruitment {
	service := strings.TrimSpace(cfg.ServiceName)
	if service == "" {
		service = "talentflow"
	}
	env := strings.TrimSpace(cfg.Environment)
	if env == "" {
		env = "development"
	}
	constLabels := prometheus.Labels{"service": service, "env": env}

	r := &Recruitment{
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "talentflow_pipeline_transitions_total",
			Help:        "Pipeline transitions by target stage and outcome.",
			ConstLabels: constLabels,
		}, []string{"stage", "result"}),
		transitionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "talentflow_pipeline_transition_duration_seconds",
			Help:        "Time spent applying a pipeline transition.",
			ConstLabels: constLabels,
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"stage"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "talentflow_slot_bookings_total",
			Help:        "Interview slot booking attempts by outcome.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		bookingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "talentflow_slot_booking_duration_seconds",
			Help:        "Time spent in the booking transaction.",
			ConstLabels: constLabels,
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		slotsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "talentflow_slots_created_total",
			Help:        "Interview slots generated by bulk creation.",
			ConstLabels: constLabels,
		}),
		relayPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "talentflow_outbox_published_total",
			Help:        "Outbox events delivered by the relay.",
			ConstLabels: constLabels,
		}, []string{"event_type"}),
		relayFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "talentflow_outbox_failed_total",
			Help:        "Outbox events the relay failed to deliver.",
			ConstLabels: constLabels,
		}, []string{"event_type"}),
		relayBacklog: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "talentflow_outbox_backlog",
			Help:        "Pending outbox events seen on the last relay tick.",
			ConstLabels: constLabels,
		}),
	}

	if registerer != nil {
		registerer.MustRegister(
			r.transitionsTotal,
			r.transitionDuration,
			r.bookingsTotal,
			r.bookingDuration,
			r.slotsCreatedTotal,
			r.relayPublished,
			r.relayFailed,
			r.relayBacklog,
		)
	}
	return r
}

func (r *Recruitment) ObserveTransition(stage, result string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.transitionsTotal.WithLabelValues(stage, result).Inc()
	if result == "ok" {
		r.transitionDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	}
}

func (r *Recruitment) ObserveBooking(result string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.bookingsTotal.WithLabelValues(result).Inc()
	r.bookingDuration.Observe(elapsed.Seconds())
}

func (r *Recruitment) AddSlotsCreated(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.slotsCreatedTotal.Add(float64(n))
}

func (r *Recruitment) IncRelayPublished(eventType string) {
	if r == nil {
		return
	}
	r.relayPublished.WithLabelValues(eventType).Inc()
}

func (r *Recruitment) IncRelayFailed(eventType string) {
	if r == nil {
		return
	}
	r.relayFailed.WithLabelValues(eventType).Inc()
}

func (r *Recruitment) SetRelayBacklog(n int) {
	if r == nil {
		return
	}
	r.relayBacklog.Set(float64(n))
}
