package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/wsbind/internal/connection"
)

const namespace = "wsbind"

// Metrics records connection manager activity in its own registry.
type Metrics struct {
	registry *prometheus.Registry

	handlesDialed prometheus.Counter
	handlesClosed *prometheus.CounterVec
	events        *prometheus.CounterVec
	sends         *prometheus.CounterVec
	generation    prometheus.Gauge
	state         prometheus.Gauge
}

var _ connection.Recorder = (*Metrics)(nil)

// New creates the collectors and registers them, along with the Go runtime
// and process collectors, in a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		handlesDialed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handles_dialed_total",
			Help:      "Connection handles created by the manager.",
		}),
		handlesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handles_closed_total",
			Help:      "Connection handles discarded, by which side closed them.",
		}, []string{"initiator"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Events delivered to the callback, by kind.",
		}, []string{"kind"}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sends_total",
			Help:      "Send accessor calls, by result.",
		}, []string{"result"}),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "binding_generation",
			Help:      "Generation of the current listener binding.",
		}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "Connection state: 0 no_target, 1 connecting, 2 open, 3 closing, 4 closed.",
		}),
	}

	m.registry.MustRegister(
		m.handlesDialed,
		m.handlesClosed,
		m.events,
		m.sends,
		m.generation,
		m.state,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Expose zero-valued series up front
	for _, i := range []connection.Initiator{connection.InitiatorLocal, connection.InitiatorRemote} {
		m.handlesClosed.WithLabelValues(string(i))
	}
	for _, r := range []connection.SendResult{connection.SendSent, connection.SendDropped, connection.SendFailed} {
		m.sends.WithLabelValues(string(r))
	}

	return m
}

// Registry returns the registry holding all collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterQueueDepth exposes the event loop backlog, sampled at scrape time.
func (m *Metrics) RegisterQueueDepth(depth func() int) error {
	return m.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "loop_queue_depth",
		Help:      "Functions waiting to run on the event loop.",
	}, func() float64 {
		return float64(depth())
	}))
}

// HandleDialed counts a newly dialed handle.
func (m *Metrics) HandleDialed(string) {
	m.handlesDialed.Inc()
}

// HandleClosed counts a closed handle by who initiated the close.
func (m *Metrics) HandleClosed(initiator connection.Initiator) {
	m.handlesClosed.WithLabelValues(string(initiator)).Inc()
}

// EventDelivered counts a callback delivery by event kind.
func (m *Metrics) EventDelivered(kind connection.EventKind) {
	m.events.WithLabelValues(kind.String()).Inc()
}

// SendCompleted counts a Send by its result.
func (m *Metrics) SendCompleted(result connection.SendResult) {
	m.sends.WithLabelValues(string(result)).Inc()
}

// GenerationChanged sets the listener binding generation gauge.
func (m *Metrics) GenerationChanged(generation uint64) {
	m.generation.Set(float64(generation))
}

// StateChanged sets the connection state gauge.
func (m *Metrics) StateChanged(state connection.State) {
	m.state.Set(float64(state))
}
