// Package metrics exposes Prometheus counters for bot activity. All
// methods are nil-safe so wiring metrics stays optional in tests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "studybot"

// BotMetrics counts commands, callbacks, search outcomes and
// generations.
type BotMetrics struct {
	commandsTotal     *prometheus.CounterVec
	callbacksTotal    *prometheus.CounterVec
	searchOutcomes    *prometheus.CounterVec
	generationTotal   *prometheus.CounterVec
	generationLatency *prometheus.HistogramVec
}

// New registers the bot metrics on the given registerer.
func New(reg prometheus.Registerer) *BotMetrics {
	factory := promauto.With(reg)
	return &BotMetrics{
		commandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Slash commands received, by command name.",
		}, []string{"command"}),
		callbacksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callbacks_total",
			Help:      "Inline keyboard callbacks handled, by action and status.",
		}, []string{"action", "status"}),
		searchOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_search_outcomes_total",
			Help:      "Calendar search outcomes: auto, disambiguate or manual.",
		}, []string{"outcome"}),
		generationTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "LLM generations, by kind and status.",
		}, []string{"kind", "status"}),
		generationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Latency of LLM generations, by kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
}

// CommandReceived counts one slash command.
func (m *BotMetrics) CommandReceived(command string) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(command).Inc()
}

// CallbackHandled counts one callback with its outcome status.
func (m *BotMetrics) CallbackHandled(action, status string) {
	if m == nil {
		return
	}
	m.callbacksTotal.WithLabelValues(action, status).Inc()
}

// SearchOutcome counts how an event search resolved.
func (m *BotMetrics) SearchOutcome(outcome string) {
	if m == nil {
		return
	}
	m.searchOutcomes.WithLabelValues(outcome).Inc()
}

// GenerationFinished counts one generation and records its latency.
func (m *BotMetrics) GenerationFinished(kind, status string, seconds float64) {
	if m == nil {
		return
	}
	m.generationTotal.WithLabelValues(kind, status).Inc()
	m.generationLatency.WithLabelValues(kind).Observe(seconds)
}
