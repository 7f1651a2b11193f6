// Package metrics holds the Prometheus collectors updated by the domain services.
package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	LocationPatches        *prometheus.CounterVec
	ReviewMutations        *prometheus.CounterVec
	OffersTimedOut         prometheus.Counter
	ParticipantTransitions *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. Passing a fresh prometheus.NewRegistry()
// keeps tests isolated from each other.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LocationPatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meetspot",
			Name:      "location_patches_total",
			Help:      "Location patches by outcome code.",
		}, []string{"outcome"}),
		ReviewMutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meetspot",
			Name:      "review_aggregate_mutations_total",
			Help:      "Review summary mutations by operation.",
		}, []string{"op"}),
		OffersTimedOut: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "meetspot",
			Name:      "offers_timed_out_total",
			Help:      "Offers flipped to timeout by the read-time sweep.",
		}),
		ParticipantTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meetspot",
			Name:      "offer_participant_transitions_total",
			Help:      "Participant status changes by target status.",
		}, []string{"status"}),
		gatherer: reg,
	}
}

// Discard returns collectors bound to a private registry.
func Discard() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
}
