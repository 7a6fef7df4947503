package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Poll results recorded per order lookup.
const (
	pollResultFound       = "found"
	pollResultNotReady    = "not_ready"
	pollResultServerError = "server_error"
	pollResultFailed      = "failed"
	pollResultDiscarded   = "discarded"
)

var (
	confirmationPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_confirmation_polls_total",
			Help: "Order lookups issued by the confirmation poller, by result.",
		},
		[]string{"result"},
	)

	confirmationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_confirmation_outcomes_total",
			Help: "Terminal states reached by confirmation runs.",
		},
		[]string{"state"},
	)
)
