package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ordersMaterialized = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "shopapi_orders_materialized_total",
	Help: "Payment events processed by the order materializer, by result.",
}, []string{"result"})
