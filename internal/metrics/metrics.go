// Package metrics holds the process-wide Prometheus instruments.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RoomsLive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "poker",
		Name:      "rooms_live",
		Help:      "Rooms with a running actor.",
	})
	RoomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "poker",
		Name:      "rooms_created_total",
		Help:      "Rooms created since start.",
	})
	Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poker",
		Name:      "room_mutations_total",
		Help:      "Accepted room mutations by operation.",
	}, []string{"op"})
	Rejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poker",
		Name:      "rejections_total",
		Help:      "Rejected requests by reason.",
	}, []string{"reason"})
	BusDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "poker",
		Name:      "bus_dropped_total",
		Help:      "Snapshots dropped or replaced because a subscriber was slow.",
	})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
