package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "attendance"

var (
	// ClaimsTotal counts attendance claims by outcome: "recorded" or a rejection code
	ClaimsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "claims_total",
		Help:      "Attendance claims processed, by outcome.",
	}, []string{"outcome"})

	// QRIssuedTotal counts claim payloads handed out to display clients
	QRIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "qr_issued_total",
		Help:      "Claim payloads issued for QR display.",
	})

	// SessionsCreatedTotal counts created sessions
	SessionsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_created_total",
		Help:      "Sessions created.",
	})

	// SessionsClosedTotal counts Open/Expired -> Closed transitions by trigger
	SessionsClosedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_closed_total",
		Help:      "Sessions closed, by trigger (manual or reaper).",
	}, []string{"trigger"})

	// Registry holds the collectors above plus the Go and process collectors
	Registry = prometheus.NewRegistry()
)

func init() {
	Registry.MustRegister(
		ClaimsTotal,
		QRIssuedTotal,
		SessionsCreatedTotal,
		SessionsClosedTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler exposes Registry in the Prometheus text format
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}
