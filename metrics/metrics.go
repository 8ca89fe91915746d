// Package metrics exposes Prometheus counters for registration and
// verification-notification outcomes, served on GET /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// OutcomeRegistered is the outcome label of a successful registration.
// Failed registrations use the error kind name, e.g. "email_already_registered".
const OutcomeRegistered = "registered"

// Metrics owns a private registry so tests and multiple instances never collide.
type Metrics struct {
	registry      *prometheus.Registry
	registrations *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// New creates the collectors and registers them with Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signup",
			Name:      "registrations_total",
			Help:      "Registration attempts by outcome.",
		}, []string{"outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signup",
			Name:      "verification_notifications_total",
			Help:      "Verification notifications by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		m.registrations,
		m.notifications,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRegistration counts one registration attempt.
func (m *Metrics) ObserveRegistration(outcome string) {
	m.registrations.WithLabelValues(outcome).Inc()
}

// ObserveNotification counts one verification notification.
func (m *Metrics) ObserveNotification(err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.notifications.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RegistrationCount returns the current value of the counter for outcome.
func (m *Metrics) RegistrationCount(outcome string) float64 {
	return counterValue(m.registrations.WithLabelValues(outcome))
}

// NotificationCount returns the current value of the counter for result ("sent" or "failed").
func (m *Metrics) NotificationCount(result string) float64 {
	return counterValue(m.notifications.WithLabelValues(result))
}

func counterValue(c prometheus.Counter) float64 {
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		return 0
	}
	return pb.GetCounter().GetValue()
}
