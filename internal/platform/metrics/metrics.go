package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RegistrationsSaved     *prometheus.CounterVec
	EnrollmentsTotal       prometheus.Counter
	EnrollmentsRejected    *prometheus.CounterVec
	RegistrationsCheckedIn prometheus.Counter
	NotificationsPublished prometheus.Counter
	NotificationsFailed    prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RegistrationsSaved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cmms_registrations_saved_total",
			Help: "Registrations saved, labeled by resulting status.",
		}, []string{"status"}),
		EnrollmentsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cmms_enrollments_total",
			Help: "Class enrollments successfully created.",
		}),
		EnrollmentsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cmms_enrollments_rejected_total",
			Help: "Enrollment attempts rejected, labeled by reason.",
		}, []string{"reason"}),
		RegistrationsCheckedIn: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cmms_registrations_checked_in_total",
			Help: "Registrations marked checked in at the event gate.",
		}),
		NotificationsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cmms_notifications_published_total",
			Help: "Post-commit notification events published.",
		}),
		NotificationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cmms_notifications_failed_total",
			Help: "Notification events that could not be published or delivered.",
		}),
	}
}
