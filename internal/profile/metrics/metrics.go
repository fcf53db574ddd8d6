package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the profile update and notification collectors. It satisfies
// both the migration engine's and the dispatcher's metrics interfaces.
type Metrics struct {
	ProfileUpdates        *prometheus.CounterVec
	Migrations            prometheus.Counter
	PostsRewritten        prometheus.Counter
	MentionsRewritten     prometheus.Counter
	NotificationsSent     prometheus.Counter
	NotificationsFailed   prometheus.Counter
	UpdateDuration        prometheus.Histogram
	DispatchDuration      prometheus.Histogram
	NotificationsProduced *prometheus.CounterVec
}

// New registers the collectors with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors with reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not collide.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProfileUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fedcore_profile_updates_total",
			Help: "Total number of profile info updates by outcome",
		}, []string{"outcome"}),
		Migrations: factory.NewCounter(prometheus.CounterOpts{
			Name: "fedcore_entity_migrations_total",
			Help: "Total number of committed entity migrations",
		}),
		PostsRewritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "fedcore_migration_posts_rewritten_total",
			Help: "Total number of original posts moved to a new entity",
		}),
		MentionsRewritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "fedcore_migration_mentions_rewritten_total",
			Help: "Total number of mentions moved to a new entity",
		}),
		NotificationsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "fedcore_notifications_sent_total",
			Help: "Total number of entity notifications accepted by the transport",
		}),
		NotificationsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "fedcore_notifications_failed_total",
			Help: "Total number of entity notifications the transport rejected",
		}),
		UpdateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fedcore_profile_update_duration_seconds",
			Help:    "Duration of profile updates including migration and notification",
			Buckets: prometheus.DefBuckets,
		}),
		DispatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fedcore_notification_dispatch_duration_seconds",
			Help:    "Duration of one notification fan-out",
			Buckets: prometheus.DefBuckets,
		}),
		NotificationsProduced: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fedcore_notifications_produced_total",
			Help: "Total number of notification records written to the broker by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncProfileUpdate(outcome string) {
	m.ProfileUpdates.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncMigration() {
	m.Migrations.Inc()
}

func (m *Metrics) AddRewrites(posts, mentions int64) {
	m.PostsRewritten.Add(float64(posts))
	m.MentionsRewritten.Add(float64(mentions))
}

func (m *Metrics) ObserveUpdate(start time.Time) {
	m.UpdateDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncNotificationsSent() {
	m.NotificationsSent.Inc()
}

func (m *Metrics) IncNotificationsFailed() {
	m.NotificationsFailed.Inc()
}

func (m *Metrics) ObserveDispatch(start time.Time) {
	m.DispatchDuration.Observe(time.Since(start).Seconds())
}

// IncProduced counts broker writes; result is "ok" or "error".
func (m *Metrics) IncProduced(result string) {
	m.NotificationsProduced.WithLabelValues(result).Inc()
}
