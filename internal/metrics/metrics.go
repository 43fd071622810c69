package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Set bundles the engine's Prometheus collectors.
type Set struct {
	CheckIns       prometheus.Counter
	Settlements    prometheus.Counter
	Cancellations  prometheus.Counter
	Overrides      prometheus.Counter
	FeesAccrued    prometheus.Counter
	LockedDeposits prometheus.Gauge
}

// New registers the engine collectors on reg.
func New(reg prometheus.Registerer) *Set {
	return &Set{
		CheckIns: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "parking_checkins_total",
			Help: "Number of successful check-ins.",
		}),
		Settlements: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "parking_settlements_total",
			Help: "Number of billed settlements, including force-ends.",
		}),
		Cancellations: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "parking_cancellations_total",
			Help: "Number of expired check-ins cancelled.",
		}),
		Overrides: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "parking_admin_overrides_total",
			Help: "Number of administrative force-resets and force-ends.",
		}),
		FeesAccrued: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "parking_fees_accrued_cents_total",
			Help: "Fees accrued by settlements, in cents.",
		}),
		LockedDeposits: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "parking_locked_deposits_cents",
			Help: "Deposits currently reserved against active sessions, in cents.",
		}),
	}
}
