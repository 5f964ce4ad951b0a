package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	opTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Ledger operations by operation and result",
		},
		[]string{"op", "result"},
	)

	opDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_operation_duration_ms",
			Help:    "Ledger operation duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"op", "result"},
	)

	accountsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_accounts_created_total",
		Help: "Accounts created on first resolution",
	})

	pointsMoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_points_total",
			Help: "Points debited by stakes and credited by payouts",
		},
		[]string{"direction"},
	)
)

// RecordOp registra contagem e duração de uma operação do ledger.
// result é "success" ou o kind do erro.
func RecordOp(op, result string, started time.Time) {
	opTotal.WithLabelValues(op, result).Inc()
	opDuration.WithLabelValues(op, result).Observe(float64(time.Since(started).Milliseconds()))
}

func RecordAccountCreated() { accountsCreated.Inc() }

func RecordStakeDebit(points int64) { pointsMoved.WithLabelValues("debit").Add(float64(points)) }

func RecordPayout(points int64) { pointsMoved.WithLabelValues("credit").Add(float64(points)) }
