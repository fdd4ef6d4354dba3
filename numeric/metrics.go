package numeric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// frontsFactorized counts dense front factorizations by policy.
	frontsFactorized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spldlt_fronts_factorized_total",
		Help: "Number of fronts factorized",
	}, []string{"policy"})

	// delayedColumns counts columns handed from a front to its parent.
	delayedColumns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spldlt_delayed_columns_total",
		Help: "Number of fully-summed columns delayed to a parent front",
	})

	// zeroPivots counts pivots accepted as zero under action-on-singular.
	zeroPivots = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spldlt_zero_pivots_total",
		Help: "Number of zero pivots accepted",
	})

	factorizeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "spldlt_factorize_duration_seconds",
		Help:    "Duration of complete numeric factorizations",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
	})
)

func policyLabel(posdef bool) string {
	if posdef {
		return "posdef"
	}

	return "indef"
}
