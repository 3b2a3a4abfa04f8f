package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "crud", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "crud", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	// Operations counts controller calls by resource, operation and outcome
	// (ok, not_modified, or the failure kind).
	Operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "crud", Name: "operations_total", Help: "Number of CRUD operations by resource, operation and outcome."},
		[]string{"resource", "operation", "outcome"},
	)
	MailsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "crud", Name: "mails_sent_total", Help: "Number of transactional mails by result."},
		[]string{"result"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(Operations)
	reg.MustRegister(MailsSent)
}
