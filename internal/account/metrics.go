// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

package account

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Operations is the counter for account operations by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var Operations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "emberlink_account_operations_total",
		Help: "Total number of account operations by outcome",
	},
	[]string{"operation", "result"},
)

// RegisterMetrics registers account package metrics with the given
// Prometheus registry. Call at startup to expose them on /metrics.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Operations)
}

// recordOperation increments the operation counter for a result kind.
func recordOperation(operation string, kind ResultKind) {
	Operations.WithLabelValues(operation, kind.String()).Inc()
}
