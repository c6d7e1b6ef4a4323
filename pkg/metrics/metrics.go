/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics registers the operator's Prometheus collectors on the
// controller-runtime manager's default registry, exposed through the
// manager's existing /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	// ReconcileTotal counts reconcile outcomes per controller.
	ReconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devserver_operator_reconciles_total",
			Help: "Total number of reconciles by controller and result",
		},
		[]string{"controller", "result"},
	)

	// ReconcileDuration tracks reconcile latency per controller.
	ReconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devserver_operator_reconcile_duration_seconds",
			Help:    "Duration of reconciles in seconds, by controller",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"controller"},
	)

	// ExpirationsTotal counts DevServers deleted by the expiration
	// controller, per sweep.
	ExpirationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devserver_operator_expirations_total",
			Help: "Total number of DevServers deleted for exceeding their time-to-live",
		},
		[]string{},
	)
)

func init() {
	metrics.Registry.MustRegister(ReconcileTotal, ReconcileDuration, ExpirationsTotal)
}

// RecordReconcile records one reconcile's outcome and duration.
func RecordReconcile(controller, result string, durationSeconds float64) {
	ReconcileTotal.WithLabelValues(controller, result).Inc()
	ReconcileDuration.WithLabelValues(controller).Observe(durationSeconds)
}

// RecordExpirations records the number of DevServers expired in one sweep.
func RecordExpirations(count int) {
	ExpirationsTotal.WithLabelValues().Add(float64(count))
}
