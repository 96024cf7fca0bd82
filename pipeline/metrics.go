/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Delivery outcomes.
const (
	OutcomeRejected  = "rejected"
	OutcomeIgnored   = "ignored"
	OutcomeProcessed = "processed"
	OutcomeFailed    = "failed"
)

var (
	deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docfixer_webhook_deliveries_total",
			Help: "Webhook deliveries by host and outcome",
		},
		[]string{"host", "outcome"},
	)

	corrections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docfixer_corrections_total",
			Help: "File corrections committed back to their branch",
		},
		[]string{"host"},
	)

	duration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docfixer_pipeline_duration_seconds",
			Help:    "Duration of processed pipeline runs, successful or not",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"host"},
	)
)

// ObserveDelivery counts one webhook delivery.
func ObserveDelivery(host, outcome string) {
	deliveries.With(prometheus.Labels{"host": host, "outcome": outcome}).Inc()
}
