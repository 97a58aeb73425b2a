/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package metrics holds the Prometheus collectors of the worker.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	OutcomesTotal       *prometheus.CounterVec
	ClassifyDuration    *prometheus.HistogramVec
	EnforcementTotal    *prometheus.CounterVec
	LedgerErrorsTotal   *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"handler", "method"},
		),
		OutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moderation_outcomes_total",
				Help: "Moderated events by outcome and reason",
			},
			[]string{"outcome", "reason"},
		),
		ClassifyDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "moderation_classify_duration_seconds",
				Help:    "Duration of classifier calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		EnforcementTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moderation_enforcement_actions_total",
				Help: "Actions taken on stored objects",
			},
			[]string{"action"},
		),
		LedgerErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moderation_ledger_errors_total",
				Help: "Ledger operations that failed and were skipped",
			},
			[]string{"op"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.OutcomesTotal,
		m.ClassifyDuration,
		m.EnforcementTotal,
		m.LedgerErrorsTotal,
	)
	return m
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(handler, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(handler, method).Observe(d.Seconds())
	m.HTTPRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// ObserveOutcome counts a terminal moderation state.
func (m *Metrics) ObserveOutcome(outcome, reason string) {
	if m == nil {
		return
	}
	m.OutcomesTotal.WithLabelValues(outcome, reason).Inc()
}

// ObserveClassify records the latency of a classifier call.
func (m *Metrics) ObserveClassify(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ClassifyDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveAction counts an enforcement action.
func (m *Metrics) ObserveAction(action string) {
	if m == nil {
		return
	}
	m.EnforcementTotal.WithLabelValues(action).Inc()
}

// ObserveLedgerError counts a failed ledger operation.
func (m *Metrics) ObserveLedgerError(op string) {
	if m == nil {
		return
	}
	m.LedgerErrorsTotal.WithLabelValues(op).Inc()
}
