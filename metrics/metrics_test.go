/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveOutcome("SKIPPED", "out of scope path")
	m.ObserveOutcome("SKIPPED", "out of scope path")
	m.ObserveAction("deleted")
	m.ObserveRequest("moderate", "POST", "200", 5*time.Millisecond)
	m.ObserveClassify("SAFE", 20*time.Millisecond)
	m.ObserveLedgerError("claim")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OutcomesTotal.WithLabelValues("SKIPPED", "out of scope path")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnforcementTotal.WithLabelValues("deleted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("moderate", "POST", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerErrorsTotal.WithLabelValues("claim")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ClassifyDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveOutcome("SAFE", "below threshold")
		m.ObserveAction("tagged")
		m.ObserveRequest("health", "GET", "200", time.Millisecond)
		m.ObserveClassify("SAFE", time.Millisecond)
		m.ObserveLedgerError("finish")
	})
}

func TestDoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	assert.Panics(t, func() { New(reg) })
}
