// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package metrics exposes Prometheus instrumentation for the fusion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sensortag"

// Metrics groups the pipeline collectors. A nil *Metrics is valid and
// records nothing, so tests and tools can run without a registry.
type Metrics struct {
	Payloads    prometheus.Counter
	Updates     prometheus.Counter
	DecodeErrs  prometheus.Counter
	Degenerate  prometheus.Counter
	Dropped     prometheus.Counter
	QueueLength prometheus.Gauge
	Quaternion  *prometheus.GaugeVec
	Euler       *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Payloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payloads_total",
			Help:      "Movement payloads received by the fusion processor.",
		}),
		Updates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_updates_total",
			Help:      "Filter updates that changed the orientation estimate.",
		}),
		DecodeErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Payloads dropped because they were not 18 bytes long.",
		}),
		Degenerate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degenerate_samples_total",
			Help:      "Samples skipped because the accel or mag vector was zero.",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_dropped_total",
			Help:      "Payloads dropped because the processing queue was full.",
		}),
		QueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_length",
			Help:      "Payloads waiting in the processing queue.",
		}),
		Quaternion: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "orientation_quaternion",
			Help:      "Current orientation quaternion component.",
		}, []string{"component"}),
		Euler: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "orientation_degrees",
			Help:      "Current orientation angle in degrees.",
		}, []string{"angle"}),
	}

	reg.MustRegister(
		m.Payloads,
		m.Updates,
		m.DecodeErrs,
		m.Degenerate,
		m.Dropped,
		m.QueueLength,
		m.Quaternion,
		m.Euler,
	)
	return m
}

// ObservePayload counts one received payload.
func (m *Metrics) ObservePayload() {
	if m != nil {
		m.Payloads.Inc()
	}
}

// ObserveDecodeError counts one malformed payload.
func (m *Metrics) ObserveDecodeError() {
	if m != nil {
		m.DecodeErrs.Inc()
	}
}

// ObserveDegenerate counts one skipped zero-vector sample.
func (m *Metrics) ObserveDegenerate() {
	if m != nil {
		m.Degenerate.Inc()
	}
}

// ObserveDropped counts one payload the queue could not accept.
func (m *Metrics) ObserveDropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}

// SetQueueLength reports the current queue depth.
func (m *Metrics) SetQueueLength(n int) {
	if m != nil {
		m.QueueLength.Set(float64(n))
	}
}

// ObserveUpdate records an applied update and the resulting orientation.
func (m *Metrics) ObserveUpdate(w, x, y, z, roll, pitch, yaw float64) {
	if m == nil {
		return
	}
	m.Updates.Inc()
	m.Quaternion.WithLabelValues("w").Set(w)
	m.Quaternion.WithLabelValues("x").Set(x)
	m.Quaternion.WithLabelValues("y").Set(y)
	m.Quaternion.WithLabelValues("z").Set(z)
	m.Euler.WithLabelValues("roll").Set(roll)
	m.Euler.WithLabelValues("pitch").Set(pitch)
	m.Euler.WithLabelValues("yaw").Set(yaw)
}
