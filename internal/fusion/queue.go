// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

import (
	"sync"

	"github.com/relabs-tech/sensortag_ahrs/internal/metrics"
)

// Queue is a bounded FIFO of raw payloads between a push-style transport
// (MQTT callbacks, serial reader) and a single Processor.Run loop.
type Queue struct {
	ch      chan []byte
	metrics *metrics.Metrics

	mu     sync.Mutex
	closed bool
}

// NewQueue creates a queue holding at most size payloads. m may be nil.
func NewQueue(size int, m *metrics.Metrics) *Queue {
	return &Queue{
		ch:      make(chan []byte, size),
		metrics: m,
	}
}

// Offer enqueues a copy of payload without blocking. It returns false, and
// counts a drop, when the queue is full or closed.
func (q *Queue) Offer(payload []byte) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.metrics.ObserveDropped()
		return false
	}

	buf := append([]byte(nil), payload...)
	select {
	case q.ch <- buf:
		q.metrics.SetQueueLength(len(q.ch))
		return true
	default:
		q.metrics.ObserveDropped()
		return false
	}
}

// Close stops accepting payloads. Payloads already queued are still delivered.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// Len returns the number of queued payloads.
func (q *Queue) Len() int { return len(q.ch) }

// C exposes the receive side for Processor.Run.
func (q *Queue) C() <-chan []byte { return q.ch }
