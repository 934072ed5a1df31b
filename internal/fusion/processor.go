// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package fusion runs the decode, filter update and Euler conversion cycle
// once per movement payload.
package fusion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/relabs-tech/sensortag_ahrs/internal/ahrs"
	"github.com/relabs-tech/sensortag_ahrs/internal/config"
	"github.com/relabs-tech/sensortag_ahrs/internal/imu"
	"github.com/relabs-tech/sensortag_ahrs/internal/metrics"
	"github.com/relabs-tech/sensortag_ahrs/internal/orientation"
)

// Estimate is the result of processing one payload.
type Estimate struct {
	Time       time.Time               `json:"time"`
	Sequence   uint64                  `json:"seq"`
	Quaternion ahrs.Quaternion         `json:"q"`
	Pose       orientation.Pose        `json:"pose"`
	Euler      orientation.EulerAngles `json:"-"`
	Applied    bool                    `json:"applied"` // false when the sample was degenerate
}

// Processor owns the filter state. It is not safe for concurrent use:
// either call Process from a single goroutine or feed payloads through a
// Queue consumed by Run.
type Processor struct {
	filter     ahrs.Filter
	convention orientation.Convention
	metrics    *metrics.Metrics
	seq        uint64
}

// NewProcessor wraps filter. m may be nil.
func NewProcessor(filter ahrs.Filter, convention orientation.Convention, m *metrics.Metrics) *Processor {
	return &Processor{
		filter:     filter,
		convention: convention,
		metrics:    m,
	}
}

// NewFilter builds the filter selected in cfg.
func NewFilter(cfg *config.Config) (ahrs.Filter, error) {
	switch cfg.Filter {
	case ahrs.KindMadgwick:
		return ahrs.NewMadgwick(cfg.SamplePeriod(), cfg.MadgwickBeta), nil
	case ahrs.KindMahony:
		return ahrs.NewMahony(cfg.SamplePeriod(), cfg.MahonyKp, cfg.MahonyKi), nil
	}
	return nil, fmt.Errorf("unsupported filter %q", cfg.Filter)
}

// Filter returns the wrapped filter.
func (p *Processor) Filter() ahrs.Filter { return p.filter }

// Process decodes payload, updates the filter and converts the result.
// A malformed payload returns a *imu.DecodeError and leaves the filter
// untouched; the caller should drop it and continue.
func (p *Processor) Process(payload []byte) (Estimate, error) {
	p.metrics.ObservePayload()

	sample, err := imu.Decode(payload)
	if err != nil {
		p.metrics.ObserveDecodeError()
		return Estimate{}, err
	}

	const deg2rad = math.Pi / 180
	applied := p.filter.Update(
		sample.Gyro.X*deg2rad, sample.Gyro.Y*deg2rad, sample.Gyro.Z*deg2rad,
		sample.Accel.X, sample.Accel.Y, sample.Accel.Z,
		sample.Mag.X, sample.Mag.Y, sample.Mag.Z,
	)

	p.seq++
	q := p.filter.Quaternion()
	e := p.convention.Convert(q)
	pose := e.Pose()

	if applied {
		p.metrics.ObserveUpdate(q.W, q.X, q.Y, q.Z, pose.Roll, pose.Pitch, pose.Yaw)
	} else {
		p.metrics.ObserveDegenerate()
	}

	return Estimate{
		Time:       time.Now(),
		Sequence:   p.seq,
		Quaternion: q,
		Pose:       pose,
		Euler:      e,
		Applied:    applied,
	}, nil
}

// Run consumes q one payload at a time until ctx is cancelled or q is
// closed, calling emit for every processed payload. Decode errors are
// logged and the payload dropped.
func (p *Processor) Run(ctx context.Context, q *Queue, emit func(Estimate)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-q.C():
			if !ok {
				return nil
			}
			p.metrics.SetQueueLength(q.Len())

			est, err := p.Process(payload)
			if err != nil {
				var decErr *imu.DecodeError
				if errors.As(err, &decErr) {
					log.Printf("fusion: dropping payload: %v", err)
					continue
				}
				return err
			}
			emit(est)
		}
	}
}
