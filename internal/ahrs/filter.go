// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ahrs

import (
	"fmt"
	"math"
	"strings"
)

// Filter is an attitude estimator updated once per sensor sample.
type Filter interface {
	// Update fuses one sample: gyro in rad/s, accel and mag in any
	// self-consistent units. It returns false when the sample was skipped
	// because the accel or mag vector has zero length; the state is then
	// left exactly as it was.
	Update(gx, gy, gz, ax, ay, az, mx, my, mz float64) bool

	// Quaternion returns a snapshot of the current estimate.
	Quaternion() Quaternion

	// SetQuaternion overwrites the estimate. q is normalized first.
	SetQuaternion(q Quaternion)

	// Reset restores the initial state.
	Reset()

	// SamplePeriod returns the integration step in seconds.
	SamplePeriod() float64
}

// Kind names a filter implementation.
type Kind string

const (
	KindMadgwick Kind = "madgwick"
	KindMahony   Kind = "mahony"
)

// ParseKind accepts the filter names used in config files.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindMadgwick, "gradient":
		return KindMadgwick, nil
	case KindMahony, "complementary":
		return KindMahony, nil
	}
	return "", fmt.Errorf("unknown filter %q (want %q or %q)", s, KindMadgwick, KindMahony)
}

type options struct {
	initial Quaternion
}

// Option configures a filter at construction.
type Option func(*options)

// WithInitialQuaternion sets the estimate the filter starts from and returns to on Reset.
func WithInitialQuaternion(q Quaternion) Option {
	return func(o *options) {
		o.initial = q.Normalized()
	}
}

func buildOptions(opts []Option) options {
	o := options{initial: Identity}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// invNorm3 returns 1/|v|, or ok=false when |v| is exactly zero.
func invNorm3(x, y, z float64) (inv float64, ok bool) {
	n := math.Sqrt(x*x + y*y + z*z)
	if n == 0 {
		return 0, false
	}
	return 1 / n, true
}
