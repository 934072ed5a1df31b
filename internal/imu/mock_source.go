// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"math"
)

// Earth field used by the mock source, in raw magnetometer LSB.
// Z is negative because the field dips below the horizon.
const (
	mockFieldNorth = 200.0
	mockFieldDown  = -250.0
)

type mockSource struct {
	period float64
	n      int
}

// NewMockSource creates a mock payload source for a device that rolls
// back and forth while yawing at a constant rate. Time advances by period
// seconds per payload, so the values stay consistent with the configured
// notification interval regardless of how fast Next is called.
func NewMockSource(period float64) PayloadSource {
	return &mockSource{period: period}
}

func (m *mockSource) Next() ([]byte, error) {
	t := float64(m.n) * m.period
	m.n++

	// roll = 20° sin(t), yaw rate 30°/s, pitch held at zero
	roll := 20 * math.Pi / 180 * math.Sin(t)
	rollRate := 20 * math.Cos(t) // deg/s
	yaw := math.Mod(30*t, 360) * math.Pi / 180
	yawRate := 30.0 // deg/s

	sr, cr := math.Sincos(roll)
	sy, cy := math.Sincos(yaw)

	// Body rates of R = Rz(yaw)·Rx(roll)
	gx := rollRate
	gy := sr * yawRate
	gz := cr * yawRate

	// Gravity reaction and earth field seen from the body frame
	ax, ay, az := 0.0, sr, cr
	mx := mockFieldNorth * cy
	my := cr*(-mockFieldNorth*sy) + sr*mockFieldDown
	mz := -sr*(-mockFieldNorth*sy) + cr*mockFieldDown

	raw := RawSample{
		Gx: toCounts(gx * GyroScale),
		Gy: toCounts(gy * GyroScale),
		Gz: toCounts(gz * GyroScale),
		Ax: toCounts(ax * AccelScale),
		Ay: toCounts(ay * AccelScale),
		Az: toCounts(az * AccelScale),
		Mx: toCounts(mx),
		My: toCounts(my),
		Mz: toCounts(mz),
	}
	return raw.Encode(), nil
}

// toCounts rounds v to the nearest int16, saturating at the type limits.
func toCounts(v float64) int16 {
	v = math.Round(v)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
