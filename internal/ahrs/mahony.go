// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ahrs

import (
	"math"

	"github.com/golang/geo/r3"
)

// Mahony is the proportional-integral complementary filter. The error
// between measured and estimated gravity/field directions is fed back into
// the gyro rates: Kp sets the instantaneous correction strength, Ki removes
// steady-state gyro bias at the cost of slower transients.
type Mahony struct {
	q       Quaternion
	initial Quaternion
	period  float64
	kp      float64
	ki      float64
	eInt    r3.Vector
}

// NewMahony creates a filter integrating with samplePeriod seconds per update.
func NewMahony(samplePeriod, kp, ki float64, opts ...Option) *Mahony {
	o := buildOptions(opts)
	return &Mahony{
		q:       o.initial,
		initial: o.initial,
		period:  samplePeriod,
		kp:      kp,
		ki:      ki,
	}
}

func (f *Mahony) Quaternion() Quaternion { return f.q }

func (f *Mahony) SetQuaternion(q Quaternion) { f.q = q.Normalized() }

func (f *Mahony) SamplePeriod() float64 { return f.period }

// Reset restores the initial quaternion and clears the integral error.
func (f *Mahony) Reset() {
	f.q = f.initial
	f.eInt = r3.Vector{}
}

// Gains returns kp and ki.
func (f *Mahony) Gains() (kp, ki float64) { return f.kp, f.ki }

// IntegralError returns the accumulated error term.
func (f *Mahony) IntegralError() [3]float64 {
	return [3]float64{f.eInt.X, f.eInt.Y, f.eInt.Z}
}

// Update implements Filter.
func (f *Mahony) Update(gx, gy, gz, ax, ay, az, mx, my, mz float64) bool {
	q0, q1, q2, q3 := f.q.W, f.q.X, f.q.Y, f.q.Z

	// Normalise accelerometer measurement
	inv, ok := invNorm3(ax, ay, az)
	if !ok {
		return false
	}
	a := r3.Vector{X: ax * inv, Y: ay * inv, Z: az * inv}

	// Normalise magnetometer measurement
	inv, ok = invNorm3(mx, my, mz)
	if !ok {
		return false
	}
	m := r3.Vector{X: mx * inv, Y: my * inv, Z: mz * inv}

	q0q0 := q0 * q0
	q0q1 := q0 * q1
	q0q2 := q0 * q2
	q0q3 := q0 * q3
	q1q1 := q1 * q1
	q1q2 := q1 * q2
	q1q3 := q1 * q3
	q2q2 := q2 * q2
	q2q3 := q2 * q3
	q3q3 := q3 * q3

	// Reference direction of Earth's magnetic field
	hx := 2*m.X*(0.5-q2q2-q3q3) + 2*m.Y*(q1q2-q0q3) + 2*m.Z*(q1q3+q0q2)
	hy := 2*m.X*(q1q2+q0q3) + 2*m.Y*(0.5-q1q1-q3q3) + 2*m.Z*(q2q3-q0q1)
	bx := math.Sqrt(hx*hx + hy*hy)
	bz := 2*m.X*(q1q3-q0q2) + 2*m.Y*(q2q3+q0q1) + 2*m.Z*(0.5-q1q1-q2q2)

	// Estimated direction of gravity and magnetic field
	v := r3.Vector{
		X: 2 * (q1q3 - q0q2),
		Y: 2 * (q0q1 + q2q3),
		Z: q0q0 - q1q1 - q2q2 + q3q3,
	}
	w := r3.Vector{
		X: 2*bx*(0.5-q2q2-q3q3) + 2*bz*(q1q3-q0q2),
		Y: 2*bx*(q1q2-q0q3) + 2*bz*(q0q1+q2q3),
		Z: 2*bx*(q0q2+q1q3) + 2*bz*(0.5-q1q1-q2q2),
	}

	// Error is the sum of cross products between measured and estimated directions
	e := a.Cross(v).Add(m.Cross(w))

	if f.ki > 0 {
		f.eInt = f.eInt.Add(e)
	} else {
		// prevent integral windup
		f.eInt = r3.Vector{}
	}

	// Apply feedback terms
	gx += f.kp*e.X + f.ki*f.eInt.X
	gy += f.kp*e.Y + f.ki*f.eInt.Y
	gz += f.kp*e.Z + f.ki*f.eInt.Z

	// Integrate rate of change of quaternion
	h := 0.5 * f.period
	f.q = Quaternion{
		W: q0 + (-q1*gx-q2*gy-q3*gz)*h,
		X: q1 + (q0*gx+q2*gz-q3*gy)*h,
		Y: q2 + (q0*gy-q1*gz+q3*gx)*h,
		Z: q3 + (q0*gz+q1*gy-q2*gx)*h,
	}.Normalized()
	return true
}
