// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ahrs

import "math"

// Madgwick is the gradient-descent orientation filter. Each update
// integrates the gyro rate and steps against the gradient of the error
// between the measured accel/mag directions and the earth references
// rotated into the sensor frame.
//
// Beta trades responsiveness (large) against noise rejection (small).
type Madgwick struct {
	q       Quaternion
	initial Quaternion
	period  float64
	beta    float64
}

// NewMadgwick creates a filter integrating with samplePeriod seconds per update.
func NewMadgwick(samplePeriod, beta float64, opts ...Option) *Madgwick {
	o := buildOptions(opts)
	return &Madgwick{
		q:       o.initial,
		initial: o.initial,
		period:  samplePeriod,
		beta:    beta,
	}
}

func (f *Madgwick) Quaternion() Quaternion { return f.q }

func (f *Madgwick) SetQuaternion(q Quaternion) { f.q = q.Normalized() }

func (f *Madgwick) Reset() { f.q = f.initial }

func (f *Madgwick) SamplePeriod() float64 { return f.period }

// Beta returns the gradient step gain.
func (f *Madgwick) Beta() float64 { return f.beta }

// Update implements Filter.
func (f *Madgwick) Update(gx, gy, gz, ax, ay, az, mx, my, mz float64) bool {
	q0, q1, q2, q3 := f.q.W, f.q.X, f.q.Y, f.q.Z

	// Normalise accelerometer measurement
	inv, ok := invNorm3(ax, ay, az)
	if !ok {
		return false
	}
	ax *= inv
	ay *= inv
	az *= inv

	// Normalise magnetometer measurement
	inv, ok = invNorm3(mx, my, mz)
	if !ok {
		return false
	}
	mx *= inv
	my *= inv
	mz *= inv

	_2q0 := 2 * q0
	_2q1 := 2 * q1
	_2q2 := 2 * q2
	_2q3 := 2 * q3
	_2q0q2 := 2 * q0 * q2
	_2q2q3 := 2 * q2 * q3
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
	_2q0mx := 2 * q0 * mx
	_2q0my := 2 * q0 * my
	_2q0mz := 2 * q0 * mz
	_2q1mx := 2 * q1 * mx
	hx := mx*q0q0 - _2q0my*q3 + _2q0mz*q2 + mx*q1q1 + _2q1*my*q2 + _2q1*mz*q3 - mx*q2q2 - mx*q3q3
	hy := _2q0mx*q3 + my*q0q0 - _2q0mz*q1 + _2q1mx*q2 - my*q1q1 + my*q2q2 + _2q2*mz*q3 - my*q3q3
	_2bx := math.Sqrt(hx*hx + hy*hy)
	_2bz := -_2q0mx*q2 + _2q0my*q1 + mz*q0q0 + _2q1mx*q3 - mz*q1q1 + _2q2*my*q3 - mz*q2q2 + mz*q3q3
	_4bx := 2 * _2bx
	_4bz := 2 * _2bz

	// Objective function: predicted minus measured gravity and field
	fax := 2*q1q3 - _2q0q2 - ax
	fay := 2*q0q1 + _2q2q3 - ay
	faz := 1 - 2*q1q1 - 2*q2q2 - az
	fmx := _2bx*(0.5-q2q2-q3q3) + _2bz*(q1q3-q0q2) - mx
	fmy := _2bx*(q1q2-q0q3) + _2bz*(q0q1+q2q3) - my
	fmz := _2bx*(q0q2+q1q3) + _2bz*(0.5-q1q1-q2q2) - mz

	// Gradient descent corrective step (J^T f)
	s0 := -_2q2*fax + _2q1*fay - _2bz*q2*fmx + (-_2bx*q3+_2bz*q1)*fmy + _2bx*q2*fmz
	s1 := _2q3*fax + _2q0*fay - 4*q1*faz + _2bz*q3*fmx + (_2bx*q2+_2bz*q0)*fmy + (_2bx*q3-_4bz*q1)*fmz
	s2 := -_2q0*fax + _2q3*fay - 4*q2*faz + (-_4bx*q2-_2bz*q0)*fmx + (_2bx*q1+_2bz*q3)*fmy + (_2bx*q0-_4bz*q2)*fmz
	s3 := _2q1*fax + _2q2*fay + (-_4bx*q3+_2bz*q1)*fmx + (-_2bx*q0+_2bz*q2)*fmy + _2bx*q1*fmz

	// Normalise step magnitude; a zero gradient means no correction
	if n := math.Sqrt(s0*s0 + s1*s1 + s2*s2 + s3*s3); n != 0 {
		n = 1 / n
		s0 *= n
		s1 *= n
		s2 *= n
		s3 *= n
	}

	// Rate of change of quaternion
	qDot0 := 0.5*(-q1*gx-q2*gy-q3*gz) - f.beta*s0
	qDot1 := 0.5*(q0*gx+q2*gz-q3*gy) - f.beta*s1
	qDot2 := 0.5*(q0*gy-q1*gz+q3*gx) - f.beta*s2
	qDot3 := 0.5*(q0*gz+q1*gy-q2*gx) - f.beta*s3

	// Integrate to yield quaternion
	q0 += qDot0 * f.period
	q1 += qDot1 * f.period
	q2 += qDot2 * f.period
	q3 += qDot3 * f.period

	f.q = Quaternion{W: q0, X: q1, Y: q2, Z: q3}.Normalized()
	return true
}
