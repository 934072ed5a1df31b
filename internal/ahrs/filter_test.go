// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ahrs

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deg = math.Pi / 180

// fromEuler mirrors orientation.FromEuler; that package imports this one.
func fromEuler(roll, pitch, yaw float64) Quaternion {
	sr, cr := math.Sincos(roll / 2)
	sp, cp := math.Sincos(pitch / 2)
	sy, cy := math.Sincos(yaw / 2)
	return Quaternion{
		W: cr*cp*cy + sr*sp*sy,
		X: sr*cp*cy - cr*sp*sy,
		Y: cr*sp*cy + sr*cp*sy,
		Z: cr*cp*sy - sr*sp*cy,
	}
}

// toBody rotates an earth-frame vector into the sensor frame of q.
func toBody(q Quaternion, x, y, z float64) (float64, float64, float64) {
	v := q.Conjugate().Mul(Quaternion{X: x, Y: y, Z: z}).Mul(q)
	return v.X, v.Y, v.Z
}

// angleBetween returns the rotation angle separating a and b, in radians.
func angleBetween(a, b Quaternion) float64 {
	d := math.Abs(a.Dot(b))
	if d > 1 {
		d = 1
	}
	return 2 * math.Acos(d)
}

func filters() map[string]func() Filter {
	return map[string]func() Filter{
		"madgwick": func() Filter { return NewMadgwick(0.01, 0.1) },
		"mahony":   func() Filter { return NewMahony(0.01, 2, 0) },
	}
}

func TestStartsAtIdentity(t *testing.T) {
	for name, newFilter := range filters() {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, Identity, newFilter().Quaternion())
		})
	}
}

func TestAlignedSampleIsFixedPoint(t *testing.T) {
	for name, newFilter := range filters() {
		t.Run(name, func(t *testing.T) {
			f := newFilter()
			for i := 0; i < 100; i++ {
				require.True(t, f.Update(0, 0, 0, 0, 0, 1, 0.6, 0, -0.8))
			}
			q := f.Quaternion()
			assert.InDelta(t, 1, q.W, 1e-9)
			assert.InDelta(t, 0, q.X, 1e-9)
			assert.InDelta(t, 0, q.Y, 1e-9)
			assert.InDelta(t, 0, q.Z, 1e-9)
		})
	}
}

func TestQuaternionStaysUnitNorm(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	r := func(scale float64) float64 { return (rng.Float64()*2 - 1) * scale }

	for name, newFilter := range filters() {
		t.Run(name, func(t *testing.T) {
			f := newFilter()
			for i := 0; i < 2000; i++ {
				f.Update(r(5), r(5), r(5), r(2), r(2), r(2), r(500), r(500), r(500))
				require.InDelta(t, 1, f.Quaternion().Norm(), 1e-6, "iteration %d", i)
			}
		})
	}
}

func TestZeroVectorLeavesStateUntouched(t *testing.T) {
	for name, newFilter := range filters() {
		t.Run(name, func(t *testing.T) {
			f := newFilter()
			f.SetQuaternion(fromEuler(10*deg, -5*deg, 40*deg))
			for i := 0; i < 10; i++ {
				f.Update(0.1, 0.2, 0.3, 0.1, 0.2, 0.9, 0.5, 0.1, -0.3)
			}
			before := f.Quaternion()

			assert.False(t, f.Update(0.5, 0.5, 0.5, 0, 0, 0, 1, 0, 0), "zero accel")
			assert.Equal(t, before, f.Quaternion())

			assert.False(t, f.Update(0.5, 0.5, 0.5, 0, 0, 1, 0, 0, 0), "zero mag")
			assert.Equal(t, before, f.Quaternion())
		})
	}
}

func TestConvergesToTiltedOrientation(t *testing.T) {
	truth := fromEuler(30*deg, 20*deg, 10*deg)
	ax, ay, az := toBody(truth, 0, 0, 1)
	mx, my, mz := toBody(truth, 0.6, 0, -0.8)

	cases := []struct {
		name  string
		f     Filter
		iters int
		tol   float64
	}{
		{"madgwick", NewMadgwick(0.01, 0.1), 5000, 0.5 * deg},
		{"mahony", NewMahony(0.01, 2, 0), 3000, 0.1 * deg},
		{"mahony with integral", NewMahony(0.01, 2, 0.01), 3000, 0.1 * deg},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for i := 0; i < tc.iters; i++ {
				require.True(t, tc.f.Update(0, 0, 0, ax, ay, az, mx, my, mz))
			}
			assert.Less(t, angleBetween(truth, tc.f.Quaternion()), tc.tol)
		})
	}
}

func TestGyroOnlyIntegration(t *testing.T) {
	// With no correction gain the filters integrate the gyro alone.
	cases := map[string]Filter{
		"madgwick": NewMadgwick(0.001, 0),
		"mahony":   NewMahony(0.001, 0, 0),
	}
	for name, f := range cases {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 1000; i++ {
				f.Update(0, 0, 1, 0, 0, 1, 1, 0, 0)
			}
			want := fromEuler(0, 0, 1)
			assert.Less(t, angleBetween(want, f.Quaternion()), 1e-3)
		})
	}
}

func TestMahonyIntegralTerm(t *testing.T) {
	truth := fromEuler(0, 0, 45*deg)
	mx, my, mz := toBody(truth, 0.6, 0, -0.8)

	t.Run("zero ki keeps integral at zero", func(t *testing.T) {
		f := NewMahony(0.01, 1, 0)
		for i := 0; i < 50; i++ {
			f.Update(0, 0, 0, 0, 0, 1, mx, my, mz)
			require.Equal(t, [3]float64{}, f.IntegralError())
		}
	})

	t.Run("positive ki accumulates", func(t *testing.T) {
		f := NewMahony(0.01, 1, 0.1)
		f.Update(0, 0, 0, 0, 0, 1, mx, my, mz)
		e := f.IntegralError()
		assert.NotZero(t, math.Abs(e[0])+math.Abs(e[1])+math.Abs(e[2]))

		f.Reset()
		assert.Equal(t, [3]float64{}, f.IntegralError())
		assert.Equal(t, Identity, f.Quaternion())
	})
}

func TestInitialQuaternionAndReset(t *testing.T) {
	initial := Quaternion{W: 0, X: 0, Y: 0, Z: 2}
	want := Quaternion{Z: 1}

	for name, f := range map[string]Filter{
		"madgwick": NewMadgwick(0.01, 0.1, WithInitialQuaternion(initial)),
		"mahony":   NewMahony(0.01, 1, 0, WithInitialQuaternion(initial)),
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, want, f.Quaternion())

			f.Update(0.3, 0, 0, 0.2, 0.1, 1, 0.5, 0.2, -0.5)
			assert.NotEqual(t, want, f.Quaternion())

			f.Reset()
			assert.Equal(t, want, f.Quaternion())
			assert.Equal(t, 0.01, f.SamplePeriod())
		})
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"madgwick":      KindMadgwick,
		" Madgwick ":    KindMadgwick,
		"gradient":      KindMadgwick,
		"MAHONY":        KindMahony,
		"complementary": KindMahony,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseKind("kalman")
	assert.Error(t, err)
}

func TestQuaternionHelpers(t *testing.T) {
	assert.Equal(t, Identity, Quaternion{}.Normalized())
	assert.InDelta(t, 1, Quaternion{W: 1, X: 1, Y: 1, Z: 1}.Normalized().Norm(), 1e-12)

	q := fromEuler(10*deg, 20*deg, 30*deg)
	p := q.Mul(q.Conjugate())
	assert.InDelta(t, 1, p.W, 1e-12)
	assert.InDelta(t, 0, p.X, 1e-12)
	assert.InDelta(t, 0, p.Y, 1e-12)
	assert.InDelta(t, 0, p.Z, 1e-12)
}
