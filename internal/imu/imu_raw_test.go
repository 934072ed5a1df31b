// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeZeroPayload(t *testing.T) {
	s, err := Decode(make([]byte, PayloadSize))
	require.NoError(t, err)

	assert.Zero(t, s.Gyro.Norm())
	assert.Zero(t, s.Accel.Norm())
	assert.Zero(t, s.Mag.Norm())
}

func TestDecodeScaling(t *testing.T) {
	raw := RawSample{
		Gx: 131, Gy: -131, Gz: 0x7FFF,
		Ax: 4096, Ay: -32768, Az: 0x7FFF,
		Mx: 200, My: -1, Mz: -250,
	}
	s, err := Decode(raw.Encode())
	require.NoError(t, err)

	assert.InDelta(t, 131*500.0/65536.0, s.Gyro.X, 1e-12)
	assert.InDelta(t, -131*500.0/65536.0, s.Gyro.Y, 1e-12)
	assert.InDelta(t, 32767*500.0/65536.0, s.Gyro.Z, 1e-12)

	assert.Equal(t, 1.0, s.Accel.X)
	assert.Equal(t, -8.0, s.Accel.Y)
	assert.InDelta(t, 32767.0/4096.0, s.Accel.Z, 1e-12)

	// Magnetometer stays in raw counts.
	assert.Equal(t, 200.0, s.Mag.X)
	assert.Equal(t, -1.0, s.Mag.Y)
	assert.Equal(t, -250.0, s.Mag.Z)
}

func TestParseRawLittleEndian(t *testing.T) {
	payload := make([]byte, PayloadSize)
	payload[6], payload[7] = 0x00, 0x10 // ax = 0x1000
	payload[16], payload[17] = 0xFF, 0xFF

	raw, err := ParseRaw(payload)
	require.NoError(t, err)
	assert.Equal(t, int16(4096), raw.Ax)
	assert.Equal(t, int16(-1), raw.Mz)
	assert.Equal(t, payload, raw.Encode())
}

func TestDecodeWrongLength(t *testing.T) {
	for _, n := range []int{0, 1, 17, 19, 36} {
		_, err := Decode(make([]byte, n))
		require.Error(t, err, "length %d", n)

		var decErr *DecodeError
		require.True(t, errors.As(err, &decErr))
		assert.Equal(t, n, decErr.Len)
		assert.True(t, errors.Is(err, ErrPayloadSize))
	}
}

func TestHexLineSource(t *testing.T) {
	payload := RawSample{Ax: 4096, Mx: 1}.Encode()
	input := strings.Join([]string{
		"# capture header",
		"",
		"000000000000001000000000010000000000",
		"00 00 00 00 00 00 00 10 00 00 00 00 01 00 00 00 00 00",
		"zz",
		"00:00",
	}, "\n")

	src := NewHexLineSource(strings.NewReader(input))

	got, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	got, err = src.Next()
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	_, err = src.Next()
	require.ErrorIs(t, err, ErrMalformedLine)
	assert.Contains(t, err.Error(), "line 5")

	// The source keeps going after a malformed line.
	got, err = src.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0}, got)

	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestMockSourceIsConsistent(t *testing.T) {
	src := NewMockSource(0.1)

	for i := 0; i < 50; i++ {
		payload, err := src.Next()
		require.NoError(t, err)

		s, err := Decode(payload)
		require.NoError(t, err)

		// Gravity magnitude stays at 1 g and the field magnitude is constant.
		assert.InDelta(t, 1.0, s.Accel.Norm(), 1e-3)
		assert.InDelta(t, math.Hypot(200, 250), s.Mag.Norm(), 2)

		// Yaw rate is constant at 30 deg/s.
		assert.InDelta(t, 30.0, math.Hypot(s.Gyro.Y, s.Gyro.Z), 0.05)
	}
}
