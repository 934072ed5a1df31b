// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/golang/geo/r3"
)

// PayloadSize is the length of one SensorTag movement notification.
const PayloadSize = 18

// Scale constants of the movement sensor.
const (
	GyroScale  = 65536.0 / 500.0 // LSB per deg/s
	AccelScale = 32768.0 / 8.0   // LSB per g, device configured for ±8g
)

// ErrPayloadSize is matched by every DecodeError.
var ErrPayloadSize = errors.New("invalid movement payload size")

// DecodeError reports a payload that is not exactly PayloadSize bytes long.
type DecodeError struct {
	Len int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("movement payload: got %d bytes, want %d", e.Len, PayloadSize)
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrPayloadSize
}

// RawSample is a single raw gyro+accel+mag sample, in wire order.
type RawSample struct {
	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`

	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Mx int16 `json:"mx"` // magnetometer
	My int16 `json:"my"`
	Mz int16 `json:"mz"`
}

// PhysicalSample is a RawSample converted to physical units.
// Gyro is in deg/s, Accel in g, Mag is left in raw LSB.
type PhysicalSample struct {
	Gyro  r3.Vector `json:"gyro"`
	Accel r3.Vector `json:"accel"`
	Mag   r3.Vector `json:"mag"`
}

// ParseRaw splits an 18-byte little-endian payload into its nine int16 fields.
func ParseRaw(payload []byte) (RawSample, error) {
	if len(payload) != PayloadSize {
		return RawSample{}, &DecodeError{Len: len(payload)}
	}

	var v [9]int16
	for i := range v {
		v[i] = int16(binary.LittleEndian.Uint16(payload[2*i:]))
	}

	return RawSample{
		Gx: v[0], Gy: v[1], Gz: v[2],
		Ax: v[3], Ay: v[4], Az: v[5],
		Mx: v[6], My: v[7], Mz: v[8],
	}, nil
}

// Decode parses payload and converts it to physical units.
func Decode(payload []byte) (PhysicalSample, error) {
	raw, err := ParseRaw(payload)
	if err != nil {
		return PhysicalSample{}, err
	}
	return raw.Physical(), nil
}

// Physical converts the raw counts to physical units.
func (r RawSample) Physical() PhysicalSample {
	return PhysicalSample{
		Gyro: r3.Vector{
			X: float64(r.Gx) / GyroScale,
			Y: float64(r.Gy) / GyroScale,
			Z: float64(r.Gz) / GyroScale,
		},
		Accel: r3.Vector{
			X: float64(r.Ax) / AccelScale,
			Y: float64(r.Ay) / AccelScale,
			Z: float64(r.Az) / AccelScale,
		},
		Mag: r3.Vector{
			X: float64(r.Mx),
			Y: float64(r.My),
			Z: float64(r.Mz),
		},
	}
}

// Encode is the inverse of ParseRaw.
func (r RawSample) Encode() []byte {
	buf := make([]byte, PayloadSize)
	for i, v := range [9]int16{r.Gx, r.Gy, r.Gz, r.Ax, r.Ay, r.Az, r.Mx, r.My, r.Mz} {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(v))
	}
	return buf
}

// PayloadSource is anything that can deliver raw movement payloads over time:
// a serial bridge, a capture file, or the mock source.
type PayloadSource interface {
	Next() ([]byte, error)
}
