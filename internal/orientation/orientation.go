// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"fmt"
	"math"
	"strings"

	"github.com/relabs-tech/sensortag_ahrs/internal/ahrs"
)

// Pose is the canonical presentation of orientation for the app, in degrees.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// EulerAngles holds roll, pitch and yaw in radians.
type EulerAngles struct {
	Roll  float64
	Pitch float64
	Yaw   float64
}

// Pose converts the angles to degrees.
func (e EulerAngles) Pose() Pose {
	return Pose{
		Roll:  e.Roll * 180.0 / math.Pi,
		Pitch: e.Pitch * 180.0 / math.Pi,
		Yaw:   e.Yaw * 180.0 / math.Pi,
	}
}

// ToEuler converts a unit quaternion to ZYX (yaw-pitch-roll) Euler angles:
//
//	roll  = atan2(2(q0q1 + q2q3), 1 - 2(q1² + q2²))
//	pitch = asin(clamp(2(q0q2 - q3q1), -1, 1))
//	yaw   = atan2(2(q0q3 + q1q2), 1 - 2(q2² + q3²))
//
// Near pitch = ±90° roll and yaw are ill-defined (gimbal lock); the result
// is still finite.
func ToEuler(q ahrs.Quaternion) EulerAngles {
	q0, q1, q2, q3 := q.W, q.X, q.Y, q.Z

	sinp := 2 * (q0*q2 - q3*q1)
	if sinp > 1 {
		sinp = 1
	} else if sinp < -1 {
		sinp = -1
	}

	return EulerAngles{
		Roll:  math.Atan2(2*(q0*q1+q2*q3), 1-2*(q1*q1+q2*q2)),
		Pitch: math.Asin(sinp),
		Yaw:   math.Atan2(2*(q0*q3+q1*q2), 1-2*(q2*q2+q3*q3)),
	}
}

// FromEuler builds the quaternion of the ZYX rotation yaw, then pitch, then roll (radians).
func FromEuler(roll, pitch, yaw float64) ahrs.Quaternion {
	sr, cr := math.Sincos(roll / 2)
	sp, cp := math.Sincos(pitch / 2)
	sy, cy := math.Sincos(yaw / 2)

	return ahrs.Quaternion{
		W: cr*cp*cy + sr*sp*sy,
		X: sr*cp*cy - cr*sp*sy,
		Y: cr*sp*cy + sr*cp*sy,
		Z: cr*cp*sy - sr*sp*cy,
	}
}

// Convention selects how a quaternion is presented as three angles.
type Convention int

const (
	// ConventionZYX is the plain aerospace sequence returned by ToEuler.
	ConventionZYX Convention = iota

	// ConventionHeading keeps roll, flips pitch so nose-up is positive and
	// reports yaw as a compass heading, clockwise from magnetic north in
	// [0, 2π). The filters' earth frame is x north, z up.
	ConventionHeading
)

func (c Convention) String() string {
	switch c {
	case ConventionZYX:
		return "zyx"
	case ConventionHeading:
		return "heading"
	}
	return fmt.Sprintf("Convention(%d)", int(c))
}

// ParseConvention accepts the names used in config files.
func ParseConvention(s string) (Convention, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zyx", "aerospace":
		return ConventionZYX, nil
	case "heading", "compass":
		return ConventionHeading, nil
	}
	return 0, fmt.Errorf("unknown euler convention %q (want \"zyx\" or \"heading\")", s)
}

// Convert applies the convention to q.
func (c Convention) Convert(q ahrs.Quaternion) EulerAngles {
	e := ToEuler(q)
	if c != ConventionHeading {
		return e
	}

	heading := math.Mod(-e.Yaw, 2*math.Pi)
	if heading < 0 {
		heading += 2 * math.Pi
	}
	if heading >= 2*math.Pi {
		heading = 0
	}
	return EulerAngles{
		Roll:  e.Roll,
		Pitch: -e.Pitch,
		Yaw:   heading,
	}
}
