// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	humanize "github.com/dustin/go-humanize"

	"github.com/relabs-tech/sensortag_ahrs/internal/config"
	"github.com/relabs-tech/sensortag_ahrs/internal/fusion"
	"github.com/relabs-tech/sensortag_ahrs/internal/imu"
	"github.com/relabs-tech/sensortag_ahrs/internal/orientation"
)

// printPose writes one "roll pitch yaw" line in degrees.
func printPose(out io.Writer, p orientation.Pose) error {
	_, err := fmt.Fprintf(out, "%10.5f %10.5f %10.5f\n", p.Roll, p.Pitch, p.Yaw)
	return err
}

type replayStats struct {
	Payloads   int // processed, including degenerate
	Dropped    int // malformed lines and wrong-length payloads
	Degenerate int // zero accel or mag, filter untouched
}

// RunReplay feeds a hex capture file through the configured filter as fast
// as possible and prints one pose line per payload to stdout.
func RunReplay(path string) error {
	cfg := config.Get()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	defer f.Close()

	filter, err := fusion.NewFilter(cfg)
	if err != nil {
		return err
	}
	proc := fusion.NewProcessor(filter, cfg.EulerConvention, nil)

	stats, err := replayPayloads(imu.NewHexLineSource(f), proc, os.Stdout)
	log.Printf("replay: %s payloads, %s dropped, %s degenerate",
		humanize.Comma(int64(stats.Payloads)),
		humanize.Comma(int64(stats.Dropped)),
		humanize.Comma(int64(stats.Degenerate)),
	)
	return err
}

func replayPayloads(src imu.PayloadSource, proc *fusion.Processor, out io.Writer) (replayStats, error) {
	var stats replayStats
	for {
		payload, err := src.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if errors.Is(err, imu.ErrMalformedLine) {
			log.Printf("replay: %v", err)
			stats.Dropped++
			continue
		}
		if err != nil {
			return stats, err
		}

		est, err := proc.Process(payload)
		if err != nil {
			var decErr *imu.DecodeError
			if errors.As(err, &decErr) {
				log.Printf("replay: dropping payload: %v", err)
				stats.Dropped++
				continue
			}
			return stats, err
		}

		stats.Payloads++
		if !est.Applied {
			stats.Degenerate++
		}
		if err := printPose(out, est.Pose); err != nil {
			return stats, err
		}
	}
}
