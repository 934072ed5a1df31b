// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/sensortag_ahrs/internal/config"
	"github.com/relabs-tech/sensortag_ahrs/internal/fusion"
	"github.com/relabs-tech/sensortag_ahrs/internal/imu"
)

// RunMockConsole runs the filter against the simulated SensorTag and prints
// one pose line per notification period. No broker or hardware is needed.
func RunMockConsole() error {
	cfg := config.Get()
	if cfg == nil {
		cfg = config.Default()
	}

	filter, err := fusion.NewFilter(cfg)
	if err != nil {
		return err
	}
	proc := fusion.NewProcessor(filter, cfg.EulerConvention, nil)
	src := imu.NewMockSource(cfg.SamplePeriod())

	log.Printf("console: mock SensorTag, %s filter, period %v", cfg.Filter, cfg.SampleInterval())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(cfg.SampleInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("console: shutting down")
			return nil
		case <-ticker.C:
		}

		payload, err := src.Next()
		if err != nil {
			return err
		}

		est, err := proc.Process(payload)
		if err != nil {
			var decErr *imu.DecodeError
			if errors.As(err, &decErr) {
				log.Printf("console: dropping payload: %v", err)
				continue
			}
			return err
		}

		if err := printPose(os.Stdout, est.Pose); err != nil {
			return err
		}
	}
}
