// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/sensortag_ahrs/internal/app"
	"github.com/relabs-tech/sensortag_ahrs/internal/config"
)

func main() {
	configPath := flag.String("config", "", "optional configuration file (defaults are used when empty)")
	flag.Parse()

	log.Println("starting sensortag console (mock SensorTag)")

	if *configPath != "" {
		if err := config.InitGlobal(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	if err := app.RunMockConsole(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
