// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/sensortag_ahrs/internal/config"
	"github.com/relabs-tech/sensortag_ahrs/internal/imu"
)

func main() {
	configPath := flag.String("config", "./sensortag_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting sensortag MQTT producer (mock raw payloads)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	// 1) Connect to MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDBridge + "-mock")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("MQTT connect error: %v", token.Error())
	}
	defer client.Disconnect(250)

	src := imu.NewMockSource(cfg.SamplePeriod())
	ticker := time.NewTicker(cfg.SampleInterval())
	defer ticker.Stop()

	for t := range ticker.C {
		payload, err := src.Next()
		if err != nil {
			log.Printf("error from mock source: %v", err)
			continue
		}

		if token := client.Publish(cfg.TopicRaw, 0, false, payload); token.Wait() && token.Error() != nil {
			log.Printf("MQTT publish error: %v", token.Error())
			continue
		}

		log.Printf("%s published %d-byte payload to %s", t.Format(time.RFC3339), len(payload), cfg.TopicRaw)
	}
}
