// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/sensortag_ahrs/internal/config"
	"github.com/relabs-tech/sensortag_ahrs/internal/fusion"
	"github.com/relabs-tech/sensortag_ahrs/internal/imu"
	"github.com/relabs-tech/sensortag_ahrs/internal/orientation"
)

func RunConsoleMQTT() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to orientation
	poseToken := client.Subscribe(cfg.TopicPose, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var p orientation.Pose
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			log.Printf("console: pose unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[POSE]  ROLL=%6.2f  PITCH=%6.2f  YAW=%6.2f\n",
			p.Roll, p.Pitch, p.Yaw,
		)
	})
	poseToken.Wait()
	if poseToken.Error() != nil {
		return poseToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicPose)

	// Subscribe to quaternion estimates
	quatToken := client.Subscribe(cfg.TopicQuaternion, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var est fusion.Estimate
		if err := json.Unmarshal(msg.Payload(), &est); err != nil {
			log.Printf("console: quaternion unmarshal error: %v", err)
			return
		}

		q := est.Quaternion
		fmt.Printf(
			"[QUAT]  seq=%d  w=%8.5f x=%8.5f y=%8.5f z=%8.5f  applied=%t\n",
			est.Sequence, q.W, q.X, q.Y, q.Z, est.Applied,
		)
	})
	quatToken.Wait()
	if quatToken.Error() != nil {
		return quatToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicQuaternion)

	// Subscribe to raw payloads
	rawToken := client.Subscribe(cfg.TopicRaw, 0, func(_ mqtt.Client, msg mqtt.Message) {
		s, err := imu.ParseRaw(msg.Payload())
		if err != nil {
			log.Printf("console: raw payload error: %v", err)
			return
		}

		fmt.Printf(
			"[RAW ]  gx=%6d gy=%6d gz=%6d  ax=%6d ay=%6d az=%6d  mx=%6d my=%6d mz=%6d\n",
			s.Gx, s.Gy, s.Gz, s.Ax, s.Ay, s.Az, s.Mx, s.My, s.Mz,
		)
	})
	rawToken.Wait()
	if rawToken.Error() != nil {
		return rawToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicRaw)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
