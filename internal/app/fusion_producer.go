// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	humanize "github.com/dustin/go-humanize"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/sensortag_ahrs/internal/config"
	"github.com/relabs-tech/sensortag_ahrs/internal/fusion"
	"github.com/relabs-tech/sensortag_ahrs/internal/metrics"
)

// RunFusionProducer subscribes to raw movement payloads, runs them through
// the configured AHRS filter and publishes the resulting pose and quaternion.
func RunFusionProducer() error {
	log.Println("starting sensortag fusion producer")

	cfg := config.Get()

	filter, err := fusion.NewFilter(cfg)
	if err != nil {
		return err
	}
	reg, err := config.PeriodRegister(cfg.SensorPeriodMS)
	if err != nil {
		return err
	}
	log.Printf("fusion: %s filter, sample period %v (period register 0x%02X), %s angles",
		cfg.Filter, cfg.SampleInterval(), reg, cfg.EulerConvention)

	m := metrics.New(prometheus.DefaultRegisterer)
	proc := fusion.NewProcessor(filter, cfg.EulerConvention, m)
	queue := fusion.NewQueue(cfg.QueueSize, m)

	if cfg.MetricsPort > 0 {
		go serveMetrics(cfg.MetricsPort)
	}

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDProducer)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("fusion: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicRaw, 0, func(_ mqtt.Client, msg mqtt.Message) {
		if !queue.Offer(msg.Payload()) {
			log.Printf("fusion: queue full, dropping payload")
		}
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("MQTT subscribe %s: %w", cfg.TopicRaw, token.Error())
	}
	log.Printf("fusion: subscribed to %s", cfg.TopicRaw)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logEvery := time.Duration(cfg.ConsoleLogInterval) * time.Millisecond
	var lastLog time.Time
	var processed, degenerate uint64

	err = proc.Run(ctx, queue, func(est fusion.Estimate) {
		processed = est.Sequence
		if !est.Applied {
			degenerate++
		}

		if payload, err := json.Marshal(est.Pose); err != nil {
			log.Printf("json marshal error (pose): %v", err)
		} else if token := client.Publish(cfg.TopicPose, 0, true, payload); token.Wait() && token.Error() != nil {
			log.Printf("MQTT publish error (pose): %v", token.Error())
		}

		if payload, err := json.Marshal(est); err != nil {
			log.Printf("json marshal error (quaternion): %v", err)
		} else if token := client.Publish(cfg.TopicQuaternion, 0, true, payload); token.Wait() && token.Error() != nil {
			log.Printf("MQTT publish error (quaternion): %v", token.Error())
		}

		if logEvery > 0 && est.Time.Sub(lastLog) >= logEvery {
			lastLog = est.Time
			q := est.Quaternion
			log.Printf("%s seq=%d pose R=%.2f P=%.2f Y=%.2f | q=(%.4f %.4f %.4f %.4f)",
				est.Time.Format(time.RFC3339), est.Sequence,
				est.Pose.Roll, est.Pose.Pitch, est.Pose.Yaw,
				q.W, q.X, q.Y, q.Z,
			)
		}
	})
	queue.Close()

	if errors.Is(err, context.Canceled) {
		log.Printf("fusion: shutting down after %s payloads (%s degenerate)",
			humanize.Comma(int64(processed)), humanize.Comma(int64(degenerate)))
		return nil
	}
	return err
}

// serveMetrics exposes the default Prometheus registry on port.
func serveMetrics(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	log.Printf("metrics: listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("metrics: server error: %v", err)
	}
}
