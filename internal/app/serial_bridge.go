// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	humanize "github.com/dustin/go-humanize"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/sensortag_ahrs/internal/config"
	"github.com/relabs-tech/sensortag_ahrs/internal/imu"
)

// bridgeLogEvery is how many forwarded payloads pass between progress logs.
const bridgeLogEvery = 1000

// RunSerialBridge reads hex-framed movement payloads from the BLE dongle's
// serial port and publishes them unchanged to the raw MQTT topic.
func RunSerialBridge() error {
	cfg := config.Get()

	// ---- 1) Connect to MQTT broker ----
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDBridge)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("bridge: connected to MQTT broker at %s", cfg.MQTTBroker)

	// ---- 2) Open serial port ----
	serialOpts := serial.OpenOptions{
		PortName:              cfg.SerialPort,
		BaudRate:              uint(cfg.SerialBaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", serialOpts.PortName, err)
	}
	defer port.Close()
	log.Printf("bridge: serial port opened on %s at %d baud", serialOpts.PortName, serialOpts.BaudRate)

	if reg, err := config.PeriodRegister(cfg.SensorPeriodMS); err == nil {
		log.Printf("bridge: expecting %d ms notifications (period register 0x%02X)", cfg.SensorPeriodMS, reg)
	}

	// ---- 3) Optional capture file for later replay ----
	var capture io.Writer
	if cfg.CaptureFile != "" {
		f, err := os.OpenFile(cfg.CaptureFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open capture file: %w", err)
		}
		defer f.Close()
		capture = f
		log.Printf("bridge: capturing payloads to %s", cfg.CaptureFile)
	}

	n, err := bridgePayloads(imu.NewHexLineSource(port), capture, func(payload []byte) error {
		token := client.Publish(cfg.TopicRaw, 0, false, payload)
		token.Wait()
		return token.Error()
	})
	log.Printf("bridge: forwarded %s payloads", humanize.Comma(int64(n)))
	return err
}

// bridgePayloads copies payloads from src to publish until src is
// exhausted. Malformed lines and wrong-length payloads are logged and
// skipped. Each forwarded payload is also appended to capture as hex when
// capture is non-nil.
func bridgePayloads(src imu.PayloadSource, capture io.Writer, publish func([]byte) error) (int, error) {
	forwarded := 0
	for {
		payload, err := src.Next()
		if errors.Is(err, io.EOF) {
			return forwarded, nil
		}
		if errors.Is(err, imu.ErrMalformedLine) {
			log.Printf("bridge: %v", err)
			continue
		}
		if err != nil {
			return forwarded, fmt.Errorf("serial read: %w", err)
		}

		if len(payload) != imu.PayloadSize {
			log.Printf("bridge: skipping %d-byte payload", len(payload))
			continue
		}

		if err := publish(payload); err != nil {
			log.Printf("MQTT publish error (raw): %v", err)
			continue
		}
		forwarded++

		if capture != nil {
			if _, err := fmt.Fprintln(capture, hex.EncodeToString(payload)); err != nil {
				return forwarded, fmt.Errorf("write capture: %w", err)
			}
		}

		if forwarded%bridgeLogEvery == 0 {
			log.Printf("bridge: forwarded %s payloads", humanize.Comma(int64(forwarded)))
		}
	}
}
