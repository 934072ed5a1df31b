// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/relabs-tech/sensortag_ahrs/internal/ahrs"
	"github.com/relabs-tech/sensortag_ahrs/internal/orientation"
)

// SensorTag movement period limits, in milliseconds.
const (
	MinSensorPeriodMS     = 10
	MaxSensorPeriodMS     = 2550
	DefaultSensorPeriodMS = 1000
	sensorPeriodStepMS    = 10
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDBridge   string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string

	// Topics
	TopicRaw        string // binary 18-byte movement payloads
	TopicPose       string // Pose JSON, degrees
	TopicQuaternion string // estimate JSON

	// Serial bridge
	SerialPort     string
	SerialBaudRate int
	CaptureFile    string // optional hex capture of bridged payloads

	// Sensor notification period, must match the period written to the device
	SensorPeriodMS int

	// Fusion
	Filter          ahrs.Kind
	MadgwickBeta    float64
	MahonyKp        float64
	MahonyKi        float64
	EulerConvention orientation.Convention
	QueueSize       int

	// Timing
	ConsoleLogInterval int // milliseconds, 0 disables per-sample logging

	// Web / metrics
	WebServerPort int
	MetricsPort   int // 0 disables the /metrics listener
}

// Default returns a Config with every key at its default value.
func Default() *Config {
	return &Config{
		MQTTBroker:           "tcp://localhost:1883",
		MQTTClientIDProducer: "sensortag-fusion-producer",
		MQTTClientIDBridge:   "sensortag-serial-bridge",
		MQTTClientIDConsole:  "sensortag-console-subscriber",
		MQTTClientIDWeb:      "sensortag-web-subscriber",

		TopicRaw:        "sensortag/movement/raw",
		TopicPose:       "inertial/pose",
		TopicQuaternion: "inertial/quaternion",

		SerialPort:     "/dev/ttyACM0",
		SerialBaudRate: 115200,

		SensorPeriodMS: DefaultSensorPeriodMS,

		Filter:          ahrs.KindMadgwick,
		MadgwickBeta:    0.075574973,
		MahonyKp:        1.0,
		MahonyKi:        0.0,
		EulerConvention: orientation.ConventionZYX,
		QueueSize:       16,

		ConsoleLogInterval: 1000,

		WebServerPort: 8080,
	}
}

// Global configuration, set once by InitGlobal and read through Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
// Keys missing from the file keep their Default values.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines from r.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error

	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_BRIDGE":
		c.MQTTClientIDBridge = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value

	// Topics
	case "TOPIC_RAW":
		c.TopicRaw = value
	case "TOPIC_POSE":
		c.TopicPose = value
	case "TOPIC_QUATERNION":
		c.TopicQuaternion = value

	// Serial bridge
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		c.SerialBaudRate, err = parseInt(key, value)
	case "CAPTURE_FILE":
		c.CaptureFile = value

	// Sensor
	case "SENSOR_PERIOD_MS":
		c.SensorPeriodMS, err = parseInt(key, value)

	// Fusion
	case "FILTER":
		c.Filter, err = ahrs.ParseKind(value)
	case "MADGWICK_BETA":
		c.MadgwickBeta, err = parseFloat(key, value)
	case "MAHONY_KP":
		c.MahonyKp, err = parseFloat(key, value)
	case "MAHONY_KI":
		c.MahonyKi, err = parseFloat(key, value)
	case "EULER_CONVENTION":
		c.EulerConvention, err = orientation.ParseConvention(value)
	case "QUEUE_SIZE":
		c.QueueSize, err = parseInt(key, value)

	// Timing
	case "CONSOLE_LOG_INTERVAL":
		c.ConsoleLogInterval, err = parseInt(key, value)

	// Web / metrics
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value)
	case "METRICS_PORT":
		c.MetricsPort, err = parseInt(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

func parseInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// validate checks that all required fields are set and in range.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicRaw == "" || c.TopicPose == "" || c.TopicQuaternion == "" {
		return fmt.Errorf("TOPIC_RAW, TOPIC_POSE and TOPIC_QUATERNION must not be empty")
	}
	if _, err := PeriodRegister(c.SensorPeriodMS); err != nil {
		return err
	}
	if c.MadgwickBeta < 0 {
		return fmt.Errorf("MADGWICK_BETA must be >= 0, got %g", c.MadgwickBeta)
	}
	if c.MahonyKp < 0 || c.MahonyKi < 0 {
		return fmt.Errorf("MAHONY_KP and MAHONY_KI must be >= 0, got %g and %g", c.MahonyKp, c.MahonyKi)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("QUEUE_SIZE must be at least 1, got %d", c.QueueSize)
	}
	if c.SerialBaudRate <= 0 {
		return fmt.Errorf("SERIAL_BAUD_RATE must be positive, got %d", c.SerialBaudRate)
	}
	if c.ConsoleLogInterval < 0 {
		return fmt.Errorf("CONSOLE_LOG_INTERVAL must be >= 0, got %d", c.ConsoleLogInterval)
	}
	return nil
}

// SamplePeriod returns the filter integration step in seconds.
func (c *Config) SamplePeriod() float64 {
	return float64(c.SensorPeriodMS) / 1000.0
}

// SampleInterval returns the notification interval as a duration.
func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.SensorPeriodMS) * time.Millisecond
}

// PeriodRegister returns the byte the SensorTag movement period
// characteristic expects for ms: 10 ms resolution, 0x01..0xFF.
func PeriodRegister(ms int) (byte, error) {
	if ms < MinSensorPeriodMS || ms > MaxSensorPeriodMS {
		return 0, fmt.Errorf("SENSOR_PERIOD_MS must be %d-%d, got %d", MinSensorPeriodMS, MaxSensorPeriodMS, ms)
	}
	if ms%sensorPeriodStepMS != 0 {
		return 0, fmt.Errorf("SENSOR_PERIOD_MS must be a multiple of %d, got %d", sensorPeriodStepMS, ms)
	}
	return byte(ms / sensorPeriodStepMS), nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
