package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/itohio/pseudobend/pkg/actuation"
	"github.com/itohio/pseudobend/pkg/calib"
	"github.com/itohio/pseudobend/pkg/force"
	"github.com/itohio/pseudobend/pkg/haptics"
	"github.com/itohio/pseudobend/pkg/pulse"
	"github.com/itohio/pseudobend/pkg/telemetry"
)

// Environment variables that override the file.
const (
	EnvSerialPort   = "PSEUDOBEND_SERIAL_PORT"
	EnvMQTTBroker   = "PSEUDOBEND_MQTT_BROKER"
	EnvMQTTUsername = "PSEUDOBEND_MQTT_USERNAME"
	EnvMQTTPassword = "PSEUDOBEND_MQTT_PASSWORD"
	EnvStorePath    = "PSEUDOBEND_STORE_PATH"
	EnvMode         = "PSEUDOBEND_MODE"
)

// Config represents the application configuration.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Sensor      SensorConfig      `yaml:"sensor"`
	Signal      SignalConfig      `yaml:"signal"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Board       BoardConfig       `yaml:"board"`
	Store       StoreConfig       `yaml:"store"`
	Mock        MockConfig        `yaml:"mock"`
	Mode        actuation.Mode    `yaml:"mode"`
	Augment     bool              `yaml:"augmentation"`
	Record      bool              `yaml:"recording"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// SensorConfig contains signal conditioning parameters.
type SensorConfig struct {
	FilterWeight       float32 `yaml:"filter_weight"`
	Threshold          float32 `yaml:"threshold"`
	TareSamples        int     `yaml:"tare_samples"`
	CalibrationSamples int     `yaml:"calibration_samples"`
}

// SignalConfig shapes the vibration pulses.
type SignalConfig struct {
	Bins          uint16        `yaml:"bins"`
	PulseDuration time.Duration `yaml:"pulse_duration"`
	Amplitude     float32       `yaml:"amplitude"`
	ModulationHz  float32       `yaml:"modulation_hz"`
	GuardInterval time.Duration `yaml:"guard_interval"`
	PairGuard     time.Duration `yaml:"pair_guard_interval"`
}

// CalibrationConfig contains calibration procedure parameters.
type CalibrationConfig struct {
	Delay       time.Duration `yaml:"delay"`
	WeightGrams float32       `yaml:"weight_grams"`
}

// TelemetryConfig controls recording output.
type TelemetryConfig struct {
	Interval time.Duration `yaml:"interval"`
	MQTT     MQTTConfig    `yaml:"mqtt"`
}

// MQTTConfig selects the broker readings are forwarded to. An empty broker
// disables forwarding.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"-"`
	Password string `yaml:"-"`
}

// BoardConfig maps the channels onto hardware.
type BoardConfig struct {
	Chip  string     `yaml:"chip"`
	Left  SideConfig `yaml:"left"`
	Right SideConfig `yaml:"right"`
}

// SideConfig holds one channel's pins.
type SideConfig struct {
	Clock int    `yaml:"clock"` // HX711 clock line offset
	Data  int    `yaml:"data"`  // HX711 data line offset
	PWM   string `yaml:"pwm"`   // actuator pin name
}

// StoreConfig locates the calibration image.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// MockConfig contains simulated device configuration.
type MockConfig struct {
	Period     time.Duration `yaml:"period"`      // time between presses
	Peak       int32         `yaml:"peak"`        // raw counts at full press
	Offset     int32         `yaml:"offset"`      // raw counts at rest
	SampleRate time.Duration `yaml:"sample_rate"` // time between readings
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0",
			BaudRate: 115200,
		},
		Sensor: SensorConfig{
			FilterWeight:       force.DefaultFilterWeight,
			Threshold:          actuation.DefaultThreshold,
			TareSamples:        force.DefaultTareSamples,
			CalibrationSamples: calib.DefaultSamples,
		},
		Signal: SignalConfig{
			Bins:          force.DefaultBins,
			PulseDuration: time.Duration(pulse.DefaultDuration) * time.Microsecond,
			Amplitude:     pulse.DefaultAmplitude,
			ModulationHz:  pulse.DefaultFrequency,
			GuardInterval: actuation.DefaultGuard,
			PairGuard:     actuation.DefaultPairGuard,
		},
		Calibration: CalibrationConfig{
			Delay:       calib.DefaultDelay,
			WeightGrams: calib.DefaultWeight,
		},
		Telemetry: TelemetryConfig{
			Interval: telemetry.DefaultInterval,
			MQTT: MQTTConfig{
				Topic:    telemetry.DefaultTopic,
				ClientID: telemetry.DefaultClientID,
			},
		},
		Board: BoardConfig{
			Chip:  "gpiochip0",
			Left:  SideConfig{Clock: 19, Data: 18, PWM: "GPIO12"},
			Right: SideConfig{Clock: 24, Data: 25, PWM: "GPIO13"},
		},
		Store: StoreConfig{
			Path: "calibration.bin",
		},
		Mock: MockConfig{
			Period:     2 * time.Second,
			Peak:       8000,
			Offset:     0,
			SampleRate: 12500 * time.Microsecond, // HX711 at 80 SPS
		},
		Mode: actuation.Combined,
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv loads the given .env files (a missing file is not an error) and
// applies the PSEUDOBEND_* overrides from the environment.
func (c *Config) LoadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	if v := os.Getenv(EnvSerialPort); v != "" {
		c.Serial.Port = v
	}
	if v := os.Getenv(EnvMQTTBroker); v != "" {
		c.Telemetry.MQTT.Broker = v
	}
	c.Telemetry.MQTT.Username = os.Getenv(EnvMQTTUsername)
	c.Telemetry.MQTT.Password = os.Getenv(EnvMQTTPassword)
	if v := os.Getenv(EnvStorePath); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv(EnvMode); v != "" {
		m, err := actuation.ParseMode(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMode, err)
		}
		c.Mode = m
	}
	return nil
}

// Engine converts the configuration into engine settings.
func (c *Config) Engine() haptics.Settings {
	s := haptics.DefaultSettings()
	s.FilterWeight = c.Sensor.FilterWeight
	s.TareSamples = c.Sensor.TareSamples
	s.Threshold = c.Sensor.Threshold
	s.Bins = c.Signal.Bins
	s.Guard = c.Signal.GuardInterval
	s.PairGuard = c.Signal.PairGuard
	s.Pulse = pulse.Settings{
		Duration:  uint32(c.Signal.PulseDuration.Microseconds()),
		Frequency: c.Signal.ModulationHz,
		Amplitude: c.Signal.Amplitude,
	}
	s.Calibration = calib.Settings{
		Delay:   c.Calibration.Delay,
		Weight:  c.Calibration.WeightGrams,
		Samples: c.Sensor.CalibrationSamples,
	}
	s.TelemetryInterval = c.Telemetry.Interval
	s.Mode = c.Mode
	s.Augmentation = c.Augment
	s.Recording = c.Record
	return s
}

// MQTT returns the telemetry broker settings.
func (c *Config) MQTT() telemetry.MQTTConfig {
	m := c.Telemetry.MQTT
	return telemetry.MQTTConfig{
		Broker:   m.Broker,
		Topic:    m.Topic,
		ClientID: m.ClientID,
		Username: m.Username,
		Password: m.Password,
	}
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Sensor.FilterWeight <= 0 || c.Sensor.FilterWeight > 1 {
		c.Sensor.FilterWeight = def.Sensor.FilterWeight
	}
	if c.Sensor.TareSamples <= 0 {
		c.Sensor.TareSamples = def.Sensor.TareSamples
	}
	if c.Sensor.CalibrationSamples <= 0 {
		c.Sensor.CalibrationSamples = def.Sensor.CalibrationSamples
	}

	if c.Signal.Bins == 0 {
		c.Signal.Bins = def.Signal.Bins
	}
	if c.Signal.PulseDuration <= 0 {
		c.Signal.PulseDuration = def.Signal.PulseDuration
	}
	if c.Signal.ModulationHz <= 0 {
		c.Signal.ModulationHz = def.Signal.ModulationHz
	}

	if c.Calibration.Delay <= 0 {
		c.Calibration.Delay = def.Calibration.Delay
	}
	if c.Calibration.WeightGrams <= 0 {
		c.Calibration.WeightGrams = def.Calibration.WeightGrams
	}

	if c.Telemetry.Interval <= 0 {
		c.Telemetry.Interval = def.Telemetry.Interval
	}
	if c.Telemetry.MQTT.Topic == "" {
		c.Telemetry.MQTT.Topic = def.Telemetry.MQTT.Topic
	}
	if c.Telemetry.MQTT.ClientID == "" {
		c.Telemetry.MQTT.ClientID = def.Telemetry.MQTT.ClientID
	}

	if c.Board.Chip == "" {
		c.Board.Chip = def.Board.Chip
	}
	if c.Store.Path == "" {
		c.Store.Path = def.Store.Path
	}

	if c.Mock.Period == 0 {
		c.Mock.Period = def.Mock.Period
	}
	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}
	if c.Mock.Peak == 0 {
		c.Mock.Peak = def.Mock.Peak
	}
}
