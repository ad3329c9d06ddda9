package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ScalesConfig tunes the serial channel controllers.
type ScalesConfig struct {
	Ports               []string      `mapstructure:"ports"`
	BaudRate            int           `mapstructure:"baud_rate"`
	ReconnectAttempts   int           `mapstructure:"reconnect_attempts"`
	ReconnectDelay      time.Duration `mapstructure:"reconnect_delay"`
	ReadAttempts        int           `mapstructure:"read_attempts"`
	ReadDelay           time.Duration `mapstructure:"read_delay"`
	ValidationThreshold float64       `mapstructure:"validation_threshold"` // kg
	ValidationRetries   int           `mapstructure:"validation_retries"`
}

// FirebaseConfig locates the remote store and its credentials.
type FirebaseConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	CredentialsFile string `mapstructure:"credentials_file"`
	DatabaseURL     string `mapstructure:"database_url"`
	PrimaryRef      string `mapstructure:"primary_ref"`   // first three scale slots
	SecondaryRef    string `mapstructure:"secondary_ref"` // fourth slot, when present
}

// MQTTConfig configures the optional live record feed.
type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Server   string `mapstructure:"server"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	ClientID string `mapstructure:"client_id"`
	Topic    string `mapstructure:"topic"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type CSVConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

type Config struct {
	Port     string         `mapstructure:"port"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	CSV      CSVConfig      `mapstructure:"csv"`
	Scales   ScalesConfig   `mapstructure:"scales"`
	Firebase FirebaseConfig `mapstructure:"firebase"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "weight_logger.log")
	v.SetDefault("db.path", "station.db")
	v.SetDefault("csv.path", "weight.csv")
	v.SetDefault("scales.baud_rate", 9600)
	v.SetDefault("scales.reconnect_attempts", 5)
	v.SetDefault("scales.reconnect_delay", "5s")
	v.SetDefault("scales.read_attempts", 5)
	v.SetDefault("scales.read_delay", "200ms")
	v.SetDefault("scales.validation_threshold", 0.5)
	v.SetDefault("scales.validation_retries", 10)
	v.SetDefault("firebase.primary_ref", "weights/304")
	v.SetDefault("firebase.secondary_ref", "weights/303")
	v.SetDefault("mqtt.client_id", "weighstation")
	v.SetDefault("mqtt.topic", "weighstation/records")
	v.SetDefault("auth.token_ttl", "1h")
}

// Load reads configs/<name>.yml from the given directory and unmarshals it
// over the defaults.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Scales.Ports) == 0 {
		return errors.New("scales.ports must list at least one device path")
	}
	if c.Scales.ValidationThreshold <= 0 {
		return errors.New("scales.validation_threshold must be > 0")
	}
	if c.Scales.ReconnectAttempts <= 0 || c.Scales.ReadAttempts <= 0 || c.Scales.ValidationRetries <= 0 {
		return errors.New("scale retry counts must be > 0")
	}
	if c.Firebase.Enabled {
		if c.Firebase.CredentialsFile == "" || c.Firebase.DatabaseURL == "" {
			return errors.New("firebase.credentials_file and firebase.database_url are required when firebase is enabled")
		}
	}
	if c.MQTT.Enabled && c.MQTT.Server == "" {
		return errors.New("mqtt.server is required when mqtt is enabled")
	}
	return nil
}
