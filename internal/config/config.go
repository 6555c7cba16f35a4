// Package config loads server settings from flags, POKEBATTLE_* environment
// variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const (
	KeyPort          = "port"
	KeyDBPath        = "db_path"
	KeyMovesPath     = "moves_path"
	KeyRosterPath    = "roster_path"
	KeyLogLevel      = "log_level"
	KeyLogFormat     = "log_format"
	KeyTurnTimeout   = "turn_timeout"
	KeySweepInterval = "sweep_interval"
	KeyVerifyTeams   = "verify_teams"
	KeySendBuffer    = "send_buffer"
)

// DefaultPort is the battle server's well-known port.
const DefaultPort = 8888

// Config is the validated server configuration.
type Config struct {
	Port          int
	DBPath        string
	MovesPath     string // empty means the embedded catalog
	RosterPath    string // empty means the embedded roster seed
	LogLevel      string
	LogFormat     string
	TurnTimeout   time.Duration // zero disables the turn deadline
	SweepInterval time.Duration
	VerifyTeams   bool
	SendBuffer    int
}

// Addr is the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// NewViper returns a viper instance with defaults and environment binding.
// A non-empty configFile is read as well.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyDBPath, "pokebattle.db")
	v.SetDefault(KeyMovesPath, "")
	v.SetDefault(KeyRosterPath, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "json")
	v.SetDefault(KeyTurnTimeout, time.Duration(0))
	v.SetDefault(KeySweepInterval, 5*time.Second)
	v.SetDefault(KeyVerifyTeams, false)
	v.SetDefault(KeySendBuffer, 64)

	v.SetEnvPrefix("POKEBATTLE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}
	return v, nil
}

// Load reads and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	c := Config{
		Port:          v.GetInt(KeyPort),
		DBPath:        v.GetString(KeyDBPath),
		MovesPath:     v.GetString(KeyMovesPath),
		RosterPath:    v.GetString(KeyRosterPath),
		LogLevel:      strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat:     strings.ToLower(v.GetString(KeyLogFormat)),
		TurnTimeout:   v.GetDuration(KeyTurnTimeout),
		SweepInterval: v.GetDuration(KeySweepInterval),
		VerifyTeams:   v.GetBool(KeyVerifyTeams),
		SendBuffer:    v.GetInt(KeySendBuffer),
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("%s %d out of range", KeyPort, c.Port))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyDBPath))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", KeyLogLevel, err))
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		errs = append(errs, fmt.Errorf("%s must be json or console, got %q", KeyLogFormat, c.LogFormat))
	}
	if c.TurnTimeout < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyTurnTimeout))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeySweepInterval))
	}
	if c.SendBuffer < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1", KeySendBuffer))
	}
	return errors.Join(errs...)
}
