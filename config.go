// this file loads and validates the service configuration
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when fields are absent from the config file. Alarm
// defaults match the appliance this grew out of: wake at 06:55 on
// weekdays and play for an hour.
const (
	DefaultListen       = ":3000"
	DefaultDatabaseURL  = "sqlite://radio.db"
	DefaultPlayerBin    = "mplayer"
	DefaultStopGraceSec = 3
	DefaultAlarmHour    = 6
	DefaultAlarmMinute  = 55
	DefaultAlarmWindow  = 60
)

// Config is the top-level configuration, read from a YAML file with a
// few environment overrides for values that do not belong on disk.
type Config struct {
	// Listen is the address the HTTP API binds to.
	Listen string `yaml:"listen"`

	// DatabaseURL selects the storage backend by scheme:
	// sqlite://<path> or postgres://... Overridden by DB_URL.
	DatabaseURL string `yaml:"database_url"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	Player   PlayerConfig  `yaml:"player"`
	Auth     AuthConfig    `yaml:"auth"`
	Alarm    AlarmDefaults `yaml:"alarm"`
	Stations []Station     `yaml:"stations"`
}

// PlayerConfig describes the external media-player binary.
type PlayerConfig struct {
	// Command is the player executable, looked up on PATH.
	Command string `yaml:"command"`

	// Args are extra arguments placed before the stream URL.
	Args []string `yaml:"args"`

	// StopGraceSec is how long to wait after SIGTERM before SIGKILL.
	StopGraceSec int `yaml:"stop_grace_sec"`
}

// StopGrace returns the SIGTERM-to-SIGKILL grace period.
func (p PlayerConfig) StopGrace() time.Duration {
	return time.Duration(p.StopGraceSec) * time.Second
}

// AuthConfig configures the login endpoint and token signing.
// Secrets are resolved from the environment, never stored in the file.
type AuthConfig struct {
	// SecretEnv names the env var holding the JWT signing secret.
	SecretEnv string `yaml:"secret_env"`

	// PasswordEnv names the env var holding the API login password.
	// When the variable is empty, login accepts any password; fine on
	// a LAN-only appliance, set it for anything else.
	PasswordEnv string `yaml:"password_env"`
}

// Secret returns the JWT signing key resolved from the environment.
func (a AuthConfig) Secret() []byte {
	if a.SecretEnv == "" {
		return []byte("secret")
	}
	if v := os.Getenv(a.SecretEnv); v != "" {
		return []byte(v)
	}
	return []byte("secret")
}

// Password returns the expected login password, empty if unset.
func (a AuthConfig) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// AlarmDefaults seed the alarm row on first boot; after that the
// stored row wins and these are ignored.
type AlarmDefaults struct {
	Hour         int    `yaml:"hour"`
	Minute       int    `yaml:"minute"`
	DurationMin  int    `yaml:"duration_min"`
	WeekdaysOnly bool   `yaml:"weekdays_only"`
	Station      string `yaml:"station"`
}

// LoadConfig reads and parses the YAML config file at path. A missing
// file is not an error; defaults describe a working single-station
// setup.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if dbURL := os.Getenv("DB_URL"); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config pre-populated with default values,
// including a single working station preset.
func defaultConfig() *Config {
	return &Config{
		Listen:      DefaultListen,
		DatabaseURL: DefaultDatabaseURL,
		LogLevel:    "info",
		Player: PlayerConfig{
			Command:      DefaultPlayerBin,
			StopGraceSec: DefaultStopGraceSec,
		},
		Auth: AuthConfig{
			SecretEnv:   "RADIO_JWT_SECRET",
			PasswordEnv: "RADIO_API_PASSWORD",
		},
		Alarm: AlarmDefaults{
			Hour:         DefaultAlarmHour,
			Minute:       DefaultAlarmMinute,
			DurationMin:  DefaultAlarmWindow,
			WeekdaysOnly: true,
			Station:      "drs3",
		},
		Stations: []Station{
			{
				ID:   "drs3",
				Name: "SRF 3",
				URL:  "http://stream.srg-ssr.ch/m/drs3/mp3_128",
			},
		},
	}
}

// validateConfig checks required fields and structural constraints.
func validateConfig(cfg *Config) error {
	if cfg.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	if cfg.Player.Command == "" {
		return fmt.Errorf("player.command is required")
	}
	if cfg.Player.StopGraceSec < 0 {
		return fmt.Errorf("player.stop_grace_sec must not be negative")
	}
	if cfg.Alarm.Hour < 0 || cfg.Alarm.Hour > 23 {
		return fmt.Errorf("alarm.hour out of range: %d", cfg.Alarm.Hour)
	}
	if cfg.Alarm.Minute < 0 || cfg.Alarm.Minute > 59 {
		return fmt.Errorf("alarm.minute out of range: %d", cfg.Alarm.Minute)
	}
	if cfg.Alarm.DurationMin <= 0 {
		return fmt.Errorf("alarm.duration_min must be positive")
	}
	if len(cfg.Stations) == 0 {
		return fmt.Errorf("at least one station is required")
	}
	seen := make(map[string]bool, len(cfg.Stations))
	for i, st := range cfg.Stations {
		if st.ID == "" {
			return fmt.Errorf("stations[%d]: id is required", i)
		}
		if st.URL == "" {
			return fmt.Errorf("stations[%d] %q: url is required", i, st.ID)
		}
		if seen[st.ID] {
			return fmt.Errorf("stations[%d]: duplicate id %q", i, st.ID)
		}
		seen[st.ID] = true
	}
	if !seen[cfg.Alarm.Station] {
		return fmt.Errorf("alarm.station %q is not a configured station", cfg.Alarm.Station)
	}
	return nil
}

// defaultAlarm builds the alarm row seeded on first boot.
func (c *Config) defaultAlarm() Alarm {
	return Alarm{
		Enabled:      false,
		Hour:         c.Alarm.Hour,
		Minute:       c.Alarm.Minute,
		DurationMin:  c.Alarm.DurationMin,
		WeekdaysOnly: c.Alarm.WeekdaysOnly,
		StationID:    c.Alarm.Station,
		UpdatedAt:    time.Now().UTC(),
	}
}
