package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Address        string   `yaml:"address"`
		ReadTimeoutSec int      `yaml:"read_timeout_sec"`
		AllowedOrigins []string `yaml:"allowed_origins"`
		JWTSecret      string   `yaml:"jwt_secret"`
		AdminEmails    []string `yaml:"admin_emails"`
	} `yaml:"server"`

	Postgres struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Database string `yaml:"database"`
		SSLMode  string `yaml:"ssl_mode"`

		MaxOpenConns    int `yaml:"max_open_conns"`
		MaxIdleConns    int `yaml:"max_idle_conns"`
		ConnLifetimeMin int `yaml:"conn_lifetime_min"`
	} `yaml:"postgres"`

	Redis struct {
		Address       string `yaml:"address"`
		Password      string `yaml:"password"`
		DB            int    `yaml:"db"`
		CacheTTLHours int    `yaml:"cache_ttl_hours"`
	} `yaml:"redis"`

	Booking struct {
		Timezone    string   `yaml:"timezone"`
		Weekdays    []string `yaml:"weekdays"`
		HorizonDays int      `yaml:"horizon_days"`
		PaidFrom    string   `yaml:"paid_from"` // YYYY-MM-DD, paid sessions from this date on
		PriceMinor  int64    `yaml:"price_minor"`
		Currency    string   `yaml:"currency"`
		MeetingHost string   `yaml:"meeting_host"`
	} `yaml:"booking"`

	Payment struct {
		KeyID            string `yaml:"key_id"`
		KeySecret        string `yaml:"key_secret"`
		PendingTTLMin    int    `yaml:"pending_ttl_min"`
		SweepIntervalMin int    `yaml:"sweep_interval_min"`
	} `yaml:"payment"`

	SMTP struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		User string `yaml:"user"`
		Pass string `yaml:"pass"`
		From string `yaml:"from"`
	} `yaml:"smtp"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}
	if cfg.Booking.Currency == "" {
		cfg.Booking.Currency = "INR"
	}

	return &cfg, nil
}

// DSN renders the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Postgres.Host, c.Postgres.Port, c.Postgres.User,
		c.Postgres.Password, c.Postgres.Database, c.Postgres.SSLMode)
}

// Location resolves the booking timezone, defaulting to UTC.
func (c *Config) Location() *time.Location {
	if c.Booking.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Booking.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AllowedWeekdays parses the configured weekday names; an empty or
// unparsable list means the built-in default applies.
func (c *Config) AllowedWeekdays() []time.Weekday {
	names := map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday,
		"friday": time.Friday, "saturday": time.Saturday,
	}
	var out []time.Weekday
	for _, name := range c.Booking.Weekdays {
		if d, ok := names[name]; ok {
			out = append(out, d)
		}
	}
	return out
}

// PaidFrom parses the paid cutover date; the zero time means every
// session is paid.
func (c *Config) PaidFrom() time.Time {
	if c.Booking.PaidFrom == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation("2006-01-02", c.Booking.PaidFrom, c.Location())
	if err != nil {
		return time.Time{}
	}
	return t
}

// CacheTTL is how long cached availability lives.
func (c *Config) CacheTTL() time.Duration {
	if c.Redis.CacheTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Redis.CacheTTLHours) * time.Hour
}

// PendingTTL is how long a pending booking may hold its slot.
func (c *Config) PendingTTL() time.Duration {
	if c.Payment.PendingTTLMin <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Payment.PendingTTLMin) * time.Minute
}

// SweepInterval is the sweeper cadence.
func (c *Config) SweepInterval() time.Duration {
	if c.Payment.SweepIntervalMin <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Payment.SweepIntervalMin) * time.Minute
}
