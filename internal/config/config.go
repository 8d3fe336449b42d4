package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string   `mapstructure:"PORT"`
	Env           string   `mapstructure:"ENV"`
	LedgerPath    string   `mapstructure:"LEDGER_PATH"`
	SlotMinutes   int      `mapstructure:"SLOT_MINUTES"`
	MinLeadHours  int      `mapstructure:"MIN_LEAD_HOURS"`
	WeekdayOpen   string   `mapstructure:"WEEKDAY_OPEN"`
	WeekdayClose  string   `mapstructure:"WEEKDAY_CLOSE"`
	LunchStart    string   `mapstructure:"LUNCH_START"`
	LunchEnd      string   `mapstructure:"LUNCH_END"`
	SaturdayOpen  string   `mapstructure:"SATURDAY_OPEN"`
	SaturdayClose string   `mapstructure:"SATURDAY_CLOSE"`
	CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults mirror the pharmacy's published attention windows.
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LEDGER_PATH", "data/agenda.xlsx")
	v.SetDefault("SLOT_MINUTES", 30)
	v.SetDefault("MIN_LEAD_HOURS", 2)
	v.SetDefault("WEEKDAY_OPEN", "08:00")
	v.SetDefault("WEEKDAY_CLOSE", "17:00")
	v.SetDefault("LUNCH_START", "12:00")
	v.SetDefault("LUNCH_END", "13:00")
	v.SetDefault("SATURDAY_OPEN", "08:00")
	v.SetDefault("SATURDAY_CLOSE", "12:00")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("LEDGER_PATH")
	v.BindEnv("SLOT_MINUTES")
	v.BindEnv("MIN_LEAD_HOURS")
	v.BindEnv("WEEKDAY_OPEN")
	v.BindEnv("WEEKDAY_CLOSE")
	v.BindEnv("LUNCH_START")
	v.BindEnv("LUNCH_END")
	v.BindEnv("SATURDAY_OPEN")
	v.BindEnv("SATURDAY_CLOSE")
	v.BindEnv("CORS_ORIGINS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// SlotLength returns the implicit duration a booking occupies for conflict
// detection.
func (c *Config) SlotLength() time.Duration {
	return time.Duration(c.SlotMinutes) * time.Minute
}

// MinLead returns the minimum gap required between "now" and a bookable slot.
func (c *Config) MinLead() time.Duration {
	return time.Duration(c.MinLeadHours) * time.Hour
}

// Validate checks that the configuration can produce a usable rule set.
func (c *Config) Validate() error {
	if c.LedgerPath == "" {
		return fmt.Errorf("LEDGER_PATH is required")
	}
	if c.SlotMinutes <= 0 {
		return fmt.Errorf("SLOT_MINUTES must be positive, got %d", c.SlotMinutes)
	}
	if c.MinLeadHours < 0 {
		return fmt.Errorf("MIN_LEAD_HOURS must not be negative, got %d", c.MinLeadHours)
	}
	for key, val := range map[string]string{
		"WEEKDAY_OPEN":   c.WeekdayOpen,
		"WEEKDAY_CLOSE":  c.WeekdayClose,
		"LUNCH_START":    c.LunchStart,
		"LUNCH_END":      c.LunchEnd,
		"SATURDAY_OPEN":  c.SaturdayOpen,
		"SATURDAY_CLOSE": c.SaturdayClose,
	} {
		if _, err := time.Parse("15:04", val); err != nil {
			return fmt.Errorf("%s must be HH:MM, got %q", key, val)
		}
	}
	return nil
}
