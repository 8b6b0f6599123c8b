package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"pagespeed_monitor/internal/audits"
)

// ErrMissingSetting is returned by Load when a required value is absent.
var ErrMissingSetting = errors.New("missing required setting")

const (
	DefaultSheetName       = "PageSpeed Data"
	DefaultCredentialsFile = "credentials.json"
	DefaultPause           = time.Second
	DefaultAPIAddr         = ":8080"
	DefaultRateLimitPerSec = 1.0
	DefaultRateLimitBurst  = 3
)

// DefaultSlots are the daily run times used when none are configured.
var DefaultSlots = []Slot{{Hour: 8, Minute: 30}, {Hour: 12, Minute: 0}, {Hour: 16, Minute: 30}}

// Config is the whole application configuration. It is not modified after
// Load returns.
type Config struct {
	PageSpeed PageSpeedConfig `yaml:"pagespeed"`
	Sheet     SheetConfig     `yaml:"sheet"`
	Notify    NotifyConfig    `yaml:"notify"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Run       RunConfig       `yaml:"run"`
	Audits    audits.KeySets  `yaml:"audits"`
	API       APIConfig       `yaml:"api"`

	Location *time.Location `yaml:"-"`
}

type PageSpeedConfig struct {
	APIKey  string   `yaml:"api_key"`
	BaseURL string   `yaml:"base_url"`
	URLs    []string `yaml:"urls"`
}

type SheetConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	Name            string `yaml:"name"`
	PerURL          bool   `yaml:"per_url"`
	CredentialsFile string `yaml:"credentials_file"`
}

type NotifyConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Recipients []string `yaml:"recipients"`
	Sender     string   `yaml:"sender"`
}

type ScheduleConfig struct {
	Slots    []Slot `yaml:"slots"`
	Timezone string `yaml:"timezone"`
}

type RunConfig struct {
	Pause *time.Duration `yaml:"pause"`
}

// APIConfig controls the on-demand trigger server.
type APIConfig struct {
	Enabled         bool    `yaml:"enabled"`
	Addr            string  `yaml:"addr"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
}

// Slot is a daily (hour, minute) run time, written "HH:MM" in YAML.
type Slot struct {
	Hour   int
	Minute int
}

func (s Slot) String() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// ParseSlot parses "H:MM" or "HH:MM".
func ParseSlot(s string) (Slot, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Slot{}, fmt.Errorf("invalid schedule slot %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return Slot{}, fmt.Errorf("invalid schedule slot %q: %w", s, err)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return Slot{}, fmt.Errorf("invalid schedule slot %q: %w", s, err)
	}
	slot := Slot{Hour: h, Minute: m}
	if err := slot.validate(); err != nil {
		return Slot{}, err
	}
	return slot, nil
}

func (s Slot) validate() error {
	if s.Hour < 0 || s.Hour > 23 || s.Minute < 0 || s.Minute > 59 {
		return fmt.Errorf("invalid schedule slot %s: out of range", s)
	}
	return nil
}

func (s *Slot) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseSlot(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Slot) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// PauseDuration is the wait after each URL.
func (c *Config) PauseDuration() time.Duration {
	if c.Run.Pause == nil {
		return DefaultPause
	}
	return *c.Run.Pause
}

// Load reads the YAML file at path, if present, then applies environment
// overrides and defaults, and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		log.Debug().Str("path", path).Msg("Loaded config file")
	case errors.Is(err, os.ErrNotExist):
		log.Debug().Str("path", path).Msg("No config file found; using environment only")
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	loc, err := loadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, err
	}
	cfg.Location = loc

	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PAGESPEED_API_KEY"); v != "" {
		c.PageSpeed.APIKey = v
	}
	if v := os.Getenv("PAGESPEED_SPREADSHEET_ID"); v != "" {
		c.Sheet.SpreadsheetID = v
	}
	if v := os.Getenv("PAGESPEED_WEBSITE_URL"); v != "" {
		c.PageSpeed.URLs = splitList(v)
	}
	if v := os.Getenv("PAGESPEED_SHEET_NAME"); v != "" {
		c.Sheet.Name = v
	}
	if v := os.Getenv("GOOGLE_CREDENTIALS_FILE"); v != "" {
		c.Sheet.CredentialsFile = v
	}
	if v := os.Getenv("NOTIFY_SENDER"); v != "" {
		c.Notify.Sender = v
	}
	if v := os.Getenv("NOTIFY_RECIPIENTS"); v != "" {
		c.Notify.Recipients = splitList(v)
	}
	if v := os.Getenv("NOTIFY_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid NOTIFY_ENABLED %q: %w", v, err)
		}
		c.Notify.Enabled = enabled
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Sheet.Name == "" {
		c.Sheet.Name = DefaultSheetName
	}
	if c.Sheet.CredentialsFile == "" {
		c.Sheet.CredentialsFile = DefaultCredentialsFile
	}
	if len(c.Schedule.Slots) == 0 {
		c.Schedule.Slots = append([]Slot(nil), DefaultSlots...)
	}
	if c.API.Addr == "" {
		c.API.Addr = DefaultAPIAddr
	}
	if c.API.RateLimitPerSec <= 0 {
		c.API.RateLimitPerSec = DefaultRateLimitPerSec
	}
	if c.API.RateLimitBurst <= 0 {
		c.API.RateLimitBurst = DefaultRateLimitBurst
	}
	c.Audits = c.Audits.WithDefaults()
}

// Validate reports the first problem that would stop a run from starting.
func (c *Config) Validate() error {
	if c.Sheet.SpreadsheetID == "" {
		return fmt.Errorf("%w: PAGESPEED_SPREADSHEET_ID", ErrMissingSetting)
	}
	if len(c.PageSpeed.URLs) == 0 {
		return fmt.Errorf("%w: PAGESPEED_WEBSITE_URL", ErrMissingSetting)
	}
	if c.Notify.Enabled && len(c.Notify.Recipients) > 0 && c.Notify.Sender == "" {
		return fmt.Errorf("%w: NOTIFY_SENDER", ErrMissingSetting)
	}
	for _, s := range c.Schedule.Slots {
		if err := s.validate(); err != nil {
			return err
		}
	}
	if c.Run.Pause != nil && *c.Run.Pause < 0 {
		return fmt.Errorf("run.pause must not be negative, got %s", *c.Run.Pause)
	}
	return nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule.timezone %q: %w", name, err)
	}
	return loc, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
