// Package config provides Viper-based configuration loading for the combat core.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// CombatConfig holds the tunable combat formulas.
type CombatConfig struct {
	// GuardDivisor divides the damage of the first attack against a defending combatant.
	GuardDivisor int `mapstructure:"guard_divisor"`
	// MinDamage is the damage floor for attacks and damage spells.
	MinDamage int `mapstructure:"min_damage"`
	// LevelCurve selects the level progression source: "table" (content curve.yaml)
	// or "lua" (content curve.lua).
	LevelCurve string `mapstructure:"level_curve"`
	// SnapshotTTL is how long a saved combat snapshot survives in Redis.
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

// ContentConfig locates the static content tables.
type ContentConfig struct {
	Dir string `mapstructure:"dir"`
}

// PartyConfig selects the party data source.
type PartyConfig struct {
	// Source is "file" or "postgres".
	Source string `mapstructure:"source"`
	// File is the YAML party file used when Source is "file".
	File string `mapstructure:"file"`
	// ID is the party row loaded when Source is "postgres".
	ID string `mapstructure:"id"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// RedisConfig holds the snapshot cache connection settings.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TelemetryConfig selects where combat events are delivered.
type TelemetryConfig struct {
	// Sinks lists the enabled sinks: "log", "nats", "metrics", "trace".
	Sinks            []string `mapstructure:"sinks"`
	NATSURL          string   `mapstructure:"nats_url"`
	Subject          string   `mapstructure:"subject"`
	MetricsNamespace string   `mapstructure:"metrics_namespace"`
}

// Enabled reports whether sink is listed.
func (t TelemetryConfig) Enabled(sink string) bool {
	for _, s := range t.Sinks {
		if s == sink {
			return true
		}
	}
	return false
}

// Config is the top-level application configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Combat    CombatConfig    `mapstructure:"combat"`
	Content   ContentConfig   `mapstructure:"content"`
	Party     PartyConfig     `mapstructure:"party"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateCombat(c.Combat); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Content.Dir == "" {
		errs = append(errs, "content.dir must not be empty")
	}
	if err := validateParty(c.Party); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Party.Source == "postgres" {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis.addr must not be empty when redis is enabled")
	}
	if err := validateTelemetry(c.Telemetry); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateCombat(c CombatConfig) error {
	var errs []string
	if c.GuardDivisor < 1 {
		errs = append(errs, fmt.Sprintf("combat.guard_divisor must be >= 1, got %d", c.GuardDivisor))
	}
	if c.MinDamage < 1 {
		errs = append(errs, fmt.Sprintf("combat.min_damage must be >= 1, got %d", c.MinDamage))
	}
	if c.LevelCurve != "table" && c.LevelCurve != "lua" {
		errs = append(errs, fmt.Sprintf("combat.level_curve must be one of [table, lua], got %q", c.LevelCurve))
	}
	if c.SnapshotTTL < 0 {
		errs = append(errs, "combat.snapshot_ttl must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateParty(p PartyConfig) error {
	switch p.Source {
	case "file":
		if p.File == "" {
			return fmt.Errorf("party.file must not be empty when party.source is file")
		}
	case "postgres":
		if p.ID == "" {
			return fmt.Errorf("party.id must not be empty when party.source is postgres")
		}
	default:
		return fmt.Errorf("party.source must be one of [file, postgres], got %q", p.Source)
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateTelemetry(t TelemetryConfig) error {
	var errs []string
	valid := map[string]bool{"log": true, "nats": true, "metrics": true, "trace": true}
	for _, s := range t.Sinks {
		if !valid[s] {
			errs = append(errs, fmt.Sprintf("telemetry.sinks entries must be one of [log, nats, metrics, trace], got %q", s))
		}
	}
	if t.Enabled("nats") && t.NATSURL == "" {
		errs = append(errs, "telemetry.nats_url must not be empty when the nats sink is enabled")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with STARFALL_ prefix
	v.SetEnvPrefix("STARFALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance holding only the default values.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("combat.guard_divisor", 2)
	v.SetDefault("combat.min_damage", 1)
	v.SetDefault("combat.level_curve", "table")
	v.SetDefault("combat.snapshot_ttl", "30m")

	v.SetDefault("content.dir", "content")

	v.SetDefault("party.source", "file")
	v.SetDefault("party.file", "configs/party.yaml")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "starfall")
	v.SetDefault("database.password", "starfall")
	v.SetDefault("database.name", "starfall")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("telemetry.sinks", []string{"log"})
	v.SetDefault("telemetry.nats_url", "nats://localhost:4222")
	v.SetDefault("telemetry.subject", "starfall.combat.events")
	v.SetDefault("telemetry.metrics_namespace", "starfall")
}
