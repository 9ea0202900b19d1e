// Package config provides Viper-based configuration loading for the hangman server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// GameConfig holds room defaults and engine policy.
type GameConfig struct {
	// MaxRooms is the maximum number of concurrently active rooms.
	MaxRooms int `mapstructure:"max_rooms"`
	// CodeLength is the number of characters in a generated room code.
	CodeLength int `mapstructure:"code_length"`
	// DefaultWord is the hidden word of every new room.
	DefaultWord string `mapstructure:"default_word"`
	// DefaultMaxWrong applies when create omits maxWrong or sends an invalid value.
	DefaultMaxWrong int `mapstructure:"default_max_wrong"`
	// DefaultTurnSeconds applies when create omits turnSeconds or sends an invalid value.
	DefaultTurnSeconds int `mapstructure:"default_turn_seconds"`
	// MaxWrongLimit is the largest maxWrong a client may request.
	MaxWrongLimit int `mapstructure:"max_wrong_limit"`
	// TurnSecondsLimit is the largest turnSeconds a client may request.
	TurnSecondsLimit int `mapstructure:"turn_seconds_limit"`
	// HostName is the display name given to a creator who sends none.
	HostName string `mapstructure:"host_name"`
	// PlayerName is the display name given to a joiner who sends none.
	PlayerName string `mapstructure:"player_name"`
	// NameMaxLength caps display names, in runes.
	NameMaxLength int `mapstructure:"name_max_length"`
	// ArmLobbyClock arms a turn countdown while a room is still waiting.
	ArmLobbyClock bool `mapstructure:"arm_lobby_clock"`
	// FreezeFinished stops the countdown once a room is won or lost.
	FreezeFinished bool `mapstructure:"freeze_finished"`
}

// LimitsConfig holds per-connection flow control settings.
type LimitsConfig struct {
	// MessagesPerSecond is the sustained inbound message rate per connection.
	MessagesPerSecond float64 `mapstructure:"messages_per_second"`
	// Burst is the inbound burst allowance per connection.
	Burst int `mapstructure:"burst"`
	// OutboxSize is the buffered outbound message count per connection.
	OutboxSize int `mapstructure:"outbox_size"`
}

// WebSocketConfig holds the WebSocket listener settings.
type WebSocketConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Path           string        `mapstructure:"path"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	MaxMessageSize int64         `mapstructure:"max_message_bytes"`
}

// Addr returns the "host:port" listen address.
func (w WebSocketConfig) Addr() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}

// TelnetConfig holds Telnet acceptor settings.
type TelnetConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Host is the bind address for the Telnet listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the Telnet listener.
	Port int `mapstructure:"port"`
	// ReadTimeout is the per-read timeout for Telnet connections.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the per-write timeout for Telnet connections.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (t TelnetConfig) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// GRPCConfig holds the gRPC stream listener settings.
type GRPCConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// Addr returns the "host:port" listen address.
func (g GRPCConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// DatabaseConfig holds PostgreSQL connection settings for the result archive.
type DatabaseConfig struct {
	// Enabled turns on archiving of finished games.
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// ArchiveQueue is the number of pending results buffered before drops.
	ArchiveQueue int `mapstructure:"archive_queue"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// Config is the top-level application configuration.
type Config struct {
	Game      GameConfig      `mapstructure:"game"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Telnet    TelnetConfig    `mapstructure:"telnet"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	for _, check := range []func() error{
		func() error { return validateGame(c.Game) },
		func() error { return validateLimits(c.Limits) },
		func() error { return validatePort("websocket.port", c.WebSocket.Port) },
		func() error { return validateWebSocket(c.WebSocket) },
		func() error { return validatePort("telnet.port", c.Telnet.Port) },
		func() error { return validatePort("grpc.port", c.GRPC.Port) },
		func() error { return validateLogging(c.Logging) },
		func() error { return validateDatabase(c.Database) },
	} {
		if err := check(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if !c.WebSocket.Enabled && !c.Telnet.Enabled && !c.GRPC.Enabled {
		errs = append(errs, "at least one of websocket, telnet, grpc must be enabled")
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGame(g GameConfig) error {
	var errs []string
	if g.MaxRooms < 1 {
		errs = append(errs, fmt.Sprintf("game.max_rooms must be >= 1, got %d", g.MaxRooms))
	}
	if g.CodeLength < 3 || g.CodeLength > 12 {
		errs = append(errs, fmt.Sprintf("game.code_length must be 3-12, got %d", g.CodeLength))
	}
	if !strings.ContainsFunc(strings.ToUpper(g.DefaultWord), func(r rune) bool { return r >= 'A' && r <= 'Z' }) {
		errs = append(errs, "game.default_word must contain at least one letter")
	}
	if g.MaxWrongLimit < 1 {
		errs = append(errs, fmt.Sprintf("game.max_wrong_limit must be >= 1, got %d", g.MaxWrongLimit))
	}
	if g.DefaultMaxWrong < 1 || g.DefaultMaxWrong > g.MaxWrongLimit {
		errs = append(errs, fmt.Sprintf("game.default_max_wrong must be 1-%d, got %d", g.MaxWrongLimit, g.DefaultMaxWrong))
	}
	if g.TurnSecondsLimit < 1 {
		errs = append(errs, fmt.Sprintf("game.turn_seconds_limit must be >= 1, got %d", g.TurnSecondsLimit))
	}
	if g.DefaultTurnSeconds < 1 || g.DefaultTurnSeconds > g.TurnSecondsLimit {
		errs = append(errs, fmt.Sprintf("game.default_turn_seconds must be 1-%d, got %d", g.TurnSecondsLimit, g.DefaultTurnSeconds))
	}
	if strings.TrimSpace(g.HostName) == "" || strings.TrimSpace(g.PlayerName) == "" {
		errs = append(errs, "game.host_name and game.player_name must not be empty")
	}
	if g.NameMaxLength < 1 {
		errs = append(errs, fmt.Sprintf("game.name_max_length must be >= 1, got %d", g.NameMaxLength))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLimits(l LimitsConfig) error {
	var errs []string
	if l.MessagesPerSecond <= 0 {
		errs = append(errs, fmt.Sprintf("limits.messages_per_second must be > 0, got %v", l.MessagesPerSecond))
	}
	if l.Burst < 1 {
		errs = append(errs, fmt.Sprintf("limits.burst must be >= 1, got %d", l.Burst))
	}
	if l.OutboxSize < 1 {
		errs = append(errs, fmt.Sprintf("limits.outbox_size must be >= 1, got %d", l.OutboxSize))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validatePort(key string, port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("%s must be 0-65535, got %d", key, port)
	}
	return nil
}

func validateWebSocket(w WebSocketConfig) error {
	var errs []string
	if !strings.HasPrefix(w.Path, "/") {
		errs = append(errs, fmt.Sprintf("websocket.path must start with '/', got %q", w.Path))
	}
	if w.ReadTimeout <= 0 {
		errs = append(errs, "websocket.read_timeout must be positive")
	}
	if w.PingInterval <= 0 || w.PingInterval >= w.ReadTimeout {
		errs = append(errs, "websocket.ping_interval must be positive and shorter than websocket.read_timeout")
	}
	if w.MaxMessageSize < 1 {
		errs = append(errs, "websocket.max_message_bytes must be >= 1")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
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

func validateDatabase(d DatabaseConfig) error {
	if !d.Enabled {
		return nil
	}
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" || d.Name == "" {
		errs = append(errs, "database.user and database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 || d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must be between 0 and database.max_conns")
	}
	if d.ArchiveQueue < 1 {
		errs = append(errs, fmt.Sprintf("database.archive_queue must be >= 1, got %d", d.ArchiveQueue))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with HANGMAN_ prefix
	v.SetEnvPrefix("HANGMAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
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

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("game.max_rooms", 10)
	v.SetDefault("game.code_length", 5)
	v.SetDefault("game.default_word", "PROGRAMMATION")
	v.SetDefault("game.default_max_wrong", 6)
	v.SetDefault("game.default_turn_seconds", 20)
	v.SetDefault("game.max_wrong_limit", 26)
	v.SetDefault("game.turn_seconds_limit", 300)
	v.SetDefault("game.host_name", "Host")
	v.SetDefault("game.player_name", "Player")
	v.SetDefault("game.name_max_length", 24)
	v.SetDefault("game.arm_lobby_clock", false)
	v.SetDefault("game.freeze_finished", true)

	v.SetDefault("limits.messages_per_second", 10)
	v.SetDefault("limits.burst", 20)
	v.SetDefault("limits.outbox_size", 64)

	v.SetDefault("websocket.enabled", true)
	v.SetDefault("websocket.host", "0.0.0.0")
	v.SetDefault("websocket.port", 3000)
	v.SetDefault("websocket.path", "/ws")
	v.SetDefault("websocket.allowed_origins", []string{"*"})
	v.SetDefault("websocket.read_timeout", "60s")
	v.SetDefault("websocket.write_timeout", "10s")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.max_message_bytes", 4096)

	v.SetDefault("telnet.enabled", true)
	v.SetDefault("telnet.host", "0.0.0.0")
	v.SetDefault("telnet.port", 4000)
	v.SetDefault("telnet.read_timeout", "10m")
	v.SetDefault("telnet.write_timeout", "30s")

	v.SetDefault("grpc.enabled", false)
	v.SetDefault("grpc.host", "127.0.0.1")
	v.SetDefault("grpc.port", 50051)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "hangman")
	v.SetDefault("database.password", "hangman")
	v.SetDefault("database.name", "hangman")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.archive_queue", 128)
}
