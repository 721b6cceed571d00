package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/jobdeck/internal/retry"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Backend kinds.
const (
	BackendHTTP = "http"
	BackendFile = "file"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Backend BackendConfig     `yaml:"backend"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Outbox  OutboxConfig      `yaml:"outbox"`
	SSE     SSEConfig         `yaml:"sse"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Backend.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Outbox.Validate(); err != nil {
		return err
	}
	return c.SSE.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// BackendConfig selects the tabular store the board is loaded from and
// written back to.
//
//   - "http": a remote sheet endpoint at URL, authenticated with Token.
//   - "file": a local CSV table at TablePath, watched for external edits.
type BackendConfig struct {
	Kind      string `yaml:"kind"`
	URL       string `yaml:"url"`
	Token     string `yaml:"token"`
	TablePath string `yaml:"table_path"`
}

// Validate validates the backend configuration.
func (c *BackendConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Kind, validation.Required, validation.In(BackendHTTP, BackendFile)),
		validation.Field(&c.URL, validation.When(c.Kind == BackendHTTP, validation.Required, is.URL)),
		validation.Field(&c.TablePath, validation.When(c.Kind == BackendFile, validation.Required)),
	)
}

// SQLiteConfig holds the path of the view-preferences database.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// OutboxConfig tunes background delivery of board writes.
type OutboxConfig struct {
	Backoff    string        `yaml:"backoff"`
	Initial    time.Duration `yaml:"initial"`
	Max        time.Duration `yaml:"max"`
	MaxRetries int           `yaml:"max_retries"`
	Workers    int           `yaml:"workers"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Validate validates the outbox configuration.
func (c *OutboxConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Backoff, validation.In(
			string(retry.ModeFixed), string(retry.ModeLinear), string(retry.ModeExponential))),
		validation.Field(&c.Initial, validation.Min(time.Duration(0))),
		validation.Field(&c.Max, validation.Min(c.Initial)),
		validation.Field(&c.MaxRetries, validation.Min(0)),
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(64)),
		validation.Field(&c.Timeout, validation.Required),
	); err != nil {
		return err
	}
	return c.Policy().Validate()
}

// Policy returns the retry policy described by c.
func (c *OutboxConfig) Policy() retry.Policy {
	return retry.NewPolicy(retry.Mode(c.Backoff), c.Initial, c.Max, c.MaxRetries)
}

// SSEConfig holds event stream configuration.
type SSEConfig struct {
	// Throttle is the minimum gap between two board.changed events.
	Throttle time.Duration `yaml:"throttle"`
	// KeepAlive is how often an idle stream gets a comment line.
	KeepAlive time.Duration `yaml:"keep_alive"`
}

// Validate validates the SSE configuration.
func (c *SSEConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Throttle, validation.Min(time.Duration(0))),
		validation.Field(&c.KeepAlive, validation.Min(time.Second)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Backend: BackendConfig{
			Kind:      BackendFile,
			TablePath: "./jobs.csv",
		},
		SQLite: SQLiteConfig{
			Path: "./jobdeck.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Outbox: OutboxConfig{
			Backoff:    string(retry.ModeExponential),
			Initial:    time.Second,
			Max:        30 * time.Second,
			MaxRetries: 3,
			Workers:    4,
			Timeout:    15 * time.Second,
		},
		SSE: SSEConfig{
			Throttle:  2 * time.Second,
			KeepAlive: 15 * time.Second,
		},
	}
}
