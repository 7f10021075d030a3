package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "ORATORI_"

// Config captures environment driven configuration values for the scheduling service.
type Config struct {
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8080"`
	SQLiteDSN       string        `env:"SQLITE_DSN" envDefault:"file:oratori.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"`
	LogLevel        slog.Level    `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	TalkCatalogPath string        `env:"TALK_CATALOG"`
	AppURL          string        `env:"APP_URL"`
	AdminEmail      string        `env:"ADMIN_EMAIL"`

	JWT      JWT      `envPrefix:"JWT_"`
	Geocoder Geocoder `envPrefix:"GEOCODER_"`
	SMTP     SMTP     `envPrefix:"SMTP_"`
}

// JWT contains bearer token parameters.
type JWT struct {
	Secret string        `env:"SECRET,required,notEmpty"`
	TTL    time.Duration `env:"TTL" envDefault:"24h"`
}

// Geocoder contains the locality search service parameters.
type Geocoder struct {
	BaseURL       string        `env:"BASE_URL" envDefault:"https://nominatim.openstreetmap.org"`
	UserAgent     string        `env:"USER_AGENT" envDefault:"OratoriGestionale/1.0"`
	CountrySuffix string        `env:"COUNTRY_SUFFIX" envDefault:"Italia"`
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"5s"`
	Disabled      bool          `env:"DISABLED" envDefault:"false"`
}

// SMTP contains outgoing mail parameters. An empty Host disables mail.
type SMTP struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM"`
}

// Enabled reports whether enough settings are present to send mail.
func (s SMTP) Enabled() bool {
	return strings.TrimSpace(s.Host) != "" && strings.TrimSpace(s.From) != ""
}

// Load parses configuration values from the current process environment.
//
// Missing required variables and out of range values are reported together.
func Load() (Config, error) {
	return LoadFrom(nil)
}

// LoadFrom parses configuration from the provided map instead of the process
// environment when environment is non-nil.
func LoadFrom(environment map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{Prefix: EnvPrefix}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("configurazione non valida: %w", err)
	}

	invalid := make([]string, 0, 3)
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		invalid = append(invalid, EnvPrefix+"HTTP_PORT")
	}
	if cfg.JWT.TTL <= 0 {
		invalid = append(invalid, EnvPrefix+"JWT_TTL")
	}
	if cfg.SMTP.Port <= 0 {
		invalid = append(invalid, EnvPrefix+"SMTP_PORT")
	}
	if strings.TrimSpace(cfg.SQLiteDSN) == "" {
		invalid = append(invalid, EnvPrefix+"SQLITE_DSN")
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("valori delle variabili d'ambiente non validi: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// IsMissingVariable reports whether err was caused by an unset required variable.
func IsMissingVariable(err error) bool {
	return errors.Is(err, env.VarIsNotSetError{}) || errors.Is(err, env.EmptyVarError{})
}
