package config

import (
	"bytes"
	_ "embed"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/spf13/viper"

	auth "github.com/goliatone/go-auth-users"
)

//go:embed config.yml
var embeddedConfig []byte

type ServerCfg struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseCfg struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type BootstrapAdminCfg struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Email    string `mapstructure:"email"`
}

// AuthCfg satisfies auth.Config
type AuthCfg struct {
	SigningKey     string            `mapstructure:"signing_key"`
	Issuer         string            `mapstructure:"issuer"`
	TokenTTL       time.Duration     `mapstructure:"token_ttl"`
	PasswordCost   int               `mapstructure:"password_cost"`
	TokenLookup    string            `mapstructure:"token_lookup"`
	AuthScheme     string            `mapstructure:"auth_scheme"`
	ContextKey     string            `mapstructure:"context_key"`
	BootstrapAdmin BootstrapAdminCfg `mapstructure:"bootstrap_admin"`
}

var _ auth.Config = AuthCfg{}

func (c AuthCfg) GetSigningKey() string      { return c.SigningKey }
func (c AuthCfg) GetTokenTTL() time.Duration { return c.TokenTTL }
func (c AuthCfg) GetIssuer() string          { return c.Issuer }
func (c AuthCfg) GetPasswordCost() int       { return c.PasswordCost }
func (c AuthCfg) GetTokenLookup() string     { return c.TokenLookup }
func (c AuthCfg) GetAuthScheme() string      { return c.AuthScheme }
func (c AuthCfg) GetContextKey() string      { return c.ContextKey }

// Validate will validate the auth options
func (c AuthCfg) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SigningKey, validation.Required.Error("signing key must be set")),
		validation.Field(&c.TokenTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.PasswordCost, validation.Min(4), validation.Max(31)),
	)
}

type ActivityCfg struct {
	Channel string `mapstructure:"channel"`
}

type Config struct {
	Mode     string      `mapstructure:"mode"`
	LogLevel string      `mapstructure:"log_level"`
	Server   ServerCfg   `mapstructure:"server"`
	Database DatabaseCfg `mapstructure:"database"`
	Auth     AuthCfg     `mapstructure:"auth"`
	Activity ActivityCfg `mapstructure:"activity"`
}

// IsDevelopment reports whether the service runs in development mode
func (c Config) IsDevelopment() bool {
	return c.Mode == "" || c.Mode == "development"
}

// Load reads path, or the embedded config when path is empty, then applies
// environment overrides such as AUTH_SIGNING_KEY or DATABASE_DSN.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("mode", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.driver", auth.DriverSQLite)
	v.SetDefault("database.dsn", "file:users.db?cache=shared")

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.issuer", "go-auth-users")
	v.SetDefault("auth.token_ttl", "30m")
	v.SetDefault("auth.password_cost", 12)
	v.SetDefault("auth.token_lookup", "header:Authorization")
	v.SetDefault("auth.auth_scheme", "Bearer")
	v.SetDefault("auth.context_key", auth.DefaultContextKey)
	v.SetDefault("auth.bootstrap_admin.username", "")
	v.SetDefault("auth.bootstrap_admin.password", "")
	v.SetDefault("auth.bootstrap_admin.email", "")
	v.SetDefault("activity.channel", "auth")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to read config "+path)
		}
	} else if err := v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to read embedded config")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to unmarshal config")
	}

	if err := cfg.Auth.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid auth config")
	}

	return &cfg, nil
}
