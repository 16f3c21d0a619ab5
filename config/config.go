// Package config loads the gatekeeper configuration from YAML.
//
// Values not present in the document keep their defaults. A handful of keys
// can be overridden from the environment (see ApplyEnv), which is how the
// binary picks up deployment specific settings from a .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv.
const (
	EnvEnableVerifyJwt = "GATEKEEPER_ENABLE_VERIFY_JWT"
	EnvServerAddress   = "GATEKEEPER_SERVER_ADDRESS"
	EnvLogLevel        = "GATEKEEPER_LOG_LEVEL"
	EnvJWKSURI         = "GATEKEEPER_JWKS_URI"
	EnvIssuer          = "GATEKEEPER_JWT_ISSUER"
)

// Config is the root document.
type Config struct {
	// EnableVerifyJwt turns token verification on. It is read once at load.
	EnableVerifyJwt  bool     `yaml:"enableVerifyJwt"`
	SkipPathPrefixes []string `yaml:"skipPathPrefixes" validate:"dive,startswith=/"`
	JWT              JWT      `yaml:"jwt"`
	StatusFile       string   `yaml:"statusFile"`
	SchemaFile       string   `yaml:"schemaFile"`
	Server           Server   `yaml:"server"`
	LogLevel         string   `yaml:"logLevel" validate:"required"`
	Log              LogFile  `yaml:"log"`
}

// JWT holds the trust material and the claim checks.
type JWT struct {
	Issuer             string   `yaml:"issuer" validate:"omitempty,url"`
	Audience           []string `yaml:"audience" validate:"dive,required"`
	Algorithm          string   `yaml:"algorithm" validate:"required,oneof=EdDSA HS256 HS384 HS512 RS256 RS384 RS512 ES256 ES384 ES512 PS256 PS384 PS512"`
	ClockSkewInSeconds int      `yaml:"clockSkewInSeconds" validate:"gte=0"`
	JWKSURI            string   `yaml:"jwksUri" validate:"omitempty,url"`

	// JWKSRefreshInterval is the minimum time between two fetches of a
	// remote key set.
	JWKSRefreshInterval time.Duration     `yaml:"jwksRefreshInterval" validate:"gte=0"`
	Secrets             map[string]string `yaml:"secrets" validate:"dive,keys,required,endkeys,required"`
	Certificates        map[string]string `yaml:"certificates" validate:"dive,keys,required,endkeys,required"`
}

// ClockSkew returns the allowed clock skew as a duration.
func (j JWT) ClockSkew() time.Duration {
	return time.Duration(j.ClockSkewInSeconds) * time.Second
}

// Symmetric reports whether the algorithm is one of the HMAC family.
func (j JWT) Symmetric() bool {
	return strings.HasPrefix(j.Algorithm, "HS")
}

// Server is the listener of the gateway binary.
type Server struct {
	Address         string        `yaml:"address" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" validate:"gte=0"`
}

// LogFile enables rotated file logging when Path is set.
type LogFile struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"maxSizeMb" validate:"gte=0"`
	MaxBackups int    `yaml:"maxBackups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"maxAgeDays" validate:"gte=0"`
	Compress   bool   `yaml:"compress"`
}

// Default returns the configuration used for keys absent from the document.
func Default() Config {
	return Config{
		EnableVerifyJwt: true,
		JWT: JWT{
			Algorithm:           "RS256",
			JWKSRefreshInterval: 15 * time.Minute,
		},
		Server: Server{
			Address:         ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		LogLevel: "info",
		Log: LogFile{
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

var validate = validator.New()

// Parse decodes a YAML document over Default and validates the result. An
// empty document yields the defaults.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field constraints and the trust material. When
// verification is enabled, an HMAC algorithm needs at least one secret and
// any other algorithm needs certificates, a JWKS URI or an issuer to
// discover one from.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			msgs := make([]string, 0, len(validationErrors))
			for _, fe := range validationErrors {
				msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if !c.EnableVerifyJwt {
		return nil
	}
	if c.JWT.Symmetric() {
		if len(c.JWT.Secrets) == 0 {
			return fmt.Errorf("invalid config: algorithm %s requires jwt.secrets", c.JWT.Algorithm)
		}
		return nil
	}
	if len(c.JWT.Certificates) == 0 && c.JWT.JWKSURI == "" && c.JWT.Issuer == "" {
		return fmt.Errorf("invalid config: algorithm %s requires jwt.certificates, jwt.jwksUri or jwt.issuer", c.JWT.Algorithm)
	}
	return nil
}

// Level returns the parsed log level. It falls back to info for a level
// that did not pass Validate.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// ApplyEnv overrides keys from the environment and validates again.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvEnableVerifyJwt); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvEnableVerifyJwt, err)
		}
		c.EnableVerifyJwt = b
	}
	c.Server.Address = getEnv(EnvServerAddress, c.Server.Address)
	c.LogLevel = getEnv(EnvLogLevel, c.LogLevel)
	c.JWT.JWKSURI = getEnv(EnvJWKSURI, c.JWT.JWKSURI)
	c.JWT.Issuer = getEnv(EnvIssuer, c.JWT.Issuer)
	return c.Validate()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
