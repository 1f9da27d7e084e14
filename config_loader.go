package tenantvault

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadConfigFromEnvironment loads configuration from environment variables,
// following the 12-factor convention.
//
// Required:
//   - TENANTVAULT_ROOT_SECRET: base64-encoded root secret (32+ bytes decoded)
//
// Optional (defaults applied by Validate if unset):
//   - TENANTVAULT_DB_PATH: database directory (default: .tenantvault)
//   - TENANTVAULT_DB_FILENAME: database filename (default: vault.db)
//   - TENANTVAULT_AUTO_PROVISION: "true" to enable bootstrap provisioning
//   - TENANTVAULT_RATE_LIMIT_RPM: per-tenant budget in requests per minute
func LoadConfigFromEnvironment() (Config, error) {
	encoded := os.Getenv(EnvRootSecret)
	if encoded == "" {
		return Config{}, fmt.Errorf("%w: %s environment variable is required",
			ErrInvalidConfiguration, EnvRootSecret)
	}

	rootSecret, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// URL-safe encoding is accepted too; generated secrets use it.
		rootSecret, err = base64.URLEncoding.DecodeString(encoded)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s is not valid base64",
				ErrInvalidConfiguration, EnvRootSecret)
		}
	}

	cfg := Config{
		RootSecret: rootSecret,
		DBPath:     os.Getenv(EnvDBPath),
		DBFilename: os.Getenv(EnvDBFilename),
	}

	if v := os.Getenv(EnvAutoProvision); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s must be a boolean, got %q",
				ErrInvalidConfiguration, EnvAutoProvision, v)
		}
		cfg.AutoProvision = enabled
	}

	if v := os.Getenv(EnvRateLimitRPM); v != "" {
		rpm, err := strconv.Atoi(v)
		if err != nil || rpm <= 0 {
			return Config{}, fmt.Errorf("%w: %s must be a positive integer, got %q",
				ErrInvalidConfiguration, EnvRateLimitRPM, v)
		}
		cfg.RateLimitRPM = rpm
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFromEnvFile loads variables from a dotenv file into the process
// environment, then builds the configuration from it. Missing files are an
// error; use LoadConfigFromEnvironment directly when no file is expected.
func LoadConfigFromEnvFile(path string) (Config, error) {
	if err := godotenv.Load(path); err != nil {
		return Config{}, fmt.Errorf("%w: failed to load env file %q: %v",
			ErrInvalidConfiguration, path, err)
	}
	return LoadConfigFromEnvironment()
}

// fileConfig is the YAML representation of Config. Secrets are base64 in the
// file and decoded on load.
type fileConfig struct {
	RootSecret    string `yaml:"root_secret"`
	Pepper        string `yaml:"pepper"`
	AutoProvision bool   `yaml:"auto_provision"`
	DBPath        string `yaml:"db_path"`
	DBFilename    string `yaml:"db_filename"`
	RateLimitRPM  int    `yaml:"rate_limit_rpm"`
	LoginRPM      int    `yaml:"login_rpm"`
	SignupRPM     int    `yaml:"signup_rpm"`
}

// LoadConfigFromFile loads configuration from a YAML file.
func LoadConfigFromFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: failed to read config file %q: %v",
			ErrInvalidConfiguration, path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return Config{}, fmt.Errorf("%w: failed to parse config file %q: %v",
			ErrInvalidConfiguration, path, err)
	}

	cfg := Config{
		AutoProvision: fc.AutoProvision,
		DBPath:        fc.DBPath,
		DBFilename:    fc.DBFilename,
		RateLimitRPM:  fc.RateLimitRPM,
		LoginRPM:      fc.LoginRPM,
		SignupRPM:     fc.SignupRPM,
	}

	if fc.RootSecret != "" {
		secret, err := base64.StdEncoding.DecodeString(fc.RootSecret)
		if err != nil {
			return Config{}, fmt.Errorf("%w: root_secret is not valid base64", ErrInvalidConfiguration)
		}
		cfg.RootSecret = secret
	}
	if fc.Pepper != "" {
		pepper, err := base64.StdEncoding.DecodeString(fc.Pepper)
		if err != nil {
			return Config{}, fmt.Errorf("%w: pepper is not valid base64", ErrInvalidConfiguration)
		}
		cfg.Pepper = pepper
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
