package serverapi

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/contenox/pkgbot/libutil"
)

// Config is read from lowercased environment variables. Values are kept as
// strings, the way the environment delivers them.
type Config struct {
	DatabaseURL  string `json:"database_url" yaml:"database_url"`
	SQLitePath   string `json:"sqlite_path" yaml:"sqlite_path"`
	Port         string `json:"port" yaml:"port"`
	Addr         string `json:"addr" yaml:"addr"`
	NATSURL      string `json:"nats_url" yaml:"nats_url"`
	NATSUser     string `json:"nats_user" yaml:"nats_user"`
	NATSPassword string `json:"nats_password" yaml:"nats_password"`
	KVAddr       string `json:"kv_addr" yaml:"kv_addr"`
	KVPassword   string `json:"kv_password" yaml:"kv_password"`

	SlackBotToken      string `json:"slack_bot_token" yaml:"slack_bot_token"`
	SlackChannel       string `json:"slack_channel" yaml:"slack_channel"`
	SlackSigningSecret string `json:"slack_signing_secret" yaml:"slack_signing_secret"`

	JWTSigningKey     string `json:"jwt_signing_key" yaml:"jwt_signing_key"`
	TokenTTL          string `json:"token_ttl" yaml:"token_ttl"`
	AdminUser         string `json:"admin_user" yaml:"admin_user"`
	AdminPasswordHash string `json:"admin_password_hash" yaml:"admin_password_hash"`

	RecipeRunnerCommand string `json:"recipe_runner_command" yaml:"recipe_runner_command"`
	RecipeRunnerTimeout string `json:"recipe_runner_timeout" yaml:"recipe_runner_timeout"`
	TrustLeaseTTL       string `json:"trust_lease_ttl" yaml:"trust_lease_ttl"`
	EmbeddedWorker      string `json:"embedded_worker" yaml:"embedded_worker"`

	RedactionStrings string `json:"redaction_strings" yaml:"redaction_strings"`
	JamfAPIUser      string `json:"jamf_api_user" yaml:"jamf_api_user"`
	JamfAPIPassword  string `json:"jamf_api_password" yaml:"jamf_api_password"`
	DPUser           string `json:"dp_user" yaml:"dp_user"`
	DPPassword       string `json:"dp_password" yaml:"dp_password"`

	LogLevel   string `json:"log_level" yaml:"log_level"`
	LogFormat  string `json:"log_format" yaml:"log_format"`
	ConfigFile string `json:"config_file" yaml:"-"`
}

const (
	defaultPort          = "8000"
	defaultSQLitePath    = "pkgbot.db"
	defaultTokenTTL      = time.Hour
	defaultTrustLeaseTTL = 30 * time.Minute
	defaultRunnerTimeout = 30 * time.Minute
)

func LoadConfig[T any](cfg *T) error {
	if cfg == nil {
		return fmt.Errorf("config pointer is nil")
	}
	config := map[string]string{}
	for _, kvPair := range os.Environ() {
		key, value, ok := strings.Cut(kvPair, "=")
		if !ok {
			continue
		}
		config[strings.ToLower(key)] = value
	}

	b, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal env vars: %w", err)
	}
	if err := json.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("failed to unmarshal into config struct: %w", err)
	}
	return nil
}

// LoadConfigFile fills the fields of cfg that the environment left empty
// from the YAML file at path.
func LoadConfigFile(path string, cfg *Config) error {
	var fromFile Config
	if err := libutil.LoadYAML(path, &fromFile); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := mergo.Merge(cfg, fromFile); err != nil {
		return fmt.Errorf("failed to merge config file: %w", err)
	}
	return nil
}

// Load reads the environment and, when config_file is set, the YAML overlay.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := LoadConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.ConfigFile != "" {
		if err := LoadConfigFile(cfg.ConfigFile, cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func parseDuration(name, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", name, value)
	}
	return d, nil
}

func (c *Config) GetPort() string {
	if c.Port == "" {
		return defaultPort
	}
	return c.Port
}

func (c *Config) GetSQLitePath() string {
	if c.SQLitePath == "" {
		return defaultSQLitePath
	}
	return c.SQLitePath
}

func (c *Config) GetTokenTTL() (time.Duration, error) {
	return parseDuration("token_ttl", c.TokenTTL, defaultTokenTTL)
}

func (c *Config) GetTrustLeaseTTL() (time.Duration, error) {
	return parseDuration("trust_lease_ttl", c.TrustLeaseTTL, defaultTrustLeaseTTL)
}

func (c *Config) GetRecipeRunnerTimeout() (time.Duration, error) {
	return parseDuration("recipe_runner_timeout", c.RecipeRunnerTimeout, defaultRunnerTimeout)
}

// RunsEmbeddedWorker is true unless embedded_worker is set to a false value.
func (c *Config) RunsEmbeddedWorker() bool {
	if c.EmbeddedWorker == "" {
		return true
	}
	v, err := libutil.ParseBool(c.EmbeddedWorker)
	return err != nil || v
}

// Secrets lists every configured value that must never reach logs or chat.
func (c *Config) Secrets() []string {
	return []string{
		c.JamfAPIUser,
		c.JamfAPIPassword,
		c.DPUser,
		c.DPPassword,
		c.SlackBotToken,
		c.SlackSigningSecret,
		c.JWTSigningKey,
		c.NATSPassword,
		c.KVPassword,
	}
}
