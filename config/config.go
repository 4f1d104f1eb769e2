// Package config loads the runtime configuration from the environment, an
// optional .env file and an optional TOML file. Environment values win over
// the file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAzure     = "azure-openai"
	ProviderAnthropic = "anthropic-claude"

	DefaultOpenAIEndpoint  = "https://api.openai.com/v1"
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultAnthropicModel  = "claude-3-5-sonnet-latest"
	DefaultAzureAPIVersion = "2024-10-21"

	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// ErrMissing is matched by every MissingError.
var ErrMissing = errors.New("required configuration value missing")

// MissingError names the configuration key that must be set.
type MissingError struct {
	Key string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s must be set as an environment variable", e.Key)
}

func (e *MissingError) Is(target error) bool {
	return target == ErrMissing
}

type ArgoCD struct {
	URL       string `toml:"url"`
	Token     string `toml:"token"`
	VerifySSL bool   `toml:"verify_ssl"`
	// TimeoutSeconds bounds each REST call. Zero keeps the client default.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

func (a ArgoCD) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

type Atlassian struct {
	URL                    string `toml:"url"`
	Token                  string `toml:"token"`
	VerifySSL              bool   `toml:"verify_ssl"`
	ReadOnly               bool   `toml:"read_only"`
	JiraProjectsFilter     string `toml:"jira_projects_filter"`
	ConfluenceSpacesFilter string `toml:"confluence_spaces_filter"`
	TimeoutSeconds         int    `toml:"timeout_seconds"`
}

func (a Atlassian) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

type LLM struct {
	Provider string `toml:"provider"`

	OpenAIAPIKey   string `toml:"openai_api_key"`
	OpenAIEndpoint string `toml:"openai_endpoint"`
	OpenAIModel    string `toml:"openai_model_name"`

	AzureEndpoint   string `toml:"azure_openai_endpoint"`
	AzureDeployment string `toml:"azure_openai_deployment"`
	AzureAPIKey     string `toml:"azure_openai_api_key"`
	AzureAPIVersion string `toml:"azure_openai_api_version"`

	AnthropicAPIKey string `toml:"anthropic_api_key"`
	AnthropicModel  string `toml:"anthropic_model_name"`

	// InjectIdentifiers tags requests with the session id for proxies that
	// understand it.
	InjectIdentifiers bool `toml:"inject_identifiers"`
}

type Agent struct {
	TurnTimeoutSeconds int `toml:"turn_timeout_seconds"`
	MaxIterations      int `toml:"max_iterations"`
}

func (a Agent) TurnTimeout() time.Duration {
	return time.Duration(a.TurnTimeoutSeconds) * time.Second
}

type Store struct {
	Kind string `toml:"kind"`
	DSN  string `toml:"dsn"`
}

type Config struct {
	ArgoCD    ArgoCD    `toml:"argocd"`
	Atlassian Atlassian `toml:"atlassian"`
	LLM       LLM       `toml:"llm"`
	Agent     Agent     `toml:"agent"`
	Store     Store     `toml:"store"`
	LogLevel  string    `toml:"log_level"`
}

func defaults() Config {
	return Config{
		ArgoCD:    ArgoCD{VerifySSL: true},
		Atlassian: Atlassian{VerifySSL: true},
		LLM: LLM{
			OpenAIEndpoint:  DefaultOpenAIEndpoint,
			OpenAIModel:     DefaultOpenAIModel,
			AzureAPIVersion: DefaultAzureAPIVersion,
			AnthropicModel:  DefaultAnthropicModel,
		},
		Agent:    Agent{MaxIterations: 10},
		Store:    Store{Kind: StoreMemory},
		LogLevel: "info",
	}
}

// Load reads .env (if present), then the TOML file at path (if path is not
// empty) and finally the process environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded, falling back to environment variables", "error", err)
	}

	cfg := defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	var err error
	cfg.ArgoCD.URL = getEnv("ARGOCD_API_URL", cfg.ArgoCD.URL)
	cfg.ArgoCD.Token = getEnv("ARGOCD_TOKEN", cfg.ArgoCD.Token)
	if cfg.ArgoCD.VerifySSL, err = getEnvBool("ARGOCD_VERIFY_SSL", cfg.ArgoCD.VerifySSL); err != nil {
		return err
	}
	if cfg.ArgoCD.TimeoutSeconds, err = getEnvInt("ARGOCD_TIMEOUT", cfg.ArgoCD.TimeoutSeconds); err != nil {
		return err
	}

	cfg.Atlassian.URL = getEnv("ATLASSIAN_API_URL", cfg.Atlassian.URL)
	cfg.Atlassian.Token = getEnv("ATLASSIAN_TOKEN", cfg.Atlassian.Token)
	if cfg.Atlassian.VerifySSL, err = getEnvBool("ATLASSIAN_VERIFY_SSL", cfg.Atlassian.VerifySSL); err != nil {
		return err
	}
	if cfg.Atlassian.ReadOnly, err = getEnvBool("ATLASSIAN_READ_ONLY", cfg.Atlassian.ReadOnly); err != nil {
		return err
	}
	if cfg.Atlassian.TimeoutSeconds, err = getEnvInt("ATLASSIAN_TIMEOUT", cfg.Atlassian.TimeoutSeconds); err != nil {
		return err
	}
	cfg.Atlassian.JiraProjectsFilter = getEnv("JIRA_PROJECTS_FILTER", cfg.Atlassian.JiraProjectsFilter)
	cfg.Atlassian.ConfluenceSpacesFilter = getEnv("CONFLUENCE_SPACES_FILTER", cfg.Atlassian.ConfluenceSpacesFilter)

	cfg.LLM.Provider = strings.ToLower(getEnv("LLM_PROVIDER", cfg.LLM.Provider))
	cfg.LLM.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.LLM.OpenAIAPIKey)
	cfg.LLM.OpenAIEndpoint = getEnv("OPENAI_ENDPOINT", cfg.LLM.OpenAIEndpoint)
	cfg.LLM.OpenAIModel = getEnv("OPENAI_MODEL_NAME", cfg.LLM.OpenAIModel)
	cfg.LLM.AzureEndpoint = getEnv("AZURE_OPENAI_ENDPOINT", cfg.LLM.AzureEndpoint)
	cfg.LLM.AzureDeployment = getEnv("AZURE_OPENAI_DEPLOYMENT", cfg.LLM.AzureDeployment)
	cfg.LLM.AzureAPIKey = getEnv("AZURE_OPENAI_API_KEY", cfg.LLM.AzureAPIKey)
	cfg.LLM.AzureAPIVersion = getEnv("AZURE_OPENAI_API_VERSION", cfg.LLM.AzureAPIVersion)
	cfg.LLM.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", cfg.LLM.AnthropicAPIKey)
	cfg.LLM.AnthropicModel = getEnv("ANTHROPIC_MODEL_NAME", cfg.LLM.AnthropicModel)
	if cfg.LLM.InjectIdentifiers, err = getEnvBool("LLM_INJECT_IDENTIFIERS", cfg.LLM.InjectIdentifiers); err != nil {
		return err
	}

	if cfg.Agent.TurnTimeoutSeconds, err = getEnvInt("AGENT_TURN_TIMEOUT", cfg.Agent.TurnTimeoutSeconds); err != nil {
		return err
	}
	if cfg.Agent.MaxIterations, err = getEnvInt("AGENT_MAX_ITERATIONS", cfg.Agent.MaxIterations); err != nil {
		return err
	}

	cfg.Store.Kind = strings.ToLower(getEnv("SESSION_STORE", cfg.Store.Kind))
	cfg.Store.DSN = getEnv("SESSION_STORE_DSN", cfg.Store.DSN)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	return nil
}

// RequireArgoCD checks the values the Argo CD agent cannot start without.
func (c *Config) RequireArgoCD() error {
	if err := require("ARGOCD_TOKEN", c.ArgoCD.Token); err != nil {
		return err
	}
	return require("ARGOCD_API_URL", c.ArgoCD.URL)
}

// RequireAtlassian checks the values the Atlassian agent cannot start without.
func (c *Config) RequireAtlassian() error {
	if err := require("ATLASSIAN_TOKEN", c.Atlassian.Token); err != nil {
		return err
	}
	return require("ATLASSIAN_API_URL", c.Atlassian.URL)
}

// RequireLLM checks the provider and its credentials.
func (c *Config) RequireLLM() error {
	switch c.LLM.Provider {
	case "":
		return &MissingError{Key: "LLM_PROVIDER"}
	case ProviderOpenAI:
		return require("OPENAI_API_KEY", c.LLM.OpenAIAPIKey)
	case ProviderAzure:
		for _, kv := range [][2]string{
			{"AZURE_OPENAI_ENDPOINT", c.LLM.AzureEndpoint},
			{"AZURE_OPENAI_DEPLOYMENT", c.LLM.AzureDeployment},
			{"AZURE_OPENAI_API_KEY", c.LLM.AzureAPIKey},
			{"AZURE_OPENAI_API_VERSION", c.LLM.AzureAPIVersion},
		} {
			if err := require(kv[0], kv[1]); err != nil {
				return err
			}
		}
		return nil
	case ProviderAnthropic:
		return require("ANTHROPIC_API_KEY", c.LLM.AnthropicAPIKey)
	default:
		return fmt.Errorf("unsupported LLM provider %q, supported providers are %s, %s, %s",
			c.LLM.Provider, ProviderOpenAI, ProviderAzure, ProviderAnthropic)
	}
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func require(key, value string) error {
	if strings.TrimSpace(value) == "" {
		return &MissingError{Key: key}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid boolean %q", key, value)
	}
	return b, nil
}

func getEnvInt(key string, fallback int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid integer %q", key, value)
	}
	return n, nil
}
