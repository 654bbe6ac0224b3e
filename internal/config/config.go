package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

const envPrefix = "SEATTLEGUIDE_"

type Config struct {
	Server             ServerConfig   `koanf:"server"`
	Auth               AuthConfig     `koanf:"auth"`
	RateLimitPerMinute int            `koanf:"rate_limit_per_minute"`
	Security           SecurityConfig `koanf:"security"`
	Model              ModelConfig    `koanf:"model"`
	Routing            RoutingConfig  `koanf:"routing"`
	Maps               MapsConfig     `koanf:"maps"`
	Corpus             CorpusConfig   `koanf:"corpus"`
}

type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	Environment     string   `koanf:"environment"`
	APIPrefix       string   `koanf:"api_prefix"`
	LogLevel        string   `koanf:"log_level"`
	CORSOrigins     []string `koanf:"cors_origins"`
	ReadTimeout     string   `koanf:"read_timeout"`
	WriteTimeout    string   `koanf:"write_timeout"`
	IdleTimeout     string   `koanf:"idle_timeout"`
	ShutdownTimeout string   `koanf:"shutdown_timeout"`
}

type AuthConfig struct {
	Enabled bool     `koanf:"enabled"`
	Header  string   `koanf:"header"`
	APIKeys []string `koanf:"api_keys"`
}

type SecurityConfig struct {
	ValidatePrompts  bool     `koanf:"validate_prompts"`
	AuditLogging     bool     `koanf:"audit_logging"`
	MaxMessageLength int      `koanf:"max_message_length"`
	PIIKeywords      []string `koanf:"pii_keywords"`
}

// ModelConfig selects the conversational model that drives tool dispatch.
type ModelConfig struct {
	Provider         string `koanf:"provider"`
	Name             string `koanf:"name"`
	BaseURL          string `koanf:"base_url"`
	AnthropicAPIKey  string `koanf:"anthropic_api_key"`
	AnthropicBaseURL string `koanf:"anthropic_base_url"`
	OpenAIAPIKey     string `koanf:"openai_api_key"`
	OpenAIBaseURL    string `koanf:"openai_base_url"`
	MaxTokens        int    `koanf:"max_tokens"`
	MaxIterations    int    `koanf:"max_iterations"`
}

type RoutingConfig struct {
	Mode string `koanf:"mode"`
}

type MapsConfig struct {
	APIKey          string  `koanf:"api_key"`
	BaseURL         string  `koanf:"base_url"`
	Timeout         string  `koanf:"timeout"`
	DefaultLocation string  `koanf:"default_location"`
	DefaultRadius   float64 `koanf:"default_radius"`
	RegionSuffix    string  `koanf:"region_suffix"`
	DirectionsMode  string  `koanf:"directions_mode"`
}

type CorpusConfig struct {
	Backend       string              `koanf:"backend"`
	BaseURL       string              `koanf:"base_url"`
	APIKey        string              `koanf:"api_key"`
	Timeout       string              `koanf:"timeout"`
	DefaultLimit  int                 `koanf:"default_limit"`
	Elasticsearch ElasticsearchConfig `koanf:"elasticsearch"`
	Local         LocalCorpusConfig   `koanf:"local"`
}

type ElasticsearchConfig struct {
	Addresses   []string `koanf:"addresses"`
	Username    string   `koanf:"username"`
	Password    string   `koanf:"password"`
	Index       string   `koanf:"index"`
	MaxRetries  int      `koanf:"max_retries"`
	VerifyCerts bool     `koanf:"verify_certs"`
}

type LocalCorpusConfig struct {
	Path           string `koanf:"path"`
	Collection     string `koanf:"collection"`
	EmbeddingModel string `koanf:"embedding_model"`
}

// Load layers defaults, an optional YAML file, SEATTLEGUIDE_ env vars, CLI
// flags and finally the well-known provider env vars. Nested env keys use a
// double underscore: SEATTLEGUIDE_MAPS__DEFAULT_RADIUS=500.
func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.host":             DefaultHost,
		"server.port":             DefaultPort,
		"server.environment":      DefaultEnvironment,
		"server.api_prefix":       DefaultAPIPrefix,
		"server.log_level":        DefaultLogLevel,
		"server.cors_origins":     DefaultCORSOrigins,
		"server.read_timeout":     DefaultReadTimeout,
		"server.write_timeout":    DefaultWriteTimeout,
		"server.idle_timeout":     DefaultIdleTimeout,
		"server.shutdown_timeout": DefaultShutdownTimeout,

		"auth.enabled": false,
		"auth.header":  DefaultAPIKeyHeader,

		"rate_limit_per_minute": DefaultRateLimitPerMinute,

		"security.validate_prompts":   true,
		"security.audit_logging":      true,
		"security.max_message_length": DefaultMaxMessageLength,
		"security.pii_keywords":       DefaultPIIKeywords,

		"model.provider":       DefaultModelProvider,
		"model.max_tokens":     DefaultModelMaxTokens,
		"model.max_iterations": DefaultModelMaxIterations,

		"routing.mode": DefaultRoutingMode,

		"maps.base_url":         DefaultMapsBaseURL,
		"maps.timeout":          DefaultMapsTimeout,
		"maps.default_location": DefaultMapsLocation,
		"maps.default_radius":   DefaultMapsRadius,
		"maps.region_suffix":    DefaultMapsRegion,
		"maps.directions_mode":  DefaultDirectionsMode,

		"corpus.backend":                    DefaultCorpusBackend,
		"corpus.base_url":                   DefaultCorpusBaseURL,
		"corpus.timeout":                    DefaultCorpusTimeout,
		"corpus.default_limit":              DefaultCorpusLimit,
		"corpus.elasticsearch.addresses":    DefaultESAddresses,
		"corpus.elasticsearch.index":        DefaultCorpusESIndex,
		"corpus.elasticsearch.max_retries":  3,
		"corpus.elasticsearch.verify_certs": true,
		"corpus.local.path":                 DefaultCorpusLocalPath,
		"corpus.local.collection":           DefaultCorpusLocalName,
		"corpus.local.embedding_model":      DefaultEmbeddingModel,
	}
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("set default %s: %w", key, err)
		}
	}

	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}
	if configPath == "" {
		configPath = strings.TrimSpace(os.Getenv("SEATTLEGUIDE_CONFIG"))
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if cmd != nil {
		if err := k.Load(posflag.Provider(cmd.Flags(), ".", k), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyEnvOverrides(&cfg)

	if cfg.Model.Name == "" {
		cfg.Model.Name = defaultModelName(cfg.Model.Provider)
	}

	return &cfg, nil
}

// envKey maps SEATTLEGUIDE_CORPUS__ELASTICSEARCH__INDEX to corpus.elasticsearch.index.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

func applyEnvOverrides(cfg *Config) {
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		cfg.Server.LogLevel = v
	}
	if v := getEnv("PORT", ""); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := getEnv("GOOGLE_MAPS_API_KEY", ""); v != "" {
		cfg.Maps.APIKey = v
	}
	if v := getEnv("CORPUS_API_KEY", ""); v != "" {
		cfg.Corpus.APIKey = v
	}
	if v := getEnv("CORPUS_BASE_URL", ""); v != "" {
		cfg.Corpus.BaseURL = v
	}
	if v := getEnv("ANTHROPIC_API_KEY", ""); v != "" {
		cfg.Model.AnthropicAPIKey = v
	}
	if v := getEnv("ANTHROPIC_BASE_URL", ""); v != "" {
		cfg.Model.AnthropicBaseURL = v
	}
	if v := getEnv("OPENAI_API_KEY", ""); v != "" {
		cfg.Model.OpenAIAPIKey = v
	}
	if v := getEnv("OPENAI_BASE_URL", ""); v != "" {
		cfg.Model.OpenAIBaseURL = v
	}
	if v := getEnv("ELASTICSEARCH_PASSWORD", ""); v != "" {
		cfg.Corpus.Elasticsearch.Password = v
	}
}

func defaultModelName(provider string) string {
	if provider == ProviderOpenAI {
		return DefaultOpenAIModel
	}
	return DefaultAnthropicModel
}

// Validate reports every missing credential or unsupported option at once so
// startup fails with a complete remediation list.
func (c *Config) Validate() error {
	var errs []error

	switch c.Model.Provider {
	case ProviderAnthropic:
		if c.Model.AnthropicAPIKey == "" {
			errs = append(errs, errors.New("anthropic credential missing: set ANTHROPIC_API_KEY"))
		}
	case ProviderOpenAI:
		if c.Model.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("openai credential missing: set OPENAI_API_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown model provider %q (want %s or %s)", c.Model.Provider, ProviderAnthropic, ProviderOpenAI))
	}

	if c.Maps.APIKey == "" {
		errs = append(errs, errors.New("mapping service credential missing: set GOOGLE_MAPS_API_KEY"))
	}

	switch c.Corpus.Backend {
	case CorpusBackendRemote:
		if c.Corpus.APIKey == "" {
			errs = append(errs, errors.New("corpus service credential missing: set CORPUS_API_KEY"))
		}
	case CorpusBackendElasticsearch:
		if len(c.Corpus.Elasticsearch.Addresses) == 0 {
			errs = append(errs, errors.New("corpus.elasticsearch.addresses is empty"))
		}
	case CorpusBackendLocal:
		if c.Model.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("local corpus needs embeddings: set OPENAI_API_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown corpus backend %q", c.Corpus.Backend))
	}

	switch c.Routing.Mode {
	case RoutingModeKeyword, RoutingModeModel:
	default:
		errs = append(errs, fmt.Errorf("unknown routing mode %q (want %s or %s)", c.Routing.Mode, RoutingModeKeyword, RoutingModeModel))
	}

	return errors.Join(errs...)
}

// Duration parses a configured duration string, falling back to fallback when empty.
func Duration(value, fallback string) (time.Duration, error) {
	candidate := strings.TrimSpace(value)
	if candidate == "" {
		candidate = fallback
	}
	d, err := time.ParseDuration(candidate)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", candidate, err)
	}
	return d, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
