// Package config loads incident-triage settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// DotEnvFile is merged below the process environment when present.
const DotEnvFile = ".env"

// Config holds all deployment parameters. It is built once by Load and passed
// by pointer to the components that need it; nothing mutates it afterwards.
type Config struct {
	AWSRegion    string
	AWSAccountID string

	DBHost        string
	DBPort        int
	DBName        string
	DBUser        string
	DBPassword    string
	DBSSLMode     string // libpq sslmode
	DBPoolSize    int
	DBMaxOverflow int

	OpenSearchEndpoint string
	OpenSearchIndex    string

	LLMProvider          string // bedrock, anthropic, openai
	ModelID              string
	EmbeddingModelID     string
	AnthropicAPIKey      string
	OpenAIAPIKey         string
	OpenAIBaseURL        string
	Temperature          float64
	MaxTokens            int
	RequestsPerSecond    float64
	EmbeddingsEnabled    bool
	ConfidenceThreshold  float64
	MaxSimilarIncidents  int
	BatchSize            int
	LogLevel             string
	StructuredLogging    bool
	CustomMetricsEnabled bool
	DetailedMonitoring   bool
	S3Bucket             string
	DataDir              string
	LogDir               string
}

// defaults mirrors the documented environment defaults. Keys are lower case
// because viper normalises them; AutomaticEnv maps them back to upper case.
var defaults = map[string]any{
	"aws_region":                     "eu-west-1",
	"aws_account_id":                 "",
	"db_host":                        "",
	"db_port":                        5432,
	"db_name":                        "triage_db",
	"db_user":                        "",
	"db_password":                    "",
	"db_sslmode":                     "prefer",
	"db_pool_size":                   5,
	"db_max_overflow":                10,
	"opensearch_endpoint":            "",
	"opensearch_index":               "incidents-embeddings",
	"llm_provider":                   "bedrock",
	"bedrock_model_id":               "anthropic.claude-3-haiku-20240307-v1:0",
	"bedrock_embedding_model_id":     "amazon.titan-embed-text-v2:0",
	"anthropic_api_key":              "",
	"openai_api_key":                 "",
	"openai_base_url":                "",
	"llm_temperature":                0.0,
	"llm_max_tokens":                 2000,
	"llm_requests_per_second":        0.0,
	"embeddings_enabled":             false,
	"confidence_threshold":           0.8,
	"max_similar_incidents":          5,
	"batch_size":                     10,
	"log_level":                      "INFO",
	"structured_logging":             true,
	"custom_metrics_enabled":         true,
	"cloudwatch_detailed_monitoring": true,
	"s3_bucket":                      "",
	"data_dir":                       "./data",
	"log_dir":                        "./logs",
}

// Load reads the configuration from the process environment, falling back to a
// .env file in the working directory and then to the documented defaults.
func Load() (*Config, error) {
	return load(DotEnvFile)
}

func load(envFile string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
			}
		}
	}
	v.AutomaticEnv()

	return &Config{
		AWSRegion:            v.GetString("aws_region"),
		AWSAccountID:         v.GetString("aws_account_id"),
		DBHost:               v.GetString("db_host"),
		DBPort:               v.GetInt("db_port"),
		DBName:               v.GetString("db_name"),
		DBUser:               v.GetString("db_user"),
		DBPassword:           v.GetString("db_password"),
		DBSSLMode:            strings.ToLower(v.GetString("db_sslmode")),
		DBPoolSize:           v.GetInt("db_pool_size"),
		DBMaxOverflow:        v.GetInt("db_max_overflow"),
		OpenSearchEndpoint:   v.GetString("opensearch_endpoint"),
		OpenSearchIndex:      v.GetString("opensearch_index"),
		LLMProvider:          strings.ToLower(v.GetString("llm_provider")),
		ModelID:              v.GetString("bedrock_model_id"),
		EmbeddingModelID:     v.GetString("bedrock_embedding_model_id"),
		AnthropicAPIKey:      v.GetString("anthropic_api_key"),
		OpenAIAPIKey:         v.GetString("openai_api_key"),
		OpenAIBaseURL:        v.GetString("openai_base_url"),
		Temperature:          v.GetFloat64("llm_temperature"),
		MaxTokens:            v.GetInt("llm_max_tokens"),
		RequestsPerSecond:    v.GetFloat64("llm_requests_per_second"),
		EmbeddingsEnabled:    v.GetBool("embeddings_enabled"),
		ConfidenceThreshold:  v.GetFloat64("confidence_threshold"),
		MaxSimilarIncidents:  v.GetInt("max_similar_incidents"),
		BatchSize:            v.GetInt("batch_size"),
		LogLevel:             strings.ToUpper(v.GetString("log_level")),
		StructuredLogging:    v.GetBool("structured_logging"),
		CustomMetricsEnabled: v.GetBool("custom_metrics_enabled"),
		DetailedMonitoring:   v.GetBool("cloudwatch_detailed_monitoring"),
		S3Bucket:             v.GetString("s3_bucket"),
		DataDir:              filepath.Clean(v.GetString("data_dir")),
		LogDir:               filepath.Clean(v.GetString("log_dir")),
	}, nil
}

// ConfigurationError reports every required setting that is missing.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return "missing required configuration: " + strings.Join(e.Missing, ", ")
}

// Validate checks that all required settings are present. The returned error
// names every missing field, not just the first one.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"DB_HOST", c.DBHost},
		{"DB_USER", c.DBUser},
		{"DB_PASSWORD", c.DBPassword},
		{"OPENSEARCH_ENDPOINT", c.OpenSearchEndpoint},
		{"S3_BUCKET", c.S3Bucket},
	}

	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}

// EnsureDirs creates the data and log directories if they do not exist.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection URL. The sslmode parameter is
// always set so every driver that reads the URL negotiates TLS the same way.
func (c *Config) DatabaseURL() string {
	mode := c.DBSSLMode
	if mode == "" {
		mode = "prefer"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + strconv.Itoa(c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {mode}}.Encode(),
	}
	return u.String()
}

// String renders the configuration without credentials.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config(\n")
	fmt.Fprintf(&b, "    AWS_REGION=%s\n", c.AWSRegion)
	fmt.Fprintf(&b, "    DB_HOST=%s\n", c.DBHost)
	fmt.Fprintf(&b, "    DB_NAME=%s\n", c.DBName)
	fmt.Fprintf(&b, "    OPENSEARCH_ENDPOINT=%s\n", c.OpenSearchEndpoint)
	fmt.Fprintf(&b, "    LLM_PROVIDER=%s\n", c.LLMProvider)
	fmt.Fprintf(&b, "    BEDROCK_MODEL_ID=%s\n", c.ModelID)
	fmt.Fprintf(&b, "    S3_BUCKET=%s\n", c.S3Bucket)
	b.WriteString(")")
	return b.String()
}
