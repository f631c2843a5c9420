package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every known key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for key := range defaults {
		name := strings.ToUpper(key)
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := load("")
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", cfg.AWSRegion)
	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, "triage_db", cfg.DBName)
	assert.Equal(t, "prefer", cfg.DBSSLMode)
	assert.Equal(t, "incidents-embeddings", cfg.OpenSearchIndex)
	assert.Equal(t, "bedrock", cfg.LLMProvider)
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", cfg.ModelID)
	assert.Equal(t, "amazon.titan-embed-text-v2:0", cfg.EmbeddingModelID)
	assert.InDelta(t, 0.8, cfg.ConfidenceThreshold, 1e-9)
	assert.Equal(t, 5, cfg.MaxSimilarIncidents)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 2000, cfg.MaxTokens)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.True(t, cfg.StructuredLogging)
	assert.False(t, cfg.EmbeddingsEnabled)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "logs", cfg.LogDir)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.65")
	t.Setenv("EMBEDDINGS_ENABLED", "true")
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DB_SSLMODE", "Disable")

	cfg, err := load("")
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.DBHost)
	assert.Equal(t, 6543, cfg.DBPort)
	assert.InDelta(t, 0.65, cfg.ConfidenceThreshold, 1e-9)
	assert.True(t, cfg.EmbeddingsEnabled)
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "disable", cfg.DBSSLMode)
}

func TestLoad_DotEnvBelowEnvironment(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("DB_HOST=from-file\nDB_NAME=file_db\n"), 0o600))
	t.Setenv("DB_HOST", "from-env")

	cfg, err := load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.DBHost)
	assert.Equal(t, "file_db", cfg.DBName)
}

func TestLoad_MissingDotEnvIsIgnored(t *testing.T) {
	clearEnv(t)

	cfg, err := load(filepath.Join(t.TempDir(), "nope.env"))
	require.NoError(t, err)
	assert.Equal(t, "triage_db", cfg.DBName)
}

func TestValidate_ReportsAllMissingFields(t *testing.T) {
	cfg := &Config{}

	err := cfg.Validate()
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, []string{"DB_HOST", "DB_USER", "DB_PASSWORD", "OPENSEARCH_ENDPOINT", "S3_BUCKET"}, cfgErr.Missing)
	assert.Contains(t, err.Error(), "DB_HOST, DB_USER, DB_PASSWORD, OPENSEARCH_ENDPOINT, S3_BUCKET")
}

func TestValidate_PartiallyMissing(t *testing.T) {
	cfg := &Config{DBHost: "h", DBUser: "u", DBPassword: "p"}

	var cfgErr *ConfigurationError
	require.ErrorAs(t, cfg.Validate(), &cfgErr)
	assert.Equal(t, []string{"OPENSEARCH_ENDPOINT", "S3_BUCKET"}, cfgErr.Missing)
}

func TestValidate_Complete(t *testing.T) {
	cfg := &Config{
		DBHost:             "h",
		DBUser:             "u",
		DBPassword:         "p",
		OpenSearchEndpoint: "https://search",
		S3Bucket:           "bucket",
	}
	assert.NoError(t, cfg.Validate())
}

func TestEnsureDirs_Idempotent(t *testing.T) {
	root := t.TempDir()
	cfg := &Config{
		DataDir: filepath.Join(root, "data", "nested"),
		LogDir:  filepath.Join(root, "logs"),
	}

	require.NoError(t, cfg.EnsureDirs())
	require.NoError(t, cfg.EnsureDirs())

	assert.DirExists(t, cfg.DataDir)
	assert.DirExists(t, cfg.LogDir)
}

func TestDatabaseURL_EscapesCredentials(t *testing.T) {
	cfg := &Config{DBHost: "db", DBPort: 5432, DBName: "triage_db", DBUser: "admin", DBPassword: "p@ss/word"}

	assert.Equal(t, "postgres://admin:p%40ss%2Fword@db:5432/triage_db?sslmode=prefer", cfg.DatabaseURL())
}

func TestDatabaseURL_SSLMode(t *testing.T) {
	tests := []struct {
		mode string
		want string
	}{
		{"", "sslmode=prefer"},
		{"prefer", "sslmode=prefer"},
		{"disable", "sslmode=disable"},
		{"verify-full", "sslmode=verify-full"},
	}
	for _, tt := range tests {
		cfg := &Config{DBHost: "db", DBPort: 5432, DBName: "triage_db", DBUser: "u", DBPassword: "p", DBSSLMode: tt.mode}
		assert.True(t, strings.HasSuffix(cfg.DatabaseURL(), "?"+tt.want), "mode %q: %s", tt.mode, cfg.DatabaseURL())
	}
}

func TestString_HidesSecrets(t *testing.T) {
	cfg := &Config{DBHost: "db", DBPassword: "hunter2", OpenAIAPIKey: "sk-secret", AnthropicAPIKey: "ant-secret"}

	s := cfg.String()
	assert.Contains(t, s, "DB_HOST=db")
	assert.NotContains(t, s, "hunter2")
	assert.NotContains(t, s, "sk-secret")
	assert.NotContains(t, s, "ant-secret")
}
