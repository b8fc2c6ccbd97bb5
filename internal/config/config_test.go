package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable LoadFromEnv reads so the host
// environment cannot leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "CORS_ALLOWED_ORIGINS", "STORAGE_TYPE", "DATABASE_URL", "DYNAMODB_TABLE",
		"AWS_REGION", "IMAGE_BUCKET", "IMAGE_CDN_DOMAIN", "IMAGE_ENDPOINT", "IMAGE_ACCESS_KEY",
		"IMAGE_SECRET_KEY", "CLOUDFRONT_DISTRIBUTION_ID", "EMAIL_USER", "EMAIL_PASS", "SMTP_HOST",
		"SMTP_PORT", "MAIL_SECONDARY_PROVIDER", "MAIL_SECONDARY_API_KEY", "MAILGUN_DOMAIN",
		"AWS_SES_ACCESS_KEY", "AWS_SES_SECRET_KEY", "REDIS_URL", "LOG_LEVEL", "MAIL_OPERATOR_ADDRESS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9090
  host: "0.0.0.0"

cors:
  allowed_origins:
    - "https://example.dev"
    - "http://localhost:3000"

storage:
  type: "postgres"
  database_url: "postgres://localhost/portfolio"

images:
  bucket: "portfolio-images"
  cdn_domain: "cdn.example.dev"

mail:
  smtp:
    host: "smtp.example.dev"
    port: 465
    username: "me@example.dev"
    password: "app-password"
    greeting_timeout_seconds: 5
  secondary:
    provider: "mailgun"
    api_key: "key-123"
    domain: "mg.example.dev"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, []string{"https://example.dev", "http://localhost:3000"}, cfg.CORS.AllowedOrigins)

	assert.Equal(t, StoragePostgres, cfg.Storage.Type)
	assert.Equal(t, "postgres://localhost/portfolio", cfg.Storage.DatabaseURL)

	assert.Equal(t, "portfolio-images", cfg.Images.Bucket)
	assert.Equal(t, "cdn.example.dev", cfg.Images.CDNDomain)

	assert.Equal(t, "smtp.example.dev", cfg.Mail.SMTP.Host)
	assert.Equal(t, 465, cfg.Mail.SMTP.Port)
	assert.Equal(t, "me@example.dev", cfg.Mail.OperatorAddress)
	assert.Equal(t, 5, cfg.Mail.SMTP.GreetingTimeoutSeconds)
	assert.Equal(t, 30, cfg.Mail.SMTP.ConnectTimeoutSeconds)

	assert.True(t, cfg.Mail.Secondary.Enabled())
	assert.Equal(t, "https://api.mailgun.net", cfg.Mail.Secondary.BaseURL)

	require.NoError(t, cfg.Validate())
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("server: {}\n"), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, []string{"https://abubakri-portfolio.vercel.app"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, StorageDynamoDB, cfg.Storage.Type)
	assert.Equal(t, "portfolio-projects", cfg.Storage.DynamoDBTable)
	assert.Equal(t, "projects", cfg.Images.Folder)
	assert.Equal(t, 300, cfg.Images.ThumbnailSize)
	assert.Equal(t, int64(10<<20), cfg.Images.MaxUploadBytes())
	assert.Equal(t, "smtp.gmail.com", cfg.Mail.SMTP.Host)
	assert.Equal(t, 587, cfg.Mail.SMTP.Port)
	assert.Equal(t, 30, cfg.Mail.SMTP.ConnectTimeoutSeconds)
	assert.Equal(t, 15, cfg.Mail.SMTP.GreetingTimeoutSeconds)
	assert.Equal(t, 30, cfg.Mail.SMTP.ResponseTimeoutSeconds)
	assert.False(t, cfg.Mail.Secondary.Enabled())
	assert.Equal(t, 5, cfg.Redis.ContactLimit)
	assert.Equal(t, 600, cfg.Redis.ContactWindowSeconds)
	assert.True(t, cfg.Logging.RedactEnabled())
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0644)
	require.NoError(t, err)

	_, err = Load(configPath)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
mail:
  smtp:
    username: "file@example.dev"
    password: "file-password"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Setenv("PORT", "3000")
	t.Setenv("EMAIL_USER", "env@example.dev")
	t.Setenv("EMAIL_PASS", "env-password")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.dev, https://b.dev")
	t.Setenv("MAIL_SECONDARY_PROVIDER", "SendGrid")
	t.Setenv("MAIL_SECONDARY_API_KEY", "SG.key")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := LoadFromEnv(configPath)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "env@example.dev", cfg.Mail.SMTP.Username)
	assert.Equal(t, "env-password", cfg.Mail.SMTP.Password)
	assert.Equal(t, "env@example.dev", cfg.Mail.OperatorAddress)
	assert.Equal(t, []string{"https://a.dev", "https://b.dev"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, ProviderSendGrid, cfg.Mail.Secondary.Provider)
	assert.Equal(t, "https://api.sendgrid.com", cfg.Mail.Secondary.BaseURL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
}

func TestLoadFromEnvWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_TYPE", "memory")
	t.Setenv("IMAGE_BUCKET", "bucket")
	t.Setenv("EMAIL_USER", "me@example.dev")
	t.Setenv("EMAIL_PASS", "secret")

	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage.Type)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "me@example.dev", cfg.Mail.OperatorAddress)
	assert.NoError(t, cfg.Validate())
}

func TestValidateReportsEveryMissingSecret(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Storage.Type = StoragePostgres
	cfg.Mail.Secondary.Provider = ProviderMailgun

	err := cfg.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Problems, 6)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "IMAGE_BUCKET")
	assert.Contains(t, err.Error(), "EMAIL_USER")
	assert.Contains(t, err.Error(), "EMAIL_PASS")
	assert.Contains(t, err.Error(), "MAILGUN_DOMAIN")
}

func TestValidateRejectsUnknownBackends(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Storage.Type = "mongo"
	cfg.Images.Bucket = "b"
	cfg.Mail.SMTP.Username = "u@example.dev"
	cfg.Mail.SMTP.Password = "p"
	cfg.Mail.Secondary.Provider = "postmark"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `storage.type "mongo"`)
	assert.Contains(t, err.Error(), `mail.secondary.provider "postmark"`)
}

func TestServerAddr(t *testing.T) {
	t.Setenv("ECS_CONTAINER_METADATA_URI", "")
	t.Setenv("AWS_EXECUTION_ENV", "")
	t.Setenv("SERVER_HOST", "")

	cfg := ServerConfig{Port: 8080, Host: "localhost"}
	assert.Equal(t, "localhost:8080", cfg.Addr())

	t.Setenv("AWS_EXECUTION_ENV", "AWS_ECS_FARGATE")
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}
