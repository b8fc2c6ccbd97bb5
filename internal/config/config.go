package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	CORS    CORSConfig    `yaml:"cors"`
	Storage StorageConfig `yaml:"storage"`
	Images  ImagesConfig  `yaml:"images"`
	Mail    MailConfig    `yaml:"mail"`
	Redis   RedisConfig   `yaml:"redis"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port                   int    `yaml:"port"`
	Host                   string `yaml:"host"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr returns host:port for http.Server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// ShutdownTimeout returns the graceful shutdown budget.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Storage backends.
const (
	StorageDynamoDB = "dynamodb"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// StorageConfig selects and configures the project repository backend.
type StorageConfig struct {
	Type          string `yaml:"type"`
	DatabaseURL   string `yaml:"database_url"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	AWSRegion     string `yaml:"aws_region"`
	AWSProfile    string `yaml:"aws_profile"`
	// Endpoint overrides the DynamoDB endpoint (dynamodb-local).
	Endpoint string `yaml:"endpoint"`
}

// GetAWSProfile returns the AWS profile, preferring AWS_PROFILE env.
func (c StorageConfig) GetAWSProfile() string {
	if p := os.Getenv("AWS_PROFILE"); p != "" {
		return p
	}
	return c.AWSProfile
}

// ImagesConfig configures the S3 image store.
type ImagesConfig struct {
	Bucket                   string `yaml:"bucket"`
	Region                   string `yaml:"region"`
	Folder                   string `yaml:"folder"`
	CDNDomain                string `yaml:"cdn_domain"`
	Endpoint                 string `yaml:"endpoint"`
	AccessKey                string `yaml:"access_key"`
	SecretKey                string `yaml:"secret_key"`
	CloudFrontDistributionID string `yaml:"cloudfront_distribution_id"`
	ThumbnailSize            int    `yaml:"thumbnail_size"`
	MaxUploadMB              int    `yaml:"max_upload_mb"`
}

// MaxUploadBytes returns the upload ceiling in bytes.
func (c ImagesConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// MailConfig holds the contact-form delivery settings.
type MailConfig struct {
	// OperatorAddress receives contact messages. Defaults to the SMTP username.
	OperatorAddress string              `yaml:"operator_address"`
	SMTP            SMTPConfig          `yaml:"smtp"`
	Secondary       SecondaryMailConfig `yaml:"secondary"`
}

// SMTPConfig configures the primary submission transport.
type SMTPConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	Username               string `yaml:"username"`
	Password               string `yaml:"password"`
	ConnectTimeoutSeconds  int    `yaml:"connect_timeout_seconds"`
	GreetingTimeoutSeconds int    `yaml:"greeting_timeout_seconds"`
	ResponseTimeoutSeconds int    `yaml:"response_timeout_seconds"`
	TLSSkipVerify          bool   `yaml:"tls_skip_verify"`
}

// ConnectTimeout returns the dial timeout.
func (c SMTPConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// GreetingTimeout returns the server banner timeout.
func (c SMTPConfig) GreetingTimeout() time.Duration {
	return time.Duration(c.GreetingTimeoutSeconds) * time.Second
}

// ResponseTimeout returns the per-command timeout.
func (c SMTPConfig) ResponseTimeout() time.Duration {
	return time.Duration(c.ResponseTimeoutSeconds) * time.Second
}

// Secondary mail providers.
const (
	ProviderMailgun  = "mailgun"
	ProviderSendGrid = "sendgrid"
	ProviderSES      = "ses"
)

// SecondaryMailConfig configures the optional HTTP-API fallback transport.
// An empty Provider disables the fallback.
type SecondaryMailConfig struct {
	Provider       string `yaml:"provider"`
	APIKey         string `yaml:"api_key"`
	Domain         string `yaml:"domain"`
	BaseURL        string `yaml:"base_url"`
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Enabled reports whether a secondary provider is configured.
func (c SecondaryMailConfig) Enabled() bool {
	return c.Provider != ""
}

// Timeout returns the HTTP client timeout for the provider.
func (c SecondaryMailConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RedisConfig configures the contact-form rate limiter.
// An empty URL disables rate limiting.
type RedisConfig struct {
	URL                  string `yaml:"url"`
	ContactLimit         int    `yaml:"contact_limit"`
	ContactWindowSeconds int    `yaml:"contact_window_seconds"`
}

// ContactWindow returns the rate-limit window.
func (c RedisConfig) ContactWindow() time.Duration {
	return time.Duration(c.ContactWindowSeconds) * time.Second
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// RedactEnabled defaults to true when unset.
func (c LoggingConfig) RedactEnabled() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if cfg.Mail.OperatorAddress == "" {
		cfg.Mail.OperatorAddress = cfg.Mail.SMTP.Username
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.ShutdownTimeoutSeconds == 0 {
		cfg.Server.ShutdownTimeoutSeconds = 10
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"https://abubakri-portfolio.vercel.app"}
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = StorageDynamoDB
	}
	if cfg.Storage.DynamoDBTable == "" {
		cfg.Storage.DynamoDBTable = "portfolio-projects"
	}
	if cfg.Storage.AWSRegion == "" {
		cfg.Storage.AWSRegion = "us-east-1"
	}
	if cfg.Images.Region == "" {
		cfg.Images.Region = cfg.Storage.AWSRegion
	}
	if cfg.Images.Folder == "" {
		cfg.Images.Folder = "projects"
	}
	if cfg.Images.ThumbnailSize == 0 {
		cfg.Images.ThumbnailSize = 300
	}
	if cfg.Images.MaxUploadMB == 0 {
		cfg.Images.MaxUploadMB = 10
	}
	if cfg.Mail.SMTP.Host == "" {
		cfg.Mail.SMTP.Host = "smtp.gmail.com"
	}
	if cfg.Mail.SMTP.Port == 0 {
		cfg.Mail.SMTP.Port = 587
	}
	if cfg.Mail.SMTP.ConnectTimeoutSeconds == 0 {
		cfg.Mail.SMTP.ConnectTimeoutSeconds = 30
	}
	if cfg.Mail.SMTP.GreetingTimeoutSeconds == 0 {
		cfg.Mail.SMTP.GreetingTimeoutSeconds = 15
	}
	if cfg.Mail.SMTP.ResponseTimeoutSeconds == 0 {
		cfg.Mail.SMTP.ResponseTimeoutSeconds = 30
	}
	if cfg.Mail.Secondary.TimeoutSeconds == 0 {
		cfg.Mail.Secondary.TimeoutSeconds = 30
	}
	if cfg.Mail.Secondary.Region == "" {
		cfg.Mail.Secondary.Region = cfg.Storage.AWSRegion
	}
	if cfg.Mail.Secondary.BaseURL == "" {
		switch cfg.Mail.Secondary.Provider {
		case ProviderMailgun:
			cfg.Mail.Secondary.BaseURL = "https://api.mailgun.net"
		case ProviderSendGrid:
			cfg.Mail.Secondary.BaseURL = "https://api.sendgrid.com"
		}
	}
	if cfg.Redis.ContactLimit == 0 {
		cfg.Redis.ContactLimit = 5
	}
	if cfg.Redis.ContactWindowSeconds == 0 {
		cfg.Redis.ContactWindowSeconds = 600
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// A missing config file is not an error; env-only deployments start
// from defaults.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = &Config{}
	} else if err != nil {
		return nil, err
	}
	operatorFromFile := cfg.Mail.OperatorAddress != "" && cfg.Mail.OperatorAddress != cfg.Mail.SMTP.Username

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORS.AllowedOrigins = splitList(v)
	}

	if v := os.Getenv("STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.DatabaseURL = v
	}
	if v := os.Getenv("DYNAMODB_TABLE"); v != "" {
		cfg.Storage.DynamoDBTable = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Storage.AWSRegion = v
		cfg.Images.Region = v
	}

	if v := os.Getenv("IMAGE_BUCKET"); v != "" {
		cfg.Images.Bucket = v
	}
	if v := os.Getenv("IMAGE_CDN_DOMAIN"); v != "" {
		cfg.Images.CDNDomain = v
	}
	if v := os.Getenv("IMAGE_ENDPOINT"); v != "" {
		cfg.Images.Endpoint = v
	}
	if v := os.Getenv("IMAGE_ACCESS_KEY"); v != "" {
		cfg.Images.AccessKey = v
	}
	if v := os.Getenv("IMAGE_SECRET_KEY"); v != "" {
		cfg.Images.SecretKey = v
	}
	if v := os.Getenv("CLOUDFRONT_DISTRIBUTION_ID"); v != "" {
		cfg.Images.CloudFrontDistributionID = v
	}

	if v := os.Getenv("EMAIL_USER"); v != "" {
		cfg.Mail.SMTP.Username = v
	}
	if v := os.Getenv("EMAIL_PASS"); v != "" {
		cfg.Mail.SMTP.Password = v
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.Mail.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Mail.SMTP.Port = port
		}
	}
	if v := os.Getenv("MAIL_SECONDARY_PROVIDER"); v != "" {
		cfg.Mail.Secondary.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("MAIL_SECONDARY_API_KEY"); v != "" {
		cfg.Mail.Secondary.APIKey = v
	}
	if v := os.Getenv("MAILGUN_DOMAIN"); v != "" {
		cfg.Mail.Secondary.Domain = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Mail.Secondary.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Mail.Secondary.SecretKey = v
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Env overrides may have changed fields that other defaults derive from.
	cfg.applyDefaults()
	if !operatorFromFile {
		cfg.Mail.OperatorAddress = cfg.Mail.SMTP.Username
	}
	if v := os.Getenv("MAIL_OPERATOR_ADDRESS"); v != "" {
		cfg.Mail.OperatorAddress = v
	}

	return cfg, nil
}

// ValidationError lists every required setting that is missing or invalid.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate checks that every secret and setting the server needs at
// request time is present, so misconfiguration fails at startup.
func (cfg *Config) Validate() error {
	var problems []string
	missing := func(name string) {
		problems = append(problems, name+" is required")
	}

	switch cfg.Storage.Type {
	case StorageDynamoDB:
		if cfg.Storage.DynamoDBTable == "" {
			missing("storage.dynamodb_table")
		}
	case StoragePostgres:
		if cfg.Storage.DatabaseURL == "" {
			missing("storage.database_url (DATABASE_URL)")
		}
	case StorageMemory:
	default:
		problems = append(problems, fmt.Sprintf("storage.type %q is not one of dynamodb, postgres, memory", cfg.Storage.Type))
	}

	if cfg.Images.Bucket == "" {
		missing("images.bucket (IMAGE_BUCKET)")
	}
	if (cfg.Images.AccessKey == "") != (cfg.Images.SecretKey == "") {
		problems = append(problems, "images.access_key and images.secret_key must be set together")
	}

	if cfg.Mail.SMTP.Username == "" {
		missing("mail.smtp.username (EMAIL_USER)")
	}
	if cfg.Mail.SMTP.Password == "" {
		missing("mail.smtp.password (EMAIL_PASS)")
	}

	sec := cfg.Mail.Secondary
	switch sec.Provider {
	case "":
	case ProviderMailgun:
		if sec.APIKey == "" {
			missing("mail.secondary.api_key (MAIL_SECONDARY_API_KEY)")
		}
		if sec.Domain == "" {
			missing("mail.secondary.domain (MAILGUN_DOMAIN)")
		}
	case ProviderSendGrid:
		if sec.APIKey == "" {
			missing("mail.secondary.api_key (MAIL_SECONDARY_API_KEY)")
		}
	case ProviderSES:
		if (sec.AccessKey == "") != (sec.SecretKey == "") {
			problems = append(problems, "mail.secondary.access_key and mail.secondary.secret_key must be set together")
		}
	default:
		problems = append(problems, fmt.Sprintf("mail.secondary.provider %q is not one of mailgun, sendgrid, ses", sec.Provider))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
