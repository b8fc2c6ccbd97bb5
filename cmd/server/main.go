package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/portfolio-api/internal/api"
	"github.com/ignite/portfolio-api/internal/config"
	"github.com/ignite/portfolio-api/internal/imagestore"
	"github.com/ignite/portfolio-api/internal/mailer"
	"github.com/ignite/portfolio-api/internal/pkg/logger"
	"github.com/ignite/portfolio-api/internal/ratelimit"
	"github.com/ignite/portfolio-api/internal/repository/dynamo"
	"github.com/ignite/portfolio-api/internal/repository/memory"
	"github.com/ignite/portfolio-api/internal/repository/postgres"
	"github.com/ignite/portfolio-api/internal/service/project"
)

func fatal(msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("address %s is already in use: %w", addr, err)
	}
	return ln.Close()
}

// loadAWSConfig builds an SDK config for region. Static keys win over the
// default credential chain when both are set.
func loadAWSConfig(ctx context.Context, region, profile, accessKey, secretKey string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	} else if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return cfg, nil
}

// openRepository builds the project repository selected by storage.type.
// The returned *sql.DB is non-nil only for postgres.
func openRepository(ctx context.Context, cfg config.StorageConfig) (project.Repository, *sql.DB, error) {
	switch cfg.Type {
	case config.StorageMemory:
		logger.Warn("using in-memory project storage; data is lost on restart")
		return memory.NewProjectRepo(), nil, nil

	case config.StoragePostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(3)
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetConnMaxIdleTime(30 * time.Second)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		return postgres.NewProjectRepo(db), db, nil

	default:
		awsCfg, err := loadAWSConfig(ctx, cfg.AWSRegion, cfg.GetAWSProfile(), "", "")
		if err != nil {
			return nil, nil, err
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		})
		return dynamo.NewProjectRepo(client, cfg.DynamoDBTable), nil, nil
	}
}

func openImageStore(ctx context.Context, cfg *config.Config) (*imagestore.Store, error) {
	awsCfg, err := loadAWSConfig(ctx, cfg.Images.Region, cfg.Storage.GetAWSProfile(), cfg.Images.AccessKey, cfg.Images.SecretKey)
	if err != nil {
		return nil, err
	}
	storeCfg := imagestore.Config{
		Bucket:         cfg.Images.Bucket,
		Region:         cfg.Images.Region,
		Folder:         cfg.Images.Folder,
		CDNDomain:      cfg.Images.CDNDomain,
		Endpoint:       cfg.Images.Endpoint,
		DistributionID: cfg.Images.CloudFrontDistributionID,
		ThumbnailSize:  cfg.Images.ThumbnailSize,
		MaxBytes:       cfg.Images.MaxUploadBytes(),
	}
	return imagestore.NewFromConfig(awsCfg, storeCfg), nil
}

// newSecondaryTransport builds the HTTP-API fallback. It returns a nil
// interface, never a typed nil, when no provider is configured.
func newSecondaryTransport(ctx context.Context, cfg config.SecondaryMailConfig) (mailer.Transport, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	client := &http.Client{Timeout: cfg.Timeout()}

	switch cfg.Provider {
	case config.ProviderMailgun:
		return mailer.NewMailgunTransport(mailer.MailgunConfig{
			BaseURL: cfg.BaseURL,
			Domain:  cfg.Domain,
			APIKey:  cfg.APIKey,
		}, client), nil
	case config.ProviderSendGrid:
		return mailer.NewSendGridTransport(mailer.SendGridConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
		}, client), nil
	case config.ProviderSES:
		awsCfg, err := loadAWSConfig(ctx, cfg.Region, "", cfg.AccessKey, cfg.SecretKey)
		if err != nil {
			return nil, err
		}
		awsCfg.HTTPClient = client
		return mailer.NewSESTransport(sesv2.NewFromConfig(awsCfg), cfg.Timeout()), nil
	default:
		return nil, fmt.Errorf("unknown secondary mail provider %q", cfg.Provider)
	}
}

func newDeliverer(ctx context.Context, cfg config.MailConfig) (*mailer.Deliverer, error) {
	primary := mailer.NewSMTPTransport(mailer.SMTPConfig{
		Host:            cfg.SMTP.Host,
		Port:            cfg.SMTP.Port,
		Username:        cfg.SMTP.Username,
		Password:        cfg.SMTP.Password,
		ConnectTimeout:  cfg.SMTP.ConnectTimeout(),
		GreetingTimeout: cfg.SMTP.GreetingTimeout(),
		ResponseTimeout: cfg.SMTP.ResponseTimeout(),
		TLSSkipVerify:   cfg.SMTP.TLSSkipVerify,
	})

	secondary, err := newSecondaryTransport(ctx, cfg.Secondary)
	if err != nil {
		return nil, err
	}
	return mailer.NewDeliverer(cfg.OperatorAddress, primary, secondary)
}

// openRedis connects when a URL is configured. A nil client disables
// rate limiting.
func openRedis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		fatal("failed to load config", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.RedactEnabled())

	if err := cfg.Validate(); err != nil {
		fatal("configuration is incomplete", err)
	}

	addr := cfg.Server.Addr()
	if err := checkPortAvailable(addr); err != nil {
		fatal("pre-flight check failed", err)
	}

	ctx := context.Background()

	repo, db, err := openRepository(ctx, cfg.Storage)
	if err != nil {
		fatal("failed to initialize project storage", err)
	}

	images, err := openImageStore(ctx, cfg)
	if err != nil {
		fatal("failed to initialize image store", err)
	}

	deliverer, err := newDeliverer(ctx, cfg.Mail)
	if err != nil {
		fatal("failed to initialize mail delivery", err)
	}
	logger.Info("mail delivery ready",
		"smtp_host", cfg.Mail.SMTP.Host, "secondary", deliverer.HasSecondary(), "secondary_provider", cfg.Mail.Secondary.Provider)

	redisClient, err := openRedis(ctx, cfg.Redis.URL)
	if err != nil {
		// The contact form still works without throttling.
		logger.Warn("rate limiting disabled", "error", err)
	}

	var limiter api.Limiter
	if redisClient != nil {
		limiter = ratelimit.New(redisClient, "contact", cfg.Redis.ContactLimit, cfg.Redis.ContactWindow())
	}

	projects := project.NewService(repo, images, cfg.Images.Folder)
	handlers := api.NewHandlers(projects, deliverer, limiter, cfg.Images.MaxUploadBytes())
	health := api.NewHealthChecker(repo, redisClient, images)
	server := api.NewServer(cfg.Server, handlers, health, cfg.CORS.AllowedOrigins)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", "addr", addr, "storage", cfg.Storage.Type,
			"mail_secondary", cfg.Mail.Secondary.Provider, "rate_limit", redisClient != nil)
		if err := server.ListenAndServe(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server error", err)
		}
	}()

	<-done
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close error", "error", err)
		}
	}
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Warn("postgres close error", "error", err)
		}
	}

	logger.Info("server stopped")
}
