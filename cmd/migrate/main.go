package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/portfolio-api/internal/config"
	"github.com/ignite/portfolio-api/internal/pkg/distlock"
	"github.com/ignite/portfolio-api/internal/pkg/logger"
	"github.com/ignite/portfolio-api/internal/repository/dynamo"
)

const (
	lockKey = "portfolio-api:migrate"
	lockTTL = 5 * time.Minute
)

func fatal(msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	dir := flag.String("dir", "migrations", "directory of .sql migrations (postgres)")
	listOnly := flag.Bool("list", false, "list existing portfolio tables and exit (postgres)")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		fatal("failed to load config", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch cfg.Storage.Type {
	case config.StoragePostgres:
		if cfg.Storage.DatabaseURL == "" {
			fatal("DATABASE_URL is required", nil)
		}
		if err := migratePostgres(ctx, cfg.Storage.DatabaseURL, cfg.Redis.URL, *dir, *listOnly); err != nil {
			fatal("postgres migration failed", err)
		}
	case config.StorageDynamoDB:
		if err := ensureDynamoTable(ctx, cfg.Storage, cfg.Redis.URL); err != nil {
			fatal("dynamodb provisioning failed", err)
		}
	case config.StorageMemory:
		logger.Info("memory storage needs no migration")
	default:
		fatal("unknown storage type", fmt.Errorf("%q", cfg.Storage.Type))
	}
}

// lockRedis returns a client for the migration lock, or nil when no
// redis is configured.
func lockRedis(url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// withLock runs fn while holding the migration lock.
func withLock(ctx context.Context, lock distlock.DistLock, fn func() error) error {
	logger.Info("waiting for migration lock", "key", lockKey)
	if err := distlock.Wait(ctx, lock, 2*time.Second); err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			logger.Warn("migration lock release failed", "error", err)
		}
	}()
	return fn()
}

func ensureDynamoTable(ctx context.Context, cfg config.StorageConfig, redisURL string) error {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if p := cfg.GetAWSProfile(); p != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(p))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	provision := func() error {
		created, err := dynamo.NewProjectRepo(client, cfg.DynamoDBTable).EnsureTable(ctx)
		if err != nil {
			return err
		}
		if created {
			logger.Info("dynamodb table created", "table", cfg.DynamoDBTable)
		} else {
			logger.Info("dynamodb table already exists", "table", cfg.DynamoDBTable)
		}
		return nil
	}

	// CreateTable is idempotent on its own; the lock only matters when
	// several deploys race.
	rc, err := lockRedis(redisURL)
	if err != nil {
		return err
	}
	if rc == nil {
		return provision()
	}
	defer rc.Close()
	return withLock(ctx, distlock.NewRedisLock(rc, lockKey, lockTTL), provision)
}

func migratePostgres(ctx context.Context, dsn, redisURL, dir string, listOnly bool) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	logger.Info("connected to database")

	if listOnly {
		return listTables(ctx, db)
	}

	rc, err := lockRedis(redisURL)
	if err != nil {
		return err
	}
	// Keep the interface nil, not a typed nil, when redis is absent.
	var cmd redis.Cmdable
	if rc != nil {
		defer rc.Close()
		cmd = rc
	}
	lock := distlock.NewLock(cmd, db, lockKey, lockTTL)
	return withLock(ctx, lock, func() error { return applyMigrations(ctx, db, dir) })
}

func listTables(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "SELECT tablename FROM pg_tables WHERE schemaname='public' AND tablename LIKE 'portfolio_%' ORDER BY tablename")
	if err != nil {
		return err
	}
	defer rows.Close()
	n := 0
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return err
		}
		fmt.Println(" ", t)
		n++
	}
	fmt.Printf("Total: %d tables\n", n)
	return rows.Err()
}

func applyMigrations(ctx context.Context, db *sql.DB, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	var okCount, errCount int
	for _, f := range files {
		path := filepath.Join(dir, f)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		content := string(data)
		if strings.TrimSpace(content) == "" {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			logger.Error("begin failed", "file", f, "error", err)
			errCount++
			continue
		}
		if _, err := tx.ExecContext(ctx, content); err != nil {
			tx.Rollback()
			logger.Error("migration failed", "file", f, "error", err)
			errCount++
			continue
		}
		if err := tx.Commit(); err != nil {
			logger.Error("commit failed", "file", f, "error", err)
			errCount++
			continue
		}
		logger.Info("migration applied", "file", f)
		okCount++
	}

	logger.Info("migrations complete", "ok", okCount, "errors", errCount)
	if errCount > 0 {
		return fmt.Errorf("%d migrations failed", errCount)
	}
	return nil
}
