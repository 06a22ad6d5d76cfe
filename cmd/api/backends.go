package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/eventpass/server/internal/auth"
	"github.com/eventpass/server/internal/config"
	"github.com/eventpass/server/internal/db"
	"github.com/eventpass/server/internal/http/handlers"
	"github.com/eventpass/server/internal/logger"
	"github.com/eventpass/server/internal/model"
	"github.com/eventpass/server/internal/notify"
	"github.com/eventpass/server/internal/repo"
)

const sweepInterval = 5 * time.Minute

// expirer is implemented by challenge stores without native key expiry.
type expirer interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// backends holds the storage clients selected by configuration.
type backends struct {
	accounts   repo.AccountRepo
	challenges repo.ChallengeStore
	sweeper    expirer
	pingers    map[string]handlers.Pinger
	// redis is set whenever REDIS_URL is configured; it also backs the shared rate limiter.
	redis *redis.Client

	awsCfg  *aws.Config
	dynamo  *dynamodb.Client
	closers []func() error
}

func openBackends(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *backends, err error) {
	b := &backends{pingers: make(map[string]handlers.Pinger)}
	defer func() {
		if err != nil {
			b.Close()
		}
	}()

	var database *sql.DB
	if cfg.StoreBackend == config.BackendPostgres || cfg.ChallengeBackend() == config.BackendPostgres {
		database, err = db.Open(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, database.Close)
		if err := db.Migrate(database); err != nil {
			return nil, err
		}
		b.pingers["postgres"] = database
	}

	if cfg.RedisURL != "" {
		if err := b.openRedis(ctx, cfg.RedisURL); err != nil {
			return nil, err
		}
	}

	switch cfg.StoreBackend {
	case config.BackendMemory:
		accounts, err := loadMemoryAccounts(cfg.MemoryAccountsFile)
		if err != nil {
			return nil, err
		}
		if len(accounts) == 0 {
			log.Warn("using in-memory account store with no accounts; set MEMORY_ACCOUNTS_FILE to seed it")
		} else {
			log.Info("seeded in-memory account store", zap.Int("accounts", len(accounts)))
		}
		b.accounts = repo.NewMemoryAccountRepo(accounts...)
	case config.BackendPostgres:
		b.accounts = repo.NewAccountRepo(database)
	case config.BackendDynamoDB:
		client, err := b.dynamoClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		b.accounts = repo.NewDynamoAccountRepo(client, cfg.DynamoTable)
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}

	switch cfg.ChallengeBackend() {
	case config.BackendMemory:
		store := repo.NewMemoryChallengeStore()
		b.challenges, b.sweeper = store, store
	case config.BackendPostgres:
		store := repo.NewChallengeRepo(database)
		b.challenges, b.sweeper = store, store
	case config.BackendDynamoDB:
		client, err := b.dynamoClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		b.challenges = repo.NewDynamoChallengeStore(client, cfg.DynamoTable)
	case config.BackendRedis:
		if b.redis == nil {
			return nil, errors.New("REDIS_URL is required when CHALLENGE_STORE=redis")
		}
		b.challenges = repo.NewRedisChallengeStore(b.redis)
	default:
		return nil, fmt.Errorf("unsupported challenge store %q", cfg.ChallengeBackend())
	}

	return b, nil
}

// loadMemoryAccounts reads the optional seed file; an empty path yields no accounts.
func loadMemoryAccounts(path string) ([]model.Account, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open MEMORY_ACCOUNTS_FILE: %w", err)
	}
	defer f.Close()
	return repo.LoadSeedAccounts(f)
}

func (b *backends) openRedis(ctx context.Context, redisURL string) error {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	b.closers = append(b.closers, client.Close)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	b.redis = client
	b.pingers["redis"] = handlers.PingFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	return nil
}

// awsConfig loads the shared AWS configuration once.
func (b *backends) awsConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	if b.awsCfg != nil {
		return *b.awsCfg, nil
	}
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	b.awsCfg = &awsCfg
	return awsCfg, nil
}

func (b *backends) dynamoClient(ctx context.Context, cfg *config.Config) (*dynamodb.Client, error) {
	if b.dynamo != nil {
		return b.dynamo, nil
	}
	awsCfg, err := b.awsConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	b.dynamo = dynamodb.NewFromConfig(awsCfg)
	return b.dynamo, nil
}

// Close releases every opened client in reverse order.
func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		_ = b.closers[i]()
	}
	b.closers = nil
}

func newEmailChannel(ctx context.Context, cfg *config.Config, b *backends, log *zap.Logger) (auth.MandatoryChannel, error) {
	log = logger.WithComponent(log, "email")
	switch cfg.EmailDriver {
	case config.EmailDriverLog:
		log.Warn("EMAIL_DRIVER=log: magic links are written to the log instead of being sent")
		return notify.NewLogMailer(log), nil
	case config.EmailDriverSES:
		awsCfg, err := b.awsConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return notify.NewSESMailer(sesv2.NewFromConfig(awsCfg), cfg.EmailFrom, log), nil
	default:
		return nil, fmt.Errorf("unsupported email driver %q", cfg.EmailDriver)
	}
}

// newWhatsAppChannel returns nil when WhatsApp delivery is disabled.
func newWhatsAppChannel(ctx context.Context, cfg *config.Config, b *backends, log *zap.Logger) (auth.BestEffortChannel, error) {
	if !cfg.WhatsAppEnabled {
		return nil, nil
	}
	log = logger.WithComponent(log, "whatsapp")

	var creds notify.CredentialsProvider
	if cfg.TwilioSecretID != "" {
		awsCfg, err := b.awsConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		creds = notify.NewSecretsManagerCredentials(secretsmanager.NewFromConfig(awsCfg), cfg.TwilioSecretID)
	} else {
		creds = notify.StaticCredentials{AccountSID: cfg.TwilioAccountSID, AuthToken: cfg.TwilioAuthToken}
	}
	return notify.NewTwilioWhatsApp(creds, cfg.TwilioWhatsAppFrom, cfg.DefaultPhoneRegion, log), nil
}

// runSweeper deletes expired challenge records until ctx is done.
func runSweeper(ctx context.Context, store expirer, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.DeleteExpired(ctx, time.Now())
			switch {
			case errors.Is(err, context.Canceled):
				return
			case err != nil:
				log.Warn("challenge sweep failed", zap.Error(err))
			case n > 0:
				log.Info("expired challenges removed", zap.Int64("count", n))
			}
		}
	}
}
