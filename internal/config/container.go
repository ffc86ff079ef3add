package config

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	goredis "github.com/redis/go-redis/v9"

	"chat-assistant-server/internal/clock"
	"chat-assistant-server/internal/domain"
	"chat-assistant-server/internal/infra/postgres"
	infraredis "chat-assistant-server/internal/infra/redis"
	"chat-assistant-server/internal/infra/supabase"
	"chat-assistant-server/internal/metrics"
	"chat-assistant-server/internal/quota"
	"chat-assistant-server/internal/repository"
	"chat-assistant-server/internal/service"
	"chat-assistant-server/pkg/logger"
)

// Container holds all application dependencies
type Container struct {
	Config         domain.Config
	Logger         domain.Logger
	Metrics        *metrics.Metrics
	SupabaseClient domain.SupabaseClient

	AccountStore      domain.AccountStore
	MessageRepository domain.MessageRepository
	PaymentLedger     domain.PaymentLedger

	AuthService    domain.AuthService
	GateService    *service.GateService
	ChatService    *service.ChatService
	PremiumService *service.PremiumService
	ExpirySweeper  *service.ExpirySweeper

	db      *sql.DB
	closers []io.Closer
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context) (*Container, error) {
	config := NewConfig()
	appLogger := logger.NewLogger(config.GetLogLevel(), config.GetAppEnv())

	c := &Container{
		Config:         config,
		Logger:         appLogger,
		Metrics:        metrics.New(),
		SupabaseClient: supabase.NewSupabaseClient(config, appLogger),
	}

	if err := c.build(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) build(ctx context.Context) error {
	if c.needsSupabase() {
		if err := c.SupabaseClient.Initialize(); err != nil {
			return fmt.Errorf("initialize supabase: %w", err)
		}
	}

	var redisClient *goredis.Client
	if c.Config.GetStoreBackend() == "redis" || c.Config.GetHistoryBackend() == "redis" {
		client, err := infraredis.NewClient(c.Config.GetRedisURL(), c.Logger)
		if err != nil {
			return err
		}
		redisClient = client
		c.closers = append(c.closers, client)
	}

	store, err := c.newAccountStore(ctx, redisClient)
	if err != nil {
		return err
	}
	c.AccountStore = store

	ledger, err := c.newPaymentLedger(ctx, redisClient)
	if err != nil {
		return err
	}
	c.PaymentLedger = ledger

	history, err := c.newMessageRepository(redisClient)
	if err != nil {
		return err
	}
	c.MessageRepository = history

	sysClock := clock.System{}
	auth, err := c.newAuthService(sysClock)
	if err != nil {
		return err
	}
	c.AuthService = auth

	responder, err := c.newResponder(ctx)
	if err != nil {
		return err
	}
	if bucket := c.Config.GetImageBucket(); bucket != "" {
		if c.Config.GetSupabaseURL() == "" || c.Config.GetSupabaseKey() == "" {
			return fmt.Errorf("IMAGE_BUCKET requires SUPABASE_URL and a Supabase key")
		}
		storage := service.NewStorageService(c.Config.GetSupabaseURL(), c.Config.GetSupabaseKey(), bucket, c.Logger)
		responder = service.NewArchivingResponder(responder, storage, c.Logger)
	}

	policy := quota.NewPolicy(c.Config.GetDailyMessageLimit(), c.Config.GetQuotaLocation())
	c.GateService = service.NewGateService(store, sysClock, policy, c.Config.GetGateMaxAttempts(), c.Logger, c.Metrics)
	c.ChatService = service.NewChatService(c.GateService, responder, history, c.Logger, c.Metrics)
	c.PremiumService = service.NewPremiumService(c.GateService, c.newPaymentVerifier(), ledger, c.Config.GetPromoCodes(), c.Logger)
	c.ExpirySweeper = service.NewExpirySweeper(c.GateService, store, c.Logger, c.Metrics)

	c.Logger.Info("Container ready",
		"store", c.Config.GetStoreBackend(),
		"history", c.Config.GetHistoryBackend(),
		"auth", c.Config.GetAuthProvider(),
		"bot", c.Config.GetBotProvider(),
		"daily_limit", c.Config.GetDailyMessageLimit(),
		"quota_timezone", c.Config.GetQuotaLocation().String(),
	)
	return nil
}

func (c *Container) needsSupabase() bool {
	return c.Config.GetAuthProvider() == "supabase" ||
		c.Config.GetStoreBackend() == "supabase" ||
		c.Config.GetHistoryBackend() == "supabase"
}

func (c *Container) newAccountStore(ctx context.Context, redisClient *goredis.Client) (domain.AccountStore, error) {
	switch backend := c.Config.GetStoreBackend(); backend {
	case "memory":
		c.Logger.Warn("Using in-memory account store; entitlements are lost on restart")
		return repository.NewMemoryAccountRepository(), nil
	case "redis":
		return repository.NewRedisAccountRepository(redisClient, c.Logger), nil
	case "postgres":
		db, err := postgres.Open(ctx, c.Config.GetDatabaseURL())
		if err != nil {
			return nil, err
		}
		c.db = db
		c.closers = append(c.closers, db)
		repo := repository.NewPostgresAccountRepository(db, c.Logger)
		if err := repo.Migrate(ctx); err != nil {
			return nil, err
		}
		return repo, nil
	case "supabase":
		return repository.NewSupabaseAccountRepository(c.SupabaseClient, c.Logger), nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", backend)
	}
}

// newPaymentLedger keeps redeemed payment references next to the accounts.
func (c *Container) newPaymentLedger(ctx context.Context, redisClient *goredis.Client) (domain.PaymentLedger, error) {
	switch c.Config.GetStoreBackend() {
	case "redis":
		return repository.NewRedisPaymentLedger(redisClient, c.Logger), nil
	case "postgres":
		ledger := repository.NewPostgresPaymentLedger(c.db, c.Logger)
		if err := ledger.Migrate(ctx); err != nil {
			return nil, err
		}
		return ledger, nil
	case "supabase":
		return repository.NewSupabasePaymentLedger(c.SupabaseClient, c.Logger), nil
	default:
		return repository.NewMemoryPaymentLedger(), nil
	}
}

func (c *Container) newMessageRepository(redisClient *goredis.Client) (domain.MessageRepository, error) {
	switch backend := c.Config.GetHistoryBackend(); backend {
	case "memory":
		return repository.NewMemoryMessageRepository(), nil
	case "redis":
		return repository.NewRedisMessageRepository(redisClient, c.Logger), nil
	case "supabase":
		return repository.NewSupabaseMessageRepository(c.SupabaseClient, c.Logger), nil
	default:
		return nil, fmt.Errorf("unknown HISTORY_BACKEND %q", backend)
	}
}

func (c *Container) newAuthService(clk domain.Clock) (domain.AuthService, error) {
	switch provider := c.Config.GetAuthProvider(); provider {
	case "supabase":
		return service.NewAuthService(c.SupabaseClient, c.Logger), nil
	case "jwt":
		auth, err := service.NewJWTAuthService(c.Config.GetJWTSecret(), clk, c.Logger)
		if err != nil {
			return nil, err
		}
		return auth, nil
	default:
		return nil, fmt.Errorf("unknown AUTH_PROVIDER %q", provider)
	}
}

func (c *Container) newResponder(ctx context.Context) (domain.Responder, error) {
	switch provider := c.Config.GetBotProvider(); provider {
	case "canned":
		return service.NewCannedResponder(), nil
	case "openai":
		if c.Config.GetOpenAIAPIKey() == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai bot")
		}
		return service.NewOpenAIResponder(c.Config.GetOpenAIAPIKey(), c.Config.GetOpenAIModel(), c.Logger), nil
	case "gemini":
		r, err := service.NewGeminiResponder(ctx, c.Config.GetGCPProjectID(), c.Config.GetGCPLocation(), c.Logger)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, r)
		return r, nil
	default:
		return nil, fmt.Errorf("unknown BOT_PROVIDER %q", provider)
	}
}

func (c *Container) newPaymentVerifier() domain.PaymentVerifier {
	if key := c.Config.GetStripeSecretKey(); key != "" {
		return service.NewStripePaymentVerifier(key, c.Logger)
	}
	c.Logger.Warn("STRIPE_SECRET_KEY not set; subscriptions are disabled")
	return service.NewUnconfiguredPaymentVerifier()
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}
