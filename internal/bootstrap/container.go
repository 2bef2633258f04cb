package bootstrap

import (
	"context"
	"fmt"

	"sam-chat-be/internal/config"
	"sam-chat-be/internal/controller"
	"sam-chat-be/internal/handler"
	"sam-chat-be/internal/metrics"
	"sam-chat-be/internal/pkg/logger"
	"sam-chat-be/internal/repository/contract"
	"sam-chat-be/internal/repository/implementation"
	"sam-chat-be/internal/repository/memory"
	"sam-chat-be/internal/service"
	"sam-chat-be/internal/websocket"
	"sam-chat-be/pkg/ai/mode"
	"sam-chat-be/pkg/database"
	"sam-chat-be/pkg/llm/factory"
	pktNats "sam-chat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	ChatController controller.IChatController
	StreamHandler  *handler.StreamHandler

	// Services
	ChatService     service.IChatService
	SessionService  service.ISessionService
	SettingsService service.ISettingsService

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	WebSocketHub    *websocket.Hub

	MetricsRegistry *prometheus.Registry
	Logger          logger.ILogger

	closers []func()
}

// NewContainer wires every dependency. ctx bounds the lifetime of running turns.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	c := &Container{Logger: sysLogger}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)
	c.MetricsRegistry = registry

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Storage
	store, err := c.newStore(cfg.Storage, sysLogger)
	if err != nil {
		return nil, err
	}

	// 4. Infrastructure
	var events service.IEventPublisher
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS, lifecycle events disabled", map[string]interface{}{"error": err.Error()})
		} else {
			events = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opt)
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	wsLogger := logger.NewIsolatedLogger(cfg.App.WsLogFilePath)
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)

	// 5. LLM
	client, err := factory.NewStreamClient(ctx, factory.ProviderConfig{
		Provider:   cfg.Ai.LLMProvider,
		APIKey:     cfg.Ai.GeminiAPIKey,
		Model:      cfg.Ai.FastModel,
		ImageModel: cfg.Ai.ImageModel,
		BaseURL:    cfg.Ai.OllamaBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	sysLogger.Info("BOOTSTRAP", "Using LLM provider", map[string]interface{}{
		"provider":   cfg.Ai.LLMProvider,
		"fast_model": cfg.Ai.FastModel,
		"pro_model":  cfg.Ai.ProModel,
	})

	// 6. Services
	modes := mode.Default()
	settingsService := service.NewSettingsService(store, sysLogger)
	settingsService.Load(ctx)

	sessionService := service.NewSessionService(store, service.NewPublisherService(pubSub), sysLogger, service.SessionOptions{
		EphemeralOnLaunch: cfg.Session.EphemeralOnLaunch,
		DefaultModel:      modes.DefaultModel().Id,
	})
	sessionService.Load(ctx)

	essayService := service.NewEssayService(client, modes, settingsService, cfg.Ai.ProModel, events, sysLogger, appMetrics)
	chatService := service.NewChatService(ctx, sessionService, settingsService, essayService, modes, client,
		service.ModelNames{Fast: cfg.Ai.FastModel, Pro: cfg.Ai.ProModel}, events, appMetrics, sysLogger)

	c.ChatService = chatService
	c.SessionService = sessionService
	c.SettingsService = settingsService
	c.ConsumerService = service.NewConsumerService(pubSub, chatService, c.WebSocketHub, sysLogger)

	// 7. Transport
	c.ChatController = controller.NewChatController(chatService, sessionService, settingsService)
	c.StreamHandler = handler.NewStreamHandler(chatService, c.WebSocketHub, cfg.App.WsSendBuffer, wsLogger)

	return c, nil
}

func (c *Container) newStore(cfg config.StorageConfig, log logger.ILogger) (contract.KeyValueRepository, error) {
	log.Info("BOOTSTRAP", "Using storage driver", map[string]interface{}{"driver": cfg.Driver})

	switch cfg.Driver {
	case "memory":
		return memory.NewKeyValueRepository(), nil

	case "sqlite":
		db, err := database.NewSqliteDB(cfg.SqlitePath)
		if err != nil {
			return nil, fmt.Errorf("unable to open sqlite store: %w", err)
		}
		c.closers = append(c.closers, func() { _ = db.Close() })
		return implementation.NewKeyValueRepositorySqlite(db)

	case "postgres":
		gormDB, err := database.NewGormDBFromDSN(cfg.Connection)
		if err != nil {
			return nil, fmt.Errorf("unable to connect to GORM DB: %w", err)
		}
		if sqlDB, err := gormDB.DB(); err == nil {
			c.closers = append(c.closers, func() { _ = sqlDB.Close() })
		}
		return implementation.NewKeyValueRepositoryGorm(gormDB)

	case "redis":
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid STORAGE_REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opt)
		c.closers = append(c.closers, func() { _ = rdb.Close() })
		return implementation.NewKeyValueRepositoryRedis(rdb), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Close stops running turns and releases infrastructure in reverse order.
func (c *Container) Close() {
	if c.ChatService != nil {
		c.ChatService.Shutdown()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
