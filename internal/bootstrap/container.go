package bootstrap

import (
	"context"
	"log"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"

	"ai-chat-client/internal/backend"
	"ai-chat-client/internal/cache"
	"ai-chat-client/internal/config"
	"ai-chat-client/internal/constant"
	"ai-chat-client/internal/coordinator"
	"ai-chat-client/internal/guard"
	"ai-chat-client/internal/pkg/epoch"
	"ai-chat-client/internal/pkg/logger"
	"ai-chat-client/internal/realtime"
	"ai-chat-client/internal/repository/contract"
	"ai-chat-client/internal/repository/memory"
	"ai-chat-client/internal/repository/redisstore"
	"ai-chat-client/internal/service"
	"ai-chat-client/internal/store"
)

type Container struct {
	Logger      logger.ILogger
	Store       *store.ChannelStore
	Cache       *cache.MessageCache
	Guard       *guard.SessionSelectionGuard
	Coordinator *coordinator.OptimisticMutationCoordinator
	Backend     backend.IBackendClient
	Channel     realtime.IRealtimeChannel
	Identity    service.IIdentityService
	SyncService service.ISyncService
	KeyValue    contract.IKeyValueRepository
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	channelLogger := logger.NewIsolatedLogger("logs/realtime.log")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Persistence (pluggable key-value; Redis when configured)
	var kv contract.IKeyValueRepository
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v. Falling back to in-memory persistence", err)
			kv = memory.NewKeyValueRepository()
		} else {
			kv = redisstore.NewKeyValueRepository(rdb)
		}
	} else {
		kv = memory.NewKeyValueRepository()
	}

	// 4. State Core
	messageCache := cache.NewMessageCache()
	channelStore := store.NewChannelStore(messageCache, sysLogger)
	epochs := epoch.NewCounter()

	// 5. Backend & Realtime Transport
	backendClient := backend.NewAPIClient(
		cfg.Backend.BaseURL,
		time.Duration(cfg.Backend.TimeoutSeconds)*time.Second,
		sysLogger,
	)

	reconnectWait := time.Duration(cfg.Realtime.ReconnectWaitSeconds) * time.Second
	var channel realtime.IRealtimeChannel
	if cfg.Realtime.Transport == constant.TransportNats {
		channel = realtime.NewNatsChannel(cfg.Realtime.NatsURL, reconnectWait, cfg.Realtime.MaxReconnects, pubSub, channelLogger)
	} else {
		channel = realtime.NewWebsocketChannel(cfg.Realtime.WebsocketURL, reconnectWait, cfg.Realtime.MaxReconnects, pubSub, channelLogger)
	}

	// 6. Coordination Layer
	selectionGuard := guard.NewSessionSelectionGuard(channelStore, messageCache, backendClient, sysLogger)
	mutationCoordinator := coordinator.NewOptimisticMutationCoordinator(channelStore, backendClient, channel, epochs, sysLogger)

	identityService := service.NewIdentityService(
		epochs,
		channelStore,
		messageCache,
		kv,
		sysLogger,
		selectionGuard,
		mutationCoordinator,
	)

	syncService := service.NewSyncService(
		pubSub,
		constant.RealtimeEventsTopic,
		channelStore,
		identityService,
		sysLogger,
	)

	return &Container{
		Logger:      sysLogger,
		Store:       channelStore,
		Cache:       messageCache,
		Guard:       selectionGuard,
		Coordinator: mutationCoordinator,
		Backend:     backendClient,
		Channel:     channel,
		Identity:    identityService,
		SyncService: syncService,
		KeyValue:    kv,
	}
}
