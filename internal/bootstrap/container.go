package bootstrap

import (
	"context"
	"log"

	"legal-research-be/internal/config"
	"legal-research-be/internal/controller"
	"legal-research-be/internal/handler"
	"legal-research-be/internal/observability/metrics"
	"legal-research-be/internal/pkg/logger"
	"legal-research-be/internal/repository/implementation"
	"legal-research-be/internal/repository/memory"
	"legal-research-be/internal/repository/unitofwork"
	"legal-research-be/internal/search"
	"legal-research-be/internal/service"
	"legal-research-be/internal/websocket"
	"legal-research-be/pkg/conversation"
	"legal-research-be/pkg/embedding"
	"legal-research-be/pkg/llm/factory"
	"legal-research-be/pkg/reranker"
	"legal-research-be/pkg/resilience"
	"legal-research-be/pkg/retrieval"

	pktNats "legal-research-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController     controller.IChatController
	SearchController   controller.ISearchController
	DocumentController controller.IDocumentController

	// Background Services (Exposed for main.go to run)
	IngestService service.IIngestService

	// WebSockets & Streaming
	StreamHandler *handler.StreamHandler
	WebSocketHub  *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.New(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Model Providers
	var embeddingProvider embedding.Provider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewBGEM3Provider(cfg.Ai.EmbeddingBaseURL)
		log.Printf("[INFO] Using Embedding Provider: BGE-M3 (%s)", cfg.Ai.EmbeddingBaseURL)
	}

	// Wrap with retry + circuit breaker; the pipeline degrades instead of
	// hammering a struggling model server.
	retrievalLogger := log.Default()
	embeddingProvider = embedding.NewResilientProvider(
		embeddingProvider,
		resilience.NewExecutor(resilience.DefaultConfig(), retrievalLogger),
	)

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.LLMBaseURL,
		cfg.Ai.LLMAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	var crossEncoder reranker.Scorer = reranker.NewHTTPScorer(cfg.Ai.RerankerBaseURL)
	crossEncoder = reranker.NewResilientScorer(
		crossEncoder,
		resilience.NewExecutor(resilience.DefaultConfig(), retrievalLogger),
	)

	// 4. Retrieval Pipeline
	vectorIndex := search.NewPgvectorIndex(implementation.NewDocumentChunkRepository(db))
	lane := retrieval.NewHybridLane(embeddingProvider, vectorIndex, cfg.Retrieval.RRFConstant, retrievalLogger)
	coordinator := retrieval.NewCoordinator(lane, retrieval.CoordinatorConfig{
		OverFetch:   cfg.Retrieval.OverFetch,
		LaneTimeout: cfg.Retrieval.LaneTimeout,
	}, retrievalLogger)
	rerank := retrieval.NewReranker(crossEncoder, retrieval.RerankerConfig{
		RecencyWeight:   cfg.Retrieval.RecencyWeight,
		AuthorityWeight: cfg.Retrieval.AuthorityWeight,
	}, retrievalLogger)
	pipelineMetrics := metrics.NewPipeline(prometheus.DefaultRegisterer)
	pipeline := retrieval.NewPipeline(coordinator, rerank, retrieval.PipelineConfig{
		MMRLambda:   cfg.Retrieval.MMRLambda,
		MMRPoolSize: cfg.Retrieval.MMRPoolSize,
		FinalCount:  cfg.Retrieval.FinalCount,
	}, pipelineMetrics, retrievalLogger)

	// 5. Conversation State
	convRepo := memory.NewConversationRepository(cfg.Retrieval.HistoryTurns)
	convManager := conversation.NewManager(convRepo, pipeline, llmProvider, sysLogger).
		WithContextBudget(cfg.Retrieval.ContextBudget)

	// 6. Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolated("logs/stream.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 7. Services
	publisherService := service.NewPublisherService(cfg.Ingest.Topic, pubSub)
	ingestService := service.NewIngestService(
		pubSub,
		cfg.Ingest.Topic,
		uowFactory,
		embeddingProvider,
		natsPub,
		cfg.Ingest.RatePerSecond,
		cfg.Ingest.Burst,
		sysLogger,
	)

	chatService := service.NewChatService(uowFactory, convRepo, convManager, sysLogger)
	searchService := service.NewSearchService(pipeline, sysLogger)
	documentService := service.NewDocumentService(uowFactory, publisherService, natsPub, sysLogger)

	// 8. Streaming Handler
	streamHandler := handler.NewStreamHandler(wsHub, natsSub, wsLogger)
	if natsSub != nil {
		if err := streamHandler.StartEventBridge(); err != nil {
			log.Printf("[WARN] Failed to start indexed-event bridge: %v", err)
		}
	}

	return &Container{
		StreamHandler: streamHandler,
		WebSocketHub:  wsHub,

		ChatController:     controller.NewChatController(chatService, wsHub),
		SearchController:   controller.NewSearchController(searchService),
		DocumentController: controller.NewDocumentController(documentService),

		IngestService: ingestService,
	}
}
