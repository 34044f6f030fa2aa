// @title           Document Chat API
// @version         1.0
// @description     Upload documents and chat with them through retrieval-augmented generation.

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nkumar/docchat/internal/config"
	"github.com/nkumar/docchat/internal/data/store"
	"github.com/nkumar/docchat/internal/domain/chatModel"
	"github.com/nkumar/docchat/internal/domain/docModel"
	"github.com/nkumar/docchat/internal/handlers"
	"github.com/nkumar/docchat/internal/job"
	"github.com/nkumar/docchat/internal/rag"
	"github.com/nkumar/docchat/internal/rag/embedding"
	"github.com/nkumar/docchat/internal/rag/embedding/googleEmbedding"
	"github.com/nkumar/docchat/internal/rag/embedding/openaiEmbedding"
	"github.com/nkumar/docchat/internal/rag/llm"
	"github.com/nkumar/docchat/internal/rag/llm/gemini"
	"github.com/nkumar/docchat/internal/rag/llm/openaiLLM"
	"github.com/nkumar/docchat/internal/rag/memory"
	"github.com/nkumar/docchat/internal/rag/vectorDB/qdrantDB"
	"github.com/nkumar/docchat/internal/server"
	"github.com/nkumar/docchat/internal/worker"
	"github.com/nkumar/docchat/pkg/logger"
)

var (
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {
	// a missing .env is fine, real deployments set the environment directly
	_ = godotenv.Load()
	logger.Init(logger.Options{Prod: config.IS_PROD, Level: config.LOG_LEVEL_PROD})
	var log = logger.NewLogger("main")

	//config
	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.Parse()

	//init buffered job channel
	jobChannel := make(chan job.IngestJob, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	var documents docModel.DocumentStore
	var messages chatModel.MessageStore
	if redisDocuments := store.GetRedisDocumentStore(serviceContext); redisDocuments != nil {
		documents = redisDocuments
	} else {
		log.Error("Redis document store is offline, using in-memory store")
		documents = store.InitInMemoryDocumentStore()
	}
	if redisMessages := store.GetRedisMessageStore(serviceContext); redisMessages != nil {
		messages = redisMessages
	} else {
		log.Error("Redis message store is offline, using in-memory store")
		messages = store.InitInMemoryMessageStore()
	}

	log.Info("Starting job service")
	jobService := job.InitJobService(job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
		DocumentStore:     documents,
	})

	vectorDB, err := qdrantDB.NewClient(serviceContext)
	if err != nil {
		log.Error("Failed to connect to qdrant. Shutting down.", "err", err)
		return
	}

	embedder, embeddingModel, err := buildEmbedder(serviceContext)
	if err != nil {
		log.Error("Failed to initialize embedding client. Shutting down.", "err", err)
		return
	}
	llmProvider, err := buildLLMProvider(serviceContext)
	if err != nil {
		log.Error("Failed to initialize LLM client. Shutting down.", "err", err)
		return
	}

	history := memory.NewBuilder(messages)
	ragService := rag.NewService(vectorDB, llmProvider, embedder, history, embeddingModel)

	handlers.InitServiceHandler(jobService, ragService, documents, messages)

	//init worker pool
	worker.InitServices(jobService, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	log.Info("Server stopped")
}

func buildEmbedder(ctx context.Context) (embedding.Embedder, string, error) {
	switch config.EmbeddingProvider() {
	case config.ProviderOpenAI:
		client, err := openaiEmbedding.NewClient(config.OpenAIEmbeddingModel, os.Getenv("OPENAI_API_KEY"))
		return client, config.OpenAIEmbeddingModel, err
	default:
		client, err := googleEmbedding.NewClient(ctx, config.GoogleEmbeddingModel, os.Getenv("GEMINI_API_KEY"))
		return client, config.GoogleEmbeddingModel, err
	}
}

func buildLLMProvider(ctx context.Context) (llm.Provider, error) {
	streaming := config.Getenv("LLM_STREAMING", "true") == "true"
	switch config.LLMProvider() {
	case config.ProviderOpenAI:
		return openaiLLM.NewClient(config.OpenAIModelName, os.Getenv("OPENAI_API_KEY"), streaming)
	default:
		return gemini.NewClient(ctx, config.GeminiModelName, os.Getenv("GEMINI_API_KEY"), streaming)
	}
}
