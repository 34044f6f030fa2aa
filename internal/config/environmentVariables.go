package config

import (
	"errors"
	"log/slog"
	"os"
	"time"
)

// ErrConfiguration marks a missing or unusable credential or setting detected
// while constructing an external client. Fail fast at startup, never mid-request.
var ErrConfiguration = errors.New("invalid configuration")

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//embedding output size is shared by both providers so the index stays queryable
	//if the provider is switched mid-lifetime the document must be re-ingested
	EmbeddingOutputDimensionality int32 = 1536

	//chunking
	ChunkSize    = 1000
	ChunkOverlap = 200

	//retrieval
	RetrievalTopK = 4

	//minimum similarity before a stored answer counts as the same question
	CacheSimilarityCutoff = 0.95

	//worker pool for background ingestion
	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//WriteTimeout must outlive a full streamed chat turn, SSE responses are
	//written on the same connection
	WriteTimeout = 90 * time.Second

	ChatTurnTimeout  = 60 * time.Second
	IngestJobTimeout = 5 * time.Minute

	ServerListenAddr = ":3000"

	//ingest job buffer limit
	BufferLimit = 100

	//vectorDB
	QdrantHost     = ""
	QdrantGrpcPort = 6334
	QdrantUseTLS   = false
	QdrantPoolSize = 1
	//a qdrant collection per document is the namespace, prefixed to avoid
	//collisions with anything else living in the same qdrant instance
	NamespacePrefix = "doc-"

	//providers, overridable via LLM_PROVIDER / EMBEDDING_PROVIDER
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	GeminiModelName      = "gemini-2.5-flash"
	GoogleEmbeddingModel = "gemini-embedding-001"
	OpenAIModelName      = "gpt-4o-mini"
	OpenAIEmbeddingModel = "text-embedding-3-small"

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	RedisPassword = ""

	//redis logical DBs
	RedisDocumentStore = 0
	RedisMessageStore  = 1

	//auth
	NoAuthBypass = true
	AuthToken    = ""
)

// Getenv returns the environment value for key or fallback when unset.
func Getenv(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// LLMProvider resolves the configured chat model provider.
func LLMProvider() string {
	return Getenv("LLM_PROVIDER", ProviderGemini)
}

// EmbeddingProvider resolves the configured embedding provider.
func EmbeddingProvider() string {
	return Getenv("EMBEDDING_PROVIDER", ProviderGemini)
}
