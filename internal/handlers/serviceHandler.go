package handlers

import (
	"sync"
	"sync/atomic"

	"github.com/nkumar/docchat/internal/domain/chatModel"
	"github.com/nkumar/docchat/internal/domain/docModel"
	"github.com/nkumar/docchat/internal/job"
	"github.com/nkumar/docchat/internal/metrics"
	"github.com/nkumar/docchat/internal/rag"
	"github.com/nkumar/docchat/pkg/logger"
)

var (
	handlerInstance *ServiceHandler //private singleton
	once            sync.Once
	logSH           *logger.Logger
	logRH           *logger.Logger
)

type ServiceHandler struct {
	jobService *job.Service
	ragService rag.Service
	documents  docModel.DocumentStore
	messages   chatModel.MessageStore
	turnLocks  conversationLocks
}

func InitServiceHandler(jobService *job.Service, ragService rag.Service, documents docModel.DocumentStore, messages chatModel.MessageStore) {
	once.Do(func() {
		handlerInstance = &ServiceHandler{
			jobService: jobService,
			ragService: ragService,
			documents:  documents,
			messages:   messages,
			turnLocks:  conversationLocks{locks: make(map[string]*sync.Mutex)},
		}

		logSH = logger.NewLogger("ServiceHandler")
		logRH = logger.NewLogger("RequestHandler")
		logSH.Info("Starting service handler")
	})
}

// conversationLocks serializes chat turns per conversation. Turns on
// different conversations run in parallel.
type conversationLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (c *conversationLocks) acquire(conversationId string) *sync.Mutex {
	c.mu.Lock()
	lock, ok := c.locks[conversationId]
	if !ok {
		lock = new(sync.Mutex)
		c.locks[conversationId] = lock
	}
	c.mu.Unlock()
	lock.Lock()
	return lock
}

func (c *conversationLocks) release(conversationId string) {
	c.mu.Lock()
	lock := c.locks[conversationId]
	c.mu.Unlock()
	if lock != nil {
		lock.Unlock()
	}
}

func (h *ServiceHandler) pushToJobChannel(newJob job.IngestJob) {
	metrics.IncrementIngestJobsInQueue()

	h.jobService.JobChannel <- newJob //blocking send to prevent the system from being overwhelmed
	logSH.Info("Queued ingest job", "documentId", newJob.DocumentId)

	//ingestion involves batch embedding calls which take time, so every
	//ingest gets a dispatcher signal; idle workers retire on their own
	accurateCount := atomic.AddInt64(&h.jobService.RequestCount, 1)
	metrics.StartDispatcherSignalCount()
	logSH.Debug("Dispatcher signal", "requestCount", accurateCount)
	h.jobService.DispatcherChannel <- true
}
