package job

import (
	"time"

	"github.com/nkumar/docchat/internal/domain/docModel"
)

// IngestJob is one queued document waiting for a worker.
type IngestJob struct {
	DocumentId string
	FilePath   string
	TraceId    string
	Enqueued   time.Time
}

type Service struct {
	JobChannel        chan IngestJob
	RequestCount      int64
	DispatcherChannel chan bool
	DocumentStore     docModel.DocumentStore
}

type ServiceConfig struct {
	JobChannel        chan IngestJob
	RequestCount      int64
	DispatcherChannel chan bool
	DocumentStore     docModel.DocumentStore
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        cfg.JobChannel,
		RequestCount:      cfg.RequestCount,
		DispatcherChannel: cfg.DispatcherChannel,
		DocumentStore:     cfg.DocumentStore,
	}
}
