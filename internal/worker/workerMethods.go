package worker

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"github.com/nkumar/docchat/internal/config"
	"github.com/nkumar/docchat/internal/domain/docModel"
	"github.com/nkumar/docchat/internal/job"
	"github.com/nkumar/docchat/internal/metrics"
)

func executeJob(currentJob job.IngestJob) {
	start := time.Now()
	status := "ok"
	defer func() {
		metrics.CaptureExecutionMetrics("ingestJob_"+status, time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, currentJob.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, config.IngestJobTimeout)
	defer cancel()
	log.Debug("Processing ingest job", "documentId", currentJob.DocumentId)

	doc, ok := _jobService.DocumentStore.GetDocument(ctx, currentJob.DocumentId)
	if !ok {
		// Document was deleted while the job sat in the queue.
		log.Warn("Skipping ingest for missing document", "documentId", currentJob.DocumentId)
		removeTempFile(currentJob.FilePath)
		status = "skipped"
		return
	}

	setIngestState(ctx, doc.Id, docModel.IngestProcessing, 0, 0, "")

	result, err := _ragService.IngestDocument(ctx, doc)
	if err != nil {
		log.Error("Ingest failed", "documentId", doc.Id, "err", err)
		setIngestState(ctx, doc.Id, docModel.IngestFailed, 0, 0, err.Error())
		removeTempFile(currentJob.FilePath)
		status = "error"
		return
	}

	setIngestState(ctx, doc.Id, docModel.IngestReady, result.ChunkCount, result.PageCount, "")
	removeTempFile(currentJob.FilePath)
	log.Info("Ingest complete", "documentId", doc.Id, "chunks", result.ChunkCount, "pages", result.PageCount)
}

func removeWorker(reason string) {
	workerWaitGroup.Done()
	atomic.AddInt64(&currentWorkerCount, -1)
	log.Info("Removed worker", "reason", reason, "workerCount", currentWorkerCount)
	metrics.DecrementActiveWorkerCount()
}

func setIngestState(ctx context.Context, documentId string, state docModel.IngestState, chunkCount int, pageCount int, ingestError string) {
	if err := _jobService.DocumentStore.SetIngestState(ctx, documentId, state, chunkCount, pageCount, ingestError); err != nil {
		log.Error("Failed to update ingest state", "documentId", documentId, "err", err)
	}
}

func removeTempFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn("Failed to remove uploaded file", "path", path, "err", err)
	}
}
