package handlers

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nkumar/docchat/internal/adapter"
	"github.com/nkumar/docchat/internal/adapter/utils"
	"github.com/nkumar/docchat/internal/domain/docModel"
	"github.com/nkumar/docchat/internal/job"
)

const maxUploadSize = 32 << 20 //32mb

var supportedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".txt":  true,
	".rtf":  true,
}

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// PostPdfHandler godoc
// @Summary      Upload a document
// @Description  Receives a file via multipart/form-data, saves it to a temporary directory, and queues an ingestion job.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        pdf  formData  file  true  "The document to upload"
// @Success      202  {object}  api.DocumentResponse  "Accepted - ingestion queued"
// @Failure      400  {object}  api.ErrorResponse     "Missing file, unsupported type or file too large"
// @Failure      500  {object}  api.ErrorResponse     "Storage or write error"
// @Router       /pdfs [post]
func PostPdfHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", "remoteAddr", r.RemoteAddr)
		return
	}

	targetDir, errString := getTargetDirectory()
	if errString != "" {
		logRH.Error("Couldn't get target directory", "err", errString)
		WriteErrorResponse(w, http.StatusInternalServerError, "", errString)
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
		return
	}

	fileReader, fileMetadata, err := r.FormFile("pdf")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Could not retrieve file")
		return
	}
	defer fileReader.Close()

	extension := strings.ToLower(filepath.Ext(fileMetadata.Filename))
	if !supportedExtensions[extension] {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Unsupported file type: "+extension)
		return
	}

	filename := fmt.Sprintf("%d-%s", time.Now().UnixNano(), fileMetadata.Filename)
	tempFilePath := filepath.Join(targetDir, filename)
	destinationFileWriter, err := os.Create(tempFilePath)
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Storage error")
		return
	}
	defer destinationFileWriter.Close()

	if _, err := io.Copy(destinationFileWriter, fileReader); err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Write error")
		return
	}

	doc := docModel.Document{
		Id:          utils.GetNewUUID(),
		Name:        fileMetadata.Filename,
		SourcePath:  tempFilePath,
		ContentType: mime.TypeByExtension(extension),
		CreatedAt:   time.Now(),
		Ingest:      docModel.IngestPending,
	}
	ctx := r.Context()
	if err := handlerInstance.documents.SaveDocument(ctx, doc); err != nil {
		logRH.Error("Failed to save document", "documentId", doc.Id, "err", err)
		WriteErrorResponse(w, http.StatusInternalServerError, doc.Id, "Storage error")
		return
	}

	handlerInstance.pushToJobChannel(job.IngestJob{
		DocumentId: doc.Id,
		FilePath:   tempFilePath,
		TraceId:    traceIdFromContext(ctx),
		Enqueued:   time.Now(),
	})

	writeJsonResponse(w, http.StatusAccepted, adapter.ToDocumentResponse(doc))
}

// ListPdfsHandler godoc
// @Summary      List uploaded documents
// @Tags         Documents
// @Produce      json
// @Success      200  {object}  api.DocumentListResponse
// @Router       /pdfs [get]
func ListPdfsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", "remoteAddr", r.RemoteAddr)
		return
	}

	docs, err := handlerInstance.documents.ListDocuments(r.Context())
	if err != nil {
		logRH.Error("Failed to list documents", "err", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Storage error")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentListResponse(docs))
}

// GetPdfStatusHandler godoc
// @Summary      Get ingestion status for a document
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.DocumentResponse
// @Failure      404  {object}  api.ErrorResponse  "Document not found"
// @Router       /pdfs/{id}/status [get]
func GetPdfStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", "remoteAddr", r.RemoteAddr)
		return
	}

	id := utils.GetChiURLParam(r, "id")
	doc, found := handlerInstance.documents.GetDocument(r.Context(), id)
	if !found {
		WriteErrorResponse(w, http.StatusNotFound, id, "Document not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentResponse(doc))
}

// DeletePdfHandler godoc
// @Summary      Delete a document
// @Description  Drops the document's vector namespace, its conversations and the stored record.
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      204  "Deleted"
// @Failure      404  {object}  api.ErrorResponse  "Document not found"
// @Router       /pdfs/{id} [delete]
func DeletePdfHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", "remoteAddr", r.RemoteAddr)
		return
	}

	id := utils.GetChiURLParam(r, "id")
	ctx := r.Context()
	doc, found := handlerInstance.documents.GetDocument(ctx, id)
	if !found {
		WriteErrorResponse(w, http.StatusNotFound, id, "Document not found")
		return
	}

	if err := handlerInstance.ragService.DropDocumentNamespace(ctx, doc.Id); err != nil {
		logRH.Error("Failed to drop vector namespace", "documentId", doc.Id, "err", err)
		WriteErrorResponse(w, http.StatusInternalServerError, id, "Vector store error")
		return
	}
	if err := handlerInstance.messages.DeleteConversations(ctx, doc.Id); err != nil {
		logRH.Error("Failed to delete conversations", "documentId", doc.Id, "err", err)
	}
	if err := handlerInstance.documents.DeleteDocument(ctx, doc.Id); err != nil {
		logRH.Error("Failed to delete document", "documentId", doc.Id, "err", err)
		WriteErrorResponse(w, http.StatusInternalServerError, id, "Storage error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
