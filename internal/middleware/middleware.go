package middleware

import (
	"net/http"
	"strconv"

	"github.com/nkumar/docchat/internal/handlers"
	"github.com/nkumar/docchat/internal/metrics"
	"github.com/nkumar/docchat/pkg/logger"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

var GetHandler = Wrap(handlers.GetHandler)

var PostPdfHandler = Wrap(handlers.PostPdfHandler)
var ListPdfsHandler = Wrap(handlers.ListPdfsHandler)
var GetPdfStatusHandler = Wrap(handlers.GetPdfStatusHandler)
var DeletePdfHandler = Wrap(handlers.DeletePdfHandler)

var CreateConversationHandler = Wrap(handlers.CreateConversationHandler)
var ListConversationsHandler = Wrap(handlers.ListConversationsHandler)
var GetMessagesHandler = Wrap(handlers.GetMessagesHandler)
var PostMessageHandler = Wrap(handlers.PostMessageHandler)

func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: 200} //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec})

		if re.badRequest.isBadRequest {
			handleBadRequest(re)
			return
		}
		next(rec, re.req)

		metrics.HttpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

func processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = logger.NewLogger("middleware")
	re.logger.Debug("New request received")
	re = injectTrace(re)
	re = authenticate(re)
	if re.badRequest.isBadRequest {
		return re //stop if auth fails
	}
	re = rateLimiter(re)
	return re
}
