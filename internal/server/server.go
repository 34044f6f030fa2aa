package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/nkumar/docchat/internal/adapter/utils"
	"github.com/nkumar/docchat/internal/config"
	"github.com/nkumar/docchat/internal/middleware"
	"github.com/nkumar/docchat/pkg/logger"
)

var (
	server  *http.Server
	_logger *logger.Logger
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
}

func CreateServer(listenAddr string) {
	_logger = logger.NewLogger("Server")

	r := utils.GetRouter()

	r.Router.Post("/pdfs", middleware.PostPdfHandler)
	r.Router.Get("/pdfs", middleware.ListPdfsHandler)
	r.Router.Get("/pdfs/{id}/status", middleware.GetPdfStatusHandler)
	r.Router.Delete("/pdfs/{id}", middleware.DeletePdfHandler)

	r.Router.Post("/conversations", middleware.CreateConversationHandler)
	r.Router.Get("/conversations", middleware.ListConversationsHandler)
	r.Router.Get("/conversations/{id}/messages", middleware.GetMessagesHandler)
	r.Router.Post("/conversations/{id}/messages", middleware.PostMessageHandler)

	r.Router.Get("/healthz", middleware.GetHandler)

	server = &http.Server{
		Addr:         listenAddr,
		Handler:      r.Router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error", err.Error(), "addr", listenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		server.SetKeepAlivesEnabled(false)

		if err := server.Shutdown(ctx); err != nil {
			_logger.Error("Could not shutdown gracefully", "err", err)
		}

		//close workers
		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Graceful shutdown complete")
	case <-ctx.Done():
		_logger.Info("Force shut down")
		os.Exit(1)
	}
}
