package customHttpClient

import (
	"net/http"

	"github.com/nkumar/docchat/internal/config"
)

var customTransport = &http.Transport{
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

var pooledClient = &http.Client{Transport: customTransport}

// Pooled returns the shared connection-reusing HTTP client handed to the
// OpenAI-compatible providers.
func Pooled() *http.Client {
	return pooledClient
}
