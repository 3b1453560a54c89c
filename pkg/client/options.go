package client

import (
	"crypto/tls"
	"net/http"

	"go.uber.org/zap"
)

type options struct {
	logger     *zap.SugaredLogger
	httpClient *http.Client
	tlsConfig  *tls.Config
}

func newOptions(opts ...Option) (*options, error) {
	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

type Option func(o *options) error

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithHTTPClient replaces the default HTTP client. The caller is responsible
// for attaching a cookie jar, without one the agent's session cookies are
// dropped between calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) error {
		o.httpClient = client
		return nil
	}
}

func WithTLSConfig(config *tls.Config) Option {
	return func(o *options) error {
		o.tlsConfig = config
		return nil
	}
}
