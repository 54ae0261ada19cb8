package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/upb/car-park/config"
	"go.uber.org/zap"
)

// ErrUnknownAPI is returned when a call names an API that was not configured
var ErrUnknownAPI = errors.New("unknown api")

// APIError is a non-2xx response from a REST endpoint
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api request failed: status %d, body: %s", e.StatusCode, string(e.Body))
}

// IsStatus reports whether err is an APIError with the given status code
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// HeaderInjector returns extra headers for an outgoing request
type HeaderInjector func(ctx context.Context) (http.Header, error)

// BearerHeader injects the current session's ID token. When there is no
// session the failure is logged and no header is added.
func BearerHeader(auth *Auth, logger *zap.Logger) HeaderInjector {
	return func(ctx context.Context) (http.Header, error) {
		header := http.Header{}

		session, err := auth.CurrentSession(ctx)
		if err != nil {
			logger.Debug("no session for api request", zap.Error(err))
			return header, nil
		}

		header.Set("Authorization", "Bearer "+session.IDToken)
		return header, nil
	}
}

// API is a REST client for the configured named endpoints
type API struct {
	endpoints  map[string]config.APIEndpoint
	inject     HeaderInjector
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAPI creates a new API client. inject may be nil.
func NewAPI(cfg config.APISDKConfig, inject HeaderInjector, logger *zap.Logger) *API {
	endpoints := make(map[string]config.APIEndpoint, len(cfg.Endpoints))
	for _, ep := range cfg.Endpoints {
		endpoints[ep.Name] = ep
	}

	return &API{
		endpoints:  endpoints,
		inject:     inject,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Get performs a GET and decodes the JSON response into out
func (a *API) Get(ctx context.Context, apiName, path string, out interface{}) error {
	return a.do(ctx, http.MethodGet, apiName, path, nil, out)
}

// Post performs a POST with a JSON body and decodes the response into out
func (a *API) Post(ctx context.Context, apiName, path string, body, out interface{}) error {
	return a.do(ctx, http.MethodPost, apiName, path, body, out)
}

// Put performs a PUT with a JSON body and decodes the response into out
func (a *API) Put(ctx context.Context, apiName, path string, body, out interface{}) error {
	return a.do(ctx, http.MethodPut, apiName, path, body, out)
}

func (a *API) do(ctx context.Context, method, apiName, path string, body, out interface{}) error {
	ep, ok := a.endpoints[apiName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAPI, apiName)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	url := strings.TrimSuffix(ep.Endpoint, "/") + "/" + strings.TrimPrefix(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if a.inject != nil {
		extra, err := a.inject(ctx)
		if err != nil {
			return fmt.Errorf("inject headers: %w", err)
		}
		for key, values := range extra {
			for _, v := range values {
				req.Header.Add(key, v)
			}
		}
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: data}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	a.logger.Debug("api request completed",
		zap.String("api", apiName),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode))

	return nil
}
