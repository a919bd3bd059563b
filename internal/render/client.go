package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"cvstudio/internal/breaker"
	"cvstudio/internal/config"
	cvstudioErrors "cvstudio/internal/errors"
	"cvstudio/internal/rendercv"
	"cvstudio/internal/retry"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	previewPath  = "/api/preview"
	downloadPath = "/api/download"
	suggestPath  = "/api/ai/suggest"

	maxResponseSize = 32 << 20
)

// response is what crosses the breaker: the body plus the headers Download needs.
type response struct {
	body   []byte
	header http.Header
}

// Client talks to the typesetting service over HTTP.
type Client struct {
	baseURL        string
	apiKey         string
	httpClient     *http.Client
	retryPolicy    retry.Policy
	renderBreaker  *breaker.Breaker[*response]
	suggestBreaker *breaker.Breaker[*response]
	logger         *cvstudioErrors.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithRetryDelays shortens or lengthens the backoff between retries.
func WithRetryDelays(base, max time.Duration) Option {
	return func(client *Client) {
		client.retryPolicy.BaseDelay = base
		client.retryPolicy.MaxDelay = max
	}
}

// NewClient builds a Client from the renderer configuration.
func NewClient(cfg config.RendererConfig, logger *cvstudioErrors.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = cvstudioErrors.NewNopLogger()
	}

	successCheck := breaker.WithSuccessCheck(func(err error) bool {
		if err == nil {
			return true
		}
		var renderErr *RenderError
		return errors.As(err, &renderErr) && renderErr.IsContentError()
	})

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		retryPolicy: retry.Policy{
			MaxRetries: cfg.MaxRetries,
			Retryable:  isRetryable,
			Logger:     logger,
		},
		renderBreaker:  breaker.New[*response]("render", cfg.CircuitBreaker, logger, successCheck),
		suggestBreaker: breaker.New[*response]("suggest", cfg.CircuitBreaker, logger, successCheck),
		logger:         logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// isRetryable retries transport failures and gateway errors only.
func isRetryable(err error) bool {
	if retry.IsNetworkError(err) {
		return true
	}
	var renderErr *RenderError
	if errors.As(err, &renderErr) {
		switch renderErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}

// Preview renders req as an image and returns its bytes.
func (c *Client) Preview(ctx context.Context, req Request) ([]byte, error) {
	req.Format = FormatPNG
	resp, err := c.post(ctx, previewPath, req, c.renderBreaker)
	if err != nil {
		return nil, err
	}
	return resp.body, nil
}

// Download renders req as a PDF document.
func (c *Client) Download(ctx context.Context, req Request) (*Document, error) {
	req.Format = FormatPDF
	resp, err := c.post(ctx, downloadPath, req, c.renderBreaker)
	if err != nil {
		return nil, err
	}

	contentType := resp.header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}
	filename := filenameFromHeader(resp.header.Get("Content-Disposition"))
	if filename == "" {
		filename = rendercv.FileName(req.CVData.Name, string(FormatPDF))
	}
	return &Document{
		Data:        resp.body,
		Filename:    filename,
		ContentType: contentType,
	}, nil
}

// Suggest asks the service for improved text. Failures of any kind are
// logged and reported only through ok, so callers simply keep their text.
func (c *Client) Suggest(ctx context.Context, text, suggestionType, hint string) (suggestion string, ok bool) {
	payload := map[string]string{"text": text, "type": suggestionType, "context": hint}
	resp, err := c.post(ctx, suggestPath, payload, c.suggestBreaker)
	if err != nil {
		c.logger.Debug("Suggestion request failed", "type", suggestionType, "error", err.Error())
		return "", false
	}

	var decoded struct {
		Suggestion string `json:"suggestion"`
	}
	if err := json.Unmarshal(resp.body, &decoded); err != nil {
		c.logger.Debug("Suggestion response was not JSON", "type", suggestionType, "error", err.Error())
		return "", false
	}
	if decoded.Suggestion == "" {
		return "", false
	}
	return decoded.Suggestion, true
}

// Stats reports breaker state for the stats endpoint.
func (c *Client) Stats() map[string]any {
	return map[string]any{
		"base_url": c.baseURL,
		"render":   c.renderBreaker.Stats(),
		"suggest":  c.suggestBreaker.Stats(),
	}
}

func (c *Client) post(ctx context.Context, path string, payload any, b *breaker.Breaker[*response]) (*response, error) {
	tracer := otel.Tracer("cvstudio.render")
	ctx, span := tracer.Start(ctx, "render.post "+path)
	defer span.End()
	span.SetAttributes(attribute.String("render.endpoint", path))

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, cvstudioErrors.NewInternalError(cvstudioErrors.ErrCodeInvalidRequest, "failed to encode render request", err)
	}
	span.SetAttributes(attribute.Int("render.request_bytes", len(body)))

	resp, err := b.Execute(func() (*response, error) {
		return retry.Do(ctx, c.retryPolicy, "render"+path, func(ctx context.Context) (*response, error) {
			return c.do(ctx, path, body)
		})
	})
	if appErr, ok := cvstudioErrors.AsAppError(err); ok && appErr.Code == cvstudioErrors.ErrCodeCircuitOpen {
		err = cvstudioErrors.NewRenderError(cvstudioErrors.ErrCodeCircuitOpen, "render service is unavailable", err).
			WithContext("endpoint", path)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("render.response_bytes", len(resp.body)))
	return resp, nil
}

func (c *Client) do(ctx context.Context, path string, body []byte) (*response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, cvstudioErrors.NewInternalError(cvstudioErrors.ErrCodeInvalidRequest, "failed to build render request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", path, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, newRenderError(httpResp.StatusCode, data)
	}
	return &response{body: data, header: httpResp.Header}, nil
}

func filenameFromHeader(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
