package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"newsroom/web/internal/metrics"
)

const (
	defaultMaxRetries  = 2
	maxResponseBytes   = 32 << 20
	defaultHTTPTimeout = 15 * time.Second
)

// SanityConfig identifies the hosted dataset.
type SanityConfig struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	Token      string
	UseCDN     bool

	// BaseURL overrides the project host, e.g. for a proxy.
	BaseURL    string
	MaxRetries uint64
	HTTPClient *http.Client
}

// SanityBackend sends catalog queries to the hosted query API.
type SanityBackend struct {
	cfg        SanityConfig
	client     *http.Client
	newBackOff func() backoff.BackOff
}

// NewSanityBackend creates a backend for cfg.
func NewSanityBackend(cfg SanityConfig) *SanityBackend {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	return &SanityBackend{
		cfg:    cfg,
		client: client,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			b.MaxElapsedTime = 10 * time.Second
			return b
		},
	}
}

type queryResponse struct {
	Result json.RawMessage `json:"result"`
	Ms     int             `json:"ms"`
}

type queryError struct {
	Error struct {
		Description string `json:"description"`
		Type        string `json:"type"`
	} `json:"error"`
}

func (b *SanityBackend) endpoint(req Request) (string, error) {
	host := b.cfg.BaseURL
	if host == "" {
		api := "api"
		// The CDN only serves published content.
		if b.cfg.UseCDN && req.Perspective != PerspectiveDrafts {
			api = "apicdn"
		}
		host = fmt.Sprintf("https://%s.%s.sanity.io", b.cfg.ProjectID, api)
	}

	values := url.Values{}
	values.Set("query", req.Query.GROQ)
	for name, v := range req.Params {
		encoded, err := jsonAPI.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("param %s: %w", name, err)
		}
		values.Set("$"+name, string(encoded))
	}
	if req.Perspective != "" {
		values.Set("perspective", string(req.Perspective))
	}

	version := strings.TrimPrefix(b.cfg.APIVersion, "v")
	return fmt.Sprintf("%s/v%s/data/query/%s?%s",
		strings.TrimRight(host, "/"), version, url.PathEscape(b.cfg.Dataset), values.Encode()), nil
}

// Query implements Backend. Network errors, 429 and 5xx responses are
// retried with exponential backoff; other 4xx responses fail immediately.
func (b *SanityBackend) Query(ctx context.Context, req Request) (json.RawMessage, error) {
	endpoint, err := b.endpoint(req)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx)
	attempt := 0

	op := func() (json.RawMessage, error) {
		attempt++
		if attempt > 1 {
			metrics.ContentRetries.Inc()
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		httpReq.Header.Set("Accept", "application/json")
		if b.cfg.Token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+b.cfg.Token)
		}

		resp, err := b.client.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			logger.Debug().Err(err).Int("attempt", attempt).Str("query", req.Query.Name).Msg("Query request failed")
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			statusErr := fmt.Errorf("query %s: status %d: %s", req.Query.Name, resp.StatusCode, describe(body))
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				logger.Debug().Int("status", resp.StatusCode).Int("attempt", attempt).Msg("Retryable query response")
				return nil, statusErr
			}
			return nil, backoff.Permanent(statusErr)
		}

		var envelope queryResponse
		if err := jsonAPI.Unmarshal(body, &envelope); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
		}
		return envelope.Result, nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b.newBackOff(), b.cfg.MaxRetries), ctx)
	result, err := backoff.RetryWithData[json.RawMessage](op, policy)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Err
		}
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return result, nil
}

func describe(body []byte) string {
	var qe queryError
	if err := jsonAPI.Unmarshal(body, &qe); err == nil && qe.Error.Description != "" {
		return qe.Error.Description
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return strings.TrimSpace(string(body))
}
