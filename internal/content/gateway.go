package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"newsroom/web/internal/metrics"
	"newsroom/web/internal/models"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrTransport wraps any failure to reach or read from the content store.
	ErrTransport = errors.New("content store unavailable")
	// ErrInvalidParams is returned before dispatch when a query's params are malformed.
	ErrInvalidParams = errors.New("invalid query parameters")
)

// Perspective selects which document versions a query sees.
type Perspective string

const (
	PerspectivePublished Perspective = "published"
	PerspectiveDrafts    Perspective = "drafts"
)

// Request is a query bound to its params and perspective.
type Request struct {
	Query       *Query
	Params      Params
	Perspective Perspective
}

// Backend executes a request and returns the raw JSON result. A query with
// no results yields JSON null, an empty array or zero, never an error.
type Backend interface {
	Query(ctx context.Context, req Request) (json.RawMessage, error)
}

type fetchOptions struct {
	stega       bool
	perspective Perspective
}

// Option adjusts a single fetch.
type Option func(*fetchOptions)

// WithStega turns the visual-editing overlay on or off for one fetch.
// Anything that ends up in machine-facing metadata must pass false.
func WithStega(enabled bool) Option {
	return func(o *fetchOptions) { o.stega = enabled }
}

// WithPerspective overrides the gateway's default perspective.
func WithPerspective(p Perspective) Option {
	return func(o *fetchOptions) { o.perspective = p }
}

// Gateway is the single path from the site to the content store.
type Gateway struct {
	backend     Backend
	stega       *Stega
	perspective Perspective
	timeout     time.Duration
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithVisualEditing enables the stega overlay and switches the default
// perspective to drafts, the way the studio preview needs it.
func WithVisualEditing(studioURL string) GatewayOption {
	return func(g *Gateway) {
		g.stega = NewStega(studioURL)
		g.perspective = PerspectiveDrafts
	}
}

// WithTimeout bounds every fetch.
func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) { g.timeout = d }
}

// NewGateway creates a gateway over backend.
func NewGateway(backend Backend, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		backend:     backend,
		perspective: PerspectivePublished,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Fetch runs q and returns its raw result, or nil when there is nothing.
// Only transport failures and invalid params are errors.
func (g *Gateway) Fetch(ctx context.Context, q *Query, params Params, opts ...Option) (json.RawMessage, error) {
	if err := q.Validate(params); err != nil {
		return nil, err
	}

	o := fetchOptions{stega: true, perspective: g.perspective}
	for _, opt := range opts {
		opt(&o)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	logger := zerolog.Ctx(ctx).With().Str("query", q.Name).Logger()
	start := time.Now()

	raw, err := g.backend.Query(ctx, Request{Query: q, Params: params, Perspective: o.perspective})
	metrics.ContentQueryDuration.WithLabelValues(q.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ContentQueries.WithLabelValues(q.Name, metrics.OutcomeError).Inc()
		logger.Debug().Err(err).Msg("Content query failed")
		if errors.Is(err, ErrTransport) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrTransport, q.Name, err)
	}

	if isEmpty(raw) {
		metrics.ContentQueries.WithLabelValues(q.Name, metrics.OutcomeEmpty).Inc()
		return nil, nil
	}
	metrics.ContentQueries.WithLabelValues(q.Name, metrics.OutcomeOK).Inc()

	if g.stega != nil && o.stega && !q.count {
		encoded, err := g.stega.Encode(raw)
		if err != nil {
			// The undecorated result is still correct.
			logger.Warn().Err(err).Msg("Failed to apply stega overlay")
			return raw, nil
		}
		return encoded, nil
	}
	return raw, nil
}

func isEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func fetchList[T any](ctx context.Context, g *Gateway, q *Query, params Params, opts ...Option) ([]T, error) {
	raw, err := g.Fetch(ctx, q, params, opts...)
	if err != nil || raw == nil {
		return []T{}, err
	}
	var out []T
	if err := jsonAPI.Unmarshal(raw, &out); err != nil {
		return []T{}, fmt.Errorf("%w: %s: decode: %w", ErrTransport, q.Name, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func fetchOne[T any](ctx context.Context, g *Gateway, q *Query, params Params, opts ...Option) (*T, error) {
	raw, err := g.Fetch(ctx, q, params, opts...)
	if err != nil || raw == nil {
		return nil, err
	}
	var out T
	if err := jsonAPI.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %s: decode: %w", ErrTransport, q.Name, err)
	}
	return &out, nil
}

// Articles runs a listing query. The result is never nil.
func (g *Gateway) Articles(ctx context.Context, q *Query, params Params, opts ...Option) ([]models.Article, error) {
	return fetchList[models.Article](ctx, g, q, params, opts...)
}

// Article runs a single-document query. A nil article with a nil error means not found.
func (g *Gateway) Article(ctx context.Context, q *Query, params Params, opts ...Option) (*models.Article, error) {
	return fetchOne[models.Article](ctx, g, q, params, opts...)
}

// Count runs a count query.
func (g *Gateway) Count(ctx context.Context, q *Query, params Params, opts ...Option) (int, error) {
	raw, err := g.Fetch(ctx, q, params, opts...)
	if err != nil || raw == nil {
		return 0, err
	}
	var n int
	if err := jsonAPI.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("%w: %s: decode: %w", ErrTransport, q.Name, err)
	}
	return n, nil
}

// PageBySlug fetches a page builder page. A nil page means not found.
func (g *Gateway) PageBySlug(ctx context.Context, slug string, opts ...Option) (*models.Page, error) {
	return fetchOne[models.Page](ctx, g, Page, BySlug(slug), opts...)
}

// Settings fetches the site settings singleton.
func (g *Gateway) Settings(ctx context.Context, opts ...Option) (*models.Settings, error) {
	return fetchOne[models.Settings](ctx, g, SiteSettings, nil, opts...)
}

// Sitemap lists every routable document.
func (g *Gateway) Sitemap(ctx context.Context, opts ...Option) ([]models.SitemapEntry, error) {
	return fetchList[models.SitemapEntry](ctx, g, SitemapData, nil, opts...)
}

// Slugs runs PostSlugs or PageSlugs.
func (g *Gateway) Slugs(ctx context.Context, q *Query, opts ...Option) ([]string, error) {
	type row struct {
		Slug string `json:"slug"`
	}
	rows, err := fetchList[row](ctx, g, q, nil, opts...)
	if err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.Slug != "" {
			slugs = append(slugs, r.Slug)
		}
	}
	return slugs, nil
}
