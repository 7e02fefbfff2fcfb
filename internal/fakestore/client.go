// Package fakestore is the data access layer for the remote catalog REST API.
package fakestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sarthakastic/storefront/internal/domain"
	apperrors "github.com/sarthakastic/storefront/pkg/errors"
	"github.com/sarthakastic/storefront/pkg/httpclient"
	"github.com/sarthakastic/storefront/pkg/tracing"
	"github.com/sarthakastic/storefront/pkg/validator"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "https://fakestoreapi.com"

const (
	upstreamName = "fakestore"
	tracerName   = "github.com/sarthakastic/storefront/internal/fakestore"
	maxBodyBytes = 8 << 20

	opListProducts   = "list_products"
	opGetProduct     = "get_product"
	opListCategories = "list_categories"
)

// Catalog reads products and categories from the remote catalog.
//
// Every failure other than a missing product is a *NetworkError. GetProduct
// reports a missing product with an error matching apperrors.ErrNotFound.
type Catalog interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int) (*domain.Product, error)
	ListCategories(ctx context.Context) ([]string, error)
}

// errEmptyBody marks a 2xx response whose body is empty or JSON null.
var errEmptyBody = errors.New("empty response body")

// Client implements Catalog over HTTP.
type Client struct {
	baseURL string
	http    *httpclient.CircuitBreakerClient
	logger  *slog.Logger
}

// NewClient returns a catalog client for baseURL (e.g. https://fakestoreapi.com).
func NewClient(baseURL string, http *httpclient.CircuitBreakerClient, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http,
		logger:  logger,
	}
}

// ListProducts fetches GET /products. The list is returned as decoded; an
// empty or null body is an empty list.
func (c *Client) ListProducts(ctx context.Context) (products []domain.Product, err error) {
	ctx, span := c.start(ctx, opListProducts)
	defer func() { c.finish(span, opListProducts, err) }()

	if err := c.getJSON(ctx, "/products", &products); err != nil && !errors.Is(err, errEmptyBody) {
		return nil, newNetworkError(opListProducts, MsgListProducts, err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	span.SetAttributes(attribute.Int("catalog.products", len(products)))
	return products, nil
}

// GetProduct fetches GET /products/{id}. A 404, an empty or null body, or a
// record without an id is reported as not found.
func (c *Client) GetProduct(ctx context.Context, id int) (product *domain.Product, err error) {
	ctx, span := c.start(ctx, opGetProduct)
	span.SetAttributes(attribute.Int("catalog.product_id", id))
	defer func() { c.finish(span, opGetProduct, err) }()

	notFound := apperrors.NotFound("product", strconv.Itoa(id))
	if id <= 0 {
		return nil, notFound
	}

	var p domain.Product
	if err := c.getJSON(ctx, "/products/"+strconv.Itoa(id), &p); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, errEmptyBody) {
			return nil, notFound
		}
		return nil, newNetworkError(opGetProduct, MsgGetProduct, err)
	}
	if p.ID == 0 {
		return nil, notFound
	}
	if err := validator.Validate(p); err != nil {
		return nil, newNetworkError(opGetProduct, MsgGetProduct, fmt.Errorf("invalid product %d: %w", id, err))
	}
	return &p, nil
}

// ListCategories fetches GET /products/categories. An empty or null body is
// an empty list.
func (c *Client) ListCategories(ctx context.Context) (categories []string, err error) {
	ctx, span := c.start(ctx, opListCategories)
	defer func() { c.finish(span, opListCategories, err) }()

	if err := c.getJSON(ctx, "/products/categories", &categories); err != nil && !errors.Is(err, errEmptyBody) {
		return nil, newNetworkError(opListCategories, MsgListCategories, err)
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

// Healthy reports an error while the circuit breaker is open.
func (c *Client) Healthy(ctx context.Context) error {
	return c.http.Healthy(ctx)
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	resp, err := c.http.Get(ctx, c.baseURL+path)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &responseError{status: resp.StatusCode, err: httpclient.ParseResponseError(resp, upstreamName)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return errEmptyBody
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return tracing.Tracer(tracerName).Start(ctx, "fakestore."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("peer.service", upstreamName)),
	)
}

func (c *Client) finish(span trace.Span, op string, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrNotFound):
		outcome = "not_found"
		err = nil
	default:
		outcome = "error"
		c.logger.Warn("catalog request failed",
			slog.String("operation", op),
			slog.String("error", errorDetail(err)),
		)
	}
	upstreamRequests.WithLabelValues(op, outcome).Inc()
	tracing.End(span, err)
}

// errorDetail renders the cause chain for logs, including the upstream's
// own error message when there is one.
func errorDetail(err error) string {
	var netErr *NetworkError
	if !errors.As(err, &netErr) || netErr.Err == nil {
		return err.Error()
	}
	detail := netErr.Err.Error()
	var respErr *responseError
	if errors.As(netErr.Err, &respErr) && respErr.err != nil {
		detail = respErr.Error() + ": " + respErr.err.Error()
	}
	return detail
}

var _ Catalog = (*Client)(nil)
