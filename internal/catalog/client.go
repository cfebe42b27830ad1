package catalog

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

// ClientConfig holds the catalog endpoint settings.
type ClientConfig struct {
	// BaseURL is the catalog API root, e.g. "https://catalog.example.com/api/v1".
	BaseURL string
	// Timeout bounds each catalog request. Zero means 10s.
	Timeout time.Duration
}

// Client fetches and normalizes catalog data. Safe for concurrent use.
type Client struct {
	base string
	http *http.Client
	sf   singleflight.Group
}

// NewClient creates a catalog client with an instrumented transport.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Categories returns all catalog categories.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	body, err := c.get(ctx, "/categories")
	if err != nil {
		return nil, err
	}

	var out []Category
	d := jx.DecodeBytes(unwrapEnvelope(body))
	err = d.Arr(func(d *jx.Decoder) error {
		cat, err := decodeCategory(d)
		if err != nil {
			return err
		}
		out = append(out, cat)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode categories")
	}
	return out, nil
}

// Products returns one page of the catalog, optionally filtered by category.
func (c *Client) Products(ctx context.Context, params ListParams) ([]Product, error) {
	q := url.Values{}
	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if limit < 1 {
		limit = 12
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	if params.Category != "" {
		q.Set("category", params.Category)
	}

	body, err := c.get(ctx, "/shop/products?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var out []Product
	d := jx.DecodeBytes(unwrapEnvelope(body))
	err = d.Arr(func(d *jx.Decoder) error {
		p, err := decodeProduct(d)
		if err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	return out, nil
}

// BySlug returns a single product by its slug. Concurrent lookups of the
// same slug are collapsed into one upstream request.
func (c *Client) BySlug(ctx context.Context, slug string) (*Product, error) {
	v, err, _ := c.sf.Do(slug, func() (any, error) {
		body, err := c.get(ctx, "/product/"+url.PathEscape(slug))
		if err != nil {
			return nil, err
		}
		p, err := decodeProduct(jx.DecodeBytes(unwrapEnvelope(body)))
		if err != nil {
			return nil, errors.Wrapf(err, "decode product %q", slug)
		}
		return &p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Product), nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, errors.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s response", path)
	}
	return body, nil
}
