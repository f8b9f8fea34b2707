// Package catalog is the HTTP client for the catalog service's stock
// endpoint. Stock updates are best effort; the order service logs and
// swallows failures.
package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
)

// Client calls the catalog service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the catalog service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// DecrementStock decrements the product's stock by quantity.
func (c *Client) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	url := fmt.Sprintf("%s/api/catalog/products/%d/stock?quantity=%d", c.baseURL, productID, quantity)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, nil)
	if err != nil {
		return errors.Wrap(err, "build stock request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "call catalog service for product %d", productID)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return errors.Errorf("catalog service returned %d for product %d", resp.StatusCode, productID)
	}
	return nil
}
