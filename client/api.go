package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/habedi/storekeeper/invoice"
	"github.com/rs/zerolog/log"
)

// Product is one catalogue entry.
type Product struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// FetchProducts lists the catalogue.
func (c *Client) FetchProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if _, err := c.getJSON(ctx, "/products", &products); err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	return products, nil
}

// FetchProduct returns one product and the raw JSON it was decoded from.
func (c *Client) FetchProduct(ctx context.Context, id int) (*Product, []byte, error) {
	var p Product
	raw, err := c.getJSON(ctx, fmt.Sprintf("/products/%d", id), &p)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch product %d: %w", id, err)
	}
	return &p, raw, nil
}

// FetchOrder returns the order record used to render an invoice.
func (c *Client) FetchOrder(ctx context.Context, id string) (*invoice.Order, error) {
	var o invoice.Order
	if _, err := c.getJSON(ctx, "/orders/"+url.PathEscape(id), &o); err != nil {
		return nil, fmt.Errorf("failed to fetch order %s: %w", id, err)
	}
	return &o, nil
}

// getJSON sends a GET through the pipeline and decodes the body into v.
func (c *Client) getJSON(ctx context.Context, path string, v any) ([]byte, error) {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		log.Error().Err(err).Str("path", path).Str("body_preview", string(resp.Body[:min(len(resp.Body), 200)])).Msg("Failed to parse response JSON")
		return nil, fmt.Errorf("failed to parse response of %s: %w", path, err)
	}
	return resp.Body, nil
}
