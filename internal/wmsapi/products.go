package wmsapi

import (
	"context"
	"net/http"
)

const productsPath = "/api/products"

// ListProducts returns every product.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := c.do(ctx, request{op: "products.list", method: http.MethodGet, path: productsPath}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProduct fetches one product.
func (c *Client) GetProduct(ctx context.Context, id int64) (Product, error) {
	var out Product
	err := c.do(ctx, request{op: "products.get", method: http.MethodGet, path: pathID(productsPath, id, "")}, &out)
	return out, err
}

// CreateProduct creates a product and returns it with the server-assigned id.
func (c *Client) CreateProduct(ctx context.Context, p Product) (Product, error) {
	p.ID = 0
	var out Product
	err := c.do(ctx, request{op: "products.create", method: http.MethodPost, path: productsPath, body: p}, &out)
	return out, err
}

// UpdateProduct replaces the product identified by id.
func (c *Client) UpdateProduct(ctx context.Context, id int64, p Product) (Product, error) {
	p.ID = id
	var out Product
	err := c.do(ctx, request{op: "products.update", method: http.MethodPut, path: pathID(productsPath, id, ""), body: p}, &out)
	return out, err
}

// DeleteProduct removes a product.
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.do(ctx, request{op: "products.delete", method: http.MethodDelete, path: pathID(productsPath, id, "")}, nil)
}
