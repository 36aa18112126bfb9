package api

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) ListProducts(ctx context.Context) (*ProductPage, error) {
	var page ProductPage
	if err := c.do(ctx, http.MethodGet, "/products", nil, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	var product Product
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) CreateProduct(ctx context.Context, input ProductInput) (*Product, error) {
	if err := Validate(input); err != nil {
		return nil, err
	}
	var product Product
	if err := c.do(ctx, http.MethodPost, "/products", nil, input, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id string, input ProductInput) (*Product, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if err := Validate(input); err != nil {
		return nil, err
	}
	var product Product
	if err := c.do(ctx, http.MethodPut, "/products/"+url.PathEscape(id), nil, input, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/products/"+url.PathEscape(id), nil, nil, nil)
}
