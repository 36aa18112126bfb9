package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productID = "3f2b8d7e-1c4a-4e8f-9b6d-2a5c7e9f1b3d"

func TestNewProductInput_Defaults(t *testing.T) {
	in := NewProductInput("Laptop", "Thin and light", 3, 500, 650, "https://cdn.example.com/l.png")

	assert.Equal(t, "N/A", in.ComputerSpec.Processor)
	assert.Equal(t, "N/A", in.ComputerSpec.Battery)
	assert.Equal(t, float64(DefaultDiscount), in.Discount)
	assert.True(t, in.Availability)
	assert.Equal(t, []string{"https://cdn.example.com/l.png"}, in.Images)
	require.Len(t, in.Color, 1)
	assert.Equal(t, []string{"https://cdn.example.com/l.png"}, in.Color[0].Images)
	assert.Equal(t, DefaultCategoryUUID, in.CategoryUUID)
	assert.NoError(t, Validate(in))
}

func TestProductInput_Validation(t *testing.T) {
	cases := map[string]func(*ProductInput){
		"missing name":      func(p *ProductInput) { p.Name = "" },
		"zero stock":        func(p *ProductInput) { p.StockQuantity = 0 },
		"negative price in": func(p *ProductInput) { p.PriceIn = -1 },
		"zero price out":    func(p *ProductInput) { p.PriceOut = 0 },
		"missing thumbnail": func(p *ProductInput) { p.Thumbnail = "" },
		"bad brand uuid":    func(p *ProductInput) { p.BrandUUID = "brand" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := NewProductInput("Laptop", "Thin", 3, 500, 650, "thumb.png")
			mutate(&in)
			assert.ErrorIs(t, Validate(in), ErrInvalidInput)
		})
	}
}

func TestClient_ListProducts(t *testing.T) {
	srv, reqs := newTestServer(t, http.StatusOK, `{"content":[{"uuid":"`+productID+`","name":"Laptop","priceOut":650}],"totalElements":1,"totalPages":1}`)
	c, err := New(srv.URL)
	require.NoError(t, err)

	page, err := c.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, "Laptop", page.Content[0].Name)
	assert.Equal(t, 650.0, page.Content[0].PriceOut)
	assert.Equal(t, "/products", (*reqs)[0].Path)
}

func TestClient_ProductCRUD(t *testing.T) {
	srv, reqs := newTestServer(t, http.StatusOK, `{"uuid":"`+productID+`","name":"Laptop"}`)
	c, err := New(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()
	in := NewProductInput("Laptop", "Thin", 3, 500, 650, "thumb.png")

	_, err = c.GetProduct(ctx, productID)
	require.NoError(t, err)
	_, err = c.CreateProduct(ctx, in)
	require.NoError(t, err)
	_, err = c.UpdateProduct(ctx, productID, in)
	require.NoError(t, err)
	require.NoError(t, c.DeleteProduct(ctx, productID))

	require.Len(t, *reqs, 4)
	assert.Equal(t, [2]string{http.MethodGet, "/products/" + productID}, [2]string{(*reqs)[0].Method, (*reqs)[0].Path})
	assert.Equal(t, [2]string{http.MethodPost, "/products"}, [2]string{(*reqs)[1].Method, (*reqs)[1].Path})
	assert.Equal(t, [2]string{http.MethodPut, "/products/" + productID}, [2]string{(*reqs)[2].Method, (*reqs)[2].Path})
	assert.Equal(t, [2]string{http.MethodDelete, "/products/" + productID}, [2]string{(*reqs)[3].Method, (*reqs)[3].Path})

	var body map[string]any
	require.NoError(t, json.Unmarshal((*reqs)[1].Body, &body))
	assert.Equal(t, DefaultSupplierUUID, body["supplierUuid"])
	assert.Equal(t, float64(DefaultDiscount), body["discount"])
}

func TestClient_ProductRejectsNonUUID(t *testing.T) {
	srv, reqs := newTestServer(t, http.StatusOK, `{}`)
	c, err := New(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.GetProduct(ctx, "../users")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, c.DeleteProduct(ctx, "42"), ErrInvalidInput)
	assert.Empty(t, *reqs)
}
