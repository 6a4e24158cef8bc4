package cart_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/cart"
	"github.com/noah-isme/backend-kasir/internal/catalog"
	"github.com/noah-isme/backend-kasir/internal/money"
)

const productID = "0b8f9c2e-6d4a-4f1b-9a3c-1d2e3f405162"

func newServer(t *testing.T) (*httptest.Server, *cart.Registry) {
	t.Helper()
	registry := cart.NewRegistry(825)
	source := catalog.NewStaticSource(catalog.Product{
		ID:        productID,
		Name:      "Americano",
		CardPrice: money.MustParse("10.00"),
		CashPrice: money.MustParse("9.50"),
		Taxable:   true,
	})
	handler := &cart.Handler{
		Registry: registry,
		Catalog:  &catalog.Service{Source: source},
		Validate: validator.New(),
		Currency: "USD",
	}

	r := chi.NewRouter()
	r.Route("/carts", func(c chi.Router) {
		c.Post("/", handler.Create)
		c.Route("/{id}", func(s chi.Router) {
			s.Get("/", handler.Get)
			s.Delete("/", handler.Close)
			s.Post("/clear", handler.Clear)
			s.Get("/snapshot", handler.Snapshot)
			s.Post("/lines", handler.AddLine)
			s.Route("/lines/{lineId}", func(l chi.Router) {
				l.Patch("/", handler.UpdateLine)
				l.Delete("/", handler.RemoveLine)
				l.Put("/discount", handler.SetLineDiscount)
				l.Delete("/discount", handler.ClearLineDiscount)
			})
			s.Put("/payment-mode", handler.SetPaymentMode)
			s.Post("/discounts", handler.AddDiscount)
			s.Delete("/discounts", handler.ClearDiscounts)
			s.Delete("/discounts/{discountId}", handler.RemoveDiscount)
		})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, registry
}

func doJSON(t *testing.T, method, url string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req, err := http.NewRequest(method, url, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil && err != io.EOF {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func createCart(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/carts", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := body["data"].(map[string]any)
	return data["cartId"].(string)
}

func addCatalogLine(t *testing.T, srv *httptest.Server, cartID string, qty int) map[string]any {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/carts/"+cartID+"/lines", map[string]any{
		"productId": productID,
		"qty":       qty,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["data"].(map[string]any)
}

func snapshotOf(body map[string]any) map[string]any {
	data := body["data"].(map[string]any)
	if snap, ok := data["snapshot"].(map[string]any); ok {
		return snap
	}
	return data["view"].(map[string]any)["snapshot"].(map[string]any)
}

func TestAddLineResolvesCatalogPrices(t *testing.T) {
	srv, _ := newServer(t)
	cartID := createCart(t, srv)

	data := addCatalogLine(t, srv, cartID, 2)
	line := data["line"].(map[string]any)
	require.Equal(t, "10.00", line["cardUnitPrice"])
	require.Equal(t, "9.50", line["cashUnitPrice"])
	require.Equal(t, true, line["taxable"])

	view := data["view"].(map[string]any)
	snap := view["snapshot"].(map[string]any)
	require.Equal(t, "20.00", snap["subtotal"])
	require.Equal(t, "0.00", snap["cashDiscount"])
}

func TestCashTenderFlowOverHTTP(t *testing.T) {
	srv, _ := newServer(t)
	cartID := createCart(t, srv)
	data := addCatalogLine(t, srv, cartID, 2)
	line := data["line"].(map[string]any)
	lineID := line["lineId"].(string)

	resp, body := doJSON(t, http.MethodPut, srv.URL+"/carts/"+cartID+"/payment-mode", map[string]any{"mode": "cash"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := snapshotOf(body)
	require.Equal(t, "1.00", snap["cashDiscount"])
	require.Equal(t, "1.49", snap["tax"])
	require.Equal(t, "20.49", snap["total"])

	// The live cash discount locks line mutations.
	resp, body = doJSON(t, http.MethodDelete, srv.URL+"/carts/"+cartID+"/lines/"+lineID, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	errBody := body["error"].(map[string]any)
	require.Equal(t, "DISCOUNT_LOCKED", errBody["code"])

	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/carts/"+cartID+"/lines/"+lineID+"/discount", map[string]any{"kind": "percent", "percent": "10"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// Back to card releases the lock.
	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/carts/"+cartID+"/payment-mode", map[string]any{"mode": "card"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/carts/"+cartID+"/lines/"+lineID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOrderDiscountsOverHTTP(t *testing.T) {
	srv, _ := newServer(t)
	cartID := createCart(t, srv)
	_, _ = doJSON(t, http.MethodPost, srv.URL+"/carts/"+cartID+"/lines", map[string]any{
		"productId":     productID,
		"qty":           10,
		"cardUnitPrice": "10.00",
		"cashUnitPrice": "10.00",
	})

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/carts/"+cartID+"/discounts", map[string]any{"kind": "percent", "percent": "10", "reason": "manager"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	discountID := body["data"].(map[string]any)["discountId"].(string)
	require.Equal(t, "10.00", snapshotOf(body)["orderDiscount"])

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/carts/"+cartID+"/discounts", map[string]any{"kind": "amount", "amount": "5.00"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "15.00", snapshotOf(body)["orderDiscount"])

	resp, body = doJSON(t, http.MethodDelete, srv.URL+"/carts/"+cartID+"/discounts/"+discountID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "5.00", snapshotOf(body)["orderDiscount"])

	resp, body = doJSON(t, http.MethodDelete, srv.URL+"/carts/"+cartID+"/discounts", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "0.00", snapshotOf(body)["orderDiscount"])
}

func TestClearResetsCartOverHTTP(t *testing.T) {
	srv, _ := newServer(t)
	cartID := createCart(t, srv)
	addCatalogLine(t, srv, cartID, 1)
	_, _ = doJSON(t, http.MethodPut, srv.URL+"/carts/"+cartID+"/payment-mode", map[string]any{"mode": "cash"})

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/carts/"+cartID+"/clear", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	require.Equal(t, "card", data["paymentMode"])
	require.Empty(t, data["lines"])
	require.Equal(t, "0.00", data["snapshot"].(map[string]any)["total"])
}

func TestCloseTearsDownSession(t *testing.T) {
	srv, registry := newServer(t)
	cartID := createCart(t, srv)
	require.Equal(t, 1, registry.Len())

	resp, _ := doJSON(t, http.MethodDelete, srv.URL+"/carts/"+cartID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, 0, registry.Len())

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/carts/"+cartID, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestValidationAndNotFound(t *testing.T) {
	srv, _ := newServer(t)
	cartID := createCart(t, srv)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/carts/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/carts/"+"11111111-1111-1111-1111-111111111111", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/carts/"+cartID+"/lines", map[string]any{"productId": "nope"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/carts/"+cartID+"/discounts", map[string]any{"kind": "percent", "percent": "250"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/carts/"+cartID+"/payment-mode", map[string]any{"mode": "crypto"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSnapshotEndpointMatchesView(t *testing.T) {
	srv, _ := newServer(t)
	cartID := createCart(t, srv)
	addCatalogLine(t, srv, cartID, 3)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/carts/"+cartID+"/snapshot", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	require.Equal(t, "USD", data["currency"])
	require.Equal(t, "30.00", data["snapshot"].(map[string]any)["subtotal"])

	resp, body = doJSON(t, http.MethodGet, fmt.Sprintf("%s/carts/%s", srv.URL, cartID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "30.00", snapshotOf(body)["subtotal"])
}
