package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/catalog"
	"github.com/noah-isme/backend-kasir/internal/money"
	"github.com/noah-isme/backend-kasir/internal/resilience"
)

func TestHTTPSourceFetchesProduct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/products/espresso", r.URL.Path)
		_ = json.NewEncoder(w).Encode(catalog.Product{
			ID:        "espresso",
			Name:      "Espresso",
			CardPrice: money.MustParse("3.50"),
			CashPrice: money.MustParse("3.25"),
			Taxable:   true,
		})
	}))
	defer srv.Close()

	source := &catalog.HTTPSource{BaseURL: srv.URL}
	p, err := source.Product(context.Background(), "espresso")
	require.NoError(t, err)
	require.Equal(t, "Espresso", p.Name)
	require.Equal(t, "3.25", p.CashPrice.String())
}

func TestHTTPSourceNotFoundIsTerminal(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	source := &catalog.HTTPSource{BaseURL: srv.URL, MaxAttempts: 3}
	_, err := source.Product(context.Background(), "ghost")
	require.ErrorIs(t, err, catalog.ErrNotFound)
	require.Equal(t, int32(1), hits.Load(), "404 must not be retried")
}

func TestHTTPSourceRetriesThenFails(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	source := &catalog.HTTPSource{
		BaseURL:     srv.URL,
		MaxAttempts: 2,
		BaseBackoff: time.Millisecond,
	}
	_, err := source.Product(context.Background(), "espresso")
	require.Error(t, err)
	require.Equal(t, int32(2), hits.Load())
}

func TestHTTPSourceOpenBreakerShortCircuits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	breaker := resilience.NewBreaker(1, 0.5, time.Minute).WithTarget("catalog")
	source := &catalog.HTTPSource{
		BaseURL:     srv.URL,
		Breaker:     breaker,
		MaxAttempts: 1,
	}
	_, err := source.Product(context.Background(), "espresso")
	require.Error(t, err)
	require.False(t, errors.Is(err, resilience.ErrOpenCircuit))

	_, err = source.Product(context.Background(), "espresso")
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
}
