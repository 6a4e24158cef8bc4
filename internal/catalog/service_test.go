package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/catalog"
	"github.com/noah-isme/backend-kasir/internal/money"
)

type countingSource struct {
	inner *catalog.StaticSource
	calls int
}

func (c *countingSource) Product(ctx context.Context, id string) (catalog.Product, error) {
	c.calls++
	return c.inner.Product(ctx, id)
}

func seedProduct() catalog.Product {
	return catalog.Product{
		ID:        "p-espresso",
		Name:      "Espresso",
		CardPrice: money.MustParse("3.50"),
		CashPrice: money.MustParse("3.25"),
		Taxable:   true,
		Variants: []catalog.Variant{
			{ID: "v-double", Name: "Double", CardPrice: money.MustParse("4.50"), CashPrice: money.MustParse("4.25")},
		},
	}
}

func TestServiceReadThroughCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	src := &countingSource{inner: catalog.NewStaticSource(seedProduct())}
	svc := &catalog.Service{Source: src, Cache: catalog.NewCache(client, time.Minute)}

	ctx := context.Background()
	first, err := svc.Product(ctx, "p-espresso")
	require.NoError(t, err)
	require.Equal(t, "3.50", first.CardPrice.String())

	second, err := svc.Product(ctx, "p-espresso")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, src.calls, "second read must come from cache")
}

func TestServiceWithoutCache(t *testing.T) {
	svc := &catalog.Service{Source: catalog.NewStaticSource(seedProduct())}
	_, err := svc.Product(context.Background(), "p-espresso")
	require.NoError(t, err)
	_, err = svc.Product(context.Background(), "missing")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestPricesResolvesVariant(t *testing.T) {
	svc := &catalog.Service{Source: catalog.NewStaticSource(seedProduct())}

	card, cash, taxable, err := svc.Prices(context.Background(), "p-espresso", "")
	require.NoError(t, err)
	require.Equal(t, "3.50", card.String())
	require.Equal(t, "3.25", cash.String())
	require.True(t, taxable)

	card, cash, _, err = svc.Prices(context.Background(), "p-espresso", "v-double")
	require.NoError(t, err)
	require.Equal(t, "4.50", card.String())
	require.Equal(t, "4.25", cash.String())

	_, _, _, err = svc.Prices(context.Background(), "p-espresso", "v-missing")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}
