package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-meta-viewer/internal/domain"
)

func TestLoadFixture(t *testing.T) {
	s, err := LoadFixture("../../testdata/catalog.yaml")
	require.NoError(t, err)
	ctx := context.Background()

	p, err := s.FindByID(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, "ABC", p.SKU)
	require.NotNil(t, p.StockQuantity)
	assert.Equal(t, int64(5), *p.StockQuantity)
	assert.Equal(t, []int64{301, 302}, p.GalleryIDs)
	assert.Equal(t, 2024, p.CreatedAt.Year())

	_, err = s.FindByID(ctx, 999)
	assert.True(t, errors.Is(err, ErrProductNotFound))

	ids, err := s.FindBySKU(ctx, "WID-RED")
	require.NoError(t, err)
	assert.Equal(t, []int64{201}, ids)

	// Variable parents carry no purchasable SKU for lookup purposes.
	ids, err = s.FindBySKU(ctx, "WID")
	require.NoError(t, err)
	assert.Empty(t, ids)

	children, err := s.ChildrenOf(ctx, 200)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, int64(201), children[0].ID)

	cats, err := s.CategoriesOf(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, []string{"Gadgets"}, cats)

	meta, err := s.MetaOf(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, "_edit_lock", meta[0].Key)

	_, err = s.Attachment(ctx, 1)
	assert.True(t, errors.Is(err, ErrAttachmentNotFound))
}

func TestMemoryStore_ListProducts(t *testing.T) {
	s := NewMemoryStore(Fixture{Products: []domain.Product{
		{ID: 3, Kind: domain.KindSimple},
		{ID: 1, Kind: domain.KindVariable},
		{ID: 2, Kind: "grouped"},
	}})

	all, err := s.ListProducts(context.Background(), ListProductsParams{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(1), all[0].ID)

	some, err := s.ListProducts(context.Background(), ListProductsParams{
		Kinds: []domain.Kind{domain.KindSimple, domain.KindVariable},
		Limit: 1,
	})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, int64(1), some[0].ID)

	next, err := s.ListProducts(context.Background(), ListProductsParams{
		Kinds:   []domain.Kind{domain.KindSimple, domain.KindVariable},
		AfterID: some[0].ID,
		Limit:   1,
	})
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, int64(3), next[0].ID)
}
