// Package storetest provides test doubles for store.Catalog.
package storetest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"product-meta-viewer/internal/domain"
	"product-meta-viewer/internal/store"
)

var _ store.Catalog = (*MockCatalog)(nil)

// MockCatalog is a testify mock of store.Catalog
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockCatalog) FindBySKU(ctx context.Context, sku string) ([]int64, error) {
	args := m.Called(ctx, sku)
	var ids []int64
	if arg0 := args.Get(0); arg0 != nil {
		ids = arg0.([]int64)
	}
	return ids, args.Error(1)
}

func (m *MockCatalog) ListProducts(ctx context.Context, params store.ListProductsParams) ([]domain.Product, error) {
	args := m.Called(ctx, params)
	var products []domain.Product
	if arg0 := args.Get(0); arg0 != nil {
		products = arg0.([]domain.Product)
	}
	return products, args.Error(1)
}

func (m *MockCatalog) ChildrenOf(ctx context.Context, parentID int64) ([]domain.Product, error) {
	args := m.Called(ctx, parentID)
	var products []domain.Product
	if arg0 := args.Get(0); arg0 != nil {
		products = arg0.([]domain.Product)
	}
	return products, args.Error(1)
}

func (m *MockCatalog) CategoriesOf(ctx context.Context, id int64) ([]string, error) {
	args := m.Called(ctx, id)
	var names []string
	if arg0 := args.Get(0); arg0 != nil {
		names = arg0.([]string)
	}
	return names, args.Error(1)
}

func (m *MockCatalog) TagsOf(ctx context.Context, id int64) ([]string, error) {
	args := m.Called(ctx, id)
	var names []string
	if arg0 := args.Get(0); arg0 != nil {
		names = arg0.([]string)
	}
	return names, args.Error(1)
}

func (m *MockCatalog) Attachment(ctx context.Context, id int64) (*domain.Attachment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Attachment), args.Error(1)
}

func (m *MockCatalog) MetaOf(ctx context.Context, id int64) ([]domain.MetaEntry, error) {
	args := m.Called(ctx, id)
	var entries []domain.MetaEntry
	if arg0 := args.Get(0); arg0 != nil {
		entries = arg0.([]domain.MetaEntry)
	}
	return entries, args.Error(1)
}
