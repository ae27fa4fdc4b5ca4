package store

import (
	"context"
	"errors"

	"product-meta-viewer/internal/domain"
)

// Predefined errors for catalog lookups
var (
	ErrProductNotFound    = errors.New("store: product not found")
	ErrAttachmentNotFound = errors.New("store: attachment not found")
	// ErrCatalogUnavailable wraps every backend failure so callers can tell an
	// outage apart from a missing record.
	ErrCatalogUnavailable = errors.New("store: catalog unavailable")
)

// ListProductsParams narrows a catalog scan. Results are in ascending id
// order, so a scan pages through the catalog by passing the last id seen as
// AfterID.
type ListProductsParams struct {
	Kinds   []domain.Kind // Empty means all kinds
	AfterID int64         // Only ids greater than this
	Limit   int           // Page size; <= 0 means no bound
}

// Catalog is the read-only product catalog the viewer reports on.
type Catalog interface {
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	// FindBySKU returns matching ids in catalog order; only simple products and
	// variations carry a purchasable SKU.
	FindBySKU(ctx context.Context, sku string) ([]int64, error)
	ListProducts(ctx context.Context, params ListProductsParams) ([]domain.Product, error)
	ChildrenOf(ctx context.Context, parentID int64) ([]domain.Product, error)
	CategoriesOf(ctx context.Context, id int64) ([]string, error)
	TagsOf(ctx context.Context, id int64) ([]string, error)
	Attachment(ctx context.Context, id int64) (*domain.Attachment, error)
	// MetaOf returns raw metadata in storage order.
	MetaOf(ctx context.Context, id int64) ([]domain.MetaEntry, error)
}

// Pinger is implemented by catalogs backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SKULookupKinds are the kinds a SKU lookup resolves to.
var SKULookupKinds = []domain.Kind{domain.KindSimple, domain.KindVariation}

func kindStrings(kinds []domain.Kind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
