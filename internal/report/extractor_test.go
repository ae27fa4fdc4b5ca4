package report

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"product-meta-viewer/internal/domain"
	"product-meta-viewer/internal/store"
	"product-meta-viewer/internal/store/storetest"
)

func extractID(t *testing.T, s *Service, catalog store.Catalog, id int64) *domain.AttributeMap {
	p, err := catalog.FindByID(context.Background(), id)
	require.NoError(t, err)
	m, err := s.extractor.Extract(context.Background(), p)
	require.NoError(t, err)
	return m
}

func textOf(t *testing.T, m *domain.AttributeMap, label string) string {
	v, ok := m.Get(label)
	require.True(t, ok, "missing field %q", label)
	require.Equal(t, domain.ValueScalar, v.Kind, "field %q", label)
	return v.Text
}

func TestExtract_SimpleProduct(t *testing.T) {
	s, catalog := newFixtureService(t)
	m := extractID(t, s, catalog, 101)

	assert.Equal(t, "101", textOf(t, m, LabelProductID))
	assert.Equal(t, "ABC", textOf(t, m, "SKU"))
	assert.Equal(t, "5", textOf(t, m, LabelStockQuantity))
	assert.Equal(t, "2", textOf(t, m, "Low Stock Threshold"))
	assert.Equal(t, "Not on sale", textOf(t, m, LabelSalePrice))
	assert.Equal(t, "$19.99", textOf(t, m, LabelRegularPrice))
	assert.Equal(t, "Standard", textOf(t, m, "Tax Class"))
	assert.Equal(t, "Do not allow", textOf(t, m, "Backorders"))
	assert.Equal(t, "0.3 kg", textOf(t, m, "Weight"))
	assert.Equal(t, "30 × 20 × 2 cm", textOf(t, m, "Dimensions (L×W×H)"))
	assert.Equal(t, "Yes", textOf(t, m, "Manage Stock"))
	assert.Equal(t, "Clothing, Tees", textOf(t, m, LabelCategories))
	assert.Equal(t, "summer", textOf(t, m, LabelTags))

	_, hasNote := m.Get(LabelPurchaseNote)
	assert.False(t, hasNote, "empty purchase note must be omitted")
	_, hasVariationSKU := m.Get("Variation SKU")
	assert.False(t, hasVariationSKU)

	img, _ := m.Get(LabelFeaturedImage)
	require.NotNil(t, img.Image)
	assert.Equal(t, int64(300), img.Image.AttachmentID)
	assert.Equal(t, "https://shop.example/wp-admin/post.php?post=300&action=edit", img.Image.EditURL)

	gallery, _ := m.Get(LabelGallery)
	require.Len(t, gallery.Gallery, 2)
	assert.Equal(t, int64(301), gallery.Gallery[0].AttachmentID)

	edit, _ := m.Get("Edit URL")
	assert.Equal(t, domain.URL("https://shop.example/wp-admin/post.php?post=101&action=edit"), edit)
}

func TestExtract_FixedFieldOrder(t *testing.T) {
	s, catalog := newFixtureService(t)
	labels := extractID(t, s, catalog, 102).Labels()

	require.GreaterOrEqual(t, len(labels), 6)
	assert.Equal(t, []string{LabelProductID, "Product Name", "Date Created", "Date Modified", "Product Type", "Status"}, labels[:6])
	// Custom fields follow every fixed field.
	assert.Equal(t, []string{"total_sales", "warranty"}, labels[len(labels)-2:])
	_, managed := extractID(t, s, catalog, 102).Get(LabelStockQuantity)
	assert.True(t, managed)
}

func TestExtract_Deterministic(t *testing.T) {
	s, catalog := newFixtureService(t)
	for _, id := range []int64{101, 102, 200, 201, 202} {
		first := extractID(t, s, catalog, id)
		second := extractID(t, s, catalog, id)
		assert.Equal(t, first.Fields(), second.Fields(), "product %d", id)
	}
}

func TestExtract_VariationFallsBackToParentImage(t *testing.T) {
	s, catalog := newFixtureService(t)
	m := extractID(t, s, catalog, 201)

	img, ok := m.Get(LabelFeaturedImage)
	require.True(t, ok)
	require.NotNil(t, img.Image)
	assert.Equal(t, int64(300), img.Image.AttachmentID, "variation without image shows the parent's")

	gallery, _ := m.Get(LabelGallery)
	assert.Equal(t, domain.ValueGallery, gallery.Kind)
	assert.Empty(t, gallery.Gallery, "galleries are not inherited")

	assert.Equal(t, "Gadgets", textOf(t, m, LabelCategories))
	assert.Equal(t, "new", textOf(t, m, LabelTags))
	assert.Equal(t, "200", textOf(t, m, "Parent ID"))
	assert.Equal(t, "WID", textOf(t, m, "Parent SKU"))
	assert.Equal(t, "201", textOf(t, m, "Variation ID"))
	assert.Equal(t, "WID-RED", textOf(t, m, "Variation SKU"))
	_, hasSKU := m.Get("SKU")
	assert.False(t, hasSKU)

	edit, _ := m.Get("Edit URL")
	assert.Equal(t, "https://shop.example/wp-admin/post.php?post=200&action=edit", edit.Text)

	attrs, _ := m.Get(LabelAttributes)
	assert.Equal(t, []domain.KeyValue{{Key: "Color", Value: "Red"}}, attrs.Pairs)
}

func TestExtract_VariationKeepsOwnImage(t *testing.T) {
	s, catalog := newFixtureService(t)
	img, _ := extractID(t, s, catalog, 202).Get(LabelFeaturedImage)
	require.NotNil(t, img.Image)
	assert.Equal(t, int64(302), img.Image.AttachmentID)
}

func TestExtract_CustomFields(t *testing.T) {
	s, catalog := newFixtureService(t)
	m := extractID(t, s, catalog, 101)

	for _, denied := range []string{"_edit_lock", "_yoast_wpseo_title", "_sku", "empty_field"} {
		_, ok := m.Get(denied)
		assert.False(t, ok, "%s must not be shown", denied)
	}

	assert.Equal(t, "42", textOf(t, m, "total_sales"))

	feed, ok := m.Get("supplier_feed")
	require.True(t, ok)
	assert.Equal(t, domain.KeyValues([]domain.KeyValue{
		{Key: "supplier", Value: "Acme"},
		{Key: "lead_days", Value: "3"},
	}), feed)

	sheet, ok := m.Get("spec_sheet")
	require.True(t, ok)
	assert.Equal(t, domain.URL("https://shop.example/uploads/tee-spec.pdf"), sheet)
}

func TestMergeMeta_FirstNonEmptyValueWins(t *testing.T) {
	m := domain.NewAttributeMap()
	m.Add(LabelProductID, domain.Int(1))

	mergeMeta(m, []domain.MetaEntry{
		{Key: "color_code", Value: "  "},
		{Key: "color_code", Value: "#ff0000"},
		{Key: "color_code", Value: "#00ff00"},
		{Key: "rank_math_title", Value: "x"},
		{Key: "attribute_pa_color", Value: "red"},
		{Key: "list", Value: "[]"},
		{Key: "sizes", Value: `["S","M",{"x":1}]`},
		{Key: LabelProductID, Value: "shadow"},
	})

	assert.Equal(t, []string{LabelProductID, "color_code", "sizes"}, m.Labels())
	v, _ := m.Get("color_code")
	assert.Equal(t, "#ff0000", v.Text)
	sizes, _ := m.Get("sizes")
	assert.Equal(t, []domain.KeyValue{{Key: "0", Value: "S"}, {Key: "1", Value: "M"}, {Key: "2", Value: `{"x":1}`}}, sizes.Pairs)
	id, _ := m.Get(LabelProductID)
	assert.Equal(t, "1", id.Text, "custom fields never overwrite fixed fields")
}

func TestExtract_NilAndUnrecognized(t *testing.T) {
	s, _ := newFixtureService(t)

	m, err := s.extractor.Extract(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, m.Len())

	m, err = s.extractor.Extract(context.Background(), &domain.Product{ID: 5, Kind: "grouped"})
	require.NoError(t, err)
	assert.Zero(t, m.Len())
}

func TestExtract_CatalogUnavailable(t *testing.T) {
	catalog := new(storetest.MockCatalog)
	s := newServiceFor(t, catalog)
	outage := fmt.Errorf("store: termsOf failed: %w", store.ErrCatalogUnavailable)

	catalog.On("CategoriesOf", mock.Anything, int64(7)).Return(nil, outage).Once()

	_, err := s.extractor.Extract(context.Background(), &domain.Product{ID: 7, Kind: domain.KindSimple})

	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrCatalogUnavailable))
	catalog.AssertExpectations(t)
}

func TestExtract_ManageStockOff(t *testing.T) {
	catalog := new(storetest.MockCatalog)
	s := newServiceFor(t, catalog)
	catalog.On("CategoriesOf", mock.Anything, int64(8)).Return([]string{}, nil)
	catalog.On("TagsOf", mock.Anything, int64(8)).Return([]string{}, nil)
	catalog.On("MetaOf", mock.Anything, int64(8)).Return([]domain.MetaEntry{}, nil)

	m, err := s.extractor.Extract(context.Background(), &domain.Product{
		ID: 8, Kind: domain.KindSimple, PurchaseNote: "Thanks!", SalePrice: "5",
	})

	require.NoError(t, err)
	_, ok := m.Get(LabelStockQuantity)
	assert.False(t, ok)
	_, ok = m.Get("Weight")
	assert.False(t, ok)
	assert.Equal(t, "Not set", textOf(t, m, LabelRegularPrice))
	assert.Equal(t, "$5.00", textOf(t, m, LabelSalePrice))
	assert.Equal(t, "Thanks!", textOf(t, m, LabelPurchaseNote))
	img, _ := m.Get(LabelFeaturedImage)
	assert.Equal(t, domain.Image(nil), img)
	catalog.AssertExpectations(t)
}
