package report

import (
	"testing"

	"github.com/stretchr/testify/require"

	"product-meta-viewer/internal/store"
)

var testSettings = Settings{
	AdminURL:      "https://shop.example/wp-admin/",
	WeightUnit:    "kg",
	DimensionUnit: "cm",
}

func newTestMoney(t *testing.T) *MoneyFormatter {
	m, err := NewMoneyFormatter("USD", "$", "en-US", false)
	require.NoError(t, err)
	return m
}

func newFixtureService(t *testing.T) (*Service, *store.MemoryStore) {
	catalog, err := store.LoadFixture("../../testdata/catalog.yaml")
	require.NoError(t, err)
	return newServiceFor(t, catalog), catalog
}

func newServiceFor(t *testing.T, catalog store.Catalog) *Service {
	return NewService(catalog, NewExtractor(catalog, testSettings, newTestMoney(t)), NewFormatter())
}
