package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-meta-viewer/internal/domain"
)

func rowByLabel(t *testing.T, rows []domain.ComparisonRow, label string) domain.ComparisonRow {
	for _, r := range rows {
		if r.Label == label {
			return r
		}
	}
	require.Failf(t, "missing row", "label %q", label)
	return domain.ComparisonRow{}
}

func TestCompare_UnionOfLabels(t *testing.T) {
	f := NewFormatter()
	left := domain.NewAttributeMap()
	left.Add("a", domain.Text("1"))
	left.Add("b", domain.Text("2"))
	right := domain.NewAttributeMap()
	right.Add("c", domain.Text("3"))
	right.Add("a", domain.Text("1"))

	rows := Compare(left, right, f.ComparisonKey)

	require.Len(t, rows, 3)
	assert.Equal(t, "a", rows[0].Label)
	assert.False(t, rows[0].Differs)
	assert.Equal(t, "b", rows[1].Label)
	assert.True(t, rows[1].Differs)
	assert.False(t, rows[1].Right.Present())
	assert.Equal(t, "c", rows[2].Label)
	assert.True(t, rows[2].Differs)
}

func TestCompare_AbsentDiffersFromEmpty(t *testing.T) {
	f := NewFormatter()
	left := domain.NewAttributeMap()
	left.Add("note", domain.Text(""))
	right := domain.NewAttributeMap()

	rows := Compare(left, right, f.ComparisonKey)

	require.Len(t, rows, 1)
	assert.True(t, rows[0].Differs)
}

func TestCompare_FixtureProducts(t *testing.T) {
	s, _ := newFixtureService(t)
	ctx := context.Background()

	cmp, err := s.Compare(ctx, Ref{SKU: "ABC"}, Ref{SKU: "DEF"})
	require.NoError(t, err)

	assert.True(t, rowByLabel(t, cmp.Rows, LabelRegularPrice).Differs)
	assert.True(t, rowByLabel(t, cmp.Rows, LabelSalePrice).Differs)
	assert.False(t, rowByLabel(t, cmp.Rows, LabelCategories).Differs)
	assert.False(t, rowByLabel(t, cmp.Rows, "Status").Differs)
	warranty := rowByLabel(t, cmp.Rows, "warranty")
	assert.True(t, warranty.Differs)
	assert.False(t, warranty.Left.Present())
}

func TestCompare_SameProductNeverDiffers(t *testing.T) {
	s, _ := newFixtureService(t)
	for _, id := range []int64{101, 200, 201} {
		cmp, err := s.Compare(context.Background(), Ref{ID: id}, Ref{ID: id})
		require.NoError(t, err)
		for _, row := range cmp.Rows {
			assert.False(t, row.Differs, "product %d row %q", id, row.Label)
		}
	}
}

func TestCompare_Symmetric(t *testing.T) {
	s, _ := newFixtureService(t)
	ctx := context.Background()

	ab, err := s.Compare(ctx, Ref{ID: 101}, Ref{ID: 201})
	require.NoError(t, err)
	ba, err := s.Compare(ctx, Ref{ID: 201}, Ref{ID: 101})
	require.NoError(t, err)

	flags := make(map[string]bool, len(ab.Rows))
	for _, row := range ab.Rows {
		flags[row.Label] = row.Differs
	}
	require.Len(t, ba.Rows, len(ab.Rows))
	for _, row := range ba.Rows {
		assert.Equal(t, flags[row.Label], row.Differs, "row %q", row.Label)
	}
}

func TestCompare_VariationImagesCompareByAttachment(t *testing.T) {
	s, _ := newFixtureService(t)

	// 201 inherits its parent's image 300, the same attachment 101 uses.
	cmp, err := s.Compare(context.Background(), Ref{ID: 101}, Ref{SKU: "WID-RED"})
	require.NoError(t, err)
	assert.False(t, rowByLabel(t, cmp.Rows, LabelFeaturedImage).Differs)

	cmp, err = s.Compare(context.Background(), Ref{ID: 101}, Ref{SKU: "WID-BLUE"})
	require.NoError(t, err)
	assert.True(t, rowByLabel(t, cmp.Rows, LabelFeaturedImage).Differs)
}
