package report

import (
	"product-meta-viewer/internal/domain"
)

// KeyFunc maps a value to the string it is compared by.
type KeyFunc func(domain.Value) string

// Compare aligns two attribute maps by label. Rows follow left's order, then
// labels only right has in right's order. A row differs when the keys differ
// or when only one side has the field at all.
func Compare(left, right *domain.AttributeMap, key KeyFunc) []domain.ComparisonRow {
	labels := left.Labels()
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	for _, l := range right.Labels() {
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			labels = append(labels, l)
		}
	}

	rows := make([]domain.ComparisonRow, 0, len(labels))
	for _, l := range labels {
		lv, _ := left.Get(l)
		rv, _ := right.Get(l)
		rows = append(rows, domain.ComparisonRow{
			Label:   l,
			Left:    lv,
			Right:   rv,
			Differs: lv.Present() != rv.Present() || key(lv) != key(rv),
		})
	}
	return rows
}
