package report

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"product-meta-viewer/internal/domain"
)

// AttributeLabel turns a stored attribute name into its display label.
// Taxonomy attributes are stored as slugs ("pa_shirt-size" -> "Shirt Size").
func AttributeLabel(a domain.Attribute) string {
	name := a.Name
	if !a.Taxonomy && !strings.HasPrefix(name, "pa_") {
		return name
	}
	name = strings.TrimPrefix(name, "pa_")
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return cases.Title(language.English).String(name)
}

// AttributePairs lists attributes as label -> comma-joined options.
func AttributePairs(attrs []domain.Attribute) []domain.KeyValue {
	pairs := make([]domain.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		pairs = append(pairs, domain.KeyValue{Key: AttributeLabel(a), Value: strings.Join(a.Options, ", ")})
	}
	return pairs
}

// AttributeSummary renders attributes on one line, e.g. "Color: Red, Size: M".
func AttributeSummary(attrs []domain.Attribute) string {
	parts := make([]string, 0, len(attrs))
	for _, kv := range AttributePairs(attrs) {
		parts = append(parts, kv.Key+": "+kv.Value)
	}
	return strings.Join(parts, ", ")
}
