// Package search backs the product picker: it filters the catalog by name, SKU
// or variation attributes and returns labeled candidates.
package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"product-meta-viewer/internal/domain"
	"product-meta-viewer/internal/report"
	"product-meta-viewer/internal/store"
)

const (
	DefaultLimit     = 20
	DefaultBatchSize = 500
)

// Result is one picker candidate.
type Result struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

type Matcher struct {
	catalog   store.Catalog
	limit     int
	batchSize int // Products read per catalog round trip
}

func NewMatcher(catalog store.Catalog, limit, batchSize int) *Matcher {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Matcher{catalog: catalog, limit: limit, batchSize: batchSize}
}

var searchKinds = []domain.Kind{domain.KindSimple, domain.KindVariable, domain.KindVariation}

// Search returns at most the configured number of candidates matching query.
// The catalog is read in id order, one batch at a time, until the results are
// full or every product has been seen. A blank query matches nothing.
func (m *Matcher) Search(ctx context.Context, query string) ([]Result, error) {
	results := []Result{}
	query = strings.TrimSpace(query)
	if query == "" {
		return results, nil
	}

	fold := cases.Fold()
	needle := fold.String(query)
	seen := make(map[int64]struct{})

	add := func(p domain.Product) bool {
		if _, dup := seen[p.ID]; dup {
			return len(results) < m.limit
		}
		if label, ok := matchLabel(fold, needle, p); ok {
			seen[p.ID] = struct{}{}
			results = append(results, Result{ID: p.ID, Text: label})
		}
		return len(results) < m.limit
	}

	var afterID int64
	for {
		products, err := m.catalog.ListProducts(ctx, store.ListProductsParams{
			Kinds:   searchKinds,
			AfterID: afterID,
			Limit:   m.batchSize,
		})
		if err != nil {
			return nil, unavailable("ListProducts", err)
		}

		for _, p := range products {
			if !add(p) {
				return results, nil
			}
			if p.Kind != domain.KindVariable {
				continue
			}
			children, err := m.catalog.ChildrenOf(ctx, p.ID)
			if err != nil {
				return nil, unavailable("ChildrenOf", err)
			}
			for _, child := range children {
				if !add(child) {
					return results, nil
				}
			}
		}

		if len(products) < m.batchSize {
			return results, nil
		}
		afterID = products[len(products)-1].ID
	}
}

// matchLabel reports whether p matches needle and, if so, its picker label.
func matchLabel(fold cases.Caser, needle string, p domain.Product) (string, bool) {
	name := p.Name
	haystacks := []string{p.Name, p.SKU}
	if p.Kind == domain.KindVariation {
		if summary := report.AttributeSummary(p.Attributes); summary != "" {
			haystacks = append(haystacks, summary)
			name += " (" + summary + ")"
		}
	}

	matched := false
	for _, h := range haystacks {
		if h != "" && strings.Contains(fold.String(h), needle) {
			matched = true
			break
		}
	}
	if !matched {
		return "", false
	}

	label := name + " (ID: " + strconv.FormatInt(p.ID, 10) + ")"
	if p.SKU != "" {
		label += " [SKU: " + p.SKU + "]"
	}
	return label, true
}

func unavailable(op string, err error) error {
	if errors.Is(err, store.ErrCatalogUnavailable) {
		return fmt.Errorf("search: %s failed: %w", op, err)
	}
	return fmt.Errorf("search: %s failed: %w: %w", op, store.ErrCatalogUnavailable, err)
}
