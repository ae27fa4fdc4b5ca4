package store

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"product-meta-viewer/internal/domain"
)

// Fixture is the on-disk layout of a catalog snapshot used by MemoryStore.
type Fixture struct {
	Products    []domain.Product    `yaml:"products"`
	Attachments []domain.Attachment `yaml:"attachments"`
	Terms       []FixtureTerms      `yaml:"terms"`
	Meta        []FixtureMeta       `yaml:"meta"`
}

type FixtureTerms struct {
	ProductID  int64    `yaml:"product_id"`
	Categories []string `yaml:"categories"`
	Tags       []string `yaml:"tags"`
}

type FixtureMeta struct {
	ProductID int64              `yaml:"product_id"`
	Entries   []domain.MetaEntry `yaml:"entries"`
}

// MemoryStore is a read-only Catalog over a fixture snapshot. It is safe for
// concurrent readers since nothing mutates it after construction.
type MemoryStore struct {
	products    map[int64]domain.Product
	order       []int64
	attachments map[int64]domain.Attachment
	categories  map[int64][]string
	tags        map[int64][]string
	meta        map[int64][]domain.MetaEntry
}

// NewMemoryStore indexes f. Products keep the fixture's id order.
func NewMemoryStore(f Fixture) *MemoryStore {
	s := &MemoryStore{
		products:    make(map[int64]domain.Product, len(f.Products)),
		attachments: make(map[int64]domain.Attachment, len(f.Attachments)),
		categories:  make(map[int64][]string),
		tags:        make(map[int64][]string),
		meta:        make(map[int64][]domain.MetaEntry),
	}
	for _, p := range f.Products {
		if _, dup := s.products[p.ID]; !dup {
			s.order = append(s.order, p.ID)
		}
		s.products[p.ID] = p
	}
	sort.Slice(s.order, func(i, j int) bool { return s.order[i] < s.order[j] })
	for _, a := range f.Attachments {
		s.attachments[a.ID] = a
	}
	for _, t := range f.Terms {
		s.categories[t.ProductID] = append(s.categories[t.ProductID], t.Categories...)
		s.tags[t.ProductID] = append(s.tags[t.ProductID], t.Tags...)
	}
	for _, m := range f.Meta {
		s.meta[m.ProductID] = append(s.meta[m.ProductID], m.Entries...)
	}
	return s
}

// LoadFixture reads a YAML catalog snapshot from path.
func LoadFixture(path string) (*MemoryStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: LoadFixture failed to read %s: %w", path, err)
	}
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("store: LoadFixture failed to decode %s: %w", path, err)
	}
	return NewMemoryStore(f), nil
}

func (s *MemoryStore) FindByID(_ context.Context, id int64) (*domain.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

func (s *MemoryStore) FindBySKU(_ context.Context, sku string) ([]int64, error) {
	ids := []int64{}
	for _, id := range s.order {
		p := s.products[id]
		if p.SKU == sku && hasKind(SKULookupKinds, p.Kind) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *MemoryStore) ListProducts(_ context.Context, params ListProductsParams) ([]domain.Product, error) {
	products := []domain.Product{}
	for _, id := range s.order {
		if params.Limit > 0 && len(products) >= params.Limit {
			break
		}
		if id <= params.AfterID {
			continue
		}
		p := s.products[id]
		if len(params.Kinds) == 0 || hasKind(params.Kinds, p.Kind) {
			products = append(products, p)
		}
	}
	return products, nil
}

func (s *MemoryStore) ChildrenOf(_ context.Context, parentID int64) ([]domain.Product, error) {
	children := []domain.Product{}
	for _, id := range s.order {
		p := s.products[id]
		if p.Kind == domain.KindVariation && p.ParentID == parentID {
			children = append(children, p)
		}
	}
	sort.SliceStable(children, func(i, j int) bool { return children[i].MenuOrder < children[j].MenuOrder })
	return children, nil
}

func (s *MemoryStore) CategoriesOf(_ context.Context, id int64) ([]string, error) {
	return append([]string{}, s.categories[id]...), nil
}

func (s *MemoryStore) TagsOf(_ context.Context, id int64) ([]string, error) {
	return append([]string{}, s.tags[id]...), nil
}

func (s *MemoryStore) Attachment(_ context.Context, id int64) (*domain.Attachment, error) {
	a, ok := s.attachments[id]
	if !ok {
		return nil, ErrAttachmentNotFound
	}
	return &a, nil
}

func (s *MemoryStore) MetaOf(_ context.Context, id int64) ([]domain.MetaEntry, error) {
	return append([]domain.MetaEntry{}, s.meta[id]...), nil
}

func hasKind(kinds []domain.Kind, k domain.Kind) bool {
	for _, want := range kinds {
		if strings.EqualFold(string(want), string(k)) {
			return true
		}
	}
	return false
}
