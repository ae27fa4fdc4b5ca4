package report

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"product-meta-viewer/internal/domain"
	"product-meta-viewer/internal/store"
)

var ErrInvalidProduct = errors.New("report: invalid product")

// User-facing page messages.
const (
	MsgNoProductsFound   = "No products found with the provided information. Please check your SKU or ID."
	MsgProvideReference  = "Please provide a valid SKU or ID for at least one product."
	MsgInvalidProduct    = "Invalid product object."
	MsgInvalidComparison = "Invalid product objects for comparison."
	MsgInvalidReference  = "SKUs are limited to 100 characters and IDs must be positive numbers."
)

// Ref identifies a product by SKU or id. The SKU wins when both are set.
type Ref struct {
	SKU string `json:"sku,omitempty"`
	ID  int64  `json:"id,omitempty"`
}

func (r Ref) normalized() Ref {
	r.SKU = strings.TrimSpace(r.SKU)
	if r.SKU != "" || r.ID < 0 {
		r.ID = 0
	}
	return r
}

// Empty reports whether r names nothing.
func (r Ref) Empty() bool {
	r = r.normalized()
	return r.SKU == "" && r.ID == 0
}

// Detail is the single-product report.
type Detail struct {
	Product *domain.Product
	Fields  *domain.AttributeMap
	EditURL string
}

// FeaturedImage is the image shown in report headers.
func (d *Detail) FeaturedImage() domain.Value {
	v, _ := d.Fields.Get(LabelFeaturedImage)
	return v
}

// Comparison is the side-by-side report.
type Comparison struct {
	Left  *Detail
	Right *Detail
	Rows  []domain.ComparisonRow
}

// Service answers report requests against a catalog.
type Service struct {
	catalog   store.Catalog
	extractor *Extractor
	formatter *Formatter
}

func NewService(catalog store.Catalog, extractor *Extractor, formatter *Formatter) *Service {
	return &Service{catalog: catalog, extractor: extractor, formatter: formatter}
}

func (s *Service) Formatter() *Formatter { return s.formatter }

// lookupIDs returns candidate ids for ref without loading records. A direct id
// is taken at face value.
func (s *Service) lookupIDs(ctx context.Context, ref Ref) ([]int64, error) {
	ref = ref.normalized()
	switch {
	case ref.SKU != "":
		ids, err := s.catalog.FindBySKU(ctx, ref.SKU)
		if err != nil {
			return nil, fmt.Errorf("report: SKU lookup for %q failed: %w", ref.SKU, err)
		}
		if len(ids) > 1 {
			log.Ctx(ctx).Warn().Str("sku", ref.SKU).Ints64("ids", ids).Msg("SKU matches several products, using the first")
		}
		return ids, nil
	case ref.ID > 0:
		return []int64{ref.ID}, nil
	default:
		return nil, nil
	}
}

// Resolve loads the product ref names.
func (s *Service) Resolve(ctx context.Context, ref Ref) (*domain.Product, error) {
	ids, err := s.lookupIDs(ctx, ref)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, store.ErrProductNotFound
	}
	p, err := s.catalog.FindByID(ctx, ids[0])
	if err != nil {
		return nil, fmt.Errorf("report: Resolve failed for id %d: %w", ids[0], err)
	}
	return p, nil
}

func (s *Service) Detail(ctx context.Context, ref Ref) (*Detail, error) {
	p, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.detailOf(ctx, p)
}

func (s *Service) detailOf(ctx context.Context, p *domain.Product) (*Detail, error) {
	if p == nil || !p.Kind.Recognized() {
		return nil, ErrInvalidProduct
	}
	fields, err := s.extractor.Extract(ctx, p)
	if err != nil {
		return nil, err
	}
	return &Detail{Product: p, Fields: fields, EditURL: s.extractor.EditURL(p.RootID())}, nil
}

func (s *Service) Compare(ctx context.Context, left, right Ref) (*Comparison, error) {
	lp, err := s.Resolve(ctx, left)
	if err != nil {
		return nil, err
	}
	rp, err := s.Resolve(ctx, right)
	if err != nil {
		return nil, err
	}
	return s.compareOf(ctx, lp, rp)
}

func (s *Service) compareOf(ctx context.Context, lp, rp *domain.Product) (*Comparison, error) {
	ld, err := s.detailOf(ctx, lp)
	if err != nil {
		return nil, err
	}
	rd, err := s.detailOf(ctx, rp)
	if err != nil {
		return nil, err
	}
	return &Comparison{Left: ld, Right: rd, Rows: Compare(ld.Fields, rd.Fields, s.formatter.ComparisonKey)}, nil
}

// PageQuery is the page's input: two optional product references.
type PageQuery struct {
	SKU1 string `validate:"omitempty,max=100"`
	ID1  int64  `validate:"gte=0"`
	SKU2 string `validate:"omitempty,max=100"`
	ID2  int64  `validate:"gte=0"`
}

func (q PageQuery) First() Ref  { return Ref{SKU: q.SKU1, ID: q.ID1} }
func (q PageQuery) Second() Ref { return Ref{SKU: q.SKU2, ID: q.ID2} }

// Values encodes q as query parameters: sku1 else id1, sku2 else id2.
func (q PageQuery) Values() url.Values {
	v := url.Values{}
	if r := q.First().normalized(); r.SKU != "" {
		v.Set("sku1", r.SKU)
	} else if r.ID > 0 {
		v.Set("id1", strconv.FormatInt(r.ID, 10))
	}
	if r := q.Second().normalized(); r.SKU != "" {
		v.Set("sku2", r.SKU)
	} else if r.ID > 0 {
		v.Set("id2", strconv.FormatInt(r.ID, 10))
	}
	return v
}

// PermalinkWithParams returns base with q's parameters merged in.
func PermalinkWithParams(base string, q PageQuery) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	params := u.Query()
	for k, vs := range q.Values() {
		params[k] = vs
	}
	u.RawQuery = params.Encode()
	return u.String()
}

// PageMode says which report the page shows.
type PageMode int

const (
	ModePrompt PageMode = iota
	ModeDetail
	ModeComparison
)

// Page is everything the report page needs to render.
type Page struct {
	Query      PageQuery
	Mode       PageMode
	Error      string // Shown as an error notice above the report
	Invalid    string // Shown inline in place of the report
	Detail     *Detail
	Comparison *Comparison
}

// Page runs the page flow: nothing found, one product, or a comparison.
// Catalog failures are returned as errors, never folded into messages.
func (s *Service) Page(ctx context.Context, q PageQuery) (*Page, error) {
	page := &Page{Query: q, Mode: ModePrompt}

	ids1, err := s.lookupIDs(ctx, q.First())
	if err != nil {
		return nil, err
	}
	ids2, err := s.lookupIDs(ctx, q.Second())
	if err != nil {
		return nil, err
	}

	anyInput := !q.First().Empty() || !q.Second().Empty()
	if anyInput && len(ids1) == 0 && len(ids2) == 0 {
		page.Error = MsgNoProductsFound
	}

	switch {
	case len(ids1) > 0 && len(ids2) == 0:
		p, err := s.load(ctx, ids1[0])
		if err != nil {
			return nil, err
		}
		if p == nil {
			page.Error = MsgNoProductsFound
			return page, nil
		}
		page.Mode = ModeDetail
		page.Detail, err = s.detailOf(ctx, p)
		switch {
		case errors.Is(err, ErrInvalidProduct):
			page.Invalid = MsgInvalidProduct
		case err != nil:
			return nil, err
		}

	case len(ids1) > 0 && len(ids2) > 0:
		lp, err := s.load(ctx, ids1[0])
		if err != nil {
			return nil, err
		}
		rp, err := s.load(ctx, ids2[0])
		if err != nil {
			return nil, err
		}
		if lp == nil || rp == nil {
			page.Error = MsgNoProductsFound
			return page, nil
		}
		page.Mode = ModeComparison
		page.Comparison, err = s.compareOf(ctx, lp, rp)
		switch {
		case errors.Is(err, ErrInvalidProduct):
			page.Invalid = MsgInvalidComparison
		case err != nil:
			return nil, err
		}
	}
	return page, nil
}

// load fetches id, mapping "not found" to nil.
func (s *Service) load(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.catalog.FindByID(ctx, id)
	if errors.Is(err, store.ErrProductNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("report: load failed for id %d: %w", id, err)
	}
	return p, nil
}
