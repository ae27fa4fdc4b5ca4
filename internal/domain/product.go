package domain

import (
	"time"
)

// Kind is the catalog entity type of a product record.
type Kind string

const (
	KindSimple    Kind = "simple"
	KindVariable  Kind = "variable"
	KindVariation Kind = "variation"
)

// Recognized reports whether k is a product-like entity the viewer understands.
func (k Kind) Recognized() bool {
	switch k {
	case KindSimple, KindVariable, KindVariation:
		return true
	}
	return false
}

// Product is a read-only catalog record. Prices, weight and dimensions are kept
// as the catalog stores them (text), empty meaning "not set".
type Product struct {
	ID       int64  `json:"id" yaml:"id"`
	Kind     Kind   `json:"kind" yaml:"kind"`
	ParentID int64  `json:"parent_id,omitempty" yaml:"parent_id"` // Only set for variations
	Name     string `json:"name" yaml:"name"`
	SKU      string `json:"sku" yaml:"sku"`
	Status   string `json:"status" yaml:"status"`

	RegularPrice string `json:"regular_price" yaml:"regular_price"`
	SalePrice    string `json:"sale_price" yaml:"sale_price"`
	TaxStatus    string `json:"tax_status" yaml:"tax_status"`
	TaxClass     string `json:"tax_class" yaml:"tax_class"`

	StockStatus      string `json:"stock_status" yaml:"stock_status"`
	ManageStock      bool   `json:"manage_stock" yaml:"manage_stock"`
	StockQuantity    *int64 `json:"stock_quantity,omitempty" yaml:"stock_quantity"`
	LowStockAmount   *int64 `json:"low_stock_amount,omitempty" yaml:"low_stock_amount"`
	Backorders       string `json:"backorders" yaml:"backorders"`
	SoldIndividually bool   `json:"sold_individually" yaml:"sold_individually"`

	Weight string `json:"weight" yaml:"weight"`
	Length string `json:"length" yaml:"length"`
	Width  string `json:"width" yaml:"width"`
	Height string `json:"height" yaml:"height"`

	Virtual           bool   `json:"virtual" yaml:"virtual"`
	Downloadable      bool   `json:"downloadable" yaml:"downloadable"`
	CatalogVisibility string `json:"catalog_visibility" yaml:"catalog_visibility"`
	Featured          bool   `json:"featured" yaml:"featured"`
	ReviewsAllowed    bool   `json:"reviews_allowed" yaml:"reviews_allowed"`
	MenuOrder         int64  `json:"menu_order" yaml:"menu_order"`

	ShortDescription string `json:"short_description" yaml:"short_description"`
	Description      string `json:"description" yaml:"description"`
	ShippingClass    string `json:"shipping_class" yaml:"shipping_class"`
	PurchaseNote     string `json:"purchase_note" yaml:"purchase_note"`
	Permalink        string `json:"permalink" yaml:"permalink"`

	ImageID    int64   `json:"image_id,omitempty" yaml:"image_id"`
	GalleryIDs []int64 `json:"gallery_ids,omitempty" yaml:"gallery_ids"`

	Attributes []Attribute `json:"attributes,omitempty" yaml:"attributes"`

	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	ModifiedAt time.Time `json:"modified_at" yaml:"modified_at"`
}

// IsVariation reports whether p is a variation with a parent reference.
func (p *Product) IsVariation() bool {
	return p != nil && p.Kind == KindVariation && p.ParentID > 0
}

// RootID is the id taxonomy (categories, tags) hangs off: the parent for
// variations, the product itself otherwise.
func (p *Product) RootID() int64 {
	if p.IsVariation() {
		return p.ParentID
	}
	return p.ID
}

// Attribute is a named option list. Taxonomy attributes are backed by shared
// terms (name like "pa_color"); options are already resolved to term names.
type Attribute struct {
	Name     string   `json:"name" yaml:"name"`
	Options  []string `json:"options" yaml:"options"`
	Taxonomy bool     `json:"taxonomy,omitempty" yaml:"taxonomy"`
}

// Attachment is a media library entry.
type Attachment struct {
	ID         int64  `json:"id" yaml:"id"`
	DisplayURL string `json:"display_url" yaml:"display_url"` // Thumbnail-sized rendition
	FullURL    string `json:"full_url" yaml:"full_url"`
}

// MetaEntry is one stored metadata value. A key may appear several times.
type MetaEntry struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}
