package report

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"product-meta-viewer/internal/domain"
	"product-meta-viewer/internal/store"
)

// Field labels referenced outside the extractor.
const (
	LabelProductID     = "Product ID"
	LabelRegularPrice  = "Regular Price"
	LabelSalePrice     = "Sale Price"
	LabelStockQuantity = "Stock Quantity"
	LabelFeaturedImage = "Featured Image"
	LabelGallery       = "Gallery Images"
	LabelCategories    = "Product Categories"
	LabelTags          = "Product Tags"
	LabelAttributes    = "Attributes"
	LabelPurchaseNote  = "Purchase Note"
)

const (
	notSet    = "Not set"
	notOnSale = "Not on sale"
)

// Meta keys that are internal bookkeeping or already shown as a fixed field.
var deniedMetaKeys = map[string]struct{}{
	"_edit_lock": {}, "_edit_last": {},
	"_sku": {}, "_regular_price": {}, "_sale_price": {}, "_price": {},
	"_tax_status": {}, "_tax_class": {},
	"_stock_status": {}, "_manage_stock": {}, "_stock": {}, "_low_stock_amount": {},
	"_backorders": {}, "_sold_individually": {},
	"_weight": {}, "_length": {}, "_width": {}, "_height": {},
	"_virtual": {}, "_downloadable": {}, "_featured": {}, "_visibility": {},
	"_thumbnail_id": {}, "_product_image_gallery": {}, "_product_attributes": {},
	"_purchase_note": {},
}

var deniedMetaPrefixes = []string{"_yoast_", "_wpseo", "rank_math_", "_aioseo_", "attribute_"}

var backorderLabels = map[string]string{
	"no":     "Do not allow",
	"notify": "Allow, but notify customer",
	"yes":    "Allow",
}

// Settings carries store-wide display options.
type Settings struct {
	AdminURL      string // Base of the admin UI, e.g. https://shop.example/wp-admin
	WeightUnit    string
	DimensionUnit string
	DateLayout    string
}

// Extractor turns one catalog record into an ordered AttributeMap.
type Extractor struct {
	catalog  store.Catalog
	settings Settings
	money    *MoneyFormatter
}

func NewExtractor(catalog store.Catalog, settings Settings, money *MoneyFormatter) *Extractor {
	if settings.DateLayout == "" {
		settings.DateLayout = time.DateTime
	}
	return &Extractor{catalog: catalog, settings: settings, money: money}
}

// EditURL is the admin edit link for a post id.
func (e *Extractor) EditURL(id int64) string {
	return strings.TrimRight(e.settings.AdminURL, "/") + "/post.php?post=" + strconv.FormatInt(id, 10) + "&action=edit"
}

// Extract builds the attribute map for p. A nil or unrecognized record yields
// an empty map; the error is reserved for catalog failures.
func (e *Extractor) Extract(ctx context.Context, p *domain.Product) (*domain.AttributeMap, error) {
	m := domain.NewAttributeMap()
	if p == nil || !p.Kind.Recognized() {
		return m, nil
	}

	var parent *domain.Product
	if p.IsVariation() {
		found, err := e.catalog.FindByID(ctx, p.ParentID)
		switch {
		case err == nil:
			parent = found
		case !errors.Is(err, store.ErrProductNotFound):
			return nil, fmt.Errorf("report: Extract failed to load parent %d: %w", p.ParentID, err)
		}
	}

	m.Add(LabelProductID, domain.Int(p.ID))
	m.Add("Product Name", domain.Text(p.Name))
	m.Add("Date Created", domain.Text(e.formatTime(p.CreatedAt)))
	m.Add("Date Modified", domain.Text(e.formatTime(p.ModifiedAt)))
	m.Add("Product Type", domain.Text(string(p.Kind)))
	m.Add("Status", domain.Text(p.Status))

	if p.IsVariation() {
		m.Add("Parent ID", domain.Int(p.ParentID))
		if parent != nil {
			m.Add("Parent SKU", domain.Text(parent.SKU))
		}
		m.Add("Variation ID", domain.Int(p.ID))
		m.Add("Variation SKU", domain.Text(p.SKU))
	} else {
		m.Add("SKU", domain.Text(p.SKU))
	}

	m.Add(LabelRegularPrice, domain.Text(e.price(p.RegularPrice, notSet)))
	m.Add(LabelSalePrice, domain.Text(e.price(p.SalePrice, notOnSale)))
	m.Add("Tax Status", domain.Text(p.TaxStatus))
	m.Add("Tax Class", domain.Text(orDefault(p.TaxClass, "Standard")))

	m.Add("Stock Status", domain.Text(p.StockStatus))
	m.Add("Manage Stock", domain.Bool(p.ManageStock))
	if p.ManageStock {
		m.Add(LabelStockQuantity, optionalInt(p.StockQuantity))
		m.Add("Low Stock Threshold", optionalInt(p.LowStockAmount))
	}
	m.Add("Backorders", domain.Text(orDefault(backorderLabels[p.Backorders], p.Backorders)))
	m.Add("Sold Individually", domain.Bool(p.SoldIndividually))

	if w := strings.TrimSpace(p.Weight); w != "" {
		m.Add("Weight", domain.Text(strings.TrimSpace(w+" "+e.settings.WeightUnit)))
	}
	if hasDimensions(p) {
		dims := fmt.Sprintf("%s × %s × %s %s", p.Length, p.Width, p.Height, e.settings.DimensionUnit)
		m.Add("Dimensions (L×W×H)", domain.Text(strings.TrimSpace(dims)))
	}
	m.Add("Virtual", domain.Bool(p.Virtual))
	m.Add("Downloadable", domain.Bool(p.Downloadable))
	m.Add("Catalog Visibility", domain.Text(p.CatalogVisibility))
	m.Add("Featured Status", domain.Bool(p.Featured))
	m.Add("Reviews Allowed", domain.Bool(p.ReviewsAllowed))
	m.Add("Menu Order", domain.Int(p.MenuOrder))
	m.Add("Short Description", domain.Text(p.ShortDescription))
	m.Add("Description", domain.Text(p.Description))

	image, err := e.imageRef(ctx, p.ImageID)
	if err != nil {
		return nil, err
	}
	if image == nil && p.IsVariation() && parent != nil {
		if image, err = e.imageRef(ctx, parent.ImageID); err != nil {
			return nil, err
		}
	}
	m.Add(LabelFeaturedImage, domain.Image(image))

	gallery, err := e.gallery(ctx, p.GalleryIDs)
	if err != nil {
		return nil, err
	}
	m.Add(LabelGallery, domain.Gallery(gallery))

	categories, err := e.catalog.CategoriesOf(ctx, p.RootID())
	if err != nil {
		return nil, fmt.Errorf("report: Extract failed to load categories: %w", err)
	}
	m.Add(LabelCategories, domain.Text(strings.Join(categories, ", ")))

	tags, err := e.catalog.TagsOf(ctx, p.RootID())
	if err != nil {
		return nil, fmt.Errorf("report: Extract failed to load tags: %w", err)
	}
	m.Add(LabelTags, domain.Text(strings.Join(tags, ", ")))

	m.Add(LabelAttributes, domain.KeyValues(AttributePairs(p.Attributes)))
	m.Add("Product URL", domain.URL(p.Permalink))
	m.Add("Edit URL", domain.URL(e.EditURL(p.RootID())))
	m.Add("Shipping Class", domain.Text(orDefault(p.ShippingClass, "No shipping class")))
	if note := strings.TrimSpace(p.PurchaseNote); note != "" {
		m.Add(LabelPurchaseNote, domain.Text(note))
	}

	meta, err := e.catalog.MetaOf(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("report: Extract failed to load metadata: %w", err)
	}
	mergeMeta(m, meta)

	return m, nil
}

func (e *Extractor) price(raw, empty string) string {
	if strings.TrimSpace(raw) == "" {
		return empty
	}
	if e.money == nil {
		return raw
	}
	return e.money.Format(raw)
}

func (e *Extractor) formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(e.settings.DateLayout)
}

// imageRef resolves an attachment; a missing attachment reads as no image.
func (e *Extractor) imageRef(ctx context.Context, id int64) (*domain.ImageRef, error) {
	if id <= 0 {
		return nil, nil
	}
	a, err := e.catalog.Attachment(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrAttachmentNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("report: Extract failed to load attachment %d: %w", id, err)
	}
	return &domain.ImageRef{
		AttachmentID: a.ID,
		DisplayURL:   a.DisplayURL,
		FullURL:      a.FullURL,
		EditURL:      e.EditURL(a.ID),
	}, nil
}

func (e *Extractor) gallery(ctx context.Context, ids []int64) ([]domain.ImageRef, error) {
	refs := make([]domain.ImageRef, 0, len(ids))
	for _, id := range ids {
		ref, err := e.imageRef(ctx, id)
		if err != nil {
			return nil, err
		}
		if ref != nil {
			refs = append(refs, *ref)
		}
	}
	return refs, nil
}

func hasDimensions(p *domain.Product) bool {
	return strings.TrimSpace(p.Length) != "" || strings.TrimSpace(p.Width) != "" || strings.TrimSpace(p.Height) != ""
}

func optionalInt(n *int64) domain.Value {
	if n == nil {
		return domain.Text(notSet)
	}
	return domain.Int(*n)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func metaDenied(key string) bool {
	if _, ok := deniedMetaKeys[key]; ok {
		return true
	}
	for _, prefix := range deniedMetaPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// mergeMeta appends custom fields after the fixed ones. For repeated keys the
// first non-empty value wins; labels already taken are left alone.
func mergeMeta(m *domain.AttributeMap, entries []domain.MetaEntry) {
	done := make(map[string]bool)
	for _, entry := range entries {
		if done[entry.Key] || metaDenied(entry.Key) {
			continue
		}
		v, ok := classifyMeta(entry.Value)
		if !ok {
			continue
		}
		done[entry.Key] = true
		m.Add(entry.Key, v)
	}
}

// classifyMeta types a raw metadata string. It reports false for values with
// nothing to show.
func classifyMeta(raw string) (domain.Value, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return domain.Value{}, false
	}

	if (s[0] == '{' || s[0] == '[') && gjson.Valid(s) {
		var (
			pairs []domain.KeyValue
			i     int
		)
		gjson.Parse(s).ForEach(func(key, value gjson.Result) bool {
			k := key.String()
			if !key.Exists() {
				k = strconv.Itoa(i)
			}
			v := value.String()
			if value.IsObject() || value.IsArray() {
				v = value.Raw
			}
			pairs = append(pairs, domain.KeyValue{Key: k, Value: v})
			i++
			return true
		})
		if len(pairs) == 0 {
			return domain.Value{}, false
		}
		return domain.KeyValues(pairs), true
	}

	if u, err := url.Parse(s); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" && !strings.ContainsAny(s, " \t\n") {
		return domain.URL(s), true
	}
	return domain.Text(s), true
}
