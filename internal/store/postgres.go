package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"product-meta-viewer/internal/domain"
)

const (
	taxonomyCategory = "product_cat"
	taxonomyTag      = "product_tag"
)

const productColumns = `id, kind, parent_id, name, sku, status, regular_price, sale_price, tax_status, tax_class,
		stock_status, manage_stock, stock_quantity, low_stock_amount, backorders, sold_individually,
		weight, length, width, height, virtual, downloadable, catalog_visibility, featured,
		reviews_allowed, menu_order, short_description, description, shipping_class, purchase_note,
		permalink, image_id, gallery_ids, created_at, modified_at`

// PostgresStore implements Catalog on top of the catalog schema in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("store: %s failed: %w: %w", op, ErrCatalogUnavailable, err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p        domain.Product
		kind     string
		parentID sql.NullInt64
		imageID  sql.NullInt64
		gallery  []int64
	)
	err := row.Scan(
		&p.ID, &kind, &parentID, &p.Name, &p.SKU, &p.Status, &p.RegularPrice, &p.SalePrice, &p.TaxStatus, &p.TaxClass,
		&p.StockStatus, &p.ManageStock, &p.StockQuantity, &p.LowStockAmount, &p.Backorders, &p.SoldIndividually,
		&p.Weight, &p.Length, &p.Width, &p.Height, &p.Virtual, &p.Downloadable, &p.CatalogVisibility, &p.Featured,
		&p.ReviewsAllowed, &p.MenuOrder, &p.ShortDescription, &p.Description, &p.ShippingClass, &p.PurchaseNote,
		&p.Permalink, &imageID, pq.Array(&gallery), &p.CreatedAt, &p.ModifiedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Kind = domain.Kind(kind)
	p.ParentID = parentID.Int64
	p.ImageID = imageID.Int64
	p.GalleryIDs = gallery
	return &p, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM catalog.products
		WHERE id = $1;
	`
	p, err := scanProduct(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, unavailable("FindByID", err)
	}

	products := []domain.Product{*p}
	if err := s.attachAttributes(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

func (s *PostgresStore) FindBySKU(ctx context.Context, sku string) ([]int64, error) {
	query := `
		SELECT id
		FROM catalog.products
		WHERE sku = $1 AND kind = ANY($2)
		ORDER BY id ASC;
	`
	rows, err := s.db.QueryContext(ctx, query, sku, pq.Array(kindStrings(SKULookupKinds)))
	if err != nil {
		return nil, unavailable("FindBySKU", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, unavailable("FindBySKU", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("FindBySKU", err)
	}
	return ids, nil
}

func (s *PostgresStore) ListProducts(ctx context.Context, params ListProductsParams) ([]domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM catalog.products
		WHERE (cardinality($1::text[]) = 0 OR kind = ANY($1))
		  AND id > $3
		ORDER BY id ASC
		LIMIT NULLIF($2, 0);
	`
	limit := params.Limit
	if limit < 0 {
		limit = 0
	}
	return s.queryProducts(ctx, "ListProducts", query, pq.Array(kindStrings(params.Kinds)), limit, params.AfterID)
}

func (s *PostgresStore) ChildrenOf(ctx context.Context, parentID int64) ([]domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM catalog.products
		WHERE parent_id = $1 AND kind = 'variation'
		ORDER BY menu_order ASC, id ASC;
	`
	return s.queryProducts(ctx, "ChildrenOf", query, parentID)
}

func (s *PostgresStore) queryProducts(ctx context.Context, op, query string, args ...any) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, unavailable(op, err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}
	if err := s.attachAttributes(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// attachAttributes loads attribute sets for all products in one round trip.
func (s *PostgresStore) attachAttributes(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]int64, len(products))
	index := make(map[int64]int, len(products))
	for i, p := range products {
		ids[i] = p.ID
		index[p.ID] = i
	}

	query := `
		SELECT product_id, name, options, is_taxonomy
		FROM catalog.product_attributes
		WHERE product_id = ANY($1)
		ORDER BY product_id ASC, position ASC;
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return unavailable("attachAttributes", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID int64
			attr      domain.Attribute
		)
		if err := rows.Scan(&productID, &attr.Name, pq.Array(&attr.Options), &attr.Taxonomy); err != nil {
			return unavailable("attachAttributes", err)
		}
		if i, ok := index[productID]; ok {
			products[i].Attributes = append(products[i].Attributes, attr)
		}
	}
	if err := rows.Err(); err != nil {
		return unavailable("attachAttributes", err)
	}
	return nil
}

func (s *PostgresStore) CategoriesOf(ctx context.Context, id int64) ([]string, error) {
	return s.termsOf(ctx, id, taxonomyCategory)
}

func (s *PostgresStore) TagsOf(ctx context.Context, id int64) ([]string, error) {
	return s.termsOf(ctx, id, taxonomyTag)
}

func (s *PostgresStore) termsOf(ctx context.Context, id int64, taxonomy string) ([]string, error) {
	query := `
		SELECT name
		FROM catalog.product_terms
		WHERE product_id = $1 AND taxonomy = $2
		ORDER BY term_order ASC, name ASC;
	`
	rows, err := s.db.QueryContext(ctx, query, id, taxonomy)
	if err != nil {
		return nil, unavailable("termsOf", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, unavailable("termsOf", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("termsOf", err)
	}
	return names, nil
}

func (s *PostgresStore) Attachment(ctx context.Context, id int64) (*domain.Attachment, error) {
	query := `
		SELECT id, display_url, full_url
		FROM catalog.attachments
		WHERE id = $1;
	`
	var a domain.Attachment
	err := s.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.DisplayURL, &a.FullURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAttachmentNotFound
		}
		return nil, unavailable("Attachment", err)
	}
	return &a, nil
}

func (s *PostgresStore) MetaOf(ctx context.Context, id int64) ([]domain.MetaEntry, error) {
	query := `
		SELECT meta_key, meta_value
		FROM catalog.product_meta
		WHERE product_id = $1
		ORDER BY meta_id ASC;
	`
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, unavailable("MetaOf", err)
	}
	defer rows.Close()

	entries := []domain.MetaEntry{}
	for rows.Next() {
		var (
			key   string
			value sql.NullString
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, unavailable("MetaOf", err)
		}
		entries = append(entries, domain.MetaEntry{Key: key, Value: value.String})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("MetaOf", err)
	}
	return entries, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		log.Info().Msg("Closing database connection pool...")
		if err := s.db.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database connection pool")
			return err
		}
		log.Info().Msg("Database connection pool closed successfully.")
	}
	return nil
}
