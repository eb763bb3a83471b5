package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CreateProductParams struct {
	VendorID    string
	CategoryID  string
	Name        string
	Description string
	Price       float64
	Currency    string
}

type Store interface {
	Categories(ctx context.Context) ([]Category, error)
	Products(ctx context.Context, q Query) ([]Product, int, error)
	CreateProduct(ctx context.Context, p CreateProductParams) (*Product, error)
}

type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Categories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// Products lists active products with the requested filters. The total is
// computed with a window function so one query serves both the page and the
// count.
func (s *PgStore) Products(ctx context.Context, q Query) ([]Product, int, error) {
	query := `
		SELECT id, vendor_id, COALESCE(category_id::text, ''), name,
			COALESCE(description, ''), price, currency, rating, status, created_at,
			COUNT(*) OVER() AS total
		FROM products`
	where := []string{"status = 'active'"}
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Search != "" {
		p := arg("%" + q.Search + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", p, p))
	}
	if q.Category != "" {
		where = append(where, fmt.Sprintf(
			"category_id = (SELECT id FROM categories WHERE name = %s)", arg(q.Category)))
	}
	if q.MinPrice != nil {
		where = append(where, "price >= "+arg(*q.MinPrice))
	}
	if q.MaxPrice != nil {
		where = append(where, "price <= "+arg(*q.MaxPrice))
	}
	if q.MinRating != nil {
		where = append(where, "rating >= "+arg(*q.MinRating))
	}
	query += " WHERE " + strings.Join(where, " AND ")

	switch q.Sort {
	case "price_asc":
		query += " ORDER BY price ASC"
	case "price_desc":
		query += " ORDER BY price DESC"
	case "rating":
		query += " ORDER BY rating DESC"
	case "oldest":
		query += " ORDER BY created_at ASC"
	default:
		query += " ORDER BY created_at DESC"
	}
	query += fmt.Sprintf(" LIMIT %s OFFSET %s", arg(q.Limit), arg(q.Offset))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch products: %w", err)
	}
	defer rows.Close()

	var (
		products []Product
		total    int
	)
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.VendorID, &p.CategoryID, &p.Name, &p.Description,
			&p.Price, &p.Currency, &p.Rating, &p.Status, &p.CreatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (s *PgStore) CreateProduct(ctx context.Context, p CreateProductParams) (*Product, error) {
	product := &Product{
		ID:          uuid.New().String(),
		VendorID:    p.VendorID,
		CategoryID:  p.CategoryID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Currency:    p.Currency,
		Status:      "active",
		CreatedAt:   time.Now(),
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO products (id, vendor_id, category_id, name, description, price, currency, status, created_at)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8, $9)`,
		product.ID, product.VendorID, product.CategoryID, product.Name,
		product.Description, product.Price, product.Currency, product.Status, product.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	return product, nil
}
