package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/brandpick/apiserver/types"
	"github.com/lib/pq"
)

const productColumns = `id, owner_id, name, price, description, out_of_stock, type, sizes, image_key, image_content_type, created_at`

// ProductRepository handles persistence for products.
type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// ListByOwner returns a page of the owner's products, newest first.
func (r *ProductRepository) ListByOwner(ctx context.Context, ownerID string, offset, limit int) ([]types.Product, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 30
	}

	const countQuery = `SELECT COUNT(1) FROM products WHERE owner_id = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT ` + productColumns + `
		FROM products
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, listQuery, ownerID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := make([]types.Product, 0, limit)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (types.Product, error) {
	const query = `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return scanProduct(r.db.QueryRowContext(ctx, query, id))
}

// GetByIDs returns the products matching ids. Unknown ids are skipped.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]types.Product, error) {
	if len(ids) == 0 {
		return []types.Product{}, nil
	}

	const query = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]types.Product, 0, len(ids))
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *ProductRepository) Create(ctx context.Context, product types.Product) (types.Product, error) {
	if product.ID == "" {
		product.ID = NewID()
	}
	product.CreatedAt = time.Now()

	const query = `
		INSERT INTO products (id, owner_id, name, price, description, out_of_stock, type, sizes, image_key, image_content_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.OwnerID,
		product.Name,
		product.Price,
		product.Description,
		nullableBool(product.OutOfStock),
		product.Type,
		product.Sizes,
		product.ImageKey,
		product.ImageContentType,
		product.CreatedAt,
	); err != nil {
		return types.Product{}, mapWriteError(err)
	}
	return product, nil
}

// Update rewrites the mutable product fields. Ownership is never changed.
func (r *ProductRepository) Update(ctx context.Context, product types.Product) (types.Product, error) {
	const query = `
		UPDATE products
		SET name = $1,
			price = $2,
			description = $3,
			out_of_stock = $4,
			type = $5,
			sizes = $6,
			image_key = $7,
			image_content_type = $8
		WHERE id = $9`
	result, err := r.db.ExecContext(
		ctx,
		query,
		product.Name,
		product.Price,
		product.Description,
		nullableBool(product.OutOfStock),
		product.Type,
		product.Sizes,
		product.ImageKey,
		product.ImageContentType,
		product.ID,
	)
	if err != nil {
		return types.Product{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Product{}, err
	}
	if affected == 0 {
		return types.Product{}, ErrNotFound
	}
	return r.Get(ctx, product.ID)
}

func scanProduct(row rowScanner) (types.Product, error) {
	var product types.Product
	var outOfStock sql.NullBool
	err := row.Scan(
		&product.ID,
		&product.OwnerID,
		&product.Name,
		&product.Price,
		&product.Description,
		&outOfStock,
		&product.Type,
		&product.Sizes,
		&product.ImageKey,
		&product.ImageContentType,
		&product.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Product{}, ErrNotFound
		}
		return types.Product{}, err
	}
	if outOfStock.Valid {
		value := outOfStock.Bool
		product.OutOfStock = &value
	}
	return product, nil
}

func nullableBool(value *bool) sql.NullBool {
	if value == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *value, Valid: true}
}
