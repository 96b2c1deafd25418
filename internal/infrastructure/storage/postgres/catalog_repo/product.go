// Package catalog_repo provides PostgreSQL implementations for catalog repositories.
package catalog_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"cashpoint/internal/core/apperror"
	"cashpoint/internal/core/id"
	"cashpoint/internal/domain"
	"cashpoint/internal/domain/catalogs/product"
	"cashpoint/internal/infrastructure/storage/postgres"
)

const (
	productsTable     = "products"
	productsSKUUnique = "products_tenant_sku_key"
)

var _ product.Repository = (*ProductRepo)(nil)

// ProductRepo implements product.Repository.
type ProductRepo struct {
	txManager  *postgres.TxManager
	builder    squirrel.StatementBuilderType
	selectCols []string
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		txManager:  txManager,
		builder:    postgres.Builder(),
		selectCols: postgres.ExtractDBColumns[product.Product](),
	}
}

// Create inserts a product.
func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	sql, args, err := r.builder.Insert(productsTable).SetMap(postgres.StructToMap(p)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err, productsSKUUnique) {
			return apperror.NewConflict("product with this sku already exists").WithDetail("sku", p.SKU)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID reads a product of the tenant.
func (r *ProductRepo) GetByID(ctx context.Context, tenantID, productID id.ID) (*product.Product, error) {
	return r.get(ctx, r.byID(tenantID, productID), productID)
}

// GetForUpdate reads a product with an exclusive row lock.
func (r *ProductRepo) GetForUpdate(ctx context.Context, tenantID, productID id.ID) (*product.Product, error) {
	if !r.txManager.InTransaction(ctx) {
		return nil, fmt.Errorf("product row lock requires transaction context")
	}
	return r.get(ctx, r.byID(tenantID, productID).Suffix("FOR UPDATE"), productID)
}

// SetStock writes the stock counter.
func (r *ProductRepo) SetStock(ctx context.Context, tenantID, productID id.ID, stock int64, at time.Time) error {
	sql, args, err := r.builder.Update(productsTable).
		Set("stock", stock).
		Set("updated_at", at).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": productID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("product", productID)
	}
	return nil
}

// List returns the tenant's products ordered by name.
func (r *ProductRepo) List(ctx context.Context, tenantID id.ID, filter domain.ListFilter) (domain.ListResult[product.Product], error) {
	where := squirrel.And{squirrel.Eq{"tenant_id": tenantID}}
	if filter.FromDate != nil {
		where = append(where, squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		where = append(where, squirrel.LtOrEq{"created_at": *filter.ToDate})
	}

	sel := r.builder.Select(r.selectCols...).From(productsTable).Where(where).OrderBy("name", "id")
	count := r.builder.Select("COUNT(*)").From(productsTable).Where(where)
	return postgres.SelectPage[product.Product](ctx, r.txManager.GetQuerier(ctx), sel, count, filter)
}

// ListBelowReorderPoint returns products at or below their reorder point, lowest stock first.
func (r *ProductRepo) ListBelowReorderPoint(ctx context.Context, tenantID id.ID) ([]product.Product, error) {
	sql, args, err := r.builder.Select(r.selectCols...).From(productsTable).
		Where(squirrel.Eq{"tenant_id": tenantID}).
		Where(squirrel.Gt{"reorder_point": 0}).
		Where("stock <= reorder_point").
		OrderBy("stock", "name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	out := []product.Product{}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select low stock: %w", err)
	}
	return out, nil
}

func (r *ProductRepo) byID(tenantID, productID id.ID) squirrel.SelectBuilder {
	return r.builder.Select(r.selectCols...).From(productsTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": productID})
}

func (r *ProductRepo) get(ctx context.Context, q squirrel.SelectBuilder, productID id.ID) (*product.Product, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p product.Product
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", productID)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}
