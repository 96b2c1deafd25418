// Package register_repo provides PostgreSQL implementations for register repositories.
package register_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"cashpoint/internal/core/id"
	"cashpoint/internal/domain"
	"cashpoint/internal/domain/catalogs/product"
	"cashpoint/internal/domain/registers/stock"
	"cashpoint/internal/infrastructure/storage/postgres"
	"cashpoint/internal/infrastructure/storage/postgres/catalog_repo"
)

const stockMovementsTable = "stock_movements"

var _ stock.Repository = (*StockRepo)(nil)

// StockRepo implements stock.Repository on the products counter and the
// stock_movements log.
type StockRepo struct {
	txManager  *postgres.TxManager
	products   *catalog_repo.ProductRepo
	builder    squirrel.StatementBuilderType
	selectCols []string
}

// NewStockRepo creates a new stock register repository.
func NewStockRepo(txManager *postgres.TxManager, products *catalog_repo.ProductRepo) *StockRepo {
	return &StockRepo{
		txManager:  txManager,
		products:   products,
		builder:    postgres.Builder(),
		selectCols: postgres.ExtractDBColumns[stock.Movement](),
	}
}

// LockProduct reads the product row FOR UPDATE.
func (r *StockRepo) LockProduct(ctx context.Context, tenantID, productID id.ID) (*product.Product, error) {
	return r.products.GetForUpdate(ctx, tenantID, productID)
}

func (r *StockRepo) SetStock(ctx context.Context, tenantID, productID id.ID, stock int64, at time.Time) error {
	return r.products.SetStock(ctx, tenantID, productID, stock, at)
}

// InsertMovement appends one movement.
func (r *StockRepo) InsertMovement(ctx context.Context, m *stock.Movement) error {
	sql, args, err := r.builder.Insert(stockMovementsTable).SetMap(postgres.StructToMap(m)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// ListMovements returns movements newest first.
func (r *StockRepo) ListMovements(ctx context.Context, tenantID id.ID, filter stock.MovementFilter) (domain.ListResult[stock.Movement], error) {
	where := movementConditions(tenantID, filter)
	sel := r.builder.Select(r.selectCols...).From(stockMovementsTable).Where(where).OrderBy("created_at DESC", "id DESC")
	count := r.builder.Select("COUNT(*)").From(stockMovementsTable).Where(where)

	page := domain.ListFilter{Limit: filter.Limit, Offset: filter.Offset}
	return postgres.SelectPage[stock.Movement](ctx, r.txManager.GetQuerier(ctx), sel, count, page)
}

func movementConditions(tenantID id.ID, filter stock.MovementFilter) squirrel.And {
	where := squirrel.And{squirrel.Eq{"tenant_id": tenantID}}
	if filter.ProductID != nil {
		where = append(where, squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.Type != nil {
		where = append(where, squirrel.Eq{"type": *filter.Type})
	}
	if filter.ReferenceID != nil {
		where = append(where, squirrel.Eq{"reference_id": *filter.ReferenceID})
	}
	if filter.FromDate != nil {
		where = append(where, squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		where = append(where, squirrel.LtOrEq{"created_at": *filter.ToDate})
	}
	return where
}
