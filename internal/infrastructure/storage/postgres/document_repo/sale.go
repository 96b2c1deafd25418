// Package document_repo provides PostgreSQL implementations for document repositories.
package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"cashpoint/internal/core/apperror"
	"cashpoint/internal/core/id"
	"cashpoint/internal/domain"
	"cashpoint/internal/domain/documents/sale"
	"cashpoint/internal/infrastructure/storage/postgres"
)

const (
	salesTable         = "sales"
	saleItemsTable     = "sale_items"
	salesInvoiceUnique = "sales_tenant_invoice_key"
)

var _ sale.Repository = (*SaleRepo)(nil)

// SaleRepo implements sale.Repository. Sale items are written with COPY.
type SaleRepo struct {
	txManager  *postgres.TxManager
	batch      *postgres.Batch
	builder    squirrel.StatementBuilderType
	headerCols []string
	itemCols   []string
}

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txManager *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		txManager:  txManager,
		batch:      postgres.NewBatch(txManager),
		builder:    postgres.Builder(),
		headerCols: postgres.ExtractDBColumns[sale.Sale](),
		itemCols:   postgres.ExtractDBColumns[sale.Item](),
	}
}

// Create inserts the sale header.
func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	sql, args, err := r.builder.Insert(salesTable).SetMap(postgres.StructToMap(s)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err, salesInvoiceUnique) {
			return apperror.NewConflict("invoice number already issued").WithDetail("invoice_number", s.InvoiceNumber)
		}
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

// SaveItems copies the lines of a sale. Must run inside a transaction.
func (r *SaleRepo) SaveItems(ctx context.Context, saleID id.ID, items []sale.Item) error {
	if len(items) == 0 {
		return nil
	}

	lines := make([]sale.Item, len(items))
	for i, item := range items {
		item.SaleID = saleID
		lines[i] = item
	}

	if _, err := postgres.CopyStructs(ctx, r.batch, saleItemsTable, r.itemCols, lines); err != nil {
		return fmt.Errorf("copy sale items: %w", err)
	}
	return nil
}

func (r *SaleRepo) GetByID(ctx context.Context, tenantID, saleID id.ID) (*sale.Sale, error) {
	return r.get(ctx, r.selectHeader(tenantID, saleID), saleID)
}

// GetForUpdate locks the sale row until the transaction ends.
func (r *SaleRepo) GetForUpdate(ctx context.Context, tenantID, saleID id.ID) (*sale.Sale, error) {
	if !r.txManager.InTransaction(ctx) {
		return nil, fmt.Errorf("sale row lock requires transaction context")
	}
	return r.get(ctx, r.selectHeader(tenantID, saleID).Suffix("FOR UPDATE"), saleID)
}

// GetItems returns the lines ordered by line number.
func (r *SaleRepo) GetItems(ctx context.Context, saleID id.ID) ([]sale.Item, error) {
	sql, args, err := r.builder.Select(r.itemCols...).From(saleItemsTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	items := []sale.Item{}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select sale items: %w", err)
	}
	return items, nil
}

// MarkVoided flips a sale to voided.
func (r *SaleRepo) MarkVoided(ctx context.Context, tenantID, saleID, voidedBy id.ID, at time.Time) error {
	sql, args, err := r.builder.Update(salesTable).
		Set("status", sale.StatusVoided).
		Set("voided_by", voidedBy).
		Set("voided_at", at).
		Set("updated_at", at).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": saleID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("void sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("sale", saleID)
	}
	return nil
}

// List returns headers newest first.
func (r *SaleRepo) List(ctx context.Context, tenantID id.ID, filter sale.ListFilter) (domain.ListResult[sale.Sale], error) {
	where := saleConditions(tenantID, filter)
	sel := r.builder.Select(r.headerCols...).From(salesTable).Where(where).OrderBy("created_at DESC", "invoice_number DESC")
	count := r.builder.Select("COUNT(*)").From(salesTable).Where(where)
	return postgres.SelectPage[sale.Sale](ctx, r.txManager.GetQuerier(ctx), sel, count, filter.ListFilter)
}

func saleConditions(tenantID id.ID, filter sale.ListFilter) squirrel.And {
	where := squirrel.And{squirrel.Eq{"tenant_id": tenantID}}
	if filter.Status != nil {
		where = append(where, squirrel.Eq{"status": *filter.Status})
	}
	if filter.PaymentMethod != nil {
		where = append(where, squirrel.Eq{"payment_method": *filter.PaymentMethod})
	}
	if filter.CashSessionID != nil {
		where = append(where, squirrel.Eq{"cash_session_id": *filter.CashSessionID})
	}
	if filter.CustomerID != nil {
		where = append(where, squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.FromDate != nil {
		where = append(where, squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		where = append(where, squirrel.LtOrEq{"created_at": *filter.ToDate})
	}
	return where
}

func (r *SaleRepo) selectHeader(tenantID, saleID id.ID) squirrel.SelectBuilder {
	return r.builder.Select(r.headerCols...).From(salesTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": saleID})
}

func (r *SaleRepo) get(ctx context.Context, q squirrel.SelectBuilder, saleID id.ID) (*sale.Sale, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var s sale.Sale
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale", saleID)
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return &s, nil
}
