package catalog_repo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashpoint/internal/core/id"
)

func TestProductRepo_SelectColumns(t *testing.T) {
	repo := NewProductRepo(nil)
	assert.Equal(t, []string{
		"id", "tenant_id", "name", "sku", "price", "stock", "reorder_point", "created_at", "updated_at",
	}, repo.selectCols)
}

func TestProductRepo_LockQuery(t *testing.T) {
	repo := NewProductRepo(nil)
	tenantID, productID := id.New(), id.New()

	sql, args, err := repo.byID(tenantID, productID).Suffix("FOR UPDATE").ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql, "SELECT id, tenant_id, name, sku, price"))
	assert.True(t, strings.HasSuffix(sql, "FROM products WHERE id = $1 AND tenant_id = $2 FOR UPDATE"), sql)
	assert.Equal(t, []any{productID, tenantID}, args)
}
