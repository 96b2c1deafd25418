package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"cashpoint/internal/domain"
)

// Builder returns a squirrel builder with PostgreSQL placeholders.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// SelectPage runs a filtered select with pagination and a matching count.
// sel must already carry its WHERE and ORDER BY clauses; count is the same
// query shape selecting COUNT(*).
func SelectPage[T any](ctx context.Context, q Querier, sel, count squirrel.SelectBuilder, f domain.ListFilter) (domain.ListResult[T], error) {
	f = f.Normalize()
	res := domain.ListResult[T]{Items: []T{}, Limit: f.Limit, Offset: f.Offset}

	countSQL, countArgs, err := count.ToSql()
	if err != nil {
		return res, fmt.Errorf("build count: %w", err)
	}
	if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&res.TotalCount); err != nil {
		return res, fmt.Errorf("count: %w", err)
	}
	if res.TotalCount == 0 {
		return res, nil
	}

	sql, args, err := sel.Limit(uint64(f.Limit)).Offset(uint64(f.Offset)).ToSql()
	if err != nil {
		return res, fmt.Errorf("build select: %w", err)
	}
	if err := pgxscan.Select(ctx, q, &res.Items, sql, args...); err != nil {
		return res, fmt.Errorf("select: %w", err)
	}
	return res, nil
}
