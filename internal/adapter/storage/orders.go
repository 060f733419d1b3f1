package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/niksmo/farm-bridge/internal/core/domain"
	"github.com/niksmo/farm-bridge/internal/core/port"
)

var _ port.OrdersStorage = (*OrdersRepository)(nil)

type OrdersRepository struct {
	sqldb   sqldb
	typeMap *pgtype.Map
}

func NewOrdersRepository(sqldb sqldb) OrdersRepository {
	return OrdersRepository{sqldb, pgtype.NewMap()}
}

func (r OrdersRepository) ReadOrders(
	ctx context.Context, username string,
) (vs []domain.Order, err error) {
	const op = "OrdersRepository.ReadOrders"
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `
		SELECT order_id, username, placed_at, items, total, status
		FROM orders
		WHERE username = $1
		ORDER BY placed_at DESC;`

	rows, err := r.sqldb.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", "err", err)
		}
	}()

	for rows.Next() {
		var (
			v      domain.Order
			status string
		)
		err := rows.Scan(
			&v.OrderID, &v.Username, &v.PlacedAt,
			r.typeMap.SQLScanner(&v.Items), &v.Total, &status,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		v.Status = domain.OrderStatus(status)
		vs = append(vs, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return vs, nil
}
