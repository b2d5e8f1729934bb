package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/duckieducksrgood/winchpoint/entity"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReportRepository runs read-only aggregate queries straight on the pool,
// outside gorm, with squirrel building dialect-correct placeholders.
type ReportRepository struct {
	db *sqlx.DB
	qb sq.StatementBuilderType
}

func NewReportRepository(gdb *gorm.DB) (*ReportRepository, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("report repository: %w", err)
	}
	driver, format := dialect(gdb.Dialector.Name())
	return &ReportRepository{
		db: sqlx.NewDb(sqlDB, driver),
		qb: sq.StatementBuilder.PlaceholderFormat(format),
	}, nil
}

// dialect maps a gorm dialector name to the sqlx driver name and the
// placeholder style squirrel must emit for it.
func dialect(name string) (string, sq.PlaceholderFormat) {
	if name == "postgres" {
		return "postgres", sq.Dollar
	}
	return "sqlite3", sq.Question
}

type CompletedOrderRow struct {
	ID         uint            `db:"id"`
	TotalPrice decimal.Decimal `db:"total_price"`
	CreatedAt  time.Time       `db:"created_at"`
}

// CompletedOrders returns completed orders created in [from, to).
func (r *ReportRepository) CompletedOrders(ctx context.Context, from, to time.Time) ([]CompletedOrderRow, error) {
	q, args, err := r.qb.
		Select("id", "total_price", "created_at").
		From("orders").
		Where(sq.Eq{"status": string(entity.StatusCompleted), "deleted_at": nil}).
		Where(sq.GtOrEq{"created_at": from}).
		Where(sq.Lt{"created_at": to}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, err
	}
	var out []CompletedOrderRow
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("completed orders: %w", err)
	}
	return out, nil
}

type OrderLineRow struct {
	OrderID     uint   `db:"order_id"`
	ProductName string `db:"product_name"`
}

func (r *ReportRepository) OrderLines(ctx context.Context, orderIDs []uint) ([]OrderLineRow, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	q, args, err := r.qb.
		Select("order_id", "product_name").
		From("order_items").
		Where(sq.Eq{"order_id": orderIDs, "deleted_at": nil}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var out []OrderLineRow
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("order lines: %w", err)
	}
	return out, nil
}

type StatusCountRow struct {
	Status string `db:"status"`
	Count  int64  `db:"n"`
}

func (r *ReportRepository) CountOrdersByStatus(ctx context.Context) ([]StatusCountRow, error) {
	q, args, err := r.qb.
		Select("status", "COUNT(*) AS n").
		From("orders").
		Where(sq.Eq{"deleted_at": nil}).
		GroupBy("status").
		ToSql()
	if err != nil {
		return nil, err
	}
	var out []StatusCountRow
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("count orders by status: %w", err)
	}
	return out, nil
}

func (r *ReportRepository) CountUsers(ctx context.Context) (int64, error) {
	q, args, err := r.qb.Select("COUNT(*)").From("users").Where(sq.Eq{"deleted_at": nil}).ToSql()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := r.db.GetContext(ctx, &n, q, args...); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
