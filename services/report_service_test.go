package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/duckieducksrgood/winchpoint/entity"
	"github.com/duckieducksrgood/winchpoint/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func newReport(t *testing.T) (*ReportService, *gorm.DB) {
	db := newTestDB(t)
	repo, err := repository.NewReportRepository(db)
	require.NoError(t, err)
	return NewReportService(repo), db
}

func seedOrder(t *testing.T, db *gorm.DB, userID uint, status entity.OrderStatus, total string, at time.Time, products ...string) {
	t.Helper()
	o := &entity.Order{
		Model:      gorm.Model{CreatedAt: at, UpdatedAt: at},
		UserID:     userID,
		Status:     status,
		TotalPrice: decimal.RequireFromString(total),
	}
	require.NoError(t, db.Omit("Items", "User").Create(o).Error)
	for _, name := range products {
		require.NoError(t, db.Create(&entity.OrderItem{
			OrderID: o.ID, ProductName: name, Quantity: 1, Price: decimal.RequireFromString("1"),
		}).Error)
	}
}

func TestRevenueEmptyYearHasTwelveZeroRows(t *testing.T) {
	svc, _ := newReport(t)

	rep, err := svc.Revenue(context.Background(), 2024)
	require.NoError(t, err)
	require.Len(t, rep.Months, 12)
	for i, m := range rep.Months {
		assert.Equal(t, time.Month(i+1).String(), m.Month)
		assert.Zero(t, m.Orders)
		assert.True(t, m.Revenue.IsZero())
		assert.Empty(t, m.TopProducts)
	}
	assert.Zero(t, rep.TotalOrders)
	assert.Empty(t, rep.BestMonth)
}

func TestRevenueAggregatesCompletedOrdersByMonth(t *testing.T) {
	svc, db := newReport(t)
	u := seedUser(t, db, "ana", entity.RoleCustomer)
	mar := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.Local)
	jul := time.Date(2025, time.July, 2, 9, 0, 0, 0, time.Local)

	seedOrder(t, db, u.ID, entity.StatusCompleted, "100.50", mar, "Winch", "Rope")
	seedOrder(t, db, u.ID, entity.StatusCompleted, "200.00", mar, "Winch", "Shackle")
	seedOrder(t, db, u.ID, entity.StatusCompleted, "50.00", mar, "Winch", "Lightbar", "Jack")
	seedOrder(t, db, u.ID, entity.StatusCompleted, "75.00", jul, "Strap")
	seedOrder(t, db, u.ID, entity.StatusCancelled, "999.00", jul, "Winch")
	seedOrder(t, db, u.ID, entity.StatusCompleted, "999.00", time.Date(2024, time.December, 31, 10, 0, 0, 0, time.Local), "Winch")

	rep, err := svc.Revenue(context.Background(), 2025)
	require.NoError(t, err)

	march := rep.Months[2]
	assert.Equal(t, 3, march.Orders)
	assert.Equal(t, "350.5", march.Revenue.String())
	require.Len(t, march.TopProducts, 3)
	assert.Equal(t, "Winch", march.TopProducts[0])
	// ties break alphabetically
	assert.Equal(t, []string{"Winch", "Jack", "Lightbar"}, march.TopProducts)

	july := rep.Months[6]
	assert.Equal(t, 1, july.Orders)
	assert.Equal(t, []string{"Strap"}, july.TopProducts)

	assert.Equal(t, 4, rep.TotalOrders)
	assert.Equal(t, "425.5", rep.TotalRevenue.String())
	assert.Equal(t, "March", rep.BestMonth)
}

func TestRevenueExport(t *testing.T) {
	svc, _ := newReport(t)
	ctx := context.Background()

	xl, err := svc.Export(ctx, 2024, "excel")
	require.NoError(t, err)
	assert.Equal(t, "revenue_report_2024.xlsx", xl.Filename)
	f, err := excelize.OpenReader(bytes.NewReader(xl.Body))
	require.NoError(t, err)
	rows, err := f.GetRows("Revenue Report")
	require.NoError(t, err)
	assert.Len(t, rows, 13, "header plus twelve months")
	assert.Equal(t, "January", rows[1][0])

	pdf, err := svc.Export(ctx, 2024, "PDF")
	require.NoError(t, err)
	assert.Equal(t, "revenue_report_2024.pdf", pdf.Filename)
	assert.True(t, bytes.HasPrefix(pdf.Body, []byte("%PDF")))

	_, err = svc.Export(ctx, 2024, "csv")
	assert.True(t, IsKind(err, KindValidation))
}

func TestDashboardCounts(t *testing.T) {
	svc, db := newReport(t)
	u := seedUser(t, db, "ana", entity.RoleCustomer)
	seedUser(t, db, "ben", entity.RoleCustomer)
	now := time.Now()
	seedOrder(t, db, u.ID, entity.StatusPending, "10", now)
	seedOrder(t, db, u.ID, entity.StatusPending, "10", now)
	seedOrder(t, db, u.ID, entity.StatusCompleted, "10", now)

	st, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.PendingOrders)
	assert.EqualValues(t, 3, st.TotalOrders)
	assert.EqualValues(t, 0, st.OrdersByStatus[entity.StatusCancelled])
	assert.EqualValues(t, 2, st.Users)
}
