package services

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/duckieducksrgood/winchpoint/entity"
	"github.com/duckieducksrgood/winchpoint/pkg/export"
	"github.com/duckieducksrgood/winchpoint/repository"

	"github.com/shopspring/decimal"
)

const topProductsPerMonth = 3

type ReportService struct {
	repo *repository.ReportRepository
	loc  *time.Location
}

func NewReportService(repo *repository.ReportRepository) *ReportService {
	return &ReportService{repo: repo, loc: time.Local}
}

type MonthRow struct {
	Month       string          `json:"month"`
	Orders      int             `json:"orders"`
	Revenue     decimal.Decimal `json:"revenue"`
	TopProducts []string        `json:"topProducts"`
}

type YearReport struct {
	Year         int             `json:"year"`
	Months       []MonthRow      `json:"months"`
	TotalOrders  int             `json:"totalOrders"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	BestMonth    string          `json:"bestMonth,omitempty"`
}

// Revenue aggregates completed orders of year into twelve monthly rows.
// Months without orders are present with zero values.
func (s *ReportService) Revenue(ctx context.Context, year int) (*YearReport, error) {
	if year < 2000 || year > 9999 {
		return nil, Validation("invalid year", "year")
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, s.loc)
	to := from.AddDate(1, 0, 0)

	orders, err := s.repo.CompletedOrders(ctx, from, to)
	if err != nil {
		return nil, err
	}

	rep := &YearReport{Year: year, Months: make([]MonthRow, 12)}
	for i := range rep.Months {
		rep.Months[i] = MonthRow{Month: time.Month(i + 1).String(), Revenue: decimal.Zero, TopProducts: []string{}}
	}

	monthOf := make(map[uint]int, len(orders))
	ids := make([]uint, 0, len(orders))
	for _, o := range orders {
		m := int(o.CreatedAt.In(s.loc).Month()) - 1
		rep.Months[m].Orders++
		rep.Months[m].Revenue = rep.Months[m].Revenue.Add(o.TotalPrice)
		monthOf[o.ID] = m
		ids = append(ids, o.ID)
	}

	lines, err := s.repo.OrderLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	counts := make([]map[string]int, 12)
	for _, l := range lines {
		m, ok := monthOf[l.OrderID]
		if !ok {
			continue
		}
		if counts[m] == nil {
			counts[m] = map[string]int{}
		}
		counts[m][l.ProductName]++
	}
	for m, c := range counts {
		rep.Months[m].TopProducts = topN(c, topProductsPerMonth)
	}

	rep.TotalRevenue = decimal.Zero
	best := -1
	for i, row := range rep.Months {
		rep.TotalOrders += row.Orders
		rep.TotalRevenue = rep.TotalRevenue.Add(row.Revenue)
		if row.Orders > 0 && (best < 0 || row.Revenue.GreaterThan(rep.Months[best].Revenue)) {
			best = i
		}
	}
	if best >= 0 {
		rep.BestMonth = rep.Months[best].Month
	}
	return rep, nil
}

// topN orders by count descending, then name, so ties are stable.
func topN(counts map[string]int, n int) []string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}

type ReportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

// Export renders the yearly report as "excel" or "pdf".
func (s *ReportService) Export(ctx context.Context, year int, kind string) (*ReportFile, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind != "excel" && kind != "pdf" {
		return nil, Validation("type must be excel or pdf", "type")
	}
	rep, err := s.Revenue(ctx, year)
	if err != nil {
		return nil, err
	}

	monthly := monthlyTable(rep)
	var buf bytes.Buffer
	if kind == "excel" {
		err = export.WriteXLSX(&buf, "Revenue Report", monthly, &export.ColumnChart{
			Title:       fmt.Sprintf("Revenue %d", year),
			CategoryCol: 0,
			ValueCol:    2,
		})
		if err != nil {
			return nil, fmt.Errorf("revenue xlsx: %w", err)
		}
		return &ReportFile{
			Filename:    fmt.Sprintf("revenue_report_%d.xlsx", year),
			ContentType: contentTypeXLSX,
			Body:        buf.Bytes(),
		}, nil
	}

	series := export.BarSeries{Title: fmt.Sprintf("Monthly revenue %d", year)}
	for _, row := range rep.Months {
		series.Labels = append(series.Labels, row.Month[:3])
		series.Values = append(series.Values, row.Revenue.InexactFloat64())
	}
	png, err := export.BarChartPNG(series)
	if err != nil {
		return nil, err
	}
	summary := export.Table{
		Title:   "Summary",
		Headers: []string{"Year", "Completed Orders", "Total Revenue", "Best Month"},
		Rows:    [][]any{{rep.Year, rep.TotalOrders, rep.TotalRevenue.StringFixed(2), orDash(rep.BestMonth)}},
	}
	err = export.WritePDF(&buf, export.Document{
		Title:    "Winch Point Offroad House",
		Subtitle: fmt.Sprintf("Revenue report %d", year),
		Tables:   []export.Table{summary, monthly},
		ChartPNG: png,
	})
	if err != nil {
		return nil, fmt.Errorf("revenue pdf: %w", err)
	}
	return &ReportFile{
		Filename:    fmt.Sprintf("revenue_report_%d.pdf", year),
		ContentType: contentTypePDF,
		Body:        buf.Bytes(),
	}, nil
}

func monthlyTable(rep *YearReport) export.Table {
	t := export.Table{
		Title:   "Monthly",
		Headers: []string{"Month", "Orders", "Revenue", "Top Products"},
	}
	for _, row := range rep.Months {
		t.Rows = append(t.Rows, []any{
			row.Month,
			row.Orders,
			row.Revenue.InexactFloat64(),
			orDash(strings.Join(row.TopProducts, ", ")),
		})
	}
	return t
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

type DashboardStats struct {
	OrdersByStatus map[entity.OrderStatus]int64 `json:"ordersByStatus"`
	TotalOrders    int64                        `json:"totalOrders"`
	PendingOrders  int64                        `json:"pendingOrders"`
	Users          int64                        `json:"users"`
}

func (s *ReportService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	rows, err := s.repo.CountOrdersByStatus(ctx)
	if err != nil {
		return nil, err
	}
	st := &DashboardStats{OrdersByStatus: make(map[entity.OrderStatus]int64, len(entity.AllOrderStatuses))}
	for _, status := range entity.AllOrderStatuses {
		st.OrdersByStatus[status] = 0
	}
	for _, r := range rows {
		st.OrdersByStatus[entity.OrderStatus(r.Status)] += r.Count
		st.TotalOrders += r.Count
	}
	st.PendingOrders = st.OrdersByStatus[entity.StatusPending]
	if st.Users, err = s.repo.CountUsers(ctx); err != nil {
		return nil, err
	}
	return st, nil
}
