package service

import (
	"context"
	"time"

	"library-service/internal/models"
	"library-service/internal/store"
)

// ReportService exposes the management reports. Every report requires
// LIBRARIAN or above.
type ReportService struct {
	store *store.Store
}

// NewReportService creates a new report service
func NewReportService(st *store.Store) *ReportService {
	return &ReportService{store: st}
}

// SalesReport summarizes sales over a date range.
type SalesReport struct {
	Start             time.Time             `json:"start"`
	End               time.Time             `json:"end"`
	TotalOrders       int                   `json:"total_orders"`
	TotalRevenue      int64                 `json:"total_revenue"`
	TotalItemsSold    int                   `json:"total_items_sold"`
	AverageOrderValue int64                 `json:"average_order_value"`
	Days              []store.SalesByDayRow `json:"days"`
}

// Sales builds the sales-by-day report over [start, end]. A zero start
// defaults to 30 days back, a zero end to now.
func (rs *ReportService) Sales(ctx context.Context, actor *models.User, start, end time.Time) (*SalesReport, error) {
	if actor.Role.Rank() < models.RoleLibrarian.Rank() {
		return nil, models.ErrPermissionDenied
	}
	if end.IsZero() {
		end = time.Now()
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -30)
	}

	days, err := rs.store.GetSalesByDay(ctx, start, end)
	if err != nil {
		return nil, err
	}

	report := &SalesReport{Start: start, End: end, Days: days}
	for _, d := range days {
		report.TotalOrders += d.OrdersCount
		report.TotalRevenue += d.Revenue
		report.TotalItemsSold += d.ItemsSold
	}
	if report.TotalOrders > 0 {
		report.AverageOrderValue = report.TotalRevenue / int64(report.TotalOrders)
	}
	return report, nil
}

// TopPublications returns the best sellers.
func (rs *ReportService) TopPublications(ctx context.Context, actor *models.User, limit int) ([]store.TopPublicationRow, error) {
	if actor.Role.Rank() < models.RoleLibrarian.Rank() {
		return nil, models.ErrPermissionDenied
	}
	return rs.store.GetTopPublications(ctx, limit)
}

// UserActivity returns the most active users.
func (rs *ReportService) UserActivity(ctx context.Context, actor *models.User, limit int) ([]store.UserActivityRow, error) {
	if actor.Role.Rank() < models.RoleLibrarian.Rank() {
		return nil, models.ErrPermissionDenied
	}
	return rs.store.GetUserActivity(ctx, limit)
}

// InventoryReport summarizes stock on hand.
type InventoryReport struct {
	TotalStockValue int64                `json:"total_stock_value"`
	LowStock        []store.InventoryRow `json:"low_stock"`
	OutOfStock      []store.InventoryRow `json:"out_of_stock"`
}

// Inventory builds the inventory report with the given low-stock threshold.
func (rs *ReportService) Inventory(ctx context.Context, actor *models.User, threshold int) (*InventoryReport, error) {
	if actor.Role.Rank() < models.RoleLibrarian.Rank() {
		return nil, models.ErrPermissionDenied
	}
	if threshold <= 0 {
		threshold = 5
	}

	total, err := rs.store.GetInventoryValue(ctx)
	if err != nil {
		return nil, err
	}
	low, err := rs.store.GetLowStock(ctx, threshold)
	if err != nil {
		return nil, err
	}

	report := &InventoryReport{TotalStockValue: total}
	for _, row := range low {
		if row.StockQuantity == 0 {
			report.OutOfStock = append(report.OutOfStock, row)
		} else {
			report.LowStock = append(report.LowStock, row)
		}
	}
	return report, nil
}

// GenreStats returns per-genre sales statistics.
func (rs *ReportService) GenreStats(ctx context.Context, actor *models.User) ([]store.GenreStatsRow, error) {
	if actor.Role.Rank() < models.RoleLibrarian.Rank() {
		return nil, models.ErrPermissionDenied
	}
	return rs.store.GetGenreStats(ctx)
}
