package service

import (
	"context"
	"fmt"
	"time"

	"saleshub/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SalesSummary struct {
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	InvoiceCount     int64  `json:"invoice_count"`
	TotalRevenue     string `json:"total_revenue"`
	TotalPaid        string `json:"total_paid"`
	TotalOutstanding string `json:"total_outstanding"`
}

type TopProduct struct {
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	TotalQuantity int64  `json:"total_quantity"`
	TotalValue    string `json:"total_value"`
}

type RequestStatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type AnalyticsResponse struct {
	Sales       SalesSummary         `json:"sales"`
	TopProducts []TopProduct         `json:"top_products"`
	Requests    []RequestStatusCount `json:"requests"`
}

type AnalyticsService interface {
	GetAnalytics(ctx context.Context, startDate, endDate time.Time) (AnalyticsResponse, error)
}

type analyticsService struct {
	db *gorm.DB
}

func NewAnalyticsService(db *gorm.DB) AnalyticsService {
	return &analyticsService{db: db}
}

func (s *analyticsService) GetAnalytics(ctx context.Context, startDate, endDate time.Time) (AnalyticsResponse, error) {
	var sales struct {
		Count       int64
		Revenue     decimal.NullDecimal
		Paid        decimal.NullDecimal
		Outstanding decimal.NullDecimal
	}
	err := s.db.WithContext(ctx).
		Model(&model.Invoice{}).
		Select("COUNT(*) as count, SUM(total) as revenue, SUM(total_paid) as paid, SUM(remaining_amount) as outstanding").
		Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Scan(&sales).Error
	if err != nil {
		return AnalyticsResponse{}, fmt.Errorf("failed to aggregate sales: %w", err)
	}

	var top []struct {
		ProductID     string
		ProductName   string
		TotalQuantity int64
		TotalValue    decimal.Decimal
	}
	err = s.db.WithContext(ctx).
		Table("invoice_items").
		Select("invoice_items.product_id as product_id, invoice_items.product_name as product_name, SUM(invoice_items.quantity) as total_quantity, SUM(invoice_items.line_total) as total_value").
		Joins("JOIN invoices ON invoices.id = invoice_items.invoice_id").
		Where("invoices.created_at >= ? AND invoices.created_at <= ?", startDate, endDate).
		Group("invoice_items.product_id, invoice_items.product_name").
		Order("total_quantity DESC").
		Limit(10).
		Scan(&top).Error
	if err != nil {
		return AnalyticsResponse{}, fmt.Errorf("failed to aggregate top products: %w", err)
	}

	var statuses []struct {
		Status string
		Count  int64
	}
	err = s.db.WithContext(ctx).
		Model(&model.ProductRequest{}).
		Select("status, COUNT(*) as count").
		Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Group("status").
		Scan(&statuses).Error
	if err != nil {
		return AnalyticsResponse{}, fmt.Errorf("failed to aggregate requests: %w", err)
	}

	resp := AnalyticsResponse{
		Sales: SalesSummary{
			StartDate:        startDate.Format(time.RFC3339),
			EndDate:          endDate.Format(time.RFC3339),
			InvoiceCount:     sales.Count,
			TotalRevenue:     nullDecimalString(sales.Revenue),
			TotalPaid:        nullDecimalString(sales.Paid),
			TotalOutstanding: nullDecimalString(sales.Outstanding),
		},
		TopProducts: make([]TopProduct, 0, len(top)),
		Requests:    make([]RequestStatusCount, 0, len(statuses)),
	}
	for _, p := range top {
		resp.TopProducts = append(resp.TopProducts, TopProduct{
			ProductID:     p.ProductID,
			ProductName:   p.ProductName,
			TotalQuantity: p.TotalQuantity,
			TotalValue:    p.TotalValue.StringFixed(2),
		})
	}
	for _, st := range statuses {
		resp.Requests = append(resp.Requests, RequestStatusCount{Status: st.Status, Count: st.Count})
	}
	return resp, nil
}

func nullDecimalString(d decimal.NullDecimal) string {
	if !d.Valid {
		return "0.00"
	}
	return d.Decimal.StringFixed(2)
}
