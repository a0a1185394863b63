package service

import (
	"context"
	"testing"
	"time"

	"saleshub/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAnalytics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	staff := actorWithRole(model.RoleShowroomStaff)
	rep := actorWithRole(model.RoleRepresentative)
	widget := env.seedProduct(t, "SKU-001", "Widget", "10.00")
	gadget := env.seedProduct(t, "SKU-002", "Gadget", "5.00")
	env.seedStock(t, widget, model.DefaultLocation, 100)
	env.seedStock(t, gadget, model.DefaultLocation, 100)

	first, err := env.invoices.CreateInvoice(ctx, staff, CreateInvoiceDTO{
		Customer: CustomerInfoDTO{Name: "A"},
		Items: []InvoiceLineDTO{
			{ProductID: widget.ID.String(), Quantity: 4}, // 40.00
			{ProductID: gadget.ID.String(), Quantity: 2}, // 10.00
		},
	})
	require.NoError(t, err)
	_, err = env.invoices.CreateInvoice(ctx, staff, CreateInvoiceDTO{
		Customer: CustomerInfoDTO{Name: "B"},
		Items:    []InvoiceLineDTO{{ProductID: gadget.ID.String(), Quantity: 6}}, // 30.00
	})
	require.NoError(t, err)
	_, err = env.invoices.RecordPayment(ctx, staff, first.ID, RecordPaymentDTO{Amount: "50"})
	require.NoError(t, err)

	_, err = env.requests.CreateRequest(ctx, rep, CreateRequestDTO{
		Items: []RequestItemDTO{{ProductID: widget.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)
	resp, err := env.analytics.GetAnalytics(ctx, start, end)
	require.NoError(t, err)

	assert.EqualValues(t, 2, resp.Sales.InvoiceCount)
	assert.Equal(t, "80.00", resp.Sales.TotalRevenue)
	assert.Equal(t, "50.00", resp.Sales.TotalPaid)
	assert.Equal(t, "30.00", resp.Sales.TotalOutstanding)

	// Gadget sold 8 units and ranks first.
	require.NotEmpty(t, resp.TopProducts)
	assert.Equal(t, "Gadget", resp.TopProducts[0].ProductName)
	assert.EqualValues(t, 8, resp.TopProducts[0].TotalQuantity)
	assert.Equal(t, "40.00", resp.TopProducts[0].TotalValue)

	require.Len(t, resp.Requests, 1)
	assert.Equal(t, model.RequestStatusPending, resp.Requests[0].Status)
	assert.EqualValues(t, 1, resp.Requests[0].Count)
}

func TestGetAnalyticsEmptyWindow(t *testing.T) {
	env := newTestEnv(t)
	start := time.Now().AddDate(0, -2, 0)
	end := time.Now().AddDate(0, -1, 0)

	resp, err := env.analytics.GetAnalytics(context.Background(), start, end)
	require.NoError(t, err)
	assert.Zero(t, resp.Sales.InvoiceCount)
	assert.Equal(t, "0.00", resp.Sales.TotalRevenue)
	assert.Empty(t, resp.TopProducts)
	assert.Empty(t, resp.Requests)
}
