package service

import (
	"context"
	"strings"
	"testing"

	"saleshub/internal/apperr"
	"saleshub/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInvoiceMath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	staff := actorWithRole(model.RoleShowroomStaff)
	widget := env.seedProduct(t, "SKU-001", "Widget", "19.99")
	gadget := env.seedProduct(t, "SKU-002", "Gadget", "7.50")
	env.seedStock(t, widget, model.DefaultLocation, 100)
	env.seedStock(t, gadget, model.DefaultLocation, 100)

	resp, err := env.invoices.CreateInvoice(ctx, staff, CreateInvoiceDTO{
		Customer: CustomerInfoDTO{Name: "Jordan Lee", Phone: "555-0101"},
		Items: []InvoiceLineDTO{
			{ProductID: widget.ID.String(), Quantity: 3}, // 59.97
			{ProductID: gadget.ID.String(), Quantity: 4}, // 30.00
		},
		DiscountPct: "10",
		TaxRate:     "8.5",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(resp.InvoiceNumber, "INV-"))
	assert.Equal(t, "89.97", resp.Subtotal)
	assert.Equal(t, "9.00", resp.DiscountAmount)  // 89.97 * 10% = 8.997 -> 9.00
	assert.Equal(t, "6.88", resp.TaxAmount)       // 80.97 * 8.5% = 6.88245 -> 6.88
	assert.Equal(t, "87.85", resp.Total)          // 80.97 + 6.88
	assert.Equal(t, "87.85", resp.RemainingAmount)
	assert.Equal(t, "0.00", resp.TotalPaid)
	assert.Equal(t, model.PaymentPending, resp.PaymentStatus)
	assert.NotEmpty(t, resp.DueDate)

	// Stock came down and SALE_OUT rows landed in the ledger.
	assert.Equal(t, 97, env.stockAt(t, widget, model.DefaultLocation))
	assert.Equal(t, 96, env.stockAt(t, gadget, model.DefaultLocation))
	var movements []model.StockMovement
	require.NoError(t, env.db.Where("movement_type = ?", model.MovementSaleOut).Find(&movements).Error)
	assert.Len(t, movements, 2)
	for _, mv := range movements {
		require.NotNil(t, mv.InvoiceID)
		assert.Equal(t, resp.ID, mv.InvoiceID.String())
		assert.Negative(t, mv.Quantity)
	}
	assert.EqualValues(t, 1, env.activityCount(t, model.ActivityInvoiceCreated))
}

func TestCreateInvoiceInsufficientStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	staff := actorWithRole(model.RoleShowroomStaff)
	widget := env.seedProduct(t, "SKU-001", "Widget", "19.99")
	gadget := env.seedProduct(t, "SKU-002", "Gadget", "7.50")
	env.seedStock(t, widget, model.DefaultLocation, 100)
	env.seedStock(t, gadget, model.DefaultLocation, 2)

	_, err := env.invoices.CreateInvoice(ctx, staff, CreateInvoiceDTO{
		Customer: CustomerInfoDTO{Name: "Jordan Lee"},
		Items: []InvoiceLineDTO{
			{ProductID: widget.ID.String(), Quantity: 3},
			{ProductID: gadget.ID.String(), Quantity: 5}, // short by 3
		},
	})
	require.Error(t, err)
	assert.Equal(t, "INSUFFICIENT_STOCK", apperr.Code(err))
	assert.Contains(t, err.Error(), "Gadget")
	assert.Contains(t, err.Error(), "requested 5")
	assert.Contains(t, err.Error(), "available 2")

	// One short line voids the whole invoice: nothing was deducted or written.
	assert.Equal(t, 100, env.stockAt(t, widget, model.DefaultLocation))
	assert.Equal(t, 2, env.stockAt(t, gadget, model.DefaultLocation))
	var invoiceCount int64
	require.NoError(t, env.db.Model(&model.Invoice{}).Count(&invoiceCount).Error)
	assert.Zero(t, invoiceCount)
	assert.Zero(t, env.activityCount(t, model.ActivityInvoiceCreated))
}

func TestCreateInvoiceValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	staff := actorWithRole(model.RoleShowroomStaff)
	widget := env.seedProduct(t, "SKU-001", "Widget", "19.99")
	env.seedStock(t, widget, model.DefaultLocation, 10)

	cases := []struct {
		name string
		req  CreateInvoiceDTO
		code string
	}{
		{
			name: "no items",
			req:  CreateInvoiceDTO{Customer: CustomerInfoDTO{Name: "A"}},
			code: "VALIDATION",
		},
		{
			name: "no customer",
			req: CreateInvoiceDTO{
				Items: []InvoiceLineDTO{{ProductID: widget.ID.String(), Quantity: 1}},
			},
			code: "VALIDATION",
		},
		{
			name: "discount over 100",
			req: CreateInvoiceDTO{
				Customer:    CustomerInfoDTO{Name: "A"},
				Items:       []InvoiceLineDTO{{ProductID: widget.ID.String(), Quantity: 1}},
				DiscountPct: "150",
			},
			code: "VALIDATION",
		},
		{
			name: "negative tax",
			req: CreateInvoiceDTO{
				Customer: CustomerInfoDTO{Name: "A"},
				Items:    []InvoiceLineDTO{{ProductID: widget.ID.String(), Quantity: 1}},
				TaxRate:  "-5",
			},
			code: "VALIDATION",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.invoices.CreateInvoice(ctx, staff, tc.req)
			assert.Equal(t, tc.code, apperr.Code(err))
		})
	}

	t.Run("distributor cannot sell", func(t *testing.T) {
		_, err := env.invoices.CreateInvoice(ctx, actorWithRole(model.RoleDistributor), CreateInvoiceDTO{
			Customer: CustomerInfoDTO{Name: "A"},
			Items:    []InvoiceLineDTO{{ProductID: widget.ID.String(), Quantity: 1}},
		})
		assert.Equal(t, "FORBIDDEN", apperr.Code(err))
	})
}

func TestCreateInvoiceFromRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rep := actorWithRole(model.RoleRepresentative)
	manager := actorWithRole(model.RoleShowroomManager)
	widget := env.seedProduct(t, "SKU-001", "Widget", "12.00")

	created, err := env.requests.CreateRequest(ctx, rep, CreateRequestDTO{
		Items: []RequestItemDTO{{ProductID: widget.ID.String(), Quantity: 6}},
	})
	require.NoError(t, err)

	t.Run("pending request rejected", func(t *testing.T) {
		_, err := env.invoices.CreateInvoiceFromRequest(ctx, manager, CreateFromRequestDTO{RequestID: created.ID})
		assert.Equal(t, "INVALID_STATE", apperr.Code(err))
	})

	_, err = env.requests.ApproveRequest(ctx, actorWithRole(model.RoleHeadOffice), created.ID, "")
	require.NoError(t, err)

	t.Run("approved but unfulfilled request rejected", func(t *testing.T) {
		_, err := env.invoices.CreateInvoiceFromRequest(ctx, manager, CreateFromRequestDTO{RequestID: created.ID})
		assert.Equal(t, "INVALID_STATE", apperr.Code(err))
	})

	_, err = env.fulfillment.Fulfill(ctx, manager, created.ID, FulfillRequestDTO{})
	require.NoError(t, err)

	resp, err := env.invoices.CreateInvoiceFromRequest(ctx, manager, CreateFromRequestDTO{RequestID: created.ID})
	require.NoError(t, err)
	require.NotNil(t, resp.SourceRequestID)
	assert.Equal(t, created.ID, *resp.SourceRequestID)
	// No customer given: the requester is billed by default.
	assert.Equal(t, rep.DisplayName, resp.CustomerName)
	assert.Equal(t, "72.00", resp.Total) // 6 x 12.00, no discount or tax
	// The fulfilled quantities were sold back out.
	assert.Equal(t, 0, env.stockAt(t, widget, model.DefaultLocation))
}

func TestRecordPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	staff := actorWithRole(model.RoleShowroomStaff)
	widget := env.seedProduct(t, "SKU-001", "Widget", "50.00")
	env.seedStock(t, widget, model.DefaultLocation, 10)

	invoice, err := env.invoices.CreateInvoice(ctx, staff, CreateInvoiceDTO{
		Customer: CustomerInfoDTO{Name: "Jordan Lee"},
		Items:    []InvoiceLineDTO{{ProductID: widget.ID.String(), Quantity: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, "100.00", invoice.Total)

	t.Run("partial payment", func(t *testing.T) {
		resp, err := env.invoices.RecordPayment(ctx, staff, invoice.ID, RecordPaymentDTO{Amount: "40", Method: model.PayCard})
		require.NoError(t, err)
		assert.Equal(t, model.PaymentPartial, resp.PaymentStatus)
		assert.Equal(t, "40.00", resp.TotalPaid)
		assert.Equal(t, "60.00", resp.RemainingAmount)
	})

	t.Run("overpayment rejected", func(t *testing.T) {
		_, err := env.invoices.RecordPayment(ctx, staff, invoice.ID, RecordPaymentDTO{Amount: "60.01"})
		assert.Equal(t, "VALIDATION", apperr.Code(err))
	})

	t.Run("final payment settles", func(t *testing.T) {
		resp, err := env.invoices.RecordPayment(ctx, staff, invoice.ID, RecordPaymentDTO{Amount: "60"})
		require.NoError(t, err)
		assert.Equal(t, model.PaymentPaid, resp.PaymentStatus)
		assert.Equal(t, "0.00", resp.RemainingAmount)
	})

	t.Run("paid invoice rejects more payments", func(t *testing.T) {
		_, err := env.invoices.RecordPayment(ctx, staff, invoice.ID, RecordPaymentDTO{Amount: "1"})
		assert.Equal(t, "INVALID_STATE", apperr.Code(err))
	})

	assert.EqualValues(t, 2, env.activityCount(t, model.ActivityPaymentRecorded))
}

func TestInvoiceCustomerRecordSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	staff := actorWithRole(model.RoleShowroomStaff)
	widget := env.seedProduct(t, "SKU-001", "Widget", "10.00")
	env.seedStock(t, widget, model.DefaultLocation, 10)

	customer, err := env.customers.CreateCustomer(ctx, staff, CreateCustomerDTO{
		Name: "Acme Retail", Phone: "555-0199", Address: "12 High St",
	})
	require.NoError(t, err)

	resp, err := env.invoices.CreateInvoice(ctx, staff, CreateInvoiceDTO{
		Customer: CustomerInfoDTO{CustomerID: customer.ID},
		Items:    []InvoiceLineDTO{{ProductID: widget.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.CustomerID)
	assert.Equal(t, customer.ID, *resp.CustomerID)
	// The blank snapshot fields were filled from the customer record.
	assert.Equal(t, "Acme Retail", resp.CustomerName)
	assert.Equal(t, "555-0199", resp.CustomerPhone)
}

func TestListInvoicesFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	staff := actorWithRole(model.RoleShowroomStaff)
	widget := env.seedProduct(t, "SKU-001", "Widget", "10.00")
	env.seedStock(t, widget, model.DefaultLocation, 10)

	first, err := env.invoices.CreateInvoice(ctx, staff, CreateInvoiceDTO{
		Customer: CustomerInfoDTO{Name: "A"},
		Items:    []InvoiceLineDTO{{ProductID: widget.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = env.invoices.CreateInvoice(ctx, staff, CreateInvoiceDTO{
		Customer: CustomerInfoDTO{Name: "B"},
		Items:    []InvoiceLineDTO{{ProductID: widget.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = env.invoices.RecordPayment(ctx, staff, first.ID, RecordPaymentDTO{Amount: "10"})
	require.NoError(t, err)

	paid, total, err := env.invoices.ListInvoices(ctx, InvoiceListFilterDTO{PaymentStatus: model.PaymentPaid, Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, paid, 1)
	assert.Equal(t, first.ID, paid[0].ID)
}
