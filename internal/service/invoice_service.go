package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"saleshub/internal/apperr"
	"saleshub/internal/authz"
	"saleshub/internal/model"
	"saleshub/internal/repository"
	ws "saleshub/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- DTOs ---

type InvoiceLineDTO struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

type CustomerInfoDTO struct {
	CustomerID string `json:"customer_id"` // optional link to a managed customer
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	Email      string `json:"email"`
}

type CreateInvoiceDTO struct {
	Customer      CustomerInfoDTO  `json:"customer"`
	Items         []InvoiceLineDTO `json:"items" binding:"required"`
	DiscountPct   string           `json:"discount_pct"` // percentage, "0".."100"
	TaxRate       string           `json:"tax_rate"`     // percentage
	PaymentMethod string           `json:"payment_method" binding:"omitempty,oneof=CASH CARD CREDIT"`
	Location      string           `json:"location"`
	Notes         string           `json:"notes"`
}

// CreateFromRequestDTO derives an invoice from a fulfilled request. The
// request supplies the lines; pricing comes from the current catalog.
type CreateFromRequestDTO struct {
	RequestID     string          `json:"request_id" binding:"required"`
	Customer      CustomerInfoDTO `json:"customer"`
	DiscountPct   string          `json:"discount_pct"`
	TaxRate       string          `json:"tax_rate"`
	PaymentMethod string          `json:"payment_method" binding:"omitempty,oneof=CASH CARD CREDIT"`
	Location      string          `json:"location"`
	Notes         string          `json:"notes"`
}

type RecordPaymentDTO struct {
	Amount string `json:"amount" binding:"required"`
	Method string `json:"method" binding:"omitempty,oneof=CASH CARD CREDIT"`
	Note   string `json:"note"`
}

type InvoiceItemResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Unit        string `json:"unit"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

type InvoiceResponse struct {
	ID              string                `json:"id"`
	InvoiceNumber   string                `json:"invoice_number"`
	CreatedBy       string                `json:"created_by"`
	CreatedByName   string                `json:"created_by_name"`
	CustomerID      *string               `json:"customer_id"`
	CustomerName    string                `json:"customer_name"`
	CustomerPhone   string                `json:"customer_phone"`
	SourceRequestID *string               `json:"source_request_id"`
	Items           []InvoiceItemResponse `json:"items"`
	Subtotal        string                `json:"subtotal"`
	DiscountPct     string                `json:"discount_pct"`
	DiscountAmount  string                `json:"discount_amount"`
	TaxRate         string                `json:"tax_rate"`
	TaxAmount       string                `json:"tax_amount"`
	Total           string                `json:"total"`
	Status          string                `json:"status"`
	PaymentStatus   string                `json:"payment_status"`
	PaymentMethod   string                `json:"payment_method"`
	TotalPaid       string                `json:"total_paid"`
	RemainingAmount string                `json:"remaining_amount"`
	DueDate         string                `json:"due_date"`
	Notes           string                `json:"notes"`
	CreatedAt       string                `json:"created_at"`
}

type InvoiceListFilterDTO struct {
	PaymentStatus string
	CustomerID    string
	Page          int
	Limit         int
}

// --- Interface ---

type InvoiceService interface {
	CreateInvoice(ctx context.Context, actor Actor, req CreateInvoiceDTO) (InvoiceResponse, error)
	CreateInvoiceFromRequest(ctx context.Context, actor Actor, req CreateFromRequestDTO) (InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter InvoiceListFilterDTO) ([]InvoiceResponse, int64, error)
	GetInvoice(ctx context.Context, id string) (InvoiceResponse, error)
	RecordPayment(ctx context.Context, actor Actor, invoiceID string, req RecordPaymentDTO) (InvoiceResponse, error)
}

type invoiceService struct {
	db            *gorm.DB
	txManager     repository.TransactionManager
	invoiceRepo   repository.InvoiceRepository
	productRepo   repository.ProductRepository
	requestRepo   repository.RequestRepository
	customerRepo  repository.CustomerRepository
	inventoryRepo repository.InventoryRepository
	activityRepo  repository.ActivityRepository
	ledger        stockLedger
	hub           *ws.Hub
	log           *zap.Logger
}

func NewInvoiceService(
	db *gorm.DB,
	txManager repository.TransactionManager,
	invoiceRepo repository.InvoiceRepository,
	productRepo repository.ProductRepository,
	requestRepo repository.RequestRepository,
	customerRepo repository.CustomerRepository,
	inventoryRepo repository.InventoryRepository,
	activityRepo repository.ActivityRepository,
	hub *ws.Hub,
	log *zap.Logger,
) InvoiceService {
	return &invoiceService{
		db:            db,
		txManager:     txManager,
		invoiceRepo:   invoiceRepo,
		productRepo:   productRepo,
		requestRepo:   requestRepo,
		customerRepo:  customerRepo,
		inventoryRepo: inventoryRepo,
		activityRepo:  activityRepo,
		ledger:        stockLedger{inventoryRepo: inventoryRepo},
		hub:           hub,
		log:           log,
	}
}

// invoiceLine is a priced, stock-validated line ready to persist.
type invoiceLine struct {
	product   *model.Product
	quantity  int
	lineTotal decimal.Decimal
}

// --- Implementation ---

func (s *invoiceService) CreateInvoice(ctx context.Context, actor Actor, req CreateInvoiceDTO) (InvoiceResponse, error) {
	if !authz.CanSell(actor.Role) {
		return InvoiceResponse{}, &apperr.ForbiddenError{Role: actor.Role, Action: "create invoices"}
	}
	if len(req.Items) == 0 {
		return InvoiceResponse{}, apperr.Validation("items", "at least one item is required")
	}
	if req.Customer.Name == "" && req.Customer.CustomerID == "" {
		return InvoiceResponse{}, apperr.Validation("customer.name", "customer name is required")
	}

	lines := make([]lineInput, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, lineInput{productID: item.ProductID, quantity: item.Quantity})
	}
	return s.createInvoice(ctx, actor, invoiceInput{
		customer:      req.Customer,
		lines:         lines,
		discountPct:   req.DiscountPct,
		taxRate:       req.TaxRate,
		paymentMethod: req.PaymentMethod,
		location:      req.Location,
		notes:         req.Notes,
	})
}

func (s *invoiceService) CreateInvoiceFromRequest(ctx context.Context, actor Actor, req CreateFromRequestDTO) (InvoiceResponse, error) {
	if !authz.CanSell(actor.Role) {
		return InvoiceResponse{}, &apperr.ForbiddenError{Role: actor.Role, Action: "create invoices"}
	}
	requestID, err := uuid.Parse(req.RequestID)
	if err != nil {
		return InvoiceResponse{}, apperr.Validation("request_id", "invalid uuid")
	}

	request, err := s.requestRepo.FindByIDWithItems(ctx, requestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return InvoiceResponse{}, apperr.ErrNotFound
	} else if err != nil {
		return InvoiceResponse{}, fmt.Errorf("failed to load request: %w", err)
	}
	// Only a fulfilled request has its goods in stock to sell from.
	if request.Status != model.RequestStatusCompleted {
		return InvoiceResponse{}, &apperr.InvalidStateError{
			Entity:   "request " + request.RequestCode,
			Current:  request.Status,
			Expected: model.RequestStatusCompleted,
		}
	}

	lines := make([]lineInput, 0, len(request.Items))
	for _, item := range request.Items {
		lines = append(lines, lineInput{productID: item.ProductID.String(), quantity: item.Quantity})
	}
	customer := req.Customer
	if customer.Name == "" && customer.CustomerID == "" {
		// Bill the requester by default.
		customer.Name = request.RequestedByName
	}
	return s.createInvoice(ctx, actor, invoiceInput{
		customer:        customer,
		lines:           lines,
		discountPct:     req.DiscountPct,
		taxRate:         req.TaxRate,
		paymentMethod:   req.PaymentMethod,
		location:        req.Location,
		notes:           req.Notes,
		sourceRequestID: &request.ID,
		sourceCode:      request.RequestCode,
	})
}

type lineInput struct {
	productID string
	quantity  int
}

type invoiceInput struct {
	customer        CustomerInfoDTO
	lines           []lineInput
	discountPct     string
	taxRate         string
	paymentMethod   string
	location        string
	notes           string
	sourceRequestID *uuid.UUID
	sourceCode      string
}

// createInvoice is the shared core of the walk-in and request-derived paths.
// Every line is stock-validated before any deduction happens; one short line
// rejects the whole invoice and nothing is written.
func (s *invoiceService) createInvoice(ctx context.Context, actor Actor, in invoiceInput) (InvoiceResponse, error) {
	discountPct, err := parsePercent(in.discountPct, "discount_pct")
	if err != nil {
		return InvoiceResponse{}, err
	}
	taxRate, err := parsePercent(in.taxRate, "tax_rate")
	if err != nil {
		return InvoiceResponse{}, err
	}
	method := in.paymentMethod
	if method == "" {
		method = model.PayCash
	}
	location := in.location
	if location == "" {
		location = model.DefaultLocation
	}

	invoice := model.Invoice{
		CreatedBy:     actor.ID,
		CreatedByName: actor.DisplayName,
		CreatedByRole: actor.Role,
		Status:        model.InvoiceStatusCompleted,
		PaymentStatus: model.PaymentPending,
		PaymentMethod: method,
		Notes:         in.notes,
	}
	if err := s.resolveCustomer(ctx, &invoice, in.customer); err != nil {
		return InvoiceResponse{}, err
	}
	invoice.SourceRequestID = in.sourceRequestID

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Price and validate every line under row locks before any write.
		lines := make([]invoiceLine, 0, len(in.lines))
		subtotal := decimal.Zero
		for i, line := range in.lines {
			if line.quantity < 1 {
				return apperr.Validation(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
			}
			productID, err := uuid.Parse(line.productID)
			if err != nil {
				return apperr.Validation(fmt.Sprintf("items[%d].product_id", i), "invalid uuid")
			}
			product, err := s.productRepo.FindByID(txCtx, productID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("product %s: %w", line.productID, apperr.ErrNotFound)
			} else if err != nil {
				return fmt.Errorf("failed to look up product: %w", err)
			}

			available, err := s.inventoryRepo.AvailableUnits(txCtx, productID, location)
			if err != nil {
				return fmt.Errorf("failed to check stock: %w", err)
			}
			if available < line.quantity {
				return &apperr.InsufficientStockError{
					ProductID:   productID,
					ProductName: product.Name,
					Requested:   line.quantity,
					Available:   available,
				}
			}

			lineTotal := product.UnitPrice.Mul(decimal.NewFromInt(int64(line.quantity))).Round(2)
			subtotal = subtotal.Add(lineTotal)
			lines = append(lines, invoiceLine{product: product, quantity: line.quantity, lineTotal: lineTotal})
		}

		// Derived amounts, each rounded to 2dp as it is produced.
		hundred := decimal.NewFromInt(100)
		discountAmount := subtotal.Mul(discountPct).Div(hundred).Round(2)
		taxable := subtotal.Sub(discountAmount)
		taxAmount := taxable.Mul(taxRate).Div(hundred).Round(2)
		total := taxable.Add(taxAmount)

		now := time.Now()
		invoice.Subtotal = subtotal
		invoice.DiscountPct = discountPct
		invoice.DiscountAmount = discountAmount
		invoice.TaxRate = taxRate
		invoice.TaxAmount = taxAmount
		invoice.Total = total
		invoice.TotalPaid = decimal.Zero
		invoice.RemainingAmount = total
		invoice.DueDate = now.AddDate(0, 0, model.DueDateGraceDays)

		number, err := nextCode(repository.GetDB(txCtx, s.db), "INV", func(prefix string) (int64, error) {
			return s.invoiceRepo.CountByPrefix(txCtx, prefix)
		})
		if err != nil {
			return fmt.Errorf("failed to generate invoice number: %w", err)
		}
		invoice.InvoiceNumber = number

		if err := s.invoiceRepo.Create(txCtx, &invoice); err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}

		for _, line := range lines {
			item := model.InvoiceItem{
				InvoiceID:   invoice.ID,
				ProductID:   line.product.ID,
				ProductName: line.product.Name,
				Quantity:    line.quantity,
				Unit:        line.product.Unit,
				UnitPrice:   line.product.UnitPrice,
				LineTotal:   line.lineTotal,
			}
			if err := s.invoiceRepo.CreateItem(txCtx, &item); err != nil {
				return fmt.Errorf("failed to create invoice item: %w", err)
			}
			invoice.Items = append(invoice.Items, item)

			invID := invoice.ID
			if _, err := s.ledger.applyDelta(txCtx, line.product.ID, line.product.Name, location, -line.quantity, model.MovementSaleOut, nil, &invID); err != nil {
				return err
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"total":          total.StringFixed(2),
			"customer":       invoice.CustomerName,
			"source_request": in.sourceCode,
		})
		entry := model.ActivityLog{
			Type:       model.ActivityInvoiceCreated,
			ActorID:    &actor.ID,
			ActorName:  actor.DisplayName,
			ActorRole:  actor.Role,
			EntityID:   invoice.ID.String(),
			EntityName: invoice.InvoiceNumber,
			Details:    string(details),
		}
		if err := s.activityRepo.Log(txCtx, &entry); err != nil {
			return fmt.Errorf("failed to write activity log: %w", err)
		}
		return nil
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	s.log.Info("invoice created",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("total", invoice.Total.StringFixed(2)),
		zap.String("created_by", actor.ID.String()))

	s.hub.Publish(ws.EventInvoiceCreated, map[string]interface{}{
		"id":     invoice.ID.String(),
		"number": invoice.InvoiceNumber,
		"total":  invoice.Total.StringFixed(2),
	})

	return toInvoiceResponse(&invoice), nil
}

func (s *invoiceService) resolveCustomer(ctx context.Context, invoice *model.Invoice, info CustomerInfoDTO) error {
	invoice.CustomerName = info.Name
	invoice.CustomerPhone = info.Phone
	invoice.CustomerAddress = info.Address
	invoice.CustomerEmail = info.Email

	if info.CustomerID == "" {
		return nil
	}
	customerID, err := uuid.Parse(info.CustomerID)
	if err != nil {
		return apperr.Validation("customer.customer_id", "invalid uuid")
	}
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("customer %s: %w", info.CustomerID, apperr.ErrNotFound)
	} else if err != nil {
		return fmt.Errorf("failed to look up customer: %w", err)
	}

	invoice.CustomerID = &customer.ID
	// The record fills whatever the caller left blank.
	if invoice.CustomerName == "" {
		invoice.CustomerName = customer.Name
	}
	if invoice.CustomerPhone == "" {
		invoice.CustomerPhone = customer.Phone
	}
	if invoice.CustomerAddress == "" {
		invoice.CustomerAddress = customer.Address
	}
	if invoice.CustomerEmail == "" {
		invoice.CustomerEmail = customer.Email
	}
	return nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter InvoiceListFilterDTO) ([]InvoiceResponse, int64, error) {
	repoFilter := repository.InvoiceListFilter{
		PaymentStatus: filter.PaymentStatus,
		Page:          filter.Page,
		Limit:         filter.Limit,
	}
	if filter.CustomerID != "" {
		customerID, err := uuid.Parse(filter.CustomerID)
		if err != nil {
			return nil, 0, apperr.Validation("customer_id", "invalid uuid")
		}
		repoFilter.CustomerID = &customerID
	}

	invoices, total, err := s.invoiceRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invoices: %w", err)
	}
	responses := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		responses = append(responses, toInvoiceResponse(&invoices[i]))
	}
	return responses, total, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (InvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return InvoiceResponse{}, apperr.Validation("id", "invalid uuid")
	}
	invoice, err := s.invoiceRepo.FindByIDWithItems(ctx, invoiceID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return InvoiceResponse{}, apperr.ErrNotFound
	} else if err != nil {
		return InvoiceResponse{}, fmt.Errorf("failed to load invoice: %w", err)
	}
	return toInvoiceResponse(invoice), nil
}

func (s *invoiceService) RecordPayment(ctx context.Context, actor Actor, invoiceID string, req RecordPaymentDTO) (InvoiceResponse, error) {
	if !authz.CanSell(actor.Role) {
		return InvoiceResponse{}, &apperr.ForbiddenError{Role: actor.Role, Action: "record payments"}
	}
	id, err := uuid.Parse(invoiceID)
	if err != nil {
		return InvoiceResponse{}, apperr.Validation("id", "invalid uuid")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return InvoiceResponse{}, apperr.Validation("amount", "must be a positive decimal")
	}
	method := req.Method
	if method == "" {
		method = model.PayCash
	}

	var invoice *model.Invoice
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err = s.invoiceRepo.FindByIDForUpdate(txCtx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		} else if err != nil {
			return fmt.Errorf("failed to load invoice: %w", err)
		}
		if invoice.PaymentStatus == model.PaymentPaid {
			return &apperr.InvalidStateError{
				Entity:   "invoice " + invoice.InvoiceNumber,
				Current:  invoice.PaymentStatus,
				Expected: model.PaymentPending + " or " + model.PaymentPartial,
			}
		}
		if amount.GreaterThan(invoice.RemainingAmount) {
			return apperr.Validation("amount", "exceeds remaining balance of "+invoice.RemainingAmount.StringFixed(2))
		}

		payment := model.InvoicePayment{
			InvoiceID:  invoice.ID,
			Amount:     amount,
			Method:     method,
			ReceivedBy: actor.ID,
			Note:       req.Note,
		}
		if err := s.invoiceRepo.CreatePayment(txCtx, &payment); err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		invoice.TotalPaid = invoice.TotalPaid.Add(amount)
		invoice.RemainingAmount = invoice.Total.Sub(invoice.TotalPaid)
		switch {
		case invoice.RemainingAmount.IsZero():
			invoice.PaymentStatus = model.PaymentPaid
		case invoice.TotalPaid.IsPositive():
			invoice.PaymentStatus = model.PaymentPartial
		}
		if err := s.invoiceRepo.UpdatePayment(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to update invoice payment: %w", err)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"amount":         amount.StringFixed(2),
			"method":         method,
			"payment_status": invoice.PaymentStatus,
		})
		entry := model.ActivityLog{
			Type:       model.ActivityPaymentRecorded,
			ActorID:    &actor.ID,
			ActorName:  actor.DisplayName,
			ActorRole:  actor.Role,
			EntityID:   invoice.ID.String(),
			EntityName: invoice.InvoiceNumber,
			Details:    string(details),
		}
		if err := s.activityRepo.Log(txCtx, &entry); err != nil {
			return fmt.Errorf("failed to write activity log: %w", err)
		}
		return nil
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	s.log.Info("payment recorded",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("payment_status", invoice.PaymentStatus))

	return toInvoiceResponse(invoice), nil
}

// --- Helpers ---

func parsePercent(raw, field string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	pct, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperr.Validation(field, "must be a decimal percentage")
	}
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, apperr.Validation(field, "must be between 0 and 100")
	}
	return pct, nil
}

func toInvoiceResponse(inv *model.Invoice) InvoiceResponse {
	items := make([]InvoiceItemResponse, 0, len(inv.Items))
	for _, item := range inv.Items {
		items = append(items, InvoiceItemResponse{
			ID:          item.ID.String(),
			ProductID:   item.ProductID.String(),
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			UnitPrice:   item.UnitPrice.StringFixed(2),
			LineTotal:   item.LineTotal.StringFixed(2),
		})
	}
	return InvoiceResponse{
		ID:              inv.ID.String(),
		InvoiceNumber:   inv.InvoiceNumber,
		CreatedBy:       inv.CreatedBy.String(),
		CreatedByName:   inv.CreatedByName,
		CustomerID:      uuidPtrString(inv.CustomerID),
		CustomerName:    inv.CustomerName,
		CustomerPhone:   inv.CustomerPhone,
		SourceRequestID: uuidPtrString(inv.SourceRequestID),
		Items:           items,
		Subtotal:        inv.Subtotal.StringFixed(2),
		DiscountPct:     inv.DiscountPct.StringFixed(2),
		DiscountAmount:  inv.DiscountAmount.StringFixed(2),
		TaxRate:         inv.TaxRate.StringFixed(2),
		TaxAmount:       inv.TaxAmount.StringFixed(2),
		Total:           inv.Total.StringFixed(2),
		Status:          inv.Status,
		PaymentStatus:   inv.PaymentStatus,
		PaymentMethod:   inv.PaymentMethod,
		TotalPaid:       inv.TotalPaid.StringFixed(2),
		RemainingAmount: inv.RemainingAmount.StringFixed(2),
		DueDate:         inv.DueDate.Format(time.RFC3339),
		Notes:           inv.Notes,
		CreatedAt:       inv.CreatedAt.Format(time.RFC3339),
	}
}
