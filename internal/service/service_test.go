package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"saleshub/internal/database"
	"saleshub/internal/model"
	"saleshub/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// newTestDB opens an isolated in-memory database and migrates the schema.
// The database name is derived from the test name so parallel tests never
// share state.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// testEnv wires the full service stack over one test database.
type testEnv struct {
	db *gorm.DB

	requestRepo   repository.RequestRepository
	productRepo   repository.ProductRepository
	inventoryRepo repository.InventoryRepository
	invoiceRepo   repository.InvoiceRepository
	customerRepo  repository.CustomerRepository
	activityRepo  repository.ActivityRepository

	requests    RequestService
	fulfillment FulfillmentService
	invoices    InvoiceService
	catalog     CatalogService
	customers   CustomerService
	activities  ActivityService
	analytics   AnalyticsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	txManager := repository.NewTransactionManager(db)
	log := zap.NewNop()

	env := &testEnv{
		db:            db,
		requestRepo:   repository.NewRequestRepository(db),
		productRepo:   repository.NewProductRepository(db),
		inventoryRepo: repository.NewInventoryRepository(db),
		invoiceRepo:   repository.NewInvoiceRepository(db),
		customerRepo:  repository.NewCustomerRepository(db),
		activityRepo:  repository.NewActivityRepository(db),
	}
	env.requests = NewRequestService(db, txManager, env.requestRepo, env.productRepo, env.activityRepo, nil, log)
	env.fulfillment = NewFulfillmentService(txManager, env.requestRepo, env.inventoryRepo, env.activityRepo, nil, log)
	env.invoices = NewInvoiceService(db, txManager, env.invoiceRepo, env.productRepo, env.requestRepo, env.customerRepo, env.inventoryRepo, env.activityRepo, nil, log)
	env.catalog = NewCatalogService(txManager, env.productRepo, env.inventoryRepo, env.activityRepo, nil, log)
	env.customers = NewCustomerService(txManager, env.customerRepo, env.activityRepo, log)
	env.activities = NewActivityService(env.activityRepo)
	env.analytics = NewAnalyticsService(db)
	return env
}

func actorWithRole(role string) Actor {
	return Actor{
		ID:          uuid.New(),
		DisplayName: strings.ReplaceAll(role, "_", " "),
		Role:        role,
	}
}

func (e *testEnv) seedProduct(t *testing.T, sku, name, price string) *model.Product {
	t.Helper()
	unitPrice, err := decimal.NewFromString(price)
	require.NoError(t, err)
	product := &model.Product{
		SKU:       sku,
		Name:      name,
		Unit:      "units",
		UnitPrice: unitPrice,
		Active:    true,
	}
	require.NoError(t, e.db.Create(product).Error)
	return product
}

func (e *testEnv) seedStock(t *testing.T, product *model.Product, location string, qty int) {
	t.Helper()
	rec := &model.InventoryRecord{
		ProductID:    product.ID,
		ProductName:  product.Name,
		Location:     location,
		UnitsInStock: qty,
	}
	require.NoError(t, e.db.Create(rec).Error)
}

func (e *testEnv) stockAt(t *testing.T, product *model.Product, location string) int {
	t.Helper()
	var rec model.InventoryRecord
	err := e.db.Where("product_id = ? AND location = ?", product.ID, location).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0
	}
	require.NoError(t, err)
	return rec.UnitsInStock
}

func (e *testEnv) activityCount(t *testing.T, activityType string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(&model.ActivityLog{}).Where("type = ?", activityType).Count(&count).Error)
	return count
}
