package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{ErrNotFound, "NOT_FOUND"},
		{fmt.Errorf("product abc: %w", ErrNotFound), "NOT_FOUND"},
		{ErrInvalidCredentials, "INVALID_CREDENTIALS"},
		{Validation("quantity", "must be at least 1"), "VALIDATION"},
		{&InvalidStateError{Entity: "request REQ-1", Current: "REJECTED", Expected: "PENDING"}, "INVALID_STATE"},
		{&InsufficientStockError{ProductID: uuid.New(), ProductName: "Widget", Requested: 5, Available: 2}, "INSUFFICIENT_STOCK"},
		{&NegativeStockError{ProductID: uuid.New(), Current: 3, Delta: -5}, "NEGATIVE_STOCK"},
		{&ForbiddenError{Role: "distributor", Action: "create invoices"}, "FORBIDDEN"},
		{errors.New("connection refused"), "INTERNAL"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, Code(tc.err), "for %v", tc.err)
	}
}

func TestIsDomain(t *testing.T) {
	assert.True(t, IsDomain(ErrNotFound))
	assert.True(t, IsDomain(Validation("f", "r")))
	assert.False(t, IsDomain(errors.New("disk full")))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "quantity: must be at least 1", Validation("quantity", "must be at least 1").Error())
	assert.Equal(t, "request REQ-1 is REJECTED, expected PENDING",
		(&InvalidStateError{Entity: "request REQ-1", Current: "REJECTED", Expected: "PENDING"}).Error())
	assert.Contains(t,
		(&InsufficientStockError{ProductName: "Widget", Requested: 5, Available: 2}).Error(),
		"requested 5, available 2")
}
