package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicates_SeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("confirm sale: %w", NewInsufficientStock("p-1", "10.0000", "4.0000"))

	assert.True(t, IsInsufficientStock(err))
	assert.False(t, IsUnbalancedEntry(err))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(err))

	appErr, ok := AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, "4.0000", appErr.Details["available"])
}

func TestLedgerErrors(t *testing.T) {
	assert.True(t, IsUnknownAccount(NewUnknownAccount("7777")))
	assert.True(t, IsUnbalancedEntry(NewUnbalancedEntry("10", "9")))
	assert.True(t, IsInvalidBatchParameters(NewInvalidBatchParameters("quantity must be positive")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(NewInvalidBatchParameters("x")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(NewDuplicate("product", "code", "SKU-1")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestInternal_KeepsCause(t *testing.T) {
	cause := errors.New("db down")
	err := NewInternal(cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "db down")
	assert.Equal(t, "Internal server error", err.Message)
}

func TestWithStatus(t *testing.T) {
	err := NewValidation("body too large").WithStatus(http.StatusRequestEntityTooLarge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, HTTPStatus(err))
	assert.True(t, IsValidation(err))
}
