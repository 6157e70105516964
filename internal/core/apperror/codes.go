package apperror

import "net/http"

// Machine-readable codes returned in the "code" field of error bodies.
const (
	CodeInternal = "INTERNAL_ERROR"

	CodeValidation             = "VALIDATION_ERROR"
	CodeInvalidBatchParameters = "INVALID_BATCH_PARAMETERS"

	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeUnbalancedEntry   = "UNBALANCED_ENTRY"
	CodeUnknownAccount    = "UNKNOWN_ACCOUNT"

	CodeNotFound = "NOT_FOUND"

	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeDuplicate              = "DUPLICATE_ENTRY"
	CodeIdempotency            = "IDEMPOTENCY_CONFLICT"
)

// statusByCode is the default HTTP status of each code.
var statusByCode = map[string]int{
	CodeInternal:               http.StatusInternalServerError,
	CodeValidation:             http.StatusBadRequest,
	CodeInvalidBatchParameters: http.StatusBadRequest,
	CodeInsufficientStock:      http.StatusUnprocessableEntity,
	CodeUnbalancedEntry:        http.StatusUnprocessableEntity,
	CodeUnknownAccount:         http.StatusUnprocessableEntity,
	CodeNotFound:               http.StatusNotFound,
	CodeConcurrentModification: http.StatusConflict,
	CodeDuplicate:              http.StatusConflict,
	CodeIdempotency:            http.StatusConflict,
}

// StatusOf returns the HTTP status for code, or 500 for unknown codes.
func StatusOf(code string) int {
	if s, ok := statusByCode[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}
