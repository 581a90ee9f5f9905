// Package errors provides structured error handling for nearmatch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors (backing store, data directory)
//   - 3XX: Transport errors (daemon socket, listeners)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates backing store errors.
	CategoryStorage Category = "STORAGE"
	// CategoryTransport indicates socket and listener errors.
	CategoryTransport Category = "TRANSPORT"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Storage errors (200-299)
	ErrCodeStoreUnavailable = "ERR_201_STORE_UNAVAILABLE"
	ErrCodeStoreRead        = "ERR_202_STORE_READ"
	ErrCodeStoreWrite       = "ERR_203_STORE_WRITE"
	ErrCodeStoreDuplicate   = "ERR_204_STORE_DUPLICATE"
	ErrCodeStoreCorrupt     = "ERR_205_STORE_CORRUPT"
	ErrCodeStoreLocked      = "ERR_206_STORE_LOCKED"

	// Transport errors (300-399)
	ErrCodeDaemonUnavailable = "ERR_301_DAEMON_UNAVAILABLE"
	ErrCodeListenFailed      = "ERR_302_LISTEN_FAILED"

	// Validation errors (400-499)
	ErrCodeInvalidInput = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidText  = "ERR_402_INVALID_TEXT"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
	ErrCodeNotReady = "ERR_502_NOT_READY"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// "ERR_205_..." -> '2'
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryTransport
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeStoreCorrupt, ErrCodeStoreUnavailable, ErrCodeStoreLocked, ErrCodeConfigInvalid:
		return SeverityFatal
	case ErrCodeStoreWrite, ErrCodeStoreDuplicate:
		// Losing one cache update never degrades the read path.
		return SeverityWarning
	default:
		return SeverityError
	}
}
