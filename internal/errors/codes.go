// Package errors provides structured errors for planqa.
//
// Error codes follow the pattern ERR_NNN_DESCRIPTION where:
//   - 1NN: Configuration errors
//   - 2NN: IO and storage errors (files, extraction, database)
//   - 3NN: Network and model errors (Ollama embeddings and generation)
//   - 4NN: Validation errors
//   - 5NN: Internal errors
package errors

// Category classifies an error by the first digit of its code.
type Category string

const (
	CategoryConfig     Category = "CONFIG"
	CategoryIO         Category = "IO"
	CategoryNetwork    Category = "NETWORK"
	CategoryValidation Category = "VALIDATION"
	CategoryInternal   Category = "INTERNAL"
)

// Severity describes how an error affects the running operation.
type Severity string

const (
	// SeverityFatal means the operation must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError means the operation failed but the process can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning means degraded operation, for example a retryable model call.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound   = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    = "ERR_102_CONFIG_INVALID"
	ErrCodeConfigPermission = "ERR_103_CONFIG_PERMISSION"

	// IO and storage errors (200-299)
	ErrCodeFileNotFound      = "ERR_201_FILE_NOT_FOUND"
	ErrCodeUnsupportedFormat = "ERR_202_UNSUPPORTED_FORMAT"
	ErrCodeExtractionFailed  = "ERR_203_EXTRACTION_FAILED"
	ErrCodeNoText            = "ERR_204_NO_TEXT"
	ErrCodeStorageFailed     = "ERR_205_STORAGE_FAILED"
	ErrCodeDocumentNotFound  = "ERR_206_DOCUMENT_NOT_FOUND"
	ErrCodeDatabaseCorrupt   = "ERR_207_DATABASE_CORRUPT"

	// Network and model errors (300-399)
	ErrCodeNetworkTimeout   = "ERR_301_NETWORK_TIMEOUT"
	ErrCodeModelUnavailable = "ERR_302_MODEL_UNAVAILABLE"
	ErrCodeGenerationFailed = "ERR_303_GENERATION_FAILED"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeQueryEmpty        = "ERR_403_QUERY_EMPTY"
	ErrCodeInvalidLevel      = "ERR_404_INVALID_LEVEL"

	// Internal errors (500-599)
	ErrCodeInternal        = "ERR_501_INTERNAL"
	ErrCodeEmbeddingFailed = "ERR_502_EMBEDDING_FAILED"
	ErrCodeSearchFailed    = "ERR_503_SEARCH_FAILED"
	ErrCodeIngestFailed    = "ERR_504_INGEST_FAILED"
)

// categoryFromCode reads the hundreds digit of a code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

func severityFromCode(code string) Severity {
	if code == ErrCodeDatabaseCorrupt {
		return SeverityFatal
	}
	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode reports codes for which the same call may succeed later.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNetworkTimeout, ErrCodeModelUnavailable:
		return true
	default:
		return false
	}
}
