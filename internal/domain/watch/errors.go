package watch

import "errors"

const (
	ERR_TRANSIENT_IO        = "transient io failure"
	ERR_MALFORMED_RECORD    = "malformed record"
	ERR_BACKEND_UNAVAILABLE = "backend unavailable"
	ERR_SERIALIZATION       = "serialization failure"
	ERR_SOURCE_ENUMERATION  = "source enumeration failed"
	ERR_DATE_PARSE          = "invalid watch date"
	ERR_BATCH_SIZE_INVALID  = "batch size must be greater than 0"
	ERR_WORKERS_INVALID     = "workers must not be negative"
	ERR_MAX_RETRIES_INVALID = "max retries must be greater than 0"
	ERR_MISSING_SOURCE      = "source is required"
	ERR_MISSING_DECODER     = "record decoder is required"
	ERR_MISSING_STORE       = "backend store is required"
)

var (
	ErrTransientIO        = errors.New(ERR_TRANSIENT_IO)
	ErrMalformedRecord    = errors.New(ERR_MALFORMED_RECORD)
	ErrBackendUnavailable = errors.New(ERR_BACKEND_UNAVAILABLE)
	ErrSerialization      = errors.New(ERR_SERIALIZATION)
	ErrSourceEnumeration  = errors.New(ERR_SOURCE_ENUMERATION)
	ErrDateParse          = errors.New(ERR_DATE_PARSE)
	ErrBatchSizeInvalid   = errors.New(ERR_BATCH_SIZE_INVALID)
	ErrWorkersInvalid     = errors.New(ERR_WORKERS_INVALID)
	ErrMaxRetriesInvalid  = errors.New(ERR_MAX_RETRIES_INVALID)
	ErrMissingSource      = errors.New(ERR_MISSING_SOURCE)
	ErrMissingDecoder     = errors.New(ERR_MISSING_DECODER)
	ErrMissingStore       = errors.New(ERR_MISSING_STORE)
)

// IsConfigError reports whether err comes from run configuration validation.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrBatchSizeInvalid) ||
		errors.Is(err, ErrWorkersInvalid) ||
		errors.Is(err, ErrMaxRetriesInvalid) ||
		errors.Is(err, ErrMissingSource) ||
		errors.Is(err, ErrMissingDecoder) ||
		errors.Is(err, ErrMissingStore)
}
