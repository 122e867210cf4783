package domain

import "errors"

var (
	ErrInvalidEmail          = errors.New("email body is not valid text")
	ErrNotOrderConfirmation  = errors.New("email is not an order confirmation")
	ErrExtractionFailed      = errors.New("order extraction failed")
	ErrOrderNotFound         = errors.New("order not found")
	ErrSourceUnavailable     = errors.New("nutrition source unavailable")
	ErrNoMatch               = errors.New("no nutrition match found")
	ErrInvalidSignature      = errors.New("invalid webhook signature")
	ErrUnsupportedCacheStore = errors.New("unsupported cache store")
	ErrObjectNotFound        = errors.New("object not found")
)
