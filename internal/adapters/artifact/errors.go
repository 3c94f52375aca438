package artifact

import "errors"

// Sentinel errors for artifact loading.
var (
	ErrNotFound     = errors.New("model artifact not found")
	ErrDecode       = errors.New("model artifact could not be decoded")
	ErrInvalid      = errors.New("model artifact is invalid")
	ErrUnknownKind  = errors.New("unknown model kind")
	ErrFeatureOrder = errors.New("artifact feature order does not match the service")
	ErrTooLarge     = errors.New("model artifact exceeds size limit")
)
