package inventory

import "errors"

var (
	// ErrStorageUnavailable is returned when the backing store cannot be reached.
	ErrStorageUnavailable = errors.New("inventory storage unavailable")
	// ErrProductNotRegistered is returned by strict lookups for unknown products.
	ErrProductNotRegistered = errors.New("product not registered")
	// ErrQuantityOutOfRange is returned when an adjustment would overflow a quantity.
	ErrQuantityOutOfRange = errors.New("inventory quantity out of range")
)
