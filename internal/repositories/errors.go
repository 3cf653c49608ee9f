package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is the storage-agnostic not-found sentinel. Implementations
// translate their driver error into this one.
var ErrNotFound = errors.New("record not found")

// IsNotFoundError reports whether err means the requested row does not exist.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
