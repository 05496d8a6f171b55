package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented        = errors.New("this function is not yet implemented")
	ErrMissingRequiredFields = errors.New("missing required fields")
	ErrMalformedKey          = errors.New("key is not under the original prefix")
	ErrInvalidSizes          = errors.New("sizes must be a comma-separated list of distinct positive integers, e.g. 480,768")
	ErrObjectNotFound        = errors.New("object not found")
	ErrRecordNotFound        = errors.New("image record not found")
	ErrUnsupportedStorage    = errors.New("unsupported storage type")
	ErrUnsupportedCatalog    = errors.New("unsupported catalog driver")
	ErrUnknownBucket         = errors.New("no object store registered for bucket")
)

// FetchingResourceError generates a formatted error for failed fetching of any resource by its type.
func FetchingResourceError(resource string) error {
	return fmt.Errorf("failed to fetch %s by id", resource)
}

func ConfigNotSetError(config string) error {
	return fmt.Errorf("the %s environment variable must be set", config)
}
