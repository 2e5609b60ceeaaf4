package ownership

import "errors"

var (
	ErrUnauthorized = errors.New("Unauthorized")
	ErrNotFound     = errors.New("Resource not found")
)
