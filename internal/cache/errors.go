package cache

import "errors"

var (
	ErrInvalidKey    = errors.New("invalid cache key")
	ErrCorruptRecord = errors.New("corrupt cache record")
)
