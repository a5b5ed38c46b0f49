package template

import "errors"

var (
	ErrUnknownTemplate = errors.New("unknown template")
	ErrInvalidName     = errors.New("invalid crate name")
	ErrDirExists       = errors.New("directory already exists")
	ErrInvalidTemplate = errors.New("invalid template")
)
