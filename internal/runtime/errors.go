package runtime

import "errors"

var (
	ErrRuntime        = errors.New("runtime error")
	ErrEmptyArchive   = errors.New("archive contains no image")
	ErrMultipleImages = errors.New("archive contains more than one image")
	ErrCopy           = errors.New("copy failed")
)
