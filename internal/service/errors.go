package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredential  = errors.New("invalid credential")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrUpload             = errors.New("upload failed")
	ErrPersist            = errors.New("persist failed")

	// ErrOCRWarning is reported alongside a successful ingestion, never returned.
	ErrOCRWarning = errors.New("text extraction failed")

	ErrUsernameTaken = fmt.Errorf("%w: username already taken", ErrValidation)
)
