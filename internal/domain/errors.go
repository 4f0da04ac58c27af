package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrAlreadyLinked        = errors.New("already linked")
	ErrInvalidReference     = errors.New("invalid reference")
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrEmptyTitle           = errors.New("title is required")
	ErrStoryTooShort        = errors.New("story content must contain at least 50 characters")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrFileTooLarge         = errors.New("file too large")
)
