package store

import "errors"

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrEmptyText       = errors.New("task text is empty")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidTheme    = errors.New("invalid theme preference")
	ErrInvalidTime     = errors.New("invalid notification time")
	ErrEmptySubject    = errors.New("subject is empty")
)
