package services

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized      = errors.New("user is not authorized")
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidInterval   = fmt.Errorf("%w: invalid recurring interval", ErrInvalidArgument)
	ErrDependencyFailure = errors.New("dependency failure")
)

func notFound(what string) error {
	return fmt.Errorf("%s %w or does not belong to the user", what, ErrNotFound)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
