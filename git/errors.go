package git

import (
	"errors"
	"fmt"
)

// Sentinel errors that can be checked with errors.Is(). They wrap underlying
// go-git errors while providing a stable API for consumers.

// ErrInvalidOptions is returned when Options are missing required fields.
var ErrInvalidOptions = errors.New("invalid options")

// ErrInvalidRef is returned when a reference name or revision specification
// is empty or malformed.
var ErrInvalidRef = errors.New("invalid reference")

// ErrResolveFailed is returned when a revision cannot be resolved to a commit
// (unknown branch, unknown SHA, ...).
var ErrResolveFailed = errors.New("cannot resolve revision")

// ErrRepositoryMissing is returned when no repository exists at the location
// or the requested repository name is not served by a Provider.
var ErrRepositoryMissing = errors.New("repository does not exist")

// ErrBranchMissing is returned when the requested branch cannot be fetched.
var ErrBranchMissing = errors.New("branch does not exist")

// WrapError wraps an error with additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapErrorf wraps an error with formatted additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
