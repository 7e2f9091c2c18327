package sts

import "errors"

var (
	// ErrCrossAccount is returned when a role ARN does not belong to the
	// account the client is scoped to.
	ErrCrossAccount = errors.New("role belongs to a different account")

	// ErrAccessDenied is returned when the caller may not assume the role.
	ErrAccessDenied = errors.New("access denied assuming role")
)
