package secrets

import "errors"

var (
	// ErrSecretNotFound is returned when the secret does not exist or was
	// scheduled for deletion.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrSecretEmpty is returned when the secret has no string value.
	ErrSecretEmpty = errors.New("secret value is empty")

	// ErrAccessDenied is returned when the caller may not read the secret or
	// decrypt it.
	ErrAccessDenied = errors.New("access denied to secret")

	// ErrMalformedSecret is returned when a structured secret cannot be decoded.
	ErrMalformedSecret = errors.New("malformed secret")
)

var notFoundCodes = map[string]bool{
	"ResourceNotFoundException": true,
	"InvalidRequestException":   true,
}

var accessDeniedCodes = map[string]bool{
	"AccessDeniedException":    true,
	"DecryptionFailure":        true,
	"UnauthorizedOperation":    true,
	"KMSAccessDeniedException": true,
}
