package codecommit

import "errors"

var (
	// ErrNotFound is returned when the repository or one of the commits does
	// not exist.
	ErrNotFound = errors.New("repository or commit not found")

	// ErrAccessDenied is returned when the credentials lack codecommit:GetDifferences
	// or the repository encryption key.
	ErrAccessDenied = errors.New("access denied to repository")
)

// AWS error codes that map to ErrNotFound.
var notFoundCodes = map[string]bool{
	"RepositoryDoesNotExistException": true,
	"CommitDoesNotExistException":     true,
	"InvalidCommitException":          true,
	"InvalidCommitIdException":        true,
	"CommitRequiredException":         true,
	"InvalidRepositoryNameException":  true,
	"RepositoryNameRequiredException": true,
	"PathDoesNotExistException":       true,
}

// AWS error codes that map to ErrAccessDenied.
var accessDeniedCodes = map[string]bool{
	"AccessDeniedException":              true,
	"EncryptionKeyAccessDeniedException": true,
	"EncryptionKeyDisabledException":     true,
}
