package codepipeline

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"

	ferrors "github.com/input-output-hk/catalyst-forge-delivery/errors"
	"github.com/input-output-hk/catalyst-forge-delivery/services/aws/retry"
)

var (
	// ErrPipelineNotFound is returned when the named pipeline does not exist.
	ErrPipelineNotFound = errors.New("pipeline not found")

	// ErrThrottled is returned when the service throttled the request. It is
	// transient; the delivery system leaves retrying to the caller.
	ErrThrottled = errors.New("request throttled")

	// ErrApprovalNotPending is returned when no approval is waiting on the
	// requested stage and action.
	ErrApprovalNotPending = errors.New("no pending approval")

	// ErrAccessDenied is returned when the credentials lack the required permission.
	ErrAccessDenied = errors.New("access denied to pipeline")
)

// classify maps an SDK error to a package sentinel wrapped in the taxonomy.
func classify(err error, operation, pipeline string) error {
	details := map[string]any{"pipeline_name": pipeline}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PipelineNotFoundException", "StageNotFoundException", "ActionNotFoundException":
			return ferrors.WrapWithContext(fmt.Errorf("%w: %s", ErrPipelineNotFound, apiErr.ErrorMessage()),
				ferrors.CodeNotFound, operation, details)
		case "ApprovalAlreadyCompletedException", "InvalidApprovalTokenException":
			return ferrors.WrapWithContext(ErrApprovalNotPending, ferrors.CodeInvalidInput, operation, details)
		case "AccessDeniedException":
			return ferrors.WrapWithContext(ErrAccessDenied, ferrors.CodeForbidden, operation, details)
		case "ConcurrentPipelineExecutionsLimitExceededException":
			return ferrors.WrapWithContext(fmt.Errorf("%w: %s", ErrThrottled, apiErr.ErrorMessage()),
				ferrors.CodeRateLimit, operation, details)
		}
		if retry.IsThrottle(err) {
			return ferrors.WrapWithContext(fmt.Errorf("%w: %s", ErrThrottled, apiErr.ErrorMessage()),
				ferrors.CodeRateLimit, operation, details)
		}
	}
	return ferrors.WrapWithContext(err, ferrors.CodeUnavailable, operation, details)
}
