package main

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/input-output-hk/catalyst-forge-delivery/dispatch"
	"github.com/input-output-hk/catalyst-forge-delivery/domain"
	"github.com/input-output-hk/catalyst-forge-delivery/errors"
)

// Event pattern the function is subscribed to.
const (
	eventSource     = "aws.codecommit"
	eventDetailType = "CodeCommit Repository State Change"
)

type dispatcher interface {
	Dispatch(ctx context.Context, event domain.ChangeEvent) (*dispatch.Result, error)
}

type handler struct {
	dispatcher dispatcher
	repository string
	branch     string
	logger     *slog.Logger
}

// Handle dispatches one state-change event. Events outside the subscription
// pattern return a nil result. Diff and decode failures are returned as
// errors so the event is redelivered. Failed triggers are logged and reported
// in the result only: redelivery would start every healthy pipeline again.
func (h *handler) Handle(ctx context.Context, ev events.CloudWatchEvent) (*dispatch.Result, error) {
	if ev.Source != eventSource || ev.DetailType != eventDetailType {
		h.logger.InfoContext(ctx, "ignoring event", "source", ev.Source, "detail_type", ev.DetailType)
		return nil, nil
	}

	var ref domain.ReferenceEvent
	if err := json.Unmarshal(ev.Detail, &ref); err != nil {
		return nil, errors.WrapWithContext(err, errors.CodeInvalidInput, "failed to decode event detail",
			map[string]any{"event_id": ev.ID})
	}
	if !domain.IsDispatchable(ref, h.branch) {
		h.logger.InfoContext(ctx, "ignoring reference change",
			"event", ref.Event,
			"reference_type", ref.ReferenceType,
			"reference_name", ref.ReferenceName)
		return nil, nil
	}

	change := domain.ChangeEventFromReferenceEvent(ref)
	if h.repository != "" && change.RepositoryID != h.repository {
		h.logger.InfoContext(ctx, "ignoring unwatched repository", "repository", change.RepositoryID)
		return nil, nil
	}

	result, err := h.dispatcher.Dispatch(ctx, change)
	if err != nil {
		return nil, err
	}
	if err := result.Err(); err != nil {
		h.logger.ErrorContext(ctx, "pipelines failed to start",
			"repository", change.RepositoryID,
			"after_revision", change.AfterRevision,
			"triggered", result.Triggered,
			"failed", len(result.Failed),
			"error", err)
	}
	return result, nil
}
