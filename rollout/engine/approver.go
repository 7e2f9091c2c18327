package engine

import (
	"context"
	"errors"
	"sync"
)

// ErrNoPendingApproval is returned when resolving an approval nobody waits on.
var ErrNoPendingApproval = errors.New("no pending approval")

// ApprovalRequest identifies one pending manual approval.
type ApprovalRequest struct {
	ExecutionID  string `json:"execution_id"`
	PipelineName string `json:"pipeline_name"`
	Stage        string `json:"stage"`
	Action       string `json:"action"`
	Information  string `json:"information,omitempty"`
}

// Decision resolves an approval.
type Decision struct {
	Approved bool   `json:"approved"`
	Summary  string `json:"summary,omitempty"`
}

// Approver blocks until an approval request is resolved or ctx ends.
type Approver interface {
	Await(ctx context.Context, req ApprovalRequest) (Decision, error)
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, req ApprovalRequest) (Decision, error)

// Await calls f(ctx, req).
func (f ApproverFunc) Await(ctx context.Context, req ApprovalRequest) (Decision, error) {
	return f(ctx, req)
}

type approvalKey struct {
	executionID, stage, action string
}

// ChannelApprover is an in-memory Approver resolved by Resolve. Pending
// requests are announced on Requests.
type ChannelApprover struct {
	mu       sync.Mutex
	pending  map[approvalKey]chan Decision
	requests chan ApprovalRequest
}

// NewChannelApprover returns an approver announcing up to buffer pending
// requests without a reader. Announcements beyond that are dropped; Pending
// still lists them.
func NewChannelApprover(buffer int) *ChannelApprover {
	return &ChannelApprover{
		pending:  make(map[approvalKey]chan Decision),
		requests: make(chan ApprovalRequest, buffer),
	}
}

// Requests announces approvals as they become pending.
func (a *ChannelApprover) Requests() <-chan ApprovalRequest {
	return a.requests
}

// Await implements Approver.
func (a *ChannelApprover) Await(ctx context.Context, req ApprovalRequest) (Decision, error) {
	key := approvalKey{req.ExecutionID, req.Stage, req.Action}
	ch := make(chan Decision, 1)

	a.mu.Lock()
	a.pending[key] = ch
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		delete(a.pending, key)
		a.mu.Unlock()
	}()

	select {
	case a.requests <- req:
	default:
	}

	select {
	case d := <-ch:
		return d, nil
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	}
}

// Resolve delivers a decision to the approval pending on stage/action of an
// execution.
func (a *ChannelApprover) Resolve(executionID, stage, action string, d Decision) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	ch, ok := a.pending[approvalKey{executionID, stage, action}]
	if !ok {
		return ErrNoPendingApproval
	}
	delete(a.pending, approvalKey{executionID, stage, action})
	ch <- d
	return nil
}

// Pending lists the keys of pending approvals.
func (a *ChannelApprover) Pending() []ApprovalRequest {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]ApprovalRequest, 0, len(a.pending))
	for k := range a.pending {
		out = append(out, ApprovalRequest{ExecutionID: k.executionID, Stage: k.stage, Action: k.action})
	}
	return out
}
