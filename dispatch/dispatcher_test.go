package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-delivery/domain"
	ferrors "github.com/input-output-hk/catalyst-forge-delivery/errors"
)

type fakeDiffs struct {
	entries []domain.FileDiffEntry
	err     error
	calls   int
}

func (f *fakeDiffs) GetDifferences(_ context.Context, _, _, _ string) ([]domain.FileDiffEntry, error) {
	f.calls++
	return f.entries, f.err
}

type fakeTrigger struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
	hook  func(name string)
}

func (f *fakeTrigger) StartExecution(_ context.Context, name string) (string, error) {
	if f.hook != nil {
		f.hook(name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if err := f.fail[name]; err != nil {
		return "", err
	}
	return "exec-" + name, nil
}

func (f *fakeTrigger) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func paths(ps ...string) []domain.FileDiffEntry {
	entries := make([]domain.FileDiffEntry, len(ps))
	for i, p := range ps {
		entries[i] = domain.FileDiffEntry{Path: p, ChangeKind: domain.ChangeKindModified}
	}
	return entries
}

func demoRoutes() []domain.PipelineRoute {
	return []domain.PipelineRoute{
		{PipelineName: "frontend", WatchedPathPrefixes: []string{"packages/frontend", "stacks/PipelineStack"}},
		{PipelineName: "backend", WatchedPathPrefixes: []string{"packages/backend", "stacks/PipelineStack"}},
	}
}

var event = domain.ChangeEvent{
	RepositoryID:   "aws-cdk-pipeline-demo",
	BeforeRevision: "before",
	AfterRevision:  "after",
	ReferenceName:  "main",
	ReferenceType:  "branch",
}

func TestDispatchScenarios(t *testing.T) {
	tests := []struct {
		name      string
		entries   []domain.FileDiffEntry
		triggered []string
	}{
		{"frontend only", paths("packages/frontend/app.tsx"), []string{"frontend"}},
		{"shared folder triggers both", paths("stacks/PipelineStack/foo.ts"), []string{"frontend", "backend"}},
		{"empty diff", nil, []string{}},
		{"unwatched path", paths("README.md"), []string{}},
		{"both packages", paths("packages/backend/api.ts", "packages/frontend/app.tsx"), []string{"frontend", "backend"}},
		{"substring not anchored", paths("vendor/packages/backend-legacy/x.ts"), []string{"backend"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger := &fakeTrigger{}
			d, err := New(&fakeDiffs{entries: tt.entries}, trigger, demoRoutes())
			require.NoError(t, err)

			result, err := d.Dispatch(context.Background(), event)
			require.NoError(t, err)
			require.NoError(t, result.Err())
			assert.Equal(t, tt.triggered, result.Triggered)
			assert.ElementsMatch(t, tt.triggered, trigger.called())
			assert.Equal(t, len(tt.entries), result.ChangedFiles)
			for _, name := range tt.triggered {
				assert.Equal(t, "exec-"+name, result.ExecutionIDs[name])
			}
		})
	}
}

func TestDispatchDiffUnavailable(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		cause ferrors.ErrorCode
	}{
		{"not found", ferrors.New(ferrors.CodeNotFound, "commit does not exist"), ferrors.CodeNotFound},
		{"throttled", ferrors.New(ferrors.CodeRateLimit, "slow down"), ferrors.CodeRateLimit},
		{"untyped", errors.New("boom"), ferrors.CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger := &fakeTrigger{}
			d, err := New(&fakeDiffs{err: tt.err}, trigger, demoRoutes())
			require.NoError(t, err)

			result, err := d.Dispatch(context.Background(), event)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, ferrors.CodeDiffUnavailable, ferrors.GetCode(err))
			assert.ErrorIs(t, err, tt.err)
			assert.Empty(t, trigger.called(), "no pipeline may be triggered without a diff")

			var fe *ferrors.Error
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.cause.String(), fe.Context["cause_code"])
		})
	}
}

func TestDispatchPartialFailure(t *testing.T) {
	trigger := &fakeTrigger{fail: map[string]error{"frontend": errors.New("throttled")}}
	d, err := New(&fakeDiffs{entries: paths("stacks/PipelineStack/foo.ts")}, trigger, demoRoutes())
	require.NoError(t, err)

	result, err := d.Dispatch(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, []string{"backend"}, result.Triggered)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "frontend", result.Failed[0].PipelineName)
	assert.ElementsMatch(t, []string{"frontend", "backend"}, trigger.called())

	rerr := result.Err()
	require.Error(t, rerr)
	assert.Equal(t, ferrors.CodeRouteTriggerFailed, ferrors.GetCode(rerr))
	assert.Contains(t, rerr.Error(), "frontend")
	assert.ErrorIs(t, rerr, trigger.fail["frontend"])
}

func TestDispatchDoesNotSerializeTriggers(t *testing.T) {
	backendCalled := make(chan struct{})
	var blocked atomic.Bool
	trigger := &fakeTrigger{
		fail: map[string]error{},
		hook: func(name string) {
			switch name {
			case "frontend":
				select {
				case <-backendCalled:
				case <-time.After(5 * time.Second):
					blocked.Store(true)
				}
			case "backend":
				close(backendCalled)
			}
		},
	}
	d, err := New(&fakeDiffs{entries: paths("stacks/PipelineStack/foo.ts")}, trigger, demoRoutes())
	require.NoError(t, err)

	result, err := d.Dispatch(context.Background(), event)
	require.NoError(t, err)
	assert.False(t, blocked.Load(), "backend start must not wait for frontend")
	assert.Equal(t, []string{"frontend", "backend"}, result.Triggered)
}

func TestDispatchConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	trigger := &fakeTrigger{hook: func(string) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
	}}

	var routes []domain.PipelineRoute
	for i := range 6 {
		routes = append(routes, domain.PipelineRoute{
			PipelineName:        fmt.Sprintf("p%d", i),
			WatchedPathPrefixes: []string{"shared"},
		})
	}

	d, err := New(&fakeDiffs{entries: paths("shared/x")}, trigger, routes, WithConcurrency(2))
	require.NoError(t, err)

	result, err := d.Dispatch(context.Background(), event)
	require.NoError(t, err)
	assert.Len(t, result.Triggered, 6)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestDispatchIsPure(t *testing.T) {
	diffs := &fakeDiffs{entries: paths("packages/backend/api.ts", "docs/readme.md")}
	d, err := New(diffs, &fakeTrigger{}, demoRoutes())
	require.NoError(t, err)

	first, err := d.Dispatch(context.Background(), event)
	require.NoError(t, err)
	second, err := d.Dispatch(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, first.Triggered, second.Triggered)
	assert.Equal(t, 2, diffs.calls)
}

func TestMatchIgnoresEmptyPaths(t *testing.T) {
	d, err := New(&fakeDiffs{}, &fakeTrigger{}, demoRoutes())
	require.NoError(t, err)

	entries := []domain.FileDiffEntry{{BeforePath: "packages/frontend/gone.tsx", ChangeKind: domain.ChangeKindDeleted}}
	assert.Empty(t, d.Match(entries))
}

func TestMatchRoutesDeduplicates(t *testing.T) {
	routes := []domain.PipelineRoute{
		{PipelineName: "frontend", WatchedPathPrefixes: []string{"packages/frontend"}},
		{PipelineName: "frontend", WatchedPathPrefixes: []string{"stacks"}},
		{PipelineName: "backend", WatchedPathPrefixes: []string{"stacks"}},
	}
	got := matchRoutes(SubstringMatcher{}, routes, paths("packages/frontend/a.ts", "stacks/b.ts"))
	assert.Equal(t, []string{"frontend", "backend"}, got)
}

func TestPlanDoesNotTrigger(t *testing.T) {
	trigger := &fakeTrigger{}
	d, err := New(&fakeDiffs{entries: paths("packages/frontend/app.tsx")}, trigger, demoRoutes())
	require.NoError(t, err)

	planned, err := d.Plan(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, []string{"frontend"}, planned.Matched)
	assert.Equal(t, 1, planned.ChangedFiles)
	assert.Empty(t, trigger.called())
}

func TestResultReportsEmptyTriggeredSet(t *testing.T) {
	d, err := New(&fakeDiffs{entries: paths("README.md")}, &fakeTrigger{}, demoRoutes())
	require.NoError(t, err)

	result, err := d.Dispatch(context.Background(), event)
	require.NoError(t, err)
	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"changed_files": 1, "triggered": []}`, string(data))

	planned, err := d.Plan(context.Background(), event)
	require.NoError(t, err)
	data, err = json.Marshal(planned)
	require.NoError(t, err)
	assert.JSONEq(t, `{"changed_files": 1, "matched": []}`, string(data))
}

func TestWithSegmentMatcher(t *testing.T) {
	trigger := &fakeTrigger{}
	d, err := New(&fakeDiffs{entries: paths("vendor/packages/backend-legacy/x.ts", "packages/frontend/app.tsx")},
		trigger, demoRoutes(), WithMatcher(SegmentMatcher{}))
	require.NoError(t, err)

	result, err := d.Dispatch(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, []string{"frontend"}, result.Triggered)
}

func TestEventHandler(t *testing.T) {
	var got domain.DispatchEvent
	trigger := &fakeTrigger{fail: map[string]error{"backend": errors.New("pipeline not found")}}
	d, err := New(&fakeDiffs{entries: paths("stacks/PipelineStack/foo.ts")}, trigger, demoRoutes(),
		WithEventHandler(func(ev domain.DispatchEvent) { got = ev }))
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, "aws-cdk-pipeline-demo", got.RepositoryID)
	assert.Equal(t, "after", got.AfterRevision)
	assert.Equal(t, []string{"frontend"}, got.Triggered)
	assert.Equal(t, "pipeline not found", got.Failed["backend"])
	assert.False(t, got.Timestamp.IsZero())
}

func TestNewValidatesRoutes(t *testing.T) {
	tests := []struct {
		name   string
		routes []domain.PipelineRoute
	}{
		{"duplicate name", []domain.PipelineRoute{
			{PipelineName: "frontend", WatchedPathPrefixes: []string{"a"}},
			{PipelineName: "frontend", WatchedPathPrefixes: []string{"b"}},
		}},
		{"empty name", []domain.PipelineRoute{{WatchedPathPrefixes: []string{"a"}}}},
		{"no watched paths", []domain.PipelineRoute{{PipelineName: "frontend"}}},
		{"empty watched path", []domain.PipelineRoute{{PipelineName: "frontend", WatchedPathPrefixes: []string{""}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&fakeDiffs{}, &fakeTrigger{}, tt.routes)
			require.Error(t, err)
			assert.Equal(t, ferrors.CodeInvalidConfig, ferrors.GetCode(err))
		})
	}

	_, err := New(nil, &fakeTrigger{}, demoRoutes())
	assert.Error(t, err)
}

func TestNewCopiesRoutes(t *testing.T) {
	routes := demoRoutes()
	d, err := New(&fakeDiffs{}, &fakeTrigger{}, routes)
	require.NoError(t, err)

	routes[0].WatchedPathPrefixes[0] = "mutated"
	assert.Equal(t, "packages/frontend", d.Routes()[0].WatchedPathPrefixes[0])
}
