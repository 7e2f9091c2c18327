package domain

// ChangeEventFromReferenceEvent converts the inbound repository state-change
// payload into the event consumed by the dispatcher. A created branch has no
// old commit, so BeforeRevision is left empty.
func ChangeEventFromReferenceEvent(ev ReferenceEvent) ChangeEvent {
	repo := ev.RepositoryName
	if repo == "" {
		repo = ev.RepositoryID
	}
	before := ev.OldCommitID
	if ev.Event == ReferenceCreated {
		before = ""
	}
	return ChangeEvent{
		RepositoryID:   repo,
		BeforeRevision: before,
		AfterRevision:  ev.CommitID,
		ReferenceName:  ev.ReferenceName,
		ReferenceType:  ev.ReferenceType,
		Actor:          ev.CallerUserArn,
	}
}

// IsDispatchable reports whether ev should reach the dispatcher: a branch
// created or updated on the watched branch. Deletions never dispatch.
func IsDispatchable(ev ReferenceEvent, watchedBranch string) bool {
	if watchedBranch == "" {
		watchedBranch = DefaultBranch
	}
	if ev.ReferenceType != ReferenceTypeBranch {
		return false
	}
	if ev.Event != ReferenceCreated && ev.Event != ReferenceUpdated {
		return false
	}
	return ev.ReferenceName == watchedBranch
}
