// Package engine executes stage graphs in process.
//
// It is the local counterpart of the managed pipeline service: stages run in
// graph order, actions that share a run order run concurrently, the next run
// order starts only after every action of the current one succeeded, and the
// first failure halts the run at its stage. A manual approval suspends the
// stage until an Approver resolves it; a rejection fails the stage like any
// other failure. Nothing is retried or rolled back.
//
// Each execution gets its own id and can be observed through Status and Wait
// while it runs.
package engine
