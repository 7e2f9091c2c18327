// Package rollout builds the stage graph of a delivery pipeline.
//
// A graph is authored once per pipeline and never mutated; every commit runs
// the same graph again. BuildStageGraph produces
//
//	Source -> Build -> Deploy-<STAGE> for each account, in account order
//
// where each Deploy stage is either gated (ManualApproval at runOrder 1,
// Deploy at runOrder 2) or automatic (Deploy at runOrder 2 only). The
// AccountPolicy passed in decides which, per account.
//
// The package also renders what surrounds a graph: the CodeBuild buildspec
// of each Build and Deploy action and the least-privilege IAM statements of
// each Deploy stage. A Deploy stage may only touch its own account;
// CheckIsolation enforces this.
package rollout
