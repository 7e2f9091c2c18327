// Package domain provides canonical type definitions for the delivery system.
//
// This package is the foundation layer: a zero-dependency library of pure data
// structures with JSON and YAML struct tags, shared by the change dispatcher,
// the rollout orchestrator, the configuration loader and the AWS service
// wrappers.
//
// # Design Principles
//
//   - Zero dependencies (standard library only)
//   - Pure data structures (no business logic)
//   - No constructors or validation functions
//   - Type-safe enumerations for domain concepts
//
// # Domain Model
//
// The package organizes types into three groups:
//
//   - Change dispatch: ChangeEvent, ReferenceEvent, FileDiffEntry, PipelineRoute,
//     PipelineExecutionRequest
//   - Rollout topology: Account, Commands, PipelineDefinition, StageDefinition, Action
//   - Lifecycle events: DispatchEvent, StageEvent
//
// Change events and diff entries are transient: they are created for one
// dispatch call and discarded afterwards. Routes, accounts and pipeline
// definitions are configuration, loaded once and treated as immutable. A
// StageDefinition graph is authored once per pipeline; every commit only
// starts a new execution of the same graph.
package domain
