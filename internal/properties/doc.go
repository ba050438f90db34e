// Package properties holds the per-service key/value configuration.
//
// A Store keeps two kinds of entries:
//
//   - immediate values, set with Set and visible right away
//   - future values, registered with SetFuture as a Supplier and only
//     materialized when ResolveFutures runs, as the first pre-start hook of
//     every start of a service
//
// Future values let a service point at something that only exists once
// another service has started, such as a discovered URL.
//
// Resource builders receive a read-only view (Reader). Snapshot and Diff are
// the building blocks of artifact rebuild avoidance: a snapshot taken before
// a build is diffed against the current properties and the changed keys are
// matched against build-time patterns.
package properties
