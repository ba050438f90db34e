// Package services provides the service abstraction of conductor.
//
// A Service is the handle a scenario holds for one declared service. It
// combines identity, configuration, a property store and exactly one
// resource.ManagedResource created by a resource.Builder.
//
// # Lifecycle
//
//	NewBaseService -> Register -> Init -> Start/Stop/Restart ... -> Close
//
// Register binds the name and scenario and applies the services.<name>
// section of the configuration. Init builds the resource. Start is a no-op
// for a running resource; otherwise it runs the pre-start hooks, starts the
// resource and polls IsRunning until it reports true, then runs the
// post-start hooks. Polling ignores transient errors, stops at once on a
// resource.FatalStartError and fails with StartTimeoutError when the startup
// timeout elapses. Stop is a no-op for a stopped resource. Close always
// stops the resource and removes the working directory of a passing
// scenario.
//
// # Future Properties
//
// WithFutureProperty registers a value computed right before start. Register
// installs a pre-start hook, ahead of all others, that resolves them, so a
// property can refer to the URI of a service started earlier.
//
// # State Tracking
//
// BaseService records a ServiceState (Unknown, Starting, Running, Stopping,
// Stopped, Failed) and reports transitions through a StateChangeCallback.
//
// Registry keeps the services of a scenario in registration order;
// GetAllReversed gives the teardown order.
package services
