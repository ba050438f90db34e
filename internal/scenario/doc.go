// Package scenario orchestrates the services of one scenario run.
//
// A scenario is described by a Class: an ordered list of fields, each either
// a service with its binding.Declaration, a lookup of a service registered
// earlier, or an injection point filled by an extension. Classes can extend
// a parent class whose fields come first. LoadClasses builds classes from
// YAML files for the run command.
//
// # Lifecycle
//
// Orchestrator follows the phases of a test class:
//
//	BeforeAll(class)      scenario context, extension setup, field
//	                      registration, launch of auto-start services
//	BeforeEach(method)    extension hooks, restart of stopped auto-start
//	                      services
//	AfterEach()           extension hooks
//	TestSuccessful/TestFailed/TestDisabled
//	AfterAll()            close services in reverse order, extension
//	                      teardown, log file removal for passing scenarios
//
// Every phase error goes through one failure path that marks the scenario
// failed and notifies extensions exactly once per error.
//
// Run adapts the phases to testing.T; Execute runs them with plain steps.
//
// # Extensions
//
// An Extension only has to implement AppliesFor. The other hooks
// (BeforeAllHook, ErrorHook, ParameterProvider, ...) are optional
// interfaces checked at each call site, and extensions are consulted in the
// order they were passed to New.
package scenario
